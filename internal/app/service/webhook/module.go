package webhook

import (
	"go.uber.org/fx"

	cfgpkg "github.com/fatflowers/reconciler/pkg/config"
)

func newVerifier(cfg *cfgpkg.Config) Verifier {
	return NewStripeVerifier(cfg.Stripe.WebhookSecret)
}

var Module = fx.Options(
	fx.Provide(newVerifier),
	fx.Provide(NewCheckoutHandler),
	fx.Provide(NewChargeHandler),
	fx.Provide(NewPayoutHandler),
	fx.Provide(NewRouter),
)
