package stripeapi

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/reconciler/internal/app/service/webhook"
	cfgpkg "github.com/fatflowers/reconciler/pkg/config"
)

// feeSource implements webhook.FeeSource against the Stripe API. Balance
// transaction amounts come back in cents, matching ledger storage.
type feeSource struct {
	sc  *client.API
	log *zap.SugaredLogger
}

func NewFeeSource(cfg *cfgpkg.Config, log *zap.SugaredLogger) webhook.FeeSource {
	sc := &client.API{}
	sc.Init(cfg.Stripe.APIKey, nil)
	return &feeSource{sc: sc, log: log}
}

func (f *feeSource) TransactionData(ctx context.Context, paymentIntentID string) (*webhook.FeeData, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge.balance_transaction")

	pi, err := f.sc.PaymentIntents.Get(paymentIntentID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve payment intent %s: %w", paymentIntentID, err)
	}
	if pi.LatestCharge == nil {
		return nil, fmt.Errorf("payment intent %s has no charge", paymentIntentID)
	}
	bt := pi.LatestCharge.BalanceTransaction
	if bt == nil {
		return nil, fmt.Errorf("charge %s has no balance transaction yet", pi.LatestCharge.ID)
	}

	return &webhook.FeeData{
		ChargeID:             pi.LatestCharge.ID,
		BalanceTransactionID: bt.ID,
		StripeFeeCents:       bt.Fee,
		NetAmountCents:       bt.Net,
	}, nil
}

func (f *feeSource) PayoutTransactions(ctx context.Context, payoutID string) ([]webhook.PayoutTransaction, error) {
	params := &stripe.BalanceTransactionListParams{
		Payout: stripe.String(payoutID),
		Type:   stripe.String("charge"),
	}
	params.Context = ctx
	params.AddExpand("data.source")

	var txns []webhook.PayoutTransaction
	it := f.sc.BalanceTransactions.List(params)
	for it.Next() {
		bt := it.BalanceTransaction()
		if bt.Source == nil || bt.Source.Charge == nil {
			f.log.Debugw("payout balance transaction without charge source", "balance_transaction_id", bt.ID)
			continue
		}
		charge := bt.Source.Charge

		var paymentIntentID string
		if charge.PaymentIntent != nil {
			paymentIntentID = charge.PaymentIntent.ID
		}

		txns = append(txns, webhook.PayoutTransaction{
			PaymentIntentID: paymentIntentID,
			Fee: webhook.FeeData{
				ChargeID:             charge.ID,
				BalanceTransactionID: bt.ID,
				StripeFeeCents:       bt.Fee,
				NetAmountCents:       bt.Net,
			},
		})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("failed to list payout transactions for %s: %w", payoutID, err)
	}
	return txns, nil
}

var Module = fx.Options(
	fx.Provide(NewFeeSource),
)
