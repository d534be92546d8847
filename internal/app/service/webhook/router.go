package webhook

import (
	"context"

	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/fatflowers/reconciler/pkg/logctx"
)

// Handler processes one Stripe event type.
type Handler interface {
	EventType() string
	Handle(ctx context.Context, event stripe.Event, pc PaymentContext) (*Result, *Error)
}

// Router dispatches a verified event to the handler registered for its type.
// The registry is closed: everything else is acknowledged unprocessed so
// Stripe's retry machinery never loops on event types we intentionally
// ignore.
type Router struct {
	handlers map[string]Handler
	log      *zap.SugaredLogger
}

func NewRouter(log *zap.SugaredLogger, checkout *CheckoutHandler, charge *ChargeHandler, payout *PayoutHandler) *Router {
	r := &Router{handlers: map[string]Handler{}, log: log}
	for _, h := range []Handler{checkout, charge, payout} {
		r.handlers[h.EventType()] = h
	}
	return r
}

// SupportedEventTypes lists what the router dispatches; useful when
// configuring the Stripe webhook endpoint subscription.
func (r *Router) SupportedEventTypes() []string {
	kinds := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	return kinds
}

func (r *Router) Route(ctx context.Context, event stripe.Event) (*Result, *Error) {
	pc := PaymentContext{
		EventID:   event.ID,
		EventType: string(event.Type),
	}

	h, ok := r.handlers[string(event.Type)]
	if !ok {
		logctx.FromCtx(ctx, r.log).Infow("no handler for event type, acknowledging", pc.LogFields()...)
		return notProcessed(), nil
	}

	logctx.FromCtx(ctx, r.log).Infow("routing event", pc.LogFields()...)
	return h.Handle(ctx, event, pc)
}
