package webhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/fatflowers/reconciler/internal/app/service/ledger"
	"github.com/fatflowers/reconciler/internal/repo"
	"github.com/fatflowers/reconciler/pkg/logctx"
)

// ChargeHandler processes charge.updated, the event Stripe sends once the
// charge's balance transaction exists. It backfills fee data onto ledger
// entries recorded earlier without it. Stripe promises the balance
// transaction within an hour of the charge, which is why backfill carries a
// staleness window instead of matching forever.
type ChargeHandler struct {
	ledger *ledger.Service
	fees   FeeSource
	log    *zap.SugaredLogger
}

func NewChargeHandler(led *ledger.Service, fees FeeSource, log *zap.SugaredLogger) *ChargeHandler {
	return &ChargeHandler{ledger: led, fees: fees, log: log}
}

func (h *ChargeHandler) EventType() string { return "charge.updated" }

func (h *ChargeHandler) Handle(ctx context.Context, event stripe.Event, pc PaymentContext) (*Result, *Error) {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return nil, newError(CodeProcessingError, StageValidation, SeverityError, pc,
			"failed to decode charge", err)
	}

	if charge.BalanceTransaction == nil {
		logctx.FromCtx(ctx, h.log).Debugw("charge.updated without balance transaction, skipping",
			append(pc.LogFields(), "charge_id", charge.ID)...)
		return notProcessed(), nil
	}
	if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
		logctx.FromCtx(ctx, h.log).Debugw("charge.updated without payment intent, skipping",
			append(pc.LogFields(), "charge_id", charge.ID)...)
		return notProcessed(), nil
	}
	pc.ChargeID = charge.ID
	pc.PaymentIntentID = charge.PaymentIntent.ID
	pc.AmountCents = charge.Amount

	// Re-fetch through the fee source rather than trusting the event body:
	// the webhook payload's balance transaction is usually an unexpanded id.
	fee, err := h.fees.TransactionData(ctx, charge.PaymentIntent.ID)
	if err != nil {
		logctx.FromCtx(ctx, h.log).Warnw("failed to fetch fee data for backfill",
			append(pc.LogFields(), "error", err.Error())...)
		return notProcessed(), nil
	}

	outcome, patched, err := h.ledger.Backfill(ctx, charge.PaymentIntent.ID, repo.FeeBackfill{
		ChargeID:             fee.ChargeID,
		BalanceTransactionID: fee.BalanceTransactionID,
		StripeFeeCents:       fee.StripeFeeCents,
		NetAmountCents:       fee.NetAmountCents,
	})
	if err != nil {
		return nil, newError(CodeLedgerWriteFailed, StageBackfill, SeverityError, pc,
			"failed to backfill fee data", err)
	}

	switch outcome {
	case ledger.BackfillNoMatch:
		// Legacy payment or one recorded by another system; retrying cannot
		// produce a match, so acknowledge with a warning.
		return nil, errf(CodeBackfillNoMatch, StageBackfill, SeverityWarning, pc,
			"no ledger entry matches payment intent %s", charge.PaymentIntent.ID)
	case ledger.BackfillStale:
		return nil, errf(CodeStaleBackfill, StageBackfill, SeverityWarning, pc,
			"ledger entries for %s are outside the backfill window", charge.PaymentIntent.ID)
	}

	entryID := ""
	if len(patched) > 0 {
		entryID = patched[0].ID
	}
	return &Result{
		Processed:  true,
		EntityType: EntityFeeBackfill,
		EntityID:   entryID,
		Details: map[string]interface{}{
			"payment_intent_id": charge.PaymentIntent.ID,
			"entries_patched":   len(patched),
		},
	}, nil
}
