package webhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/fatflowers/reconciler/internal/app/service/ledger"
	"github.com/fatflowers/reconciler/internal/models"
	"github.com/fatflowers/reconciler/internal/repo"
	"github.com/fatflowers/reconciler/pkg/logctx"
)

// PayoutHandler processes payout.paid: money leaving Stripe for the bank
// account. It backfills fee data for every charge settled by the payout,
// stamps the payout id on the matched ledger entries, and records the deposit
// itself, insert-if-absent because payout events redeliver like any other.
type PayoutHandler struct {
	ledger *ledger.Service
	fees   FeeSource
	log    *zap.SugaredLogger
}

func NewPayoutHandler(led *ledger.Service, fees FeeSource, log *zap.SugaredLogger) *PayoutHandler {
	return &PayoutHandler{ledger: led, fees: fees, log: log}
}

func (h *PayoutHandler) EventType() string { return "payout.paid" }

func (h *PayoutHandler) Handle(ctx context.Context, event stripe.Event, pc PaymentContext) (*Result, *Error) {
	var payout stripe.Payout
	if err := json.Unmarshal(event.Data.Raw, &payout); err != nil {
		return nil, newError(CodeProcessingError, StageValidation, SeverityError, pc,
			"failed to decode payout", err)
	}
	pc.PayoutID = payout.ID
	pc.AmountCents = payout.Amount

	txns, err := h.fees.PayoutTransactions(ctx, payout.ID)
	if err != nil {
		// The payout already happened; failing the webhook only makes Stripe
		// resend an event we still could not enrich. Acknowledge and leave
		// the deposit for manual review.
		logctx.FromCtx(ctx, h.log).Warnw("failed to list payout transactions, needs manual review",
			append(pc.LogFields(), "error", err.Error())...)
		return notProcessed(), nil
	}

	backfilled := 0
	for _, txn := range txns {
		if txn.PaymentIntentID == "" {
			continue
		}
		outcome, patched, berr := h.ledger.Backfill(ctx, txn.PaymentIntentID, repo.FeeBackfill{
			ChargeID:             txn.Fee.ChargeID,
			BalanceTransactionID: txn.Fee.BalanceTransactionID,
			StripeFeeCents:       txn.Fee.StripeFeeCents,
			NetAmountCents:       txn.Fee.NetAmountCents,
			PayoutID:             lo.ToPtr(payout.ID),
		})
		if berr != nil {
			return nil, newError(CodeLedgerWriteFailed, StagePayout, SeverityError, pc,
				"failed to backfill payout fee data", berr)
		}
		if outcome == ledger.BackfillApplied && len(patched) > 0 {
			backfilled++
		}
	}

	deposit := &models.PayoutDeposit{
		PayoutID:    payout.ID,
		AmountCents: payout.Amount,
		Status:      models.PayoutDepositStatus(payout.Status),
	}
	if payout.ArrivalDate > 0 {
		deposit.ArrivalDate = lo.ToPtr(time.Unix(payout.ArrivalDate, 0).UTC())
	}

	created, stored, err := h.ledger.RecordDeposit(ctx, deposit)
	if err != nil {
		return nil, newError(CodePayoutRecordFailed, StagePayout, SeverityError, pc,
			"failed to record payout deposit", err)
	}

	logctx.FromCtx(ctx, h.log).Infow("payout processing complete",
		append(pc.LogFields(),
			"deposit_id", stored.ID,
			"deposit_created", created,
			"payments_backfilled", backfilled,
			"payments_linked", stored.PaymentCount,
			"total_transactions", len(txns))...)

	return &Result{
		Processed:  true,
		EntityType: EntityPayout,
		EntityID:   stored.ID,
		Details: map[string]interface{}{
			"payout_id":           payout.ID,
			"payments_backfilled": backfilled,
			"payments_linked":     stored.PaymentCount,
			"total_transactions":  len(txns),
		},
	}, nil
}
