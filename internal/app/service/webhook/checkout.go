package webhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/fatflowers/reconciler/internal/app/service/ledger"
	"github.com/fatflowers/reconciler/internal/app/service/notifier"
	"github.com/fatflowers/reconciler/internal/app/service/registration"
	"github.com/fatflowers/reconciler/internal/models"
	"github.com/fatflowers/reconciler/internal/repo"
	cfgpkg "github.com/fatflowers/reconciler/pkg/config"
	"github.com/fatflowers/reconciler/pkg/logctx"
	"github.com/fatflowers/reconciler/pkg/types"
)

// CheckoutHandler processes checkout.session.completed: the moment a
// candidate or team fee has actually been paid. It resolves the target from
// session metadata, records the ledger entry and applies the guarded status
// transition, in that order — so a retry after a partial failure can still
// heal the missing half without double-applying the other.
type CheckoutHandler struct {
	cfg      *cfgpkg.Config
	reg      *registration.Service
	ledger   *ledger.Service
	fees     FeeSource
	notifier notifier.Notifier
	log      *zap.SugaredLogger
}

func NewCheckoutHandler(cfg *cfgpkg.Config, reg *registration.Service, led *ledger.Service, fees FeeSource, n notifier.Notifier, log *zap.SugaredLogger) *CheckoutHandler {
	return &CheckoutHandler{cfg: cfg, reg: reg, ledger: led, fees: fees, notifier: n, log: log}
}

func (h *CheckoutHandler) EventType() string { return "checkout.session.completed" }

func (h *CheckoutHandler) Handle(ctx context.Context, event stripe.Event, pc PaymentContext) (*Result, *Error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, newError(CodeProcessingError, StageValidation, SeverityError, pc,
			"failed to decode checkout session", err)
	}

	if session.PaymentIntent == nil || session.PaymentIntent.ID == "" {
		return nil, errf(CodeMissingPaymentIntent, StageValidation, SeverityError, pc,
			"missing payment intent in session %s", session.ID)
	}
	pc.PaymentIntentID = session.PaymentIntent.ID
	pc.AmountCents = session.AmountTotal

	priceID := session.Metadata["price_id"]
	kind, known := h.cfg.TargetKindForPrice(priceID)
	if !known {
		logctx.FromCtx(ctx, h.log).Warnw("unknown price id in checkout session, ignoring",
			append(pc.LogFields(), "price_id", priceID)...)
		return notProcessed(), nil
	}

	switch kind {
	case types.TargetKindCandidateFee:
		return h.handleCandidatePayment(ctx, &session, pc)
	default:
		return h.handleTeamPayment(ctx, &session, pc)
	}
}

func (h *CheckoutHandler) handleCandidatePayment(ctx context.Context, session *stripe.CheckoutSession, pc PaymentContext) (*Result, *Error) {
	candidateID := session.Metadata["candidateId"]
	if candidateID == "" {
		return nil, errf(CodeMissingCandidateID, StageValidation, SeverityError, pc,
			"missing candidateId in session metadata")
	}
	pc.CandidateID = candidateID

	candidate, err := h.reg.ResolveCandidate(ctx, candidateID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, newError(CodeTargetNotFound, StageResolution, SeverityError, pc,
				"candidate not found", err)
		}
		return nil, newError(CodeProcessingError, StageResolution, SeverityError, pc,
			"failed to load candidate", err)
	}

	// Detect desynchronization before any write: a completion event for a
	// candidate that never reached awaiting_payment is either a stale client
	// or a forged session, never something to accept silently. Confirmed is
	// allowed through so redelivery can finish a half-applied attempt.
	if candidate.Status != models.CandidateStatusAwaitingPayment &&
		candidate.Status != models.CandidateStatusConfirmed {
		return nil, errf(CodeInvalidTargetState, StageTransition, SeverityError, pc,
			"candidate not awaiting payment (current: %s)", candidate.Status)
	}

	owner := types.PaymentOwner(session.Metadata["payment_owner"])
	if owner == "" {
		owner = types.PaymentOwnerUnknown
	}

	entry, whErr := h.recordEntry(ctx, session, pc, ledger.RecordPaymentInput{
		TargetKind:    types.TargetKindCandidateFee,
		TargetID:      candidateID,
		AmountCents:   session.AmountTotal,
		Currency:      string(session.Currency),
		PaymentMethod: types.PaymentMethodCard,
		PaymentOwner:  owner,
		ExternalRef:   session.PaymentIntent.ID,
	})
	if whErr != nil {
		return nil, whErr
	}

	outcome, err := h.reg.ConfirmFromPayment(ctx, candidateID)
	if err != nil {
		return nil, newError(CodeProcessingError, StageTransition, SeverityError, pc,
			"failed to update candidate status", err)
	}
	if outcome == repo.StatusUpdateConflict {
		return nil, errf(CodeInvalidTargetState, StageTransition, SeverityError, pc,
			"candidate status changed concurrently, not confirmable")
	}

	if outcome == repo.StatusUpdateApplied {
		go func() {
			if nerr := h.notifier.CandidatePaymentReceived(context.WithoutCancel(ctx), candidateID, entry.AmountCents, entry.PaymentMethod); nerr != nil {
				h.log.Errorw("failed to notify candidate payment", "candidate_id", candidateID, "error", nerr)
			}
		}()
	}

	return &Result{
		Processed:  true,
		EntityType: EntityCandidatePayment,
		EntityID:   entry.ID,
		Details: map[string]interface{}{
			"candidate_id": candidateID,
			"amount_cents": entry.AmountCents,
		},
	}, nil
}

func (h *CheckoutHandler) handleTeamPayment(ctx context.Context, session *stripe.CheckoutSession, pc PaymentContext) (*Result, *Error) {
	userID := session.Metadata["user_id"]
	weekendID := session.Metadata["weekend_id"]
	if userID == "" {
		return nil, errf(CodeMissingUserID, StageValidation, SeverityError, pc,
			"missing user_id in session metadata")
	}
	if weekendID == "" {
		return nil, errf(CodeMissingWeekendID, StageValidation, SeverityError, pc,
			"missing weekend_id in session metadata")
	}
	pc.UserID = userID
	pc.WeekendID = weekendID

	rosterEntry, err := h.reg.ResolveRosterEntry(ctx, userID, weekendID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, newError(CodeTargetNotFound, StageResolution, SeverityError, pc,
				"roster entry not found", err)
		}
		return nil, newError(CodeProcessingError, StageResolution, SeverityError, pc,
			"failed to load roster entry", err)
	}
	pc.RosterEntryID = rosterEntry.ID

	if rosterEntry.Status != models.RosterStatusAwaitingPayment &&
		rosterEntry.Status != models.RosterStatusPaid {
		return nil, errf(CodeInvalidTargetState, StageTransition, SeverityError, pc,
			"roster entry not awaiting payment (current: %s)", rosterEntry.Status)
	}

	entry, whErr := h.recordEntry(ctx, session, pc, ledger.RecordPaymentInput{
		TargetKind:    types.TargetKindTeamFee,
		TargetID:      rosterEntry.ID,
		AmountCents:   session.AmountTotal,
		Currency:      string(session.Currency),
		PaymentMethod: types.PaymentMethodCard,
		PaymentOwner:  types.PaymentOwnerUnknown,
		ExternalRef:   session.PaymentIntent.ID,
	})
	if whErr != nil {
		return nil, whErr
	}

	outcome, err := h.reg.MarkRosterPaid(ctx, rosterEntry.ID)
	if err != nil {
		return nil, newError(CodeProcessingError, StageTransition, SeverityError, pc,
			"failed to update roster status", err)
	}
	if outcome == repo.StatusUpdateConflict {
		return nil, errf(CodeInvalidTargetState, StageTransition, SeverityError, pc,
			"roster status changed concurrently, not payable")
	}

	if outcome == repo.StatusUpdateApplied {
		go func() {
			if nerr := h.notifier.TeamPaymentReceived(context.WithoutCancel(ctx), userID, weekendID, entry.AmountCents); nerr != nil {
				h.log.Errorw("failed to notify team payment", "user_id", userID, "error", nerr)
			}
		}()
	}

	return &Result{
		Processed:  true,
		EntityType: EntityTeamPayment,
		EntityID:   entry.ID,
		Details: map[string]interface{}{
			"user_id":         userID,
			"weekend_id":      weekendID,
			"roster_entry_id": rosterEntry.ID,
			"amount_cents":    entry.AmountCents,
		},
	}, nil
}

// recordEntry writes the ledger entry with best-effort fee data. Fee fetch
// failure only logs: balance transactions routinely lag checkout and
// charge.updated backfills them within the hour.
func (h *CheckoutHandler) recordEntry(ctx context.Context, session *stripe.CheckoutSession, pc PaymentContext, in ledger.RecordPaymentInput) (*models.PaymentLedgerEntry, *Error) {
	if fee, err := h.fees.TransactionData(ctx, session.PaymentIntent.ID); err != nil {
		logctx.FromCtx(ctx, h.log).Warnw("fee data not available at checkout time, will backfill",
			append(pc.LogFields(), "error", err.Error())...)
	} else {
		in.Fee = &repo.FeeBackfill{
			ChargeID:             fee.ChargeID,
			BalanceTransactionID: fee.BalanceTransactionID,
			StripeFeeCents:       fee.StripeFeeCents,
			NetAmountCents:       fee.NetAmountCents,
		}
	}

	_, entry, err := h.ledger.RecordPayment(ctx, in)
	if err != nil {
		return nil, newError(CodeLedgerWriteFailed, StageLedgerWrite, SeverityError, pc,
			"failed to record payment", err)
	}
	return entry, nil
}
