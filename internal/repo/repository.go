package repo

import (
	"context"

	"github.com/fatflowers/reconciler/internal/models"
	"github.com/fatflowers/reconciler/pkg/types"
)

// StatusUpdateOutcome is the result of a conditional status update.
type StatusUpdateOutcome int

const (
	// StatusUpdateApplied means the row matched the expected status and was
	// moved to the new status by this call.
	StatusUpdateApplied StatusUpdateOutcome = iota
	// StatusUpdateAlreadyApplied means the row is already in the new status;
	// a redelivered event raced or repeated a completed transition.
	StatusUpdateAlreadyApplied
	// StatusUpdateConflict means the row exists but is in neither the
	// expected nor the new status.
	StatusUpdateConflict
)

// FeeBackfill carries the secondary Stripe fee data patched onto a ledger
// entry after the initial checkout event.
type FeeBackfill struct {
	ChargeID             string
	BalanceTransactionID string
	StripeFeeCents       int64
	NetAmountCents       int64
	PayoutID             *string
}

// ErrNotFound is returned by lookups when no row matches. Callers translate
// it into their own error taxonomy.
type notFoundError struct{ what string }

func (e *notFoundError) Error() string { return e.what + " not found" }

// Repository is the narrow storage surface the reconciliation engine depends
/// on. Both idempotency guarantees live here: conditional status updates are a
// single compare-and-swap UPDATE, and ledger inserts ride the unique index on
// (target_kind, external_ref) instead of a racy check-then-insert.
type Repository interface {
	GetCandidate(ctx context.Context, id string) (*models.Candidate, error)
	GetRosterEntry(ctx context.Context, userID, weekendID string) (*models.TeamRosterEntry, error)

	UpdateCandidateStatus(ctx context.Context, id string, expected, next models.CandidateStatus) (StatusUpdateOutcome, error)
	UpdateRosterEntryStatus(ctx context.Context, id string, expected, next models.RosterStatus) (StatusUpdateOutcome, error)

	InsertLedgerEntryIfAbsent(ctx context.Context, entry *models.PaymentLedgerEntry) (created bool, stored *models.PaymentLedgerEntry, err error)
	FindLedgerEntryByExternalRef(ctx context.Context, kind types.TargetKind, externalRef string) (*models.PaymentLedgerEntry, error)
	FindLedgerEntriesByExternalRef(ctx context.Context, externalRef string) ([]*models.PaymentLedgerEntry, error)
	BackfillLedgerEntry(ctx context.Context, id string, fees FeeBackfill) (*models.PaymentLedgerEntry, error)

	InsertPayoutDepositIfAbsent(ctx context.Context, deposit *models.PayoutDeposit) (created bool, stored *models.PayoutDeposit, err error)
	CountLedgerEntriesForPayout(ctx context.Context, payoutID string) (int64, error)
}

// IsNotFound reports whether err is a repository not-found result.
func IsNotFound(err error) bool {
	_, ok := err.(*notFoundError)
	return ok
}
