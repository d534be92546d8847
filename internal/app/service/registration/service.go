package registration

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/reconciler/internal/models"
	"github.com/fatflowers/reconciler/internal/repo"
	"github.com/fatflowers/reconciler/pkg/logctx"
)

// Service is the payment target resolver and state transition guard. It
// loads the payment-gated entity an event refers to and owns the only two
// status transitions this system is allowed to make: candidate
// awaiting_payment → confirmed and roster awaiting_payment → paid.
type Service struct {
	repo repo.Repository
	log  *zap.SugaredLogger
}

func NewService(r repo.Repository, log *zap.SugaredLogger) *Service {
	return &Service{repo: r, log: log}
}

// ResolveCandidate loads the candidate an event targets. Amount and owner
// fields in event metadata are never trusted for authorization; whether a
// candidate may be confirmed is purely a function of current status, decided
// in ConfirmFromPayment.
func (s *Service) ResolveCandidate(ctx context.Context, candidateID string) (*models.Candidate, error) {
	return s.repo.GetCandidate(ctx, candidateID)
}

// ResolveRosterEntry loads a team member's roster assignment by the
// (user, weekend) pair carried in checkout metadata.
func (s *Service) ResolveRosterEntry(ctx context.Context, userID, weekendID string) (*models.TeamRosterEntry, error) {
	return s.repo.GetRosterEntry(ctx, userID, weekendID)
}

// ConfirmFromPayment moves a candidate out of awaiting_payment. The update
// is a storage-level compare-and-swap, so concurrent redeliveries of the same
// completion event cannot both apply it. Already-confirmed is reported as
// such, not as failure: that outcome is what makes redelivery safe.
func (s *Service) ConfirmFromPayment(ctx context.Context, candidateID string) (repo.StatusUpdateOutcome, error) {
	outcome, err := s.repo.UpdateCandidateStatus(ctx, candidateID,
		models.CandidateStatusAwaitingPayment, models.CandidateStatusConfirmed)
	if err != nil {
		return outcome, err
	}
	switch outcome {
	case repo.StatusUpdateApplied:
		logctx.FromCtx(ctx, s.log).Infow("candidate confirmed from payment", "candidate_id", candidateID)
	case repo.StatusUpdateAlreadyApplied:
		logctx.FromCtx(ctx, s.log).Infow("candidate already confirmed, treating as no-op", "candidate_id", candidateID)
	}
	return outcome, nil
}

// MarkRosterPaid is the team-fee counterpart of ConfirmFromPayment.
func (s *Service) MarkRosterPaid(ctx context.Context, rosterEntryID string) (repo.StatusUpdateOutcome, error) {
	outcome, err := s.repo.UpdateRosterEntryStatus(ctx, rosterEntryID,
		models.RosterStatusAwaitingPayment, models.RosterStatusPaid)
	if err != nil {
		return outcome, err
	}
	if outcome == repo.StatusUpdateApplied {
		logctx.FromCtx(ctx, s.log).Infow("roster entry marked paid", "roster_entry_id", rosterEntryID)
	}
	return outcome, nil
}

var Module = fx.Options(
	fx.Provide(NewService),
)
