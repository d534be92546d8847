package ledger

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/reconciler/internal/models"
	"github.com/fatflowers/reconciler/internal/repo"
	"github.com/fatflowers/reconciler/pkg/config"
	"github.com/fatflowers/reconciler/pkg/logctx"
	"github.com/fatflowers/reconciler/pkg/types"
)

// Service is the ledger writer and backfill reconciler. Idempotency of the
// write path is delegated to the repository's unique index; the service adds
// the staleness policy for late-arriving fee data.
type Service struct {
	repo repo.Repository
	cfg  *config.Config
	log  *zap.SugaredLogger
	now  func() time.Time
}

func NewService(r repo.Repository, cfg *config.Config, log *zap.SugaredLogger) *Service {
	return &Service{repo: r, cfg: cfg, log: log, now: time.Now}
}

// RecordPaymentInput carries what the checkout event knows about the money.
// Fee fields are optional: Stripe often has no balance transaction at
// checkout time, and charge.updated fills the gap.
type RecordPaymentInput struct {
	TargetKind    types.TargetKind
	TargetID      string
	AmountCents   int64
	Currency      string
	PaymentMethod types.PaymentMethod
	PaymentOwner  types.PaymentOwner
	ExternalRef   string
	Fee           *repo.FeeBackfill
}

// RecordPayment inserts the ledger entry for a completed checkout.
// Redelivery with the same external reference returns the stored entry with
// created=false; callers treat that as success.
func (s *Service) RecordPayment(ctx context.Context, in RecordPaymentInput) (bool, *models.PaymentLedgerEntry, error) {
	entry := &models.PaymentLedgerEntry{
		TargetKind:    in.TargetKind,
		TargetID:      in.TargetID,
		AmountCents:   in.AmountCents,
		Currency:      in.Currency,
		PaymentMethod: in.PaymentMethod,
		PaymentOwner:  in.PaymentOwner,
		ExternalRef:   in.ExternalRef,
	}
	if in.Fee != nil {
		entry.ChargeID = &in.Fee.ChargeID
		entry.BalanceTransactionID = &in.Fee.BalanceTransactionID
		entry.StripeFeeCents = &in.Fee.StripeFeeCents
		entry.NetAmountCents = &in.Fee.NetAmountCents
	}

	created, stored, err := s.repo.InsertLedgerEntryIfAbsent(ctx, entry)
	if err != nil {
		return false, nil, err
	}
	if !created {
		logctx.FromCtx(ctx, s.log).Infow("ledger entry already present, skipping insert",
			"external_ref", in.ExternalRef, "target_kind", in.TargetKind)
	}
	return created, stored, nil
}

// BackfillOutcome classifies what a backfill attempt did.
type BackfillOutcome int

const (
	BackfillApplied BackfillOutcome = iota
	BackfillNoMatch
	BackfillStale
)

// Backfill patches fee data onto the ledger entries recorded for an external
// reference. Entries older than the configured window are left alone: the
// financial state is already correct without the enrichment, and a stale
// patch is more likely to belong to a different accounting period.
func (s *Service) Backfill(ctx context.Context, externalRef string, fees repo.FeeBackfill) (BackfillOutcome, []*models.PaymentLedgerEntry, error) {
	entries, err := s.repo.FindLedgerEntriesByExternalRef(ctx, externalRef)
	if err != nil {
		return BackfillNoMatch, nil, err
	}
	if len(entries) == 0 {
		return BackfillNoMatch, nil, nil
	}

	window := s.cfg.BackfillWindow()
	cutoff := s.now().Add(-window)

	var patched []*models.PaymentLedgerEntry
	stale := 0
	for _, entry := range entries {
		if entry.CreatedAt.Before(cutoff) {
			stale++
			logctx.FromCtx(ctx, s.log).Warnw("ledger entry outside backfill window, leaving for manual review",
				"external_ref", externalRef, "entry_id", entry.ID,
				"created_at", entry.CreatedAt, "window", window.String())
			continue
		}
		updated, err := s.repo.BackfillLedgerEntry(ctx, entry.ID, fees)
		if err != nil {
			return BackfillApplied, patched, err
		}
		patched = append(patched, updated)
	}

	if len(patched) == 0 && stale > 0 {
		return BackfillStale, nil, nil
	}
	return BackfillApplied, patched, nil
}

// FindByExternalRef exposes the repository lookup for read paths.
func (s *Service) FindByExternalRef(ctx context.Context, kind types.TargetKind, externalRef string) (*models.PaymentLedgerEntry, error) {
	return s.repo.FindLedgerEntryByExternalRef(ctx, kind, externalRef)
}

// RecordDeposit persists a payout settlement, insert-if-absent on payout id.
func (s *Service) RecordDeposit(ctx context.Context, deposit *models.PayoutDeposit) (bool, *models.PayoutDeposit, error) {
	linked, err := s.repo.CountLedgerEntriesForPayout(ctx, deposit.PayoutID)
	if err != nil {
		return false, nil, err
	}
	deposit.PaymentCount = linked
	return s.repo.InsertPayoutDepositIfAbsent(ctx, deposit)
}

var Module = fx.Options(
	fx.Provide(NewService),
)
