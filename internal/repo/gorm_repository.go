package repo

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/reconciler/internal/models"
	"github.com/fatflowers/reconciler/pkg/tool"
	"github.com/fatflowers/reconciler/pkg/types"
)

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns the gorm-backed Repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	var c models.Candidate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &notFoundError{what: "candidate " + id}
		}
		return nil, fmt.Errorf("failed to load candidate: %w", err)
	}
	return &c, nil
}

func (r *gormRepository) GetRosterEntry(ctx context.Context, userID, weekendID string) (*models.TeamRosterEntry, error) {
	var e models.TeamRosterEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND weekend_id = ?", userID, weekendID).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &notFoundError{what: "roster entry for user " + userID}
		}
		return nil, fmt.Errorf("failed to load roster entry: %w", err)
	}
	return &e, nil
}

// UpdateCandidateStatus performs the compare-and-swap transition. The WHERE
// clause carries the expected status so two concurrent deliveries cannot both
// observe awaiting_payment and both apply side effects; the loser sees zero
// rows affected and is classified by a follow-up read.
func (r *gormRepository) UpdateCandidateStatus(ctx context.Context, id string, expected, next models.CandidateStatus) (StatusUpdateOutcome, error) {
	tx := r.db.WithContext(ctx).Model(&models.Candidate{}).
		Where("id = ? AND status = ?", id, expected).
		Update("status", next)
	if tx.Error != nil {
		return StatusUpdateConflict, fmt.Errorf("failed to update candidate status: %w", tx.Error)
	}
	if tx.RowsAffected > 0 {
		return StatusUpdateApplied, nil
	}

	c, err := r.GetCandidate(ctx, id)
	if err != nil {
		return StatusUpdateConflict, err
	}
	if c.Status == next {
		return StatusUpdateAlreadyApplied, nil
	}
	return StatusUpdateConflict, nil
}

func (r *gormRepository) UpdateRosterEntryStatus(ctx context.Context, id string, expected, next models.RosterStatus) (StatusUpdateOutcome, error) {
	tx := r.db.WithContext(ctx).Model(&models.TeamRosterEntry{}).
		Where("id = ? AND status = ?", id, expected).
		Update("status", next)
	if tx.Error != nil {
		return StatusUpdateConflict, fmt.Errorf("failed to update roster status: %w", tx.Error)
	}
	if tx.RowsAffected > 0 {
		return StatusUpdateApplied, nil
	}

	var e models.TeamRosterEntry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return StatusUpdateConflict, &notFoundError{what: "roster entry " + id}
		}
		return StatusUpdateConflict, fmt.Errorf("failed to re-read roster entry: %w", err)
	}
	if e.Status == next {
		return StatusUpdateAlreadyApplied, nil
	}
	return StatusUpdateConflict, nil
}

// InsertLedgerEntryIfAbsent relies on the unique index over
// (target_kind, external_ref): a redelivered event inserts nothing and gets
// the stored row back.
func (r *gormRepository) InsertLedgerEntryIfAbsent(ctx context.Context, entry *models.PaymentLedgerEntry) (bool, *models.PaymentLedgerEntry, error) {
	if entry.ID == "" {
		entry.ID = tool.GenerateUUIDV7()
	}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "target_kind"},
			{Name: "external_ref"},
		},
		DoNothing: true,
	}).Create(entry)
	if tx.Error != nil {
		return false, nil, fmt.Errorf("failed to insert ledger entry: %w", tx.Error)
	}
	created := tx.RowsAffected > 0

	stored, err := r.FindLedgerEntryByExternalRef(ctx, entry.TargetKind, entry.ExternalRef)
	if err != nil {
		return created, nil, err
	}
	return created, stored, nil
}

func (r *gormRepository) FindLedgerEntryByExternalRef(ctx context.Context, kind types.TargetKind, externalRef string) (*models.PaymentLedgerEntry, error) {
	var e models.PaymentLedgerEntry
	err := r.db.WithContext(ctx).
		Where("target_kind = ? AND external_ref = ?", kind, externalRef).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &notFoundError{what: "ledger entry " + externalRef}
		}
		return nil, fmt.Errorf("failed to load ledger entry: %w", err)
	}
	return &e, nil
}

func (r *gormRepository) FindLedgerEntriesByExternalRef(ctx context.Context, externalRef string) ([]*models.PaymentLedgerEntry, error) {
	var entries []*models.PaymentLedgerEntry
	err := r.db.WithContext(ctx).
		Where("external_ref = ?", externalRef).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

func (r *gormRepository) BackfillLedgerEntry(ctx context.Context, id string, fees FeeBackfill) (*models.PaymentLedgerEntry, error) {
	updates := map[string]interface{}{
		"charge_id":              fees.ChargeID,
		"balance_transaction_id": fees.BalanceTransactionID,
		"stripe_fee_cents":       fees.StripeFeeCents,
		"net_amount_cents":       fees.NetAmountCents,
	}
	if fees.PayoutID != nil {
		updates["payout_id"] = *fees.PayoutID
	}
	tx := r.db.WithContext(ctx).Model(&models.PaymentLedgerEntry{}).
		Where("id = ?", id).
		Updates(updates)
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to backfill ledger entry: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, &notFoundError{what: "ledger entry " + id}
	}

	var e models.PaymentLedgerEntry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, fmt.Errorf("failed to re-read ledger entry: %w", err)
	}
	return &e, nil
}

func (r *gormRepository) InsertPayoutDepositIfAbsent(ctx context.Context, deposit *models.PayoutDeposit) (bool, *models.PayoutDeposit, error) {
	if deposit.ID == "" {
		deposit.ID = tool.GenerateUUIDV7()
	}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "payout_id"}},
		DoNothing: true,
	}).Create(deposit)
	if tx.Error != nil {
		return false, nil, fmt.Errorf("failed to insert payout deposit: %w", tx.Error)
	}
	created := tx.RowsAffected > 0

	var stored models.PayoutDeposit
	if err := r.db.WithContext(ctx).Where("payout_id = ?", deposit.PayoutID).First(&stored).Error; err != nil {
		return created, nil, fmt.Errorf("failed to re-read payout deposit: %w", err)
	}
	return created, &stored, nil
}

func (r *gormRepository) CountLedgerEntriesForPayout(ctx context.Context, payoutID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.PaymentLedgerEntry{}).
		Where("payout_id = ?", payoutID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count payout entries: %w", err)
	}
	return n, nil
}

var Module = fx.Options(
	fx.Provide(NewRepository),
)
