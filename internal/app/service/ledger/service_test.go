package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/reconciler/internal/models"
	"github.com/fatflowers/reconciler/internal/repo"
	"github.com/fatflowers/reconciler/pkg/config"
	"github.com/fatflowers/reconciler/pkg/types"
)

func newTestService(t *testing.T) (*Service, *repo.MemoryRepository) {
	t.Helper()
	mem := repo.NewMemory()
	cfg := &config.Config{
		Stripe: config.StripeConfig{BackfillWindowMins: 60},
	}
	return NewService(mem, cfg, zap.NewNop().Sugar()), mem
}

func recordInput(ref string) RecordPaymentInput {
	return RecordPaymentInput{
		TargetKind:    types.TargetKindCandidateFee,
		TargetID:      "cand-1",
		AmountCents:   9500,
		Currency:      "usd",
		PaymentMethod: types.PaymentMethodCard,
		PaymentOwner:  types.PaymentOwnerSponsor,
		ExternalRef:   ref,
	}
}

func TestRecordPaymentInsertsOnce(t *testing.T) {
	s, mem := newTestService(t)

	created, first, err := s.RecordPayment(context.Background(), recordInput("pi_1"))
	require.NoError(t, err)
	require.True(t, created)
	require.NotEmpty(t, first.ID)

	created, second, err := s.RecordPayment(context.Background(), recordInput("pi_1"))
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, mem.LedgerEntryCount())
}

func TestRecordPaymentCarriesFeeData(t *testing.T) {
	s, _ := newTestService(t)

	in := recordInput("pi_1")
	in.Fee = &repo.FeeBackfill{
		ChargeID:             "ch_1",
		BalanceTransactionID: "txn_1",
		StripeFeeCents:       305,
		NetAmountCents:       9195,
	}

	_, stored, err := s.RecordPayment(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "ch_1", *stored.ChargeID)
	require.Equal(t, int64(305), *stored.StripeFeeCents)
	require.Equal(t, int64(9195), *stored.NetAmountCents)
}

func TestBackfillPatchesRecentEntry(t *testing.T) {
	s, _ := newTestService(t)
	_, stored, err := s.RecordPayment(context.Background(), recordInput("pi_1"))
	require.NoError(t, err)

	outcome, patched, err := s.Backfill(context.Background(), "pi_1", repo.FeeBackfill{
		ChargeID:             "ch_1",
		BalanceTransactionID: "txn_1",
		StripeFeeCents:       305,
		NetAmountCents:       9195,
	})
	require.NoError(t, err)
	require.Equal(t, BackfillApplied, outcome)
	require.Len(t, patched, 1)
	require.Equal(t, stored.ID, patched[0].ID)
	require.Equal(t, int64(305), *patched[0].StripeFeeCents)
}

func TestBackfillNoMatch(t *testing.T) {
	s, _ := newTestService(t)

	outcome, patched, err := s.Backfill(context.Background(), "pi_unknown", repo.FeeBackfill{})
	require.NoError(t, err)
	require.Equal(t, BackfillNoMatch, outcome)
	require.Empty(t, patched)
}

func TestBackfillSkipsEntriesOutsideWindow(t *testing.T) {
	s, _ := newTestService(t)
	_, stored, err := s.RecordPayment(context.Background(), recordInput("pi_1"))
	require.NoError(t, err)

	// Pretend the backfill arrives two hours after the entry was written.
	s.now = func() time.Time { return stored.CreatedAt.Add(2 * time.Hour) }

	outcome, patched, err := s.Backfill(context.Background(), "pi_1", repo.FeeBackfill{
		ChargeID: "ch_1", BalanceTransactionID: "txn_1",
	})
	require.NoError(t, err)
	require.Equal(t, BackfillStale, outcome)
	require.Empty(t, patched)

	// Entry stays unpatched.
	entry, err := s.FindByExternalRef(context.Background(), types.TargetKindCandidateFee, "pi_1")
	require.NoError(t, err)
	require.Nil(t, entry.ChargeID)
}

func TestBackfillJustInsideWindow(t *testing.T) {
	s, _ := newTestService(t)
	_, stored, err := s.RecordPayment(context.Background(), recordInput("pi_1"))
	require.NoError(t, err)

	s.now = func() time.Time { return stored.CreatedAt.Add(59 * time.Minute) }

	outcome, patched, err := s.Backfill(context.Background(), "pi_1", repo.FeeBackfill{
		ChargeID: "ch_1", BalanceTransactionID: "txn_1",
	})
	require.NoError(t, err)
	require.Equal(t, BackfillApplied, outcome)
	require.Len(t, patched, 1)
}

func TestRecordDepositCountsLinkedPayments(t *testing.T) {
	s, _ := newTestService(t)
	_, _, err := s.RecordPayment(context.Background(), recordInput("pi_1"))
	require.NoError(t, err)

	_, _, err = s.Backfill(context.Background(), "pi_1", repo.FeeBackfill{
		ChargeID:             "ch_1",
		BalanceTransactionID: "txn_1",
		PayoutID:             strPtr("po_1"),
	})
	require.NoError(t, err)

	created, stored, err := s.RecordDeposit(context.Background(), &models.PayoutDeposit{
		PayoutID:    "po_1",
		AmountCents: 9195,
		Status:      models.PayoutDepositStatusPaid,
	})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, int64(1), stored.PaymentCount)

	created, again, err := s.RecordDeposit(context.Background(), &models.PayoutDeposit{
		PayoutID:    "po_1",
		AmountCents: 9195,
		Status:      models.PayoutDepositStatusPaid,
	})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, stored.ID, again.ID)
}

func strPtr(s string) *string { return &s }
