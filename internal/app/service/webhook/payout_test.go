package webhook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/fatflowers/reconciler/pkg/types"
)

func payoutPaidEvent(t *testing.T) stripe.Event {
	t.Helper()
	return makeEvent(t, "payout.paid", map[string]interface{}{
		"id":           "po_1",
		"amount":       9195,
		"status":       "paid",
		"arrival_date": time.Now().Unix(),
	})
}

func TestPayoutPaidRecordsDepositAndLinksEntries(t *testing.T) {
	p := newPipeline(t)
	seedLedgerEntry(t, p, time.Now())
	p.fees.txns = []PayoutTransaction{
		{
			PaymentIntentID: "pi_test_1",
			Fee: FeeData{
				ChargeID:             "ch_1",
				BalanceTransactionID: "txn_1",
				StripeFeeCents:       305,
				NetAmountCents:       9195,
			},
		},
	}

	res, whErr := p.payout.Handle(context.Background(), payoutPaidEvent(t), PaymentContext{})
	require.Nil(t, whErr)
	require.True(t, res.Processed)
	require.Equal(t, EntityPayout, res.EntityType)
	require.Equal(t, 1, res.Details["payments_backfilled"])

	entry, err := p.repo.FindLedgerEntryByExternalRef(context.Background(), types.TargetKindCandidateFee, "pi_test_1")
	require.NoError(t, err)
	require.NotNil(t, entry.PayoutID)
	require.Equal(t, "po_1", *entry.PayoutID)
	require.Equal(t, int64(305), *entry.StripeFeeCents)

	linked, err := p.repo.CountLedgerEntriesForPayout(context.Background(), "po_1")
	require.NoError(t, err)
	require.Equal(t, int64(1), linked)
}

func TestPayoutPaidRedeliveryDoesNotDuplicateDeposit(t *testing.T) {
	p := newPipeline(t)
	event := payoutPaidEvent(t)

	res1, whErr := p.payout.Handle(context.Background(), event, PaymentContext{})
	require.Nil(t, whErr)
	res2, whErr := p.payout.Handle(context.Background(), event, PaymentContext{})
	require.Nil(t, whErr)

	// Same deposit row both times.
	require.Equal(t, res1.EntityID, res2.EntityID)
}

func TestPayoutPaidListingFailureAcknowledged(t *testing.T) {
	p := newPipeline(t)
	p.fees.txnErr = errors.New("stripe api timeout")

	res, whErr := p.payout.Handle(context.Background(), payoutPaidEvent(t), PaymentContext{})
	require.Nil(t, whErr)
	require.False(t, res.Processed)
}

func TestPayoutPaidDepositFailure(t *testing.T) {
	p := newPipeline(t)
	p.repo.FailDeposit = errors.New("connection reset")

	_, whErr := p.payout.Handle(context.Background(), payoutPaidEvent(t), PaymentContext{})
	require.NotNil(t, whErr)
	require.Equal(t, CodePayoutRecordFailed, whErr.Code)
	require.Equal(t, SeverityError, whErr.Severity)
	require.Equal(t, 400, whErr.HTTPStatus())
}
