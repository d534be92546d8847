package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/fatflowers/reconciler/internal/app/service/ledger"
	"github.com/fatflowers/reconciler/internal/app/service/notifier"
	"github.com/fatflowers/reconciler/internal/app/service/registration"
	"github.com/fatflowers/reconciler/internal/models"
	"github.com/fatflowers/reconciler/internal/repo"
	cfgpkg "github.com/fatflowers/reconciler/pkg/config"
	"github.com/fatflowers/reconciler/pkg/types"
)

const (
	testCandidatePrice = "price_candidate"
	testTeamPrice      = "price_team"
)

func testConfig() *cfgpkg.Config {
	return &cfgpkg.Config{
		Stripe: cfgpkg.StripeConfig{
			WebhookSecret:      "whsec_test",
			CandidateFeePrice:  testCandidatePrice,
			TeamFeePrice:       testTeamPrice,
			BackfillWindowMins: 60,
		},
	}
}

type fakeFeeSource struct {
	fee    *FeeData
	feeErr error

	txns   []PayoutTransaction
	txnErr error
}

func (f *fakeFeeSource) TransactionData(context.Context, string) (*FeeData, error) {
	if f.feeErr != nil {
		return nil, f.feeErr
	}
	if f.fee == nil {
		return nil, errors.New("balance transaction not available")
	}
	return f.fee, nil
}

func (f *fakeFeeSource) PayoutTransactions(context.Context, string) ([]PayoutTransaction, error) {
	if f.txnErr != nil {
		return nil, f.txnErr
	}
	return f.txns, nil
}

type recordedNotification struct {
	kind        string
	targetID    string
	amountCents int64
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []recordedNotification
}

func (n *recordingNotifier) CandidatePaymentReceived(_ context.Context, candidateID string, amountCents int64, _ types.PaymentMethod) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, recordedNotification{kind: "candidate", targetID: candidateID, amountCents: amountCents})
	return nil
}

func (n *recordingNotifier) TeamPaymentReceived(_ context.Context, userID, _ string, amountCents int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, recordedNotification{kind: "team", targetID: userID, amountCents: amountCents})
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

var _ notifier.Notifier = (*recordingNotifier)(nil)

type pipeline struct {
	repo     *repo.MemoryRepository
	fees     *fakeFeeSource
	notifier *recordingNotifier
	checkout *CheckoutHandler
	charge   *ChargeHandler
	payout   *PayoutHandler
	ledger   *ledger.Service
	router   *Router
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	log := zap.NewNop().Sugar()
	cfg := testConfig()
	mem := repo.NewMemory()
	fees := &fakeFeeSource{}
	notif := &recordingNotifier{}

	reg := registration.NewService(mem, log)
	led := ledger.NewService(mem, cfg, log)
	checkout := NewCheckoutHandler(cfg, reg, led, fees, notif, log)
	charge := NewChargeHandler(led, fees, log)
	payout := NewPayoutHandler(led, fees, log)

	return &pipeline{
		repo:     mem,
		fees:     fees,
		notifier: notif,
		checkout: checkout,
		charge:   charge,
		payout:   payout,
		ledger:   led,
		router:   NewRouter(log, checkout, charge, payout),
	}
}

func makeEvent(t *testing.T, eventType string, payload map[string]interface{}) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal event payload: %v", err)
	}
	return stripe.Event{
		ID:   "evt_test_1",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func checkoutSessionEvent(t *testing.T, metadata map[string]string, amountCents int64) stripe.Event {
	t.Helper()
	return makeEvent(t, "checkout.session.completed", map[string]interface{}{
		"id":             "cs_test_1",
		"payment_intent": "pi_test_1",
		"amount_total":   amountCents,
		"currency":       "usd",
		"metadata":       metadata,
	})
}

func seedCandidate(p *pipeline, id string, status models.CandidateStatus) {
	p.repo.PutCandidate(&models.Candidate{
		ID:        id,
		WeekendID: "weekend-1",
		Name:      "Test Candidate",
		Status:    status,
	})
}

func seedRosterEntry(p *pipeline, id, userID, weekendID string, status models.RosterStatus) {
	p.repo.PutRosterEntry(&models.TeamRosterEntry{
		ID:        id,
		UserID:    userID,
		WeekendID: weekendID,
		Role:      "kitchen",
		Status:    status,
	})
}
