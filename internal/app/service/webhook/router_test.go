package webhook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fatflowers/reconciler/internal/models"
)

func TestRouterUnknownEventTypeAcknowledged(t *testing.T) {
	p := newPipeline(t)
	event := makeEvent(t, "customer.subscription.created", map[string]interface{}{"id": "sub_1"})

	res, whErr := p.router.Route(context.Background(), event)
	require.Nil(t, whErr)
	require.False(t, res.Processed)
}

func TestRouterDispatchesByEventType(t *testing.T) {
	p := newPipeline(t)
	seedCandidate(p, "cand-1", models.CandidateStatusAwaitingPayment)

	event := checkoutSessionEvent(t, map[string]string{
		"price_id":    testCandidatePrice,
		"candidateId": "cand-1",
	}, 9500)

	res, whErr := p.router.Route(context.Background(), event)
	require.Nil(t, whErr)
	require.True(t, res.Processed)
	require.Equal(t, EntityCandidatePayment, res.EntityType)
}

func TestRouterSupportedEventTypes(t *testing.T) {
	p := newPipeline(t)
	require.ElementsMatch(t,
		[]string{"checkout.session.completed", "charge.updated", "payout.paid"},
		p.router.SupportedEventTypes())
}
