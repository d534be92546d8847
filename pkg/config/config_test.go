package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fatflowers/reconciler/pkg/types"
)

func validStripe() StripeConfig {
	return StripeConfig{
		APIKey:             "sk_test_x",
		WebhookSecret:      "whsec_x",
		CandidateFeePrice:  "price_cand",
		TeamFeePrice:       "price_team",
		BackfillWindowMins: 60,
	}
}

func TestValidateRequiresStripeSettings(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*StripeConfig)
	}{
		{"missing webhook secret", func(s *StripeConfig) { s.WebhookSecret = "" }},
		{"missing candidate price", func(s *StripeConfig) { s.CandidateFeePrice = "" }},
		{"missing team price", func(s *StripeConfig) { s.TeamFeePrice = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stripe := validStripe()
			tc.mutate(&stripe)
			cfg := &Config{Stripe: stripe}
			require.Error(t, cfg.Validate())
		})
	}

	cfg := &Config{Stripe: validStripe()}
	require.NoError(t, cfg.Validate())
}

func TestTargetKindForPrice(t *testing.T) {
	cfg := &Config{Stripe: validStripe()}

	kind, ok := cfg.TargetKindForPrice("price_cand")
	require.True(t, ok)
	require.Equal(t, types.TargetKindCandidateFee, kind)

	kind, ok = cfg.TargetKindForPrice("price_team")
	require.True(t, ok)
	require.Equal(t, types.TargetKindTeamFee, kind)

	_, ok = cfg.TargetKindForPrice("price_unrelated")
	require.False(t, ok)

	// An empty price id must never match either category.
	_, ok = cfg.TargetKindForPrice("")
	require.False(t, ok)
}

func TestBackfillWindow(t *testing.T) {
	cfg := &Config{Stripe: validStripe()}
	require.Equal(t, time.Hour, cfg.BackfillWindow())

	cfg.Stripe.BackfillWindowMins = 90
	require.Equal(t, 90*time.Minute, cfg.BackfillWindow())

	cfg.Stripe.BackfillWindowMins = 0
	require.Equal(t, time.Hour, cfg.BackfillWindow())
}
