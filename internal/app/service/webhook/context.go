package webhook

// PaymentContext is the explicit per-event state threaded through the
// pipeline. It replaces any ambient "current request" scope: handlers fill it
// in as they learn more, and it travels inside results and errors so logs and
// monitoring see the same picture the handler saw.
type PaymentContext struct {
	EventID         string `json:"event_id"`
	EventType       string `json:"event_type"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	ChargeID        string `json:"charge_id,omitempty"`
	CandidateID     string `json:"candidate_id,omitempty"`
	UserID          string `json:"user_id,omitempty"`
	WeekendID       string `json:"weekend_id,omitempty"`
	RosterEntryID   string `json:"roster_entry_id,omitempty"`
	PayoutID        string `json:"payout_id,omitempty"`
	AmountCents     int64  `json:"amount_cents,omitempty"`
}

// LogFields flattens the context for zap's sugared key-value logging.
func (pc PaymentContext) LogFields() []interface{} {
	fields := []interface{}{
		"event_id", pc.EventID,
		"event_type", pc.EventType,
	}
	add := func(k, v string) {
		if v != "" {
			fields = append(fields, k, v)
		}
	}
	add("payment_intent_id", pc.PaymentIntentID)
	add("charge_id", pc.ChargeID)
	add("candidate_id", pc.CandidateID)
	add("user_id", pc.UserID)
	add("weekend_id", pc.WeekendID)
	add("roster_entry_id", pc.RosterEntryID)
	add("payout_id", pc.PayoutID)
	if pc.AmountCents != 0 {
		fields = append(fields, "amount_cents", pc.AmountCents)
	}
	return fields
}

// EntityType labels what a successful handler touched.
type EntityType string

const (
	EntityCandidatePayment EntityType = "candidate_payment"
	EntityTeamPayment      EntityType = "team_payment"
	EntityFeeBackfill      EntityType = "fee_backfill"
	EntityPayout           EntityType = "payout"
)

// Result is a handler's success outcome. Processed false means the event was
// deliberately acknowledged without business effect (unknown event type,
// unknown price id, backfill with nothing to do).
type Result struct {
	Processed  bool                   `json:"processed"`
	EntityType EntityType             `json:"entity_type,omitempty"`
	EntityID   string                 `json:"entity_id,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

func notProcessed() *Result { return &Result{Processed: false} }
