package types

// TargetKind identifies which kind of fee a payment settles. It is part of
// the ledger uniqueness key, so the same Stripe payment intent can never be
// recorded twice for the same kind of fee.
type TargetKind string

const (
	TargetKindCandidateFee TargetKind = "candidate_fee"
	TargetKindTeamFee      TargetKind = "team_fee"
)

func (k TargetKind) Valid() bool {
	return k == TargetKindCandidateFee || k == TargetKindTeamFee
}

// PaymentMethod is how the money moved. Webhook-driven entries are always
// card; cash/check entries are created by admin tooling outside this service.
type PaymentMethod string

const (
	PaymentMethodCard  PaymentMethod = "card"
	PaymentMethodCash  PaymentMethod = "cash"
	PaymentMethodCheck PaymentMethod = "check"
)

// PaymentOwner designates who is financially responsible for a candidate fee.
type PaymentOwner string

const (
	PaymentOwnerCandidate PaymentOwner = "candidate"
	PaymentOwnerSponsor   PaymentOwner = "sponsor"
	PaymentOwnerUnknown   PaymentOwner = "unknown"
)
