package webhook

import "context"

// FeeData is the secondary financial detail Stripe settles after the charge:
// processor fee, net amount, and the identifiers tying them together.
type FeeData struct {
	ChargeID             string
	BalanceTransactionID string
	StripeFeeCents       int64
	NetAmountCents       int64
}

// PayoutTransaction is one charge included in a payout settlement.
type PayoutTransaction struct {
	PaymentIntentID string
	Fee             FeeData
}

// FeeSource fetches fee detail from the processor. It is a collaborator, not
// part of the reconciliation core: every call is best-effort and callers
// degrade to warnings when it fails.
type FeeSource interface {
	// TransactionData resolves a payment intent to its charge's balance
	// transaction detail. Returns an error when the balance transaction is
	// not available yet.
	TransactionData(ctx context.Context, paymentIntentID string) (*FeeData, error)

	// PayoutTransactions lists the charges settled by a payout.
	PayoutTransactions(ctx context.Context, payoutID string) ([]PayoutTransaction, error)
}
