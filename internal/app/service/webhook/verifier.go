package webhook

import (
	"github.com/stripe/stripe-go/v82"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"
)

// Verifier authenticates a raw webhook payload before anything parses its
// business content. Implementations must treat the payload byte-for-byte as
// received; any re-serialization breaks the signature.
type Verifier interface {
	Verify(payload []byte, sigHeader string) (stripe.Event, *Error)
}

// stripeVerifier checks the Stripe-Signature header with stripe-go's webhook
// verification: constant-time HMAC-SHA256 comparison plus timestamp
// tolerance.
type stripeVerifier struct {
	secret string
}

func NewStripeVerifier(secret string) Verifier {
	return &stripeVerifier{secret: secret}
}

func (v *stripeVerifier) Verify(payload []byte, sigHeader string) (stripe.Event, *Error) {
	pc := PaymentContext{}
	if sigHeader == "" {
		return stripe.Event{}, newError(CodeMissingSignature, StageVerification, SeverityError, pc,
			"missing Stripe signature header", nil)
	}

	event, err := stripewebhook.ConstructEventWithOptions(payload, sigHeader, v.secret, stripewebhook.ConstructEventOptions{
		// Version drift between the dashboard and the pinned SDK version must
		// not reject money events; the handlers decode only fields stable
		// across versions.
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, newError(CodeInvalidSignature, StageVerification, SeverityError, pc,
			"webhook signature verification failed", err)
	}
	return event, nil
}
