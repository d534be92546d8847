package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_secret"

// signPayload builds a Stripe-Signature header the way Stripe's servers do:
// HMAC-SHA256 over "<timestamp>.<payload>".
func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifierAcceptsSignedPayload(t *testing.T) {
	v := NewStripeVerifier(testSecret)
	payload := []byte(`{"id": "evt_1", "type": "payout.paid", "data": {"object": {"id": "po_1"}}}`)

	event, whErr := v.Verify(payload, signPayload(payload, testSecret, time.Now()))
	require.Nil(t, whErr)
	require.Equal(t, "evt_1", event.ID)
	require.Equal(t, "payout.paid", string(event.Type))
}

func TestVerifierRejectsMissingHeader(t *testing.T) {
	v := NewStripeVerifier(testSecret)

	_, whErr := v.Verify([]byte(`{}`), "")
	require.NotNil(t, whErr)
	require.Equal(t, CodeMissingSignature, whErr.Code)
	require.Equal(t, StageVerification, whErr.Stage)
	require.Equal(t, 400, whErr.HTTPStatus())
}

func TestVerifierRejectsWrongSecret(t *testing.T) {
	v := NewStripeVerifier(testSecret)
	payload := []byte(`{"id": "evt_1", "type": "payout.paid"}`)

	_, whErr := v.Verify(payload, signPayload(payload, "whsec_other", time.Now()))
	require.NotNil(t, whErr)
	require.Equal(t, CodeInvalidSignature, whErr.Code)
}

func TestVerifierRejectsTamperedPayload(t *testing.T) {
	v := NewStripeVerifier(testSecret)
	payload := []byte(`{"id": "evt_1", "type": "payout.paid", "data": {"object": {"amount": 100}}}`)
	header := signPayload(payload, testSecret, time.Now())

	tampered := []byte(`{"id": "evt_1", "type": "payout.paid", "data": {"object": {"amount": 999999}}}`)
	_, whErr := v.Verify(tampered, header)
	require.NotNil(t, whErr)
	require.Equal(t, CodeInvalidSignature, whErr.Code)
}

func TestVerifierRejectsExpiredTimestamp(t *testing.T) {
	v := NewStripeVerifier(testSecret)
	payload := []byte(`{"id": "evt_1", "type": "payout.paid"}`)

	_, whErr := v.Verify(payload, signPayload(payload, testSecret, time.Now().Add(-time.Hour)))
	require.NotNil(t, whErr)
	require.Equal(t, CodeInvalidSignature, whErr.Code)
}
