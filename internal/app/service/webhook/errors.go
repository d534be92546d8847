package webhook

import (
	"fmt"
	"net/http"
)

// ErrorCode is the machine-readable classification of a failed webhook.
// Stripe's operators and ours both key off these; keep the set closed.
type ErrorCode string

const (
	CodeMissingSignature ErrorCode = "missing-signature"
	CodeInvalidSignature ErrorCode = "invalid-signature"
	CodeUnsupportedEvent ErrorCode = "unsupported-event"

	CodeMissingPaymentIntent ErrorCode = "missing-payment-intent"
	CodeMissingCandidateID   ErrorCode = "missing-candidate-id"
	CodeMissingUserID        ErrorCode = "missing-user-id"
	CodeMissingWeekendID     ErrorCode = "missing-weekend-id"

	CodeTargetNotFound     ErrorCode = "target-not-found"
	CodeInvalidTargetState ErrorCode = "invalid-target-state"
	CodeLedgerWriteFailed  ErrorCode = "ledger-write-failed"
	CodeStaleBackfill      ErrorCode = "stale-backfill"
	CodeBackfillNoMatch    ErrorCode = "backfill-no-match"
	CodePayoutRecordFailed ErrorCode = "payout-record-failed"
	CodeProcessingError    ErrorCode = "processing-error"
	CodeNotConfigured      ErrorCode = "webhook-not-configured"
)

// Stage names where in the pipeline a failure happened.
type Stage string

const (
	StageVerification Stage = "verification"
	StageRouting      Stage = "routing"
	StageValidation   Stage = "validation"
	StageResolution   Stage = "resolution"
	StageTransition   Stage = "transition"
	StageLedgerWrite  Stage = "ledger-write"
	StageBackfill     Stage = "backfill"
	StagePayout       Stage = "payout"
)

// Severity decides whether Stripe should retry the delivery. This is the
// retry-control signal, not a log level: warning means retrying cannot help
// and the event is acknowledged; error and fatal ask for redelivery.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityFatal   Severity = "fatal"
)

// Error is the typed failure every pipeline stage returns instead of a bare
// error. The HTTP handler is the only place it becomes a status code.
type Error struct {
	Code     ErrorCode
	Stage    Stage
	Severity Severity
	Message  string
	Context  PaymentContext
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s/%s): %s: %v", e.Code, e.Stage, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s/%s): %s", e.Code, e.Stage, e.Severity, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus maps severity to the response Stripe sees. 200 suppresses the
// retry machinery; 400 keeps the event in Stripe's redelivery queue so a
// transient failure, or a human fixing data before the retry window closes,
// can still land the payment.
func (e *Error) HTTPStatus() int {
	if e.Severity == SeverityWarning {
		return http.StatusOK
	}
	return http.StatusBadRequest
}

func newError(code ErrorCode, stage Stage, severity Severity, pc PaymentContext, msg string, cause error) *Error {
	return &Error{Code: code, Stage: stage, Severity: severity, Message: msg, Context: pc, Cause: cause}
}

func errf(code ErrorCode, stage Stage, severity Severity, pc PaymentContext, format string, args ...interface{}) *Error {
	return newError(code, stage, severity, pc, fmt.Sprintf(format, args...), nil)
}
