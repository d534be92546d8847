package notifier

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/reconciler/pkg/logctx"
	"github.com/fatflowers/reconciler/pkg/types"
)

// Notifier informs the portal admins after a payment lands. It runs after
// the financial writes and its failure must never change the webhook
// response, so every implementation is fire-and-forget from the handler's
// point of view.
type Notifier interface {
	CandidatePaymentReceived(ctx context.Context, candidateID string, amountCents int64, method types.PaymentMethod) error
	TeamPaymentReceived(ctx context.Context, userID, weekendID string, amountCents int64) error
}

// logNotifier emits the notification as a structured log line. The portal's
// transactional email pipeline consumes these downstream; this service does
// not talk SMTP itself.
type logNotifier struct {
	log *zap.SugaredLogger
}

func NewLogNotifier(log *zap.SugaredLogger) Notifier {
	return &logNotifier{log: log}
}

func (n *logNotifier) CandidatePaymentReceived(ctx context.Context, candidateID string, amountCents int64, method types.PaymentMethod) error {
	logctx.FromCtx(ctx, n.log).Infow("notify_candidate_payment_received",
		"candidate_id", candidateID,
		"amount_cents", amountCents,
		"payment_method", method,
	)
	return nil
}

func (n *logNotifier) TeamPaymentReceived(ctx context.Context, userID, weekendID string, amountCents int64) error {
	logctx.FromCtx(ctx, n.log).Infow("notify_team_payment_received",
		"user_id", userID,
		"weekend_id", weekendID,
		"amount_cents", amountCents,
	)
	return nil
}

var Module = fx.Options(
	fx.Provide(NewLogNotifier),
)
