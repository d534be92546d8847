package eventlog

import (
	"context"
	"encoding/json"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fatflowers/reconciler/internal/models"
	"github.com/fatflowers/reconciler/pkg/logctx"
	"github.com/fatflowers/reconciler/pkg/tool"
)

// Recorder is the audit-trail surface the webhook endpoint writes through.
type Recorder interface {
	Received(ctx context.Context, eventID, eventType, traceID string, payload []byte)
	Finished(ctx context.Context, eventID, eventType, traceID string, result interface{}, handleErr error)
}

// Service keeps the audit trail of inbound webhook events. Writes happen in
// a goroutine and never influence the HTTP response; the log is for operators
// reconstructing what Stripe sent, not for idempotency.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Received records the event before routing.
func (s *Service) Received(ctx context.Context, eventID, eventType, traceID string, payload []byte) {
	s.save(ctx, &models.WebhookEventLog{
		EventID:   eventID,
		EventType: eventType,
		TraceID:   traceID,
		Payload:   datatypes.JSON(payload),
		Status:    models.WebhookEventLogStatusReceived,
	})
}

// Finished records the routing outcome. result is marshaled to jsonb;
// marshal failures degrade to a log line.
func (s *Service) Finished(ctx context.Context, eventID, eventType, traceID string, result interface{}, handleErr error) {
	status := models.WebhookEventLogStatusHandled
	resMap := map[string]interface{}{"result": result}
	if handleErr != nil {
		status = models.WebhookEventLogStatusHandleFailed
		resMap["error"] = handleErr.Error()
	}
	resBytes, _ := json.Marshal(resMap)
	resJSON := datatypes.JSON(resBytes)

	s.save(ctx, &models.WebhookEventLog{
		EventID:   eventID,
		EventType: eventType,
		TraceID:   traceID,
		Result:    &resJSON,
		Status:    status,
	})
}

func (s *Service) save(ctx context.Context, entry *models.WebhookEventLog) {
	go func() {
		if entry == nil {
			return
		}
		if entry.ID == "" {
			entry.ID = tool.GenerateUUIDV7()
		}
		if err := s.db.Save(entry).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save webhook event log: %v", err)
		}
	}()
}

var Module = fx.Options(
	fx.Provide(New),
	fx.Provide(func(s *Service) Recorder { return s }),
)
