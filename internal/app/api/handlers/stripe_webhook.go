package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/reconciler/internal/app/service/eventlog"
	"github.com/fatflowers/reconciler/internal/app/service/webhook"
	cfgpkg "github.com/fatflowers/reconciler/pkg/config"
	"github.com/fatflowers/reconciler/pkg/logctx"
	"github.com/fatflowers/reconciler/pkg/metrics"
)

// WebhookSuccessResponse is the acknowledgement Stripe sees on success.
type WebhookSuccessResponse struct {
	Received   bool   `json:"received"`
	Processed  bool   `json:"processed"`
	EntityType string `json:"entityType,omitempty"`
	EntityID   string `json:"entityId,omitempty"`
}

// WebhookErrorResponse carries enough structure for an operator to triage
// without reading logs.
type WebhookErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Stage string `json:"stage,omitempty"`
}

// ApiStripeWebhook is the unified Stripe webhook endpoint. The body is read
// raw and byte-for-byte before verification; any re-serialization ahead of
// the signature check would invalidate it. The status code returned here is
// Stripe's retry-control signal: 200 suppresses redelivery, 400 requests it,
// 500 marks the service itself as misconfigured.
func ApiStripeWebhook(cfg *cfgpkg.Config, verifier webhook.Verifier, router *webhook.Router, events eventlog.Recorder, wm *metrics.WebhookMetrics, base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logctx.FromGin(c, base)

		if cfg.Stripe.WebhookSecret == "" {
			// Startup validation should make this unreachable; guard anyway
			// so a misconfigured deploy fails loudly instead of rejecting
			// every event as unsigned.
			c.JSON(http.StatusInternalServerError, WebhookErrorResponse{
				Error: "Webhook not configured",
				Code:  string(webhook.CodeNotConfigured),
			})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, WebhookErrorResponse{
				Error: "Failed to read request body",
				Code:  string(webhook.CodeProcessingError),
			})
			return
		}

		event, whErr := verifier.Verify(body, c.GetHeader("Stripe-Signature"))
		if whErr != nil {
			log.Errorw("webhook_signature_rejected", "code", whErr.Code, "error", whErr.Error())
			wm.ObserveRejected(string(whErr.Code))
			c.JSON(whErr.HTTPStatus(), WebhookErrorResponse{
				Error: whErr.Message,
				Code:  string(whErr.Code),
				Stage: string(whErr.Stage),
			})
			return
		}

		traceID := c.GetString("traceID")
		ctx := c.Request.Context()
		events.Received(ctx, event.ID, string(event.Type), traceID, body)

		result, whErr := router.Route(ctx, event)
		if whErr != nil {
			events.Finished(ctx, event.ID, string(event.Type), traceID, nil, whErr)
			log.Errorw("webhook_event_failed", append(whErr.Context.LogFields(),
				"code", whErr.Code, "stage", whErr.Stage, "severity", whErr.Severity,
				"error", whErr.Error())...)
			wm.ObserveEvent(string(event.Type), string(whErr.Severity))
			c.JSON(whErr.HTTPStatus(), WebhookErrorResponse{
				Error: whErr.Message,
				Code:  string(whErr.Code),
				Stage: string(whErr.Stage),
			})
			return
		}

		events.Finished(ctx, event.ID, string(event.Type), traceID, result, nil)
		log.Infow("webhook_event_handled",
			"event_id", event.ID, "event_type", event.Type,
			"processed", result.Processed, "entity_type", result.EntityType,
			"entity_id", result.EntityID)
		wm.ObserveEvent(string(event.Type), outcomeLabel(result.Processed))

		c.JSON(http.StatusOK, WebhookSuccessResponse{
			Received:   true,
			Processed:  result.Processed,
			EntityType: string(result.EntityType),
			EntityID:   result.EntityID,
		})
	}
}

func outcomeLabel(processed bool) string {
	if processed {
		return "processed"
	}
	return "acknowledged"
}

func RegisterWebhookRoutes(r gin.IRouter, cfg *cfgpkg.Config, verifier webhook.Verifier, router *webhook.Router, events eventlog.Recorder, wm *metrics.WebhookMetrics, base *zap.SugaredLogger) {
	// Mount under provided group, expected at "/api/webhooks"
	r.POST("/stripe", ApiStripeWebhook(cfg, verifier, router, events, wm, base))
}
