package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var httpHistogramBuckets = []float64{
	// --- Fast responses (0 - 500ms) ---
	25, 50, 75, 100, 150, 200, 300, 400, 500,

	// --- Medium responses (500ms - 2s) ---
	750, 1000, 1250, 1500, 1750, 2000,

	// --- Slow responses (2s - 15s) ---
	2500, 3000, 4000, 5000, 7500, 10000, 15000,
}

// WebhookMetrics counts webhook traffic by event type and outcome. Outcome is
// "processed", "acknowledged", or a severity; signature rejections are
// tracked separately because they never reach routing.
type WebhookMetrics struct {
	events   *prometheus.CounterVec
	rejected *prometheus.CounterVec

	reqCnt *prometheus.CounterVec
	reqDur *prometheus.HistogramVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Webhook events received, partitioned by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "webhook",
			Name:      "rejected_total",
			Help:      "Webhook payloads rejected before routing, partitioned by error code.",
		}, []string{"code"}),
		reqCnt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "http",
			Name:      "req_total",
			Help:      "HTTP requests processed, partitioned by status code, method and route.",
		}, []string{"code", "method", "url"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: "http",
			Name:      "req_dur_ms",
			Help:      "HTTP request latencies in milliseconds.",
			Buckets:   httpHistogramBuckets,
		}, []string{"code", "method", "url"}),
	}
	reg.MustRegister(m.events, m.rejected, m.reqCnt, m.reqDur)
	return m
}

func (m *WebhookMetrics) ObserveEvent(eventType, outcome string) {
	m.events.WithLabelValues(eventType, outcome).Inc()
}

func (m *WebhookMetrics) ObserveRejected(code string) {
	m.rejected.WithLabelValues(code).Inc()
}

// GinMiddleware records request count and latency per route.
func (m *WebhookMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		url := c.FullPath()
		if url == "" {
			url = c.Request.URL.Path
		}
		code := strconv.Itoa(c.Writer.Status())
		elapsed := float64(time.Since(start).Milliseconds())

		m.reqCnt.WithLabelValues(code, c.Request.Method, url).Inc()
		m.reqDur.WithLabelValues(code, c.Request.Method, url).Observe(elapsed)
	}
}
