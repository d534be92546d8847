package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/reconciler/internal/app/api/handlers"
	mw "github.com/fatflowers/reconciler/internal/app/api/middleware"
	"github.com/fatflowers/reconciler/internal/app/service/eventlog"
	ledgersvc "github.com/fatflowers/reconciler/internal/app/service/ledger"
	"github.com/fatflowers/reconciler/internal/app/service/webhook"
	cfgpkg "github.com/fatflowers/reconciler/pkg/config"
	"github.com/fatflowers/reconciler/pkg/metrics"
)

func newEngine(wm *metrics.WebhookMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	r.Use(wm.GinMiddleware())
	return r
}

func registerRoutes(r *gin.Engine, log *zap.SugaredLogger, cfg *cfgpkg.Config, wm *metrics.WebhookMetrics,
	verifier webhook.Verifier, router *webhook.Router, events eventlog.Recorder, led *ledgersvc.Service) {

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)

	// Webhook endpoints: Stripe authenticates by signature, not by session
	webhooks := r.Group("/api/webhooks")
	webhooks.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterWebhookRoutes(webhooks, cfg, verifier, router, events, wm, log)

	// Admin lookup APIs
	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterAdminPaymentRoutes(apiV1.Group("/admin"), led)

	log.Infow("routes registered", "supported_events", router.SupportedEventTypes())
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
