package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/reconciler/pkg/config"
)

func newRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func newWebhookMetrics(reg *prometheus.Registry) *WebhookMetrics {
	return NewWebhookMetrics(reg)
}

// RunListener serves /metrics on its own port, away from the public API.
func RunListener(lc fx.Lifecycle, log *zap.SugaredLogger, reg *prometheus.Registry, cfg *cfgpkg.Config) {
	if cfg.MetricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("metrics started", "addr", cfg.MetricsAddr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Errorf("metrics server error: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newRegistry),
	fx.Provide(newWebhookMetrics),
	fx.Invoke(RunListener),
)
