package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/reconciler/internal/app/api/server"
	"github.com/fatflowers/reconciler/internal/app/service/eventlog"
	"github.com/fatflowers/reconciler/internal/app/service/ledger"
	"github.com/fatflowers/reconciler/internal/app/service/notifier"
	"github.com/fatflowers/reconciler/internal/app/service/registration"
	"github.com/fatflowers/reconciler/internal/app/service/webhook"
	"github.com/fatflowers/reconciler/internal/platform/db"
	"github.com/fatflowers/reconciler/internal/platform/stripeapi"
	"github.com/fatflowers/reconciler/internal/repo"
	"github.com/fatflowers/reconciler/pkg/config"
	"github.com/fatflowers/reconciler/pkg/logger"
	"github.com/fatflowers/reconciler/pkg/metrics"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	metrics.Module,
	repo.Module,
	stripeapi.Module,
	registration.Module,
	ledger.Module,
	eventlog.Module,
	notifier.Module,
	webhook.Module,
	server.Module,
)
