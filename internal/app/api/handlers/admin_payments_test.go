package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/reconciler/internal/app/service/ledger"
	"github.com/fatflowers/reconciler/internal/models"
	"github.com/fatflowers/reconciler/internal/repo"
	cfgpkg "github.com/fatflowers/reconciler/pkg/config"
	"github.com/fatflowers/reconciler/pkg/types"
)

func newAdminServer(t *testing.T) (*gin.Engine, *repo.MemoryRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := repo.NewMemory()
	cfg := &cfgpkg.Config{Stripe: cfgpkg.StripeConfig{BackfillWindowMins: 60}}
	led := ledger.NewService(mem, cfg, zap.NewNop().Sugar())

	engine := gin.New()
	RegisterAdminPaymentRoutes(engine.Group("/api/v1/admin"), led)
	return engine, mem
}

func TestGetPaymentByExternalRef(t *testing.T) {
	engine, mem := newAdminServer(t)
	_, _, err := mem.InsertLedgerEntryIfAbsent(context.Background(), &models.PaymentLedgerEntry{
		TargetKind:    types.TargetKindCandidateFee,
		TargetID:      "cand-1",
		AmountCents:   9500,
		Currency:      "usd",
		PaymentMethod: types.PaymentMethodCard,
		ExternalRef:   "pi_admin_1",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/payments/candidate_fee/pi_admin_1", nil)
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int                        `json:"code"`
		Data models.PaymentLedgerEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "pi_admin_1", resp.Data.ExternalRef)
	require.Equal(t, int64(9500), resp.Data.AmountCents)
}

func TestGetPaymentUnknownKindRejected(t *testing.T) {
	engine, _ := newAdminServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/payments/subscription/pi_1", nil)
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPaymentNotFound(t *testing.T) {
	engine, _ := newAdminServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/payments/candidate_fee/pi_missing", nil)
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}
