package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/reconciler/internal/app/service/ledger"
	"github.com/fatflowers/reconciler/internal/repo"
	"github.com/fatflowers/reconciler/pkg/response"
	"github.com/fatflowers/reconciler/pkg/types"
)

// ApiGetPaymentByExternalRef looks up a ledger entry by the processor's
// payment intent id. Operators use it to answer "did we record this charge"
// while triaging webhook failures.
func ApiGetPaymentByExternalRef(led *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind := types.TargetKind(c.Param("target_kind"))
		if !kind.Valid() {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid target kind"))
			return
		}
		externalRef := c.Param("external_ref")

		entry, err := led.FindByExternalRef(c.Request.Context(), kind, externalRef)
		if err != nil {
			if repo.IsNotFound(err) {
				c.JSON(http.StatusNotFound, response.ErrorT[any](response.APIResponseCodeBadRequest, "payment not found"))
				return
			}
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(entry))
	}
}

func RegisterAdminPaymentRoutes(r gin.IRouter, led *ledger.Service) {
	r.GET("/payments/:target_kind/:external_ref", ApiGetPaymentByExternalRef(led))
}
