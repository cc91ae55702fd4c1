package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/nimbusworks/nimbus/pkg/errors"

	"github.com/nimbusworks/nimbus/internal/application/service"
)

// CostHandler exposes the admin cost-reporting endpoints.
type CostHandler struct {
	costs *service.CostService
}

func NewCostHandler(costs *service.CostService) *CostHandler {
	return &CostHandler{costs: costs}
}

// Summary handles GET /api/v1/costs/summary?from=...&to=...
func (h *CostHandler) Summary(c *gin.Context) {
	from, to, err := timeRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := h.costs.Summary(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, report)
}

// UserSummary handles GET /api/v1/costs/users/:user_id.
func (h *CostHandler) UserSummary(c *gin.Context) {
	from, to, err := timeRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := h.costs.UserSummary(c.Request.Context(), c.Param("user_id"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, report)
}

// timeRange parses optional RFC3339 from/to query parameters.
func timeRange(c *gin.Context) (from, to time.Time, err error) {
	if raw := c.Query("from"); raw != "" {
		from, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.ErrInvalidRequest("from must be RFC3339")
		}
	}
	if raw := c.Query("to"); raw != "" {
		to, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.ErrInvalidRequest("to must be RFC3339")
		}
	}
	return from, to, nil
}
