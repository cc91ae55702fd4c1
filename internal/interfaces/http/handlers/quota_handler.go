package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimbusworks/nimbus/internal/application/dto"
	"github.com/nimbusworks/nimbus/internal/application/service"
)

// QuotaHandler exposes the admin quota endpoints.
type QuotaHandler struct {
	quota *service.QuotaService
}

func NewQuotaHandler(quota *service.QuotaService) *QuotaHandler {
	return &QuotaHandler{quota: quota}
}

// CreateTier handles POST /api/v1/admin/quota/tiers.
func (h *QuotaHandler) CreateTier(c *gin.Context) {
	var req dto.TierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c, err)
		return
	}
	tier, err := h.quota.CreateTier(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, tier)
}

// ListTiers handles GET /api/v1/admin/quota/tiers.
func (h *QuotaHandler) ListTiers(c *gin.Context) {
	tiers, err := h.quota.ListTiers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, tiers)
}

// UpdateTier handles PUT /api/v1/admin/quota/tiers/:id.
func (h *QuotaHandler) UpdateTier(c *gin.Context) {
	var req dto.TierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c, err)
		return
	}
	tier, err := h.quota.UpdateTier(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, tier)
}

// DeleteTier handles DELETE /api/v1/admin/quota/tiers/:id.
func (h *QuotaHandler) DeleteTier(c *gin.Context) {
	if err := h.quota.DeleteTier(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Assign handles PUT /api/v1/admin/quota/assignments.
func (h *QuotaHandler) Assign(c *gin.Context) {
	var req dto.AssignTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c, err)
		return
	}
	if err := h.quota.Assign(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Unassign handles DELETE /api/v1/admin/quota/assignments/:user_id.
func (h *QuotaHandler) Unassign(c *gin.Context) {
	if err := h.quota.Unassign(c.Request.Context(), c.Param("user_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetOverride handles PUT /api/v1/admin/quota/overrides.
func (h *QuotaHandler) SetOverride(c *gin.Context) {
	var req dto.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c, err)
		return
	}
	override, err := h.quota.SetOverride(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, override)
}

// ClearOverride handles DELETE /api/v1/admin/quota/overrides/:user_id.
func (h *QuotaHandler) ClearOverride(c *gin.Context) {
	if err := h.quota.ClearOverride(c.Request.Context(), c.Param("user_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UserUsage handles GET /api/v1/admin/users/:user_id/usage.
func (h *QuotaHandler) UserUsage(c *gin.Context) {
	usage, err := h.quota.Usage(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, usage)
}
