package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimbusworks/nimbus/internal/application/dto"
	"github.com/nimbusworks/nimbus/internal/application/service"
)

// CatalogHandler exposes the model and tool catalogs.
type CatalogHandler struct {
	catalog *service.CatalogService
}

func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListModels handles GET /api/v1/models (enabled models only).
func (h *CatalogHandler) ListModels(c *gin.Context) {
	list, err := h.catalog.EnabledModels(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}

// ListTools handles GET /api/v1/tools.
func (h *CatalogHandler) ListTools(c *gin.Context) {
	respond(c, http.StatusOK, h.catalog.Tools())
}

// ListManagedModels handles GET /api/v1/admin/managed-models.
func (h *CatalogHandler) ListManagedModels(c *gin.Context) {
	list, err := h.catalog.AllModels(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}

// CreateManagedModel handles POST /api/v1/admin/managed-models.
func (h *CatalogHandler) CreateManagedModel(c *gin.Context) {
	var req dto.ManagedModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c, err)
		return
	}
	model, err := h.catalog.CreateModel(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, model)
}

// UpdateManagedModel handles PUT /api/v1/admin/managed-models/:id.
func (h *CatalogHandler) UpdateManagedModel(c *gin.Context) {
	var req dto.ManagedModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c, err)
		return
	}
	model, err := h.catalog.UpdateModel(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, model)
}

// DeleteManagedModel handles DELETE /api/v1/admin/managed-models/:id.
func (h *CatalogHandler) DeleteManagedModel(c *gin.Context) {
	if err := h.catalog.DeleteModel(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
