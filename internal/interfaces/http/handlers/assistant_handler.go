package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimbusworks/nimbus/internal/application/dto"
	"github.com/nimbusworks/nimbus/internal/application/service"
	"github.com/nimbusworks/nimbus/internal/interfaces/http/middleware"
)

// AssistantHandler exposes assistant CRUD.
type AssistantHandler struct {
	assistants *service.AssistantService
}

func NewAssistantHandler(assistants *service.AssistantService) *AssistantHandler {
	return &AssistantHandler{assistants: assistants}
}

// Create handles POST /api/v1/assistants.
func (h *AssistantHandler) Create(c *gin.Context) {
	var req dto.AssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c, err)
		return
	}
	assistant, err := h.assistants.Create(c.Request.Context(), middleware.UserIDFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, assistant)
}

// List handles GET /api/v1/assistants.
func (h *AssistantHandler) List(c *gin.Context) {
	list, err := h.assistants.List(c.Request.Context(), middleware.UserIDFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}

// Get handles GET /api/v1/assistants/:id.
func (h *AssistantHandler) Get(c *gin.Context) {
	assistant, err := h.assistants.Get(c.Request.Context(), middleware.UserIDFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, assistant)
}

// Update handles PUT /api/v1/assistants/:id.
func (h *AssistantHandler) Update(c *gin.Context) {
	var req dto.AssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c, err)
		return
	}
	assistant, err := h.assistants.Update(c.Request.Context(), middleware.UserIDFrom(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, assistant)
}

// Delete handles DELETE /api/v1/assistants/:id.
func (h *AssistantHandler) Delete(c *gin.Context) {
	if err := h.assistants.Delete(c.Request.Context(), middleware.UserIDFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
