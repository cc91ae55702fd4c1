package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/nimbusworks/nimbus/pkg/errors"
	"github.com/nimbusworks/nimbus/pkg/logger"

	"github.com/nimbusworks/nimbus/internal/application/dto"
	"github.com/nimbusworks/nimbus/internal/application/service"
	"github.com/nimbusworks/nimbus/internal/application/stream"
	"github.com/nimbusworks/nimbus/internal/infrastructure/monitoring"
	"github.com/nimbusworks/nimbus/internal/interfaces/http/middleware"
)

// ChatHandler exposes session CRUD and the streaming message endpoint.
type ChatHandler struct {
	chat    *service.ChatService
	metrics *monitoring.Metrics
	log     logger.Logger
}

func NewChatHandler(chat *service.ChatService, metrics *monitoring.Metrics, log logger.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, metrics: metrics, log: log.WithComponent("http.chat")}
}

// CreateSession handles POST /api/v1/sessions.
func (h *ChatHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c, err)
		return
	}
	session, err := h.chat.CreateSession(c.Request.Context(), middleware.UserIDFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, session)
}

// ListSessions handles GET /api/v1/sessions.
func (h *ChatHandler) ListSessions(c *gin.Context) {
	limit, offset := pagination(c)
	sessions, total, err := h.chat.ListSessions(c.Request.Context(), middleware.UserIDFrom(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, sessions, limit, offset, total)
}

// GetSession handles GET /api/v1/sessions/:id.
func (h *ChatHandler) GetSession(c *gin.Context) {
	session, err := h.chat.GetSession(c.Request.Context(), middleware.UserIDFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, session)
}

// UpdateSession handles PATCH /api/v1/sessions/:id.
func (h *ChatHandler) UpdateSession(c *gin.Context) {
	var req dto.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c, err)
		return
	}
	session, err := h.chat.RenameSession(c.Request.Context(), middleware.UserIDFrom(c), c.Param("id"), req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, session)
}

// DeleteSession handles DELETE /api/v1/sessions/:id.
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	err := h.chat.DeleteSession(c.Request.Context(), middleware.UserIDFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMessages handles GET /api/v1/sessions/:id/messages.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	messages, err := h.chat.ListMessages(c.Request.Context(), middleware.UserIDFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, messages)
}

// StreamMessage handles POST /api/v1/sessions/:id/messages. The response is
// an SSE stream of normalized envelopes ending in a single done event.
//
// Validation failures before the first envelope return plain JSON errors;
// once streaming has begun, failures arrive as error envelopes on the
// stream itself.
func (h *ChatHandler) StreamMessage(c *gin.Context) {
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c, err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		respondError(c, apperrors.ErrInternal("streaming unsupported by connection"))
		return
	}

	started := false

	sink := func(env stream.Envelope) error {
		if !started {
			started = true
			header := c.Writer.Header()
			header.Set("Content-Type", "text/event-stream")
			header.Set("Cache-Control", "no-cache")
			header.Set("Connection", "keep-alive")
			header.Set("X-Accel-Buffering", "no")
			c.Status(http.StatusOK)
			// Comment line forces proxies to commit to the stream.
			fmt.Fprint(c.Writer, ": stream started\n\n")
		}

		h.metrics.RecordStreamEvent(env.Type)

		payload, err := json.Marshal(env)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	err := h.chat.StreamMessage(c.Request.Context(), middleware.UserIDFrom(c), c.Param("id"), &req, sink)
	if err != nil {
		if !started {
			respondError(c, err)
			return
		}
		// Headers are already on the wire; nothing more can be sent.
		h.log.Warn(c.Request.Context(), "stream aborted after start",
			logger.String("session_id", c.Param("id")))
	}
}
