package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimbusworks/nimbus/internal/application/dto"
	"github.com/nimbusworks/nimbus/internal/application/service"
)

// AuthHandler exposes the OIDC login endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login starts the flow: mints a state token and redirects to the IdP.
//
// GET /auth/login?redirect_uri=...
func (h *AuthHandler) Login(c *gin.Context) {
	authorizeURL, err := h.auth.BeginLogin(c.Request.Context(), c.Query("redirect_uri"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, authorizeURL)
}

// Token completes the flow: validates state, exchanges the code, and returns
// a platform bearer token. Accepts the callback parameters as JSON (POST
// from the frontend) or query parameters (direct GET callback).
//
// POST /auth/token
// GET  /auth/token?code=...&state=...
func (h *AuthHandler) Token(c *gin.Context) {
	var req dto.CompleteLoginRequest
	if c.Request.Method == http.MethodGet {
		req.Code = c.Query("code")
		req.State = c.Query("state")
		if req.Code == "" || req.State == "" {
			respondInvalidBody(c, nil)
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c, err)
		return
	}

	token, err := h.auth.CompleteLogin(c.Request.Context(), req.Code, req.State)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, token)
}
