package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusworks/nimbus/pkg/logger"

	"github.com/nimbusworks/nimbus/internal/application/dto"
	"github.com/nimbusworks/nimbus/internal/application/service"
	"github.com/nimbusworks/nimbus/internal/config"
	"github.com/nimbusworks/nimbus/internal/infrastructure/oidc"
	"github.com/nimbusworks/nimbus/internal/infrastructure/secrets"
	"github.com/nimbusworks/nimbus/internal/infrastructure/statestore"
)

// stubProvider plays the IdP for handler tests.
type stubProvider struct{}

func (stubProvider) AuthorizeURL(state string) string {
	return "https://idp.example.com/authorize?state=" + url.QueryEscape(state)
}

func (stubProvider) ExchangeCode(ctx context.Context, code string) (*oidc.TokenResponse, error) {
	return &oidc.TokenResponse{AccessToken: "idp-access-token", TokenType: "Bearer"}, nil
}

func (stubProvider) FetchUserInfo(ctx context.Context, accessToken string) (*oidc.UserInfo, error) {
	return &oidc.UserInfo{Subject: "user-1", Email: "alice@example.com", Name: "Alice"}, nil
}

func newAuthEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		JWT:  config.JWTConfig{Issuer: "nimbus-test", TTL: time.Hour},
		OIDC: config.OIDCConfig{StateTTL: time.Minute},
	}
	auth := service.NewAuthService(
		cfg,
		statestore.NewMemoryStateStore(logger.NewNoop()),
		stubProvider{},
		secrets.NewStaticProvider("handler-test-signing-key-32-byte", ""),
		logger.NewNoop(),
	)
	handler := NewAuthHandler(auth)

	engine := gin.New()
	engine.GET("/auth/login", handler.Login)
	engine.GET("/auth/token", handler.Token)
	engine.POST("/auth/token", handler.Token)
	return engine
}

// beginLogin drives the redirect endpoint and returns the minted state token.
func beginLogin(t *testing.T, engine *gin.Engine) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri=/chat", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func postToken(engine *gin.Engine, code, state string) *httptest.ResponseRecorder {
	body := strings.NewReader(`{"code":"` + code + `","state":"` + state + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/token", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestLoginRedirectsToIdP(t *testing.T) {
	engine := newAuthEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "https://idp.example.com/authorize?")
}

func TestTokenRoundTrip(t *testing.T) {
	engine := newAuthEngine(t)
	state := beginLogin(t, engine)

	rec := postToken(engine, "auth-code", state)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data dto.TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.AccessToken)
	assert.Equal(t, "Bearer", resp.Data.TokenType)
	assert.Equal(t, "/chat", resp.Data.RedirectURI)
	assert.Equal(t, "user-1", resp.Data.User.ID)
	assert.Equal(t, []string{"user"}, resp.Data.User.Roles)
}

func TestTokenRejectsReplayedState(t *testing.T) {
	engine := newAuthEngine(t)
	state := beginLogin(t, engine)

	require.Equal(t, http.StatusOK, postToken(engine, "auth-code", state).Code)
	assert.Equal(t, http.StatusUnauthorized, postToken(engine, "auth-code", state).Code)
}

func TestTokenRejectsUnknownState(t *testing.T) {
	engine := newAuthEngine(t)
	rec := postToken(engine, "auth-code", "never-issued")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenRequiresCallbackParams(t *testing.T) {
	engine := newAuthEngine(t)
	req := httptest.NewRequest(http.MethodGet, "/auth/token?code=abc", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
