// Package oidc talks to the upstream identity provider: building the
// authorize redirect, exchanging authorization codes, and fetching the user
// profile.
package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/nimbusworks/nimbus/pkg/errors"
	"github.com/nimbusworks/nimbus/pkg/logger"

	"github.com/nimbusworks/nimbus/internal/config"
	"github.com/nimbusworks/nimbus/internal/domain/service"
)

// TokenResponse is the IdP token endpoint payload.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// UserInfo is the subset of the userinfo payload the platform consumes.
type UserInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// ProviderClient implements the authorization-code flow against the
// configured IdP.
type ProviderClient struct {
	cfg     config.OIDCConfig
	secrets service.SecretsProvider
	http    *http.Client
	log     logger.Logger
}

func NewProviderClient(cfg config.OIDCConfig, secrets service.SecretsProvider, log logger.Logger) *ProviderClient {
	return &ProviderClient{
		cfg:     cfg,
		secrets: secrets,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log.WithComponent("oidc"),
	}
}

// AuthorizeURL builds the IdP redirect carrying the given state token.
func (c *ProviderClient) AuthorizeURL(state string) string {
	scopes := c.cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	query := url.Values{
		"response_type": {"code"},
		"client_id":     {c.cfg.ClientID},
		"redirect_uri":  {c.cfg.CallbackURL},
		"scope":         {strings.Join(scopes, " ")},
		"state":         {state},
	}
	return c.cfg.AuthorizeURL + "?" + query.Encode()
}

// ExchangeCode redeems an authorization code at the token endpoint.
func (c *ProviderClient) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	clientSecret, err := c.secrets.OIDCClientSecret(ctx)
	if err != nil {
		return nil, apperrors.ErrInternal("resolve oidc client secret").WithCause(err)
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {c.cfg.CallbackURL},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apperrors.ErrInternal("build token request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.ErrUpstream("identity provider unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.ErrUpstream("read token response").WithCause(err)
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn(ctx, "token exchange rejected",
			logger.Int("status", resp.StatusCode))
		return nil, apperrors.ErrUnauthorized("authorization code was rejected").
			WithCause(fmt.Errorf("token endpoint returned %d", resp.StatusCode))
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, apperrors.ErrUpstream("decode token response").WithCause(err)
	}
	if token.AccessToken == "" {
		return nil, apperrors.ErrUpstream("token response missing access_token")
	}
	return &token, nil
}

// FetchUserInfo resolves the authenticated user's profile.
func (c *ProviderClient) FetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, apperrors.ErrInternal("build userinfo request").WithCause(err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.ErrUpstream("identity provider unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.ErrUpstream(
			fmt.Sprintf("userinfo endpoint returned %d", resp.StatusCode))
	}

	var info UserInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return nil, apperrors.ErrUpstream("decode userinfo response").WithCause(err)
	}
	if info.Subject == "" {
		return nil, apperrors.ErrUpstream("userinfo response missing subject")
	}
	return &info, nil
}
