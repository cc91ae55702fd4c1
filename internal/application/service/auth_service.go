// Package service implements the application services behind the HTTP
// handlers: login, chat streaming, quota, cost reporting, and the catalog.
package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nimbusworks/nimbus/pkg/constants"
	apperrors "github.com/nimbusworks/nimbus/pkg/errors"
	"github.com/nimbusworks/nimbus/pkg/logger"
	"github.com/nimbusworks/nimbus/pkg/tokens"

	"github.com/nimbusworks/nimbus/internal/application/dto"
	"github.com/nimbusworks/nimbus/internal/config"
	"github.com/nimbusworks/nimbus/internal/domain/models"
	"github.com/nimbusworks/nimbus/internal/domain/service"
	"github.com/nimbusworks/nimbus/internal/infrastructure/oidc"
)

// IdentityProvider is the slice of the IdP client the auth service needs.
// Implemented by oidc.ProviderClient.
type IdentityProvider interface {
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*oidc.TokenResponse, error)
	FetchUserInfo(ctx context.Context, accessToken string) (*oidc.UserInfo, error)
}

// AuthService drives the OIDC login flow and mints platform bearer tokens.
type AuthService struct {
	cfg      config.Config
	states   service.StateStore
	provider IdentityProvider
	secrets  service.SecretsProvider
	log      logger.Logger

	adminEmails map[string]struct{}
}

func NewAuthService(
	cfg config.Config,
	states service.StateStore,
	provider IdentityProvider,
	secrets service.SecretsProvider,
	log logger.Logger,
) *AuthService {
	adminEmails := make(map[string]struct{}, len(cfg.OIDC.AdminEmails))
	for _, email := range cfg.OIDC.AdminEmails {
		adminEmails[email] = struct{}{}
	}
	return &AuthService{
		cfg:         cfg,
		states:      states,
		provider:    provider,
		secrets:     secrets,
		log:         log.WithComponent("auth"),
		adminEmails: adminEmails,
	}
}

// BeginLogin stores a pending login under a fresh state token and returns
// the IdP authorize URL to redirect the browser to.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURI string) (string, error) {
	state, err := tokens.NewStateToken()
	if err != nil {
		return "", apperrors.ErrInternal("generate state token").WithCause(err)
	}

	ttl := s.cfg.OIDC.StateTTL
	if ttl == 0 {
		ttl = constants.DefaultStateTokenTTL
	}
	err = s.states.Store(ctx, state, &models.PendingLogin{RedirectURI: redirectURI}, ttl)
	if err != nil {
		// A login started without a stored state can never be completed, so
		// a store outage must fail here, loudly.
		return "", err
	}

	s.log.Debug(ctx, "login started")
	return s.provider.AuthorizeURL(state), nil
}

// CompleteLogin validates the state token, redeems the authorization code,
// and mints a platform token for the identified user.
//
// State validation outcomes are deliberately indistinguishable to the
// caller: unknown, expired, and already-consumed tokens all produce the same
// 401. Only a state store failure maps to a 5xx.
func (s *AuthService) CompleteLogin(ctx context.Context, code, state string) (*dto.TokenResponse, error) {
	pending, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		s.log.Warn(ctx, "login callback with invalid state token")
		return nil, apperrors.ErrUnauthorized("invalid or expired state token")
	}

	token, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	info, err := s.provider.FetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	roles := s.rolesFor(info.Email)
	accessToken, expiresAt, err := s.mintToken(ctx, info, roles)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "login completed",
		logger.String("user_id", info.Subject),
		logger.Any("roles", roles),
	)
	return &dto.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		RedirectURI: pending.RedirectURI,
		User: dto.UserInfo{
			ID:    info.Subject,
			Email: info.Email,
			Name:  info.Name,
			Roles: roles,
		},
	}, nil
}

func (s *AuthService) rolesFor(email string) []string {
	roles := []string{constants.RoleUser}
	if _, ok := s.adminEmails[email]; ok {
		roles = append(roles, constants.RoleAdmin)
	}
	return roles
}

func (s *AuthService) mintToken(ctx context.Context, info *oidc.UserInfo, roles []string) (string, time.Time, error) {
	key, err := s.secrets.JWTSigningKey(ctx)
	if err != nil {
		return "", time.Time{}, apperrors.ErrInternal("resolve signing key").WithCause(err)
	}

	ttl := s.cfg.JWT.TTL
	if ttl == 0 {
		ttl = constants.DefaultSessionTokenTTL
	}
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := jwt.MapClaims{
		"sub":   info.Subject,
		"email": info.Email,
		"name":  info.Name,
		"roles": roles,
		"iss":   s.cfg.JWT.Issuer,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", time.Time{}, apperrors.ErrInternal("sign token").WithCause(err)
	}
	return signed, expiresAt, nil
}
