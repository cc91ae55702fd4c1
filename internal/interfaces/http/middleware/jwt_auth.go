// Package middleware holds the gin middleware chain: authentication, RBAC,
// request logging, recovery, tracing, and rate limiting.
package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/nimbusworks/nimbus/pkg/constants"
	apperrors "github.com/nimbusworks/nimbus/pkg/errors"
	"github.com/nimbusworks/nimbus/pkg/logger"

	"github.com/nimbusworks/nimbus/internal/application/dto"
	"github.com/nimbusworks/nimbus/internal/domain/service"
)

// RequireAuth validates the platform bearer token and stores the identity on
// both the gin context and the request context.
func RequireAuth(secrets service.SecretsProvider, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			abortWithError(c, apperrors.ErrUnauthorized("missing bearer token"))
			return
		}

		key, err := secrets.JWTSigningKey(c.Request.Context())
		if err != nil {
			log.Error(c.Request.Context(), "failed to resolve signing key", err)
			abortWithError(c, apperrors.ErrInternal("authentication unavailable"))
			return
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return key, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			abortWithError(c, apperrors.ErrUnauthorized("invalid or expired token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortWithError(c, apperrors.ErrUnauthorized("invalid token claims"))
			return
		}
		subject, _ := claims["sub"].(string)
		if subject == "" {
			abortWithError(c, apperrors.ErrUnauthorized("token missing subject"))
			return
		}
		email, _ := claims["email"].(string)
		roles := rolesFromClaims(claims)

		c.Set(string(constants.ContextKeyUserID), subject)
		c.Set(string(constants.ContextKeyEmail), email)
		c.Set(string(constants.ContextKeyRoles), roles)

		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, constants.ContextKeyUserID, subject)
		ctx = context.WithValue(ctx, constants.ContextKeyEmail, email)
		ctx = context.WithValue(ctx, constants.ContextKeyRoles, roles)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireRole gates a route group on a role claim. Runs after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, have := range RolesFrom(c) {
			if have == role {
				c.Next()
				return
			}
		}
		abortWithError(c, apperrors.ErrForbidden("insufficient role"))
	}
}

// UserIDFrom returns the authenticated subject set by RequireAuth.
func UserIDFrom(c *gin.Context) string {
	userID, _ := c.Get(string(constants.ContextKeyUserID))
	s, _ := userID.(string)
	return s
}

// RolesFrom returns the authenticated roles set by RequireAuth.
func RolesFrom(c *gin.Context) []string {
	roles, _ := c.Get(string(constants.ContextKeyRoles))
	s, _ := roles.([]string)
	return s
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

func rolesFromClaims(claims jwt.MapClaims) []string {
	raw, ok := claims["roles"].([]any)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}

func abortWithError(c *gin.Context, err error) {
	requestID, _ := c.Get(string(constants.ContextKeyRequestID))
	requestIDStr, _ := requestID.(string)
	c.AbortWithStatusJSON(apperrors.StatusOf(err), dto.ErrorResponse(err, requestIDStr))
}
