// Package service declares domain-level service interfaces implemented by the
// infrastructure layer.
package service

import (
	"context"
	"time"

	"github.com/nimbusworks/nimbus/internal/domain/models"
)

// StateStore coordinates pending OIDC logins across stateless API instances.
//
// Consume must be atomic with respect to concurrent callers: for a given
// token, at most one caller may ever observe the stored record. Not-found is
// reported as (nil, nil); errors indicate backing-store failure and must make
// the login fail loudly.
type StateStore interface {
	// Store inserts a pending login under the given state token. Tokens are
	// 256-bit random values; an existing token is overwritten rather than
	// treated as an error.
	Store(ctx context.Context, token string, login *models.PendingLogin, ttl time.Duration) error

	// Consume atomically reads and deletes the record for token. Records past
	// their expiry timestamp are reported as not-found even when physical
	// deletion has not happened yet.
	Consume(ctx context.Context, token string) (*models.PendingLogin, error)
}

// UsagePublisher mirrors usage events to an external broker for analytics.
type UsagePublisher interface {
	Publish(ctx context.Context, event *models.UsageEvent) error
	Close() error
}

// SecretsProvider resolves runtime secrets (JWT signing key, OIDC client
// secret) from Vault or static configuration.
type SecretsProvider interface {
	JWTSigningKey(ctx context.Context) ([]byte, error)
	OIDCClientSecret(ctx context.Context) (string, error)
}

// RateLimiter enforces fixed-window request limits keyed by caller identity.
type RateLimiter interface {
	// Allow reports whether one more request fits under limit within window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
