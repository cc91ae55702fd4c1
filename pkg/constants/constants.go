// Package constants defines shared constants for the Nimbus assistant platform:
// context keys, role names, and default tunables referenced across layers.
package constants

import "time"

// ServiceName identifies this service in logs, traces, and metrics.
const ServiceName = "nimbus-api"

// ContextKey is the type used for values stored in request contexts.
type ContextKey string

const (
	// ContextKeyRequestID carries the per-request correlation ID.
	ContextKeyRequestID ContextKey = "request_id"
	// ContextKeyUserID carries the authenticated subject.
	ContextKeyUserID ContextKey = "user_id"
	// ContextKeyEmail carries the authenticated user's email claim.
	ContextKeyEmail ContextKey = "email"
	// ContextKeyRoles carries the authenticated user's role list.
	ContextKeyRoles ContextKey = "roles"
	// ContextKeyTraceID carries the active trace identifier.
	ContextKeyTraceID ContextKey = "trace_id"
)

// Role names matched against the JWT roles claim.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// HeaderRequestID is the inbound/outbound correlation header.
const HeaderRequestID = "X-Request-ID"

const (
	// DefaultStateTokenTTL bounds how long a pending OIDC login stays valid.
	DefaultStateTokenTTL = 10 * time.Minute

	// DefaultSessionTokenTTL is the lifetime of platform bearer tokens.
	DefaultSessionTokenTTL = 12 * time.Hour

	// DefaultModelCacheTTL bounds staleness of the managed-model catalog cache.
	DefaultModelCacheTTL = 30 * time.Second
)

// RateLimitScope labels rate-limited surfaces for metrics and limiter keys.
type RateLimitScope string

const (
	RateLimitScopeLogin    RateLimitScope = "login"
	RateLimitScopeMessages RateLimitScope = "messages"
)

// Pagination bounds for list endpoints.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)
