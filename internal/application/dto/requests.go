// Package dto defines the HTTP request/response shapes for the Nimbus API.
package dto

import "time"

// BeginLoginRequest starts an OIDC login.
type BeginLoginRequest struct {
	// RedirectURI is where the frontend wants the user returned after the
	// callback. Optional.
	RedirectURI string `json:"redirect_uri" form:"redirect_uri"`
}

// CompleteLoginRequest redeems the IdP callback for a platform token.
type CompleteLoginRequest struct {
	Code  string `json:"code" binding:"required"`
	State string `json:"state" binding:"required"`
}

// TokenResponse carries the minted platform bearer token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	RedirectURI string    `json:"redirect_uri,omitempty"`
	User        UserInfo  `json:"user"`
}

// UserInfo is the authenticated identity echoed to the frontend.
type UserInfo struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles"`
}

// CreateSessionRequest opens a new chat session.
type CreateSessionRequest struct {
	Title       string `json:"title"`
	ModelID     string `json:"model_id"`
	AssistantID string `json:"assistant_id"`
}

// UpdateSessionRequest renames a session.
type UpdateSessionRequest struct {
	Title string `json:"title" binding:"required"`
}

// SendMessageRequest submits one user turn for streaming.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
	// ModelID overrides the session's model for this turn. Optional.
	ModelID string `json:"model_id"`
}

// TierRequest creates or updates a quota tier.
type TierRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	MonthlyUSD  float64 `json:"monthly_usd" binding:"min=0"`
	Default     bool    `json:"default"`
}

// AssignTierRequest binds a user to a tier.
type AssignTierRequest struct {
	UserID string `json:"user_id" binding:"required"`
	TierID string `json:"tier_id" binding:"required"`
}

// OverrideRequest grants a temporary per-user limit.
type OverrideRequest struct {
	UserID     string    `json:"user_id" binding:"required"`
	MonthlyUSD float64   `json:"monthly_usd" binding:"min=0"`
	Reason     string    `json:"reason"`
	ExpiresAt  time.Time `json:"expires_at" binding:"required"`
}

// ManagedModelRequest creates or updates a catalog entry.
type ManagedModelRequest struct {
	ID             string  `json:"id" binding:"required"`
	Provider       string  `json:"provider" binding:"required"`
	DisplayName    string  `json:"display_name" binding:"required"`
	InputPer1KUSD  float64 `json:"input_per_1k_usd" binding:"min=0"`
	OutputPer1KUSD float64 `json:"output_per_1k_usd" binding:"min=0"`
	ContextWindow  int     `json:"context_window"`
	Enabled        bool    `json:"enabled"`
}

// AssistantRequest creates or updates an assistant.
type AssistantRequest struct {
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	Instructions  string `json:"instructions"`
	ModelID       string `json:"model_id" binding:"required"`
	VectorStoreID string `json:"vector_store_id"`
	Shared        bool   `json:"shared"`
}
