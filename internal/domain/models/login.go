// Package models defines the domain models for the Nimbus assistant platform.
package models

import "time"

// PendingLogin is a pending OIDC authorization-code flow, keyed externally by
// its random state token. A record is consumed (read-then-deleted) at most
// once; after consumption a second lookup must report not-found.
type PendingLogin struct {
	// RedirectURI is the frontend location to return the user to after the
	// callback completes. Optional.
	RedirectURI string `json:"redirect_uri,omitempty"`

	// CreatedAt is when the login attempt started.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is the hard deadline after which the record must never be
	// returned as found, even if physical deletion is delayed.
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the record is past its TTL at the given instant.
func (p *PendingLogin) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
