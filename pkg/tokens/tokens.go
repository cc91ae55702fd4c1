// Package tokens generates the opaque random tokens used in the OIDC login
// flow. State tokens are 256-bit values; collisions are not handled as a
// normal case anywhere in the platform.
package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// stateTokenBytes is the entropy of a login state token.
const stateTokenBytes = 32

// NewStateToken returns a URL-safe random token for the OIDC state parameter.
func NewStateToken() (string, error) {
	buf := make([]byte, stateTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
