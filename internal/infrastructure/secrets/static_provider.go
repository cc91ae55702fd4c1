package secrets

import (
	"context"
	"fmt"

	"github.com/nimbusworks/nimbus/internal/domain/service"
)

// staticProvider serves secrets straight from configuration.
type staticProvider struct {
	jwtSigningKey    string
	oidcClientSecret string
}

func NewStaticProvider(jwtSigningKey, oidcClientSecret string) service.SecretsProvider {
	return &staticProvider{
		jwtSigningKey:    jwtSigningKey,
		oidcClientSecret: oidcClientSecret,
	}
}

func (p *staticProvider) JWTSigningKey(context.Context) ([]byte, error) {
	if p.jwtSigningKey == "" {
		return nil, fmt.Errorf("jwt signing key is not configured")
	}
	return []byte(p.jwtSigningKey), nil
}

func (p *staticProvider) OIDCClientSecret(context.Context) (string, error) {
	return p.oidcClientSecret, nil
}
