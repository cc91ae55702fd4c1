// Package secrets resolves runtime secrets. Production deployments read them
// from Vault KV v2; development uses the static provider fed from config.
package secrets

import (
	"context"
	"fmt"
	"sync"

	vault "github.com/hashicorp/vault/api"

	"github.com/nimbusworks/nimbus/pkg/logger"

	"github.com/nimbusworks/nimbus/internal/config"
	"github.com/nimbusworks/nimbus/internal/domain/service"
)

// Field names inside the Vault secret payload.
const (
	fieldJWTSigningKey    = "jwt_signing_key"
	fieldOIDCClientSecret = "oidc_client_secret"
)

type vaultProvider struct {
	client     *vault.Client
	mountPath  string
	secretPath string
	log        logger.Logger

	mu     sync.Mutex
	cached map[string]string
}

// NewVaultProvider connects to Vault and verifies the secret is readable, so
// misconfiguration surfaces at startup rather than on the first login.
func NewVaultProvider(cfg config.VaultConfig, log logger.Logger) (service.SecretsProvider, error) {
	vaultCfg := vault.DefaultConfig()
	vaultCfg.Address = cfg.Address

	client, err := vault.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	p := &vaultProvider{
		client:     client,
		mountPath:  cfg.MountPath,
		secretPath: cfg.SecretPath,
		log:        log.WithComponent("secrets.vault"),
	}
	if _, err := p.field(context.Background(), fieldJWTSigningKey); err != nil {
		return nil, fmt.Errorf("verify vault secret access: %w", err)
	}
	return p, nil
}

func (p *vaultProvider) JWTSigningKey(ctx context.Context) ([]byte, error) {
	value, err := p.field(ctx, fieldJWTSigningKey)
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (p *vaultProvider) OIDCClientSecret(ctx context.Context) (string, error) {
	return p.field(ctx, fieldOIDCClientSecret)
}

// field returns one field of the secret, fetching the whole payload once and
// serving later lookups from memory. Secrets rotate by restarting the
// service.
func (p *vaultProvider) field(ctx context.Context, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached == nil {
		secret, err := p.client.KVv2(p.mountPath).Get(ctx, p.secretPath)
		if err != nil {
			return "", fmt.Errorf("read vault secret %s/%s: %w", p.mountPath, p.secretPath, err)
		}
		cached := make(map[string]string, len(secret.Data))
		for key, value := range secret.Data {
			if s, ok := value.(string); ok {
				cached[key] = s
			}
		}
		p.cached = cached
		p.log.Info(ctx, "vault secrets loaded", logger.Int("fields", len(cached)))
	}

	value, ok := p.cached[name]
	if !ok || value == "" {
		return "", fmt.Errorf("vault secret %s/%s missing field %q", p.mountPath, p.secretPath, name)
	}
	return value, nil
}
