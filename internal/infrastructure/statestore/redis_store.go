// Package statestore implements the pending-login state store used by the
// OIDC authorization-code flow. The Redis implementation is the production
// one; the memory implementation exists for single-instance deployments and
// tests.
package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/nimbusworks/nimbus/pkg/errors"
	"github.com/nimbusworks/nimbus/pkg/logger"

	"github.com/nimbusworks/nimbus/internal/domain/models"
	"github.com/nimbusworks/nimbus/internal/infrastructure/monitoring"
)

const stateKeyPrefix = "auth:state:"

// RedisStateStore keeps pending logins in Redis so any API instance can
// complete a login started on another. Consume uses GETDEL, so the
// at-most-once guarantee holds across instances without locks.
type RedisStateStore struct {
	client  *redis.Client
	log     logger.Logger
	metrics *monitoring.Metrics
}

func NewRedisStateStore(client *redis.Client, log logger.Logger, metrics *monitoring.Metrics) *RedisStateStore {
	return &RedisStateStore{
		client:  client,
		log:     log.WithComponent("statestore.redis"),
		metrics: metrics,
	}
}

func (s *RedisStateStore) Store(ctx context.Context, token string, login *models.PendingLogin, ttl time.Duration) error {
	now := time.Now().UTC()
	record := *login
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.ExpiresAt = now.Add(ttl)

	payload, err := json.Marshal(&record)
	if err != nil {
		return apperrors.ErrInternal("encode pending login").WithCause(err)
	}

	// Redis rejects non-positive TTLs. A zero ttl still produces a record
	// whose ExpiresAt is in the past, so Consume reports it as not found;
	// the floor only controls physical deletion.
	expire := ttl
	if expire < time.Second {
		expire = time.Second
	}

	if err := s.client.Set(ctx, stateKeyPrefix+token, payload, expire).Err(); err != nil {
		s.log.Error(ctx, "failed to store pending login", err)
		s.metrics.RecordStateStoreOp("store", "error")
		return apperrors.ErrUnavailable("state store unavailable").WithCause(err)
	}
	s.metrics.RecordStateStoreOp("store", "ok")
	return nil
}

func (s *RedisStateStore) Consume(ctx context.Context, token string) (*models.PendingLogin, error) {
	payload, err := s.client.GetDel(ctx, stateKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		s.metrics.RecordStateStoreOp("consume", "miss")
		return nil, nil
	}
	if err != nil {
		s.log.Error(ctx, "failed to consume pending login", err)
		s.metrics.RecordStateStoreOp("consume", "error")
		return nil, apperrors.ErrUnavailable("state store unavailable").WithCause(err)
	}

	var login models.PendingLogin
	if err := json.Unmarshal(payload, &login); err != nil {
		s.metrics.RecordStateStoreOp("consume", "error")
		return nil, apperrors.ErrInternal("decode pending login").WithCause(err)
	}

	// The key TTL is floored at one second, so the record timestamp is the
	// authoritative expiry check.
	if login.Expired(time.Now().UTC()) {
		s.metrics.RecordStateStoreOp("consume", "miss")
		return nil, nil
	}
	s.metrics.RecordStateStoreOp("consume", "hit")
	return &login, nil
}
