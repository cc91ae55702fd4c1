package statestore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	apperrors "github.com/nimbusworks/nimbus/pkg/errors"
	"github.com/nimbusworks/nimbus/pkg/logger"
	"github.com/nimbusworks/nimbus/pkg/tokens"

	"github.com/nimbusworks/nimbus/internal/domain/models"
	"github.com/nimbusworks/nimbus/internal/domain/service"
	"github.com/nimbusworks/nimbus/internal/infrastructure/monitoring"
)

// Prometheus collectors register globally, so the package shares one set.
var testMetrics = monitoring.NewMetrics()

func stateStoreOps(op, result string) float64 {
	return testutil.ToFloat64(testMetrics.StateStoreOps.WithLabelValues(op, result))
}

type RedisStateStoreSuite struct {
	suite.Suite
	mini   *miniredis.Miniredis
	client *redis.Client
	store  *RedisStateStore
}

func (s *RedisStateStoreSuite) SetupTest() {
	mini, err := miniredis.Run()
	s.Require().NoError(err)
	s.mini = mini
	s.client = redis.NewClient(&redis.Options{Addr: mini.Addr()})
	s.store = NewRedisStateStore(s.client, logger.NewNoop(), testMetrics)
}

func (s *RedisStateStoreSuite) TearDownTest() {
	s.client.Close()
	s.mini.Close()
}

func (s *RedisStateStoreSuite) TestStoreConsumeRoundtrip() {
	ctx := context.Background()
	token, err := tokens.NewStateToken()
	s.Require().NoError(err)

	err = s.store.Store(ctx, token, &models.PendingLogin{RedirectURI: "https://app.example.com/cb"}, 10*time.Minute)
	s.Require().NoError(err)

	login, err := s.store.Consume(ctx, token)
	s.Require().NoError(err)
	s.Require().NotNil(login)
	s.Equal("https://app.example.com/cb", login.RedirectURI)
	s.False(login.ExpiresAt.IsZero())
}

func (s *RedisStateStoreSuite) TestConsumeIsAtMostOnce() {
	ctx := context.Background()
	err := s.store.Store(ctx, "tok-once", &models.PendingLogin{RedirectURI: "https://a/cb"}, time.Minute)
	s.Require().NoError(err)

	first, err := s.store.Consume(ctx, "tok-once")
	s.Require().NoError(err)
	s.NotNil(first)

	second, err := s.store.Consume(ctx, "tok-once")
	s.Require().NoError(err)
	s.Nil(second, "second consume of the same token must report not found")
}

func (s *RedisStateStoreSuite) TestConcurrentConsumeSingleWinner() {
	ctx := context.Background()
	err := s.store.Store(ctx, "tok-race", &models.PendingLogin{RedirectURI: "https://a/cb"}, time.Minute)
	s.Require().NoError(err)

	const callers = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			login, err := s.store.Consume(ctx, "tok-race")
			s.NoError(err)
			if login != nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	s.Len(wins, 1, "exactly one concurrent caller may observe the record")
}

func (s *RedisStateStoreSuite) TestUnknownTokenIsNotFound() {
	login, err := s.store.Consume(context.Background(), "never-stored")
	s.NoError(err)
	s.Nil(login)
}

func (s *RedisStateStoreSuite) TestExpiredRecordIsNotFound() {
	ctx := context.Background()
	err := s.store.Store(ctx, "tok-exp", &models.PendingLogin{RedirectURI: "https://a/cb"}, 5*time.Second)
	s.Require().NoError(err)

	s.mini.FastForward(6 * time.Second)

	login, err := s.store.Consume(ctx, "tok-exp")
	s.NoError(err)
	s.Nil(login)
}

func (s *RedisStateStoreSuite) TestZeroTTLExpiresImmediately() {
	// The Redis key TTL is floored at one second, but the record timestamp
	// still marks it expired on read.
	ctx := context.Background()
	err := s.store.Store(ctx, "tok-zero", &models.PendingLogin{RedirectURI: "https://a/cb"}, 0)
	s.Require().NoError(err)

	login, err := s.store.Consume(ctx, "tok-zero")
	s.NoError(err)
	s.Nil(login)
}

func (s *RedisStateStoreSuite) TestOverwriteKeepsLatestRecord() {
	ctx := context.Background()
	s.Require().NoError(s.store.Store(ctx, "tok-dup", &models.PendingLogin{RedirectURI: "https://first/cb"}, time.Minute))
	s.Require().NoError(s.store.Store(ctx, "tok-dup", &models.PendingLogin{RedirectURI: "https://second/cb"}, time.Minute))

	login, err := s.store.Consume(ctx, "tok-dup")
	s.Require().NoError(err)
	s.Require().NotNil(login)
	s.Equal("https://second/cb", login.RedirectURI)
}

func (s *RedisStateStoreSuite) TestBackendFailureIsLoud() {
	ctx := context.Background()
	s.Require().NoError(s.store.Store(ctx, "tok-down", &models.PendingLogin{RedirectURI: "https://a/cb"}, time.Minute))

	s.mini.Close()

	_, err := s.store.Consume(ctx, "tok-down")
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, apperrors.CodeServiceUnavailable))

	err = s.store.Store(ctx, "tok-down2", &models.PendingLogin{RedirectURI: "https://a/cb"}, time.Minute)
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, apperrors.CodeServiceUnavailable))
}

func (s *RedisStateStoreSuite) TestOpsAreCounted() {
	ctx := context.Background()
	storeOK := stateStoreOps("store", "ok")
	consumeHit := stateStoreOps("consume", "hit")
	consumeMiss := stateStoreOps("consume", "miss")

	s.Require().NoError(s.store.Store(ctx, "tok-metrics", &models.PendingLogin{RedirectURI: "https://a/cb"}, time.Minute))

	login, err := s.store.Consume(ctx, "tok-metrics")
	s.Require().NoError(err)
	s.Require().NotNil(login)

	login, err = s.store.Consume(ctx, "tok-metrics")
	s.Require().NoError(err)
	s.Require().Nil(login)

	s.Equal(storeOK+1, stateStoreOps("store", "ok"))
	s.Equal(consumeHit+1, stateStoreOps("consume", "hit"))
	s.Equal(consumeMiss+1, stateStoreOps("consume", "miss"))
}

func TestRedisStateStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStateStoreSuite))
}

func TestMemoryStateStore(t *testing.T) {
	ctx := context.Background()

	var store service.StateStore = NewMemoryStateStore(logger.NewNoop())

	t.Run("roundtrip and at-most-once", func(t *testing.T) {
		if err := store.Store(ctx, "m1", &models.PendingLogin{RedirectURI: "https://a/cb"}, time.Minute); err != nil {
			t.Fatalf("store: %v", err)
		}
		login, err := store.Consume(ctx, "m1")
		if err != nil || login == nil {
			t.Fatalf("first consume = %v, %v; want record", login, err)
		}
		login, err = store.Consume(ctx, "m1")
		if err != nil || login != nil {
			t.Fatalf("second consume = %v, %v; want nil, nil", login, err)
		}
	})

	t.Run("zero ttl expires immediately", func(t *testing.T) {
		if err := store.Store(ctx, "m2", &models.PendingLogin{RedirectURI: "https://a/cb"}, 0); err != nil {
			t.Fatalf("store: %v", err)
		}
		login, err := store.Consume(ctx, "m2")
		if err != nil || login != nil {
			t.Fatalf("consume = %v, %v; want nil, nil", login, err)
		}
	})

	t.Run("concurrent consume single winner", func(t *testing.T) {
		if err := store.Store(ctx, "m3", &models.PendingLogin{RedirectURI: "https://a/cb"}, time.Minute); err != nil {
			t.Fatalf("store: %v", err)
		}
		var wg sync.WaitGroup
		wins := make(chan struct{}, 16)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if login, _ := store.Consume(ctx, "m3"); login != nil {
					wins <- struct{}{}
				}
			}()
		}
		wg.Wait()
		close(wins)
		if got := len(wins); got != 1 {
			t.Fatalf("winners = %d; want 1", got)
		}
	})
}
