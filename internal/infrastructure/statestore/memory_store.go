package statestore

import (
	"context"
	"sync"
	"time"

	"github.com/nimbusworks/nimbus/pkg/logger"

	"github.com/nimbusworks/nimbus/internal/domain/models"
)

// MemoryStateStore is the fallback used when Redis is disabled. Pending
// logins live only in this process, so a login started on one instance
// cannot be completed on another. Fine for development and single-instance
// deployments, wrong for anything load-balanced.
type MemoryStateStore struct {
	mu      sync.Mutex
	records map[string]*models.PendingLogin
}

// NewMemoryStateStore builds the in-process store and logs the operational
// caveat once, at construction, so it lands in startup logs where operators
// look.
func NewMemoryStateStore(log logger.Logger) *MemoryStateStore {
	log.Warn(context.Background(),
		"using in-memory login state store; logins will not survive restarts and multi-instance deployments will intermittently fail CSRF validation",
	)
	return &MemoryStateStore{records: make(map[string]*models.PendingLogin)}
}

func (s *MemoryStateStore) Store(_ context.Context, token string, login *models.PendingLogin, ttl time.Duration) error {
	now := time.Now().UTC()
	record := *login
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.ExpiresAt = now.Add(ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
	s.records[token] = &record
	return nil
}

func (s *MemoryStateStore) Consume(_ context.Context, token string) (*models.PendingLogin, error) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	login, ok := s.records[token]
	if !ok {
		return nil, nil
	}
	delete(s.records, token)

	if login.Expired(now) {
		return nil, nil
	}
	return login, nil
}

// sweepLocked drops expired records. Called opportunistically on Store so an
// abandoned login flood cannot grow the map unbounded; callers hold mu.
func (s *MemoryStateStore) sweepLocked(now time.Time) {
	for token, login := range s.records {
		if login.Expired(now) {
			delete(s.records, token)
		}
	}
}
