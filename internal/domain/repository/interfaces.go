// Package repository declares the persistence interfaces implemented by
// internal/infrastructure/persistence.
package repository

import (
	"context"
	"time"

	"github.com/nimbusworks/nimbus/internal/domain/models"
)

// SessionRepository persists chat sessions and their messages.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context, userID string, limit, offset int) ([]*models.Session, int64, error)
	TouchSession(ctx context.Context, id string, title string) error
	DeleteSession(ctx context.Context, id string) error

	CreateMessage(ctx context.Context, message *models.Message) error
	ListMessages(ctx context.Context, sessionID string) ([]*models.Message, error)
}

// QuotaRepository persists quota tiers, assignments, and overrides.
type QuotaRepository interface {
	CreateTier(ctx context.Context, tier *models.QuotaTier) error
	GetTier(ctx context.Context, id string) (*models.QuotaTier, error)
	ListTiers(ctx context.Context) ([]*models.QuotaTier, error)
	UpdateTier(ctx context.Context, tier *models.QuotaTier) error
	DeleteTier(ctx context.Context, id string) error
	// GetDefaultTier returns nil, nil when no tier carries the default flag.
	GetDefaultTier(ctx context.Context) (*models.QuotaTier, error)

	UpsertAssignment(ctx context.Context, assignment *models.QuotaAssignment) error
	GetAssignment(ctx context.Context, userID string) (*models.QuotaAssignment, error)
	DeleteAssignment(ctx context.Context, userID string) error

	UpsertOverride(ctx context.Context, override *models.QuotaOverride) error
	GetOverride(ctx context.Context, userID string) (*models.QuotaOverride, error)
	DeleteOverride(ctx context.Context, userID string) error
}

// UsageRepository persists usage events and serves cost aggregations.
type UsageRepository interface {
	Record(ctx context.Context, event *models.UsageEvent) error
	// Summarize aggregates events in [from, to) across all users.
	Summarize(ctx context.Context, from, to time.Time) (*models.CostSummary, error)
	// SummarizeUser aggregates events in [from, to) for one user.
	SummarizeUser(ctx context.Context, userID string, from, to time.Time) (*models.CostSummary, error)
	// UserCostSince returns the summed cost for a user from a given instant.
	UserCostSince(ctx context.Context, userID string, since time.Time) (float64, error)
}

// ModelRepository persists the managed-model catalog.
type ModelRepository interface {
	Create(ctx context.Context, model *models.ManagedModel) error
	Get(ctx context.Context, id string) (*models.ManagedModel, error)
	List(ctx context.Context, enabledOnly bool) ([]*models.ManagedModel, error)
	Update(ctx context.Context, model *models.ManagedModel) error
	Delete(ctx context.Context, id string) error
}

// AssistantRepository persists assistants.
type AssistantRepository interface {
	Create(ctx context.Context, assistant *models.Assistant) error
	Get(ctx context.Context, id string) (*models.Assistant, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Assistant, error)
	Update(ctx context.Context, assistant *models.Assistant) error
	Delete(ctx context.Context, id string) error
}
