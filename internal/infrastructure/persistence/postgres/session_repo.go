package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/nimbusworks/nimbus/pkg/errors"

	"github.com/nimbusworks/nimbus/internal/domain/models"
	"github.com/nimbusworks/nimbus/internal/domain/repository"
)

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository builds the gorm-backed session repository.
func NewSessionRepository(db *gorm.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) CreateSession(ctx context.Context, session *models.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return apperrors.ErrInternal("create session").WithCause(err)
	}
	return nil
}

func (r *sessionRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound("session", id)
	}
	if err != nil {
		return nil, apperrors.ErrInternal("get session").WithCause(err)
	}
	return &session, nil
}

func (r *sessionRepository) ListSessions(ctx context.Context, userID string, limit, offset int) ([]*models.Session, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Session{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.ErrInternal("count sessions").WithCause(err)
	}

	var sessions []*models.Session
	err := query.Order("updated_at DESC").Limit(limit).Offset(offset).Find(&sessions).Error
	if err != nil {
		return nil, 0, apperrors.ErrInternal("list sessions").WithCause(err)
	}
	return sessions, total, nil
}

func (r *sessionRepository) TouchSession(ctx context.Context, id string, title string) error {
	updates := map[string]any{"updated_at": gorm.Expr("CURRENT_TIMESTAMP")}
	if title != "" {
		updates["title"] = title
	}
	result := r.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return apperrors.ErrInternal("update session").WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound("session", id)
	}
	return nil
}

func (r *sessionRepository) DeleteSession(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Session{}, "id = ?", id)
		if result.Error != nil {
			return apperrors.ErrInternal("delete session").WithCause(result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound("session", id)
		}
		if err := tx.Delete(&models.Message{}, "session_id = ?", id).Error; err != nil {
			return apperrors.ErrInternal("delete session messages").WithCause(err)
		}
		return nil
	})
}

func (r *sessionRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return apperrors.ErrInternal("create message").WithCause(err)
	}
	return nil
}

func (r *sessionRepository) ListMessages(ctx context.Context, sessionID string) ([]*models.Message, error) {
	var messages []*models.Message
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, apperrors.ErrInternal("list messages").WithCause(err)
	}
	return messages, nil
}
