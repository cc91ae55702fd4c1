package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/nimbusworks/nimbus/pkg/errors"

	"github.com/nimbusworks/nimbus/internal/domain/models"
	"github.com/nimbusworks/nimbus/internal/domain/repository"
)

type assistantRepository struct {
	db *gorm.DB
}

func NewAssistantRepository(db *gorm.DB) repository.AssistantRepository {
	return &assistantRepository{db: db}
}

func (r *assistantRepository) Create(ctx context.Context, assistant *models.Assistant) error {
	if err := r.db.WithContext(ctx).Create(assistant).Error; err != nil {
		return apperrors.ErrInternal("create assistant").WithCause(err)
	}
	return nil
}

func (r *assistantRepository) Get(ctx context.Context, id string) (*models.Assistant, error) {
	var assistant models.Assistant
	err := r.db.WithContext(ctx).First(&assistant, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound("assistant", id)
	}
	if err != nil {
		return nil, apperrors.ErrInternal("get assistant").WithCause(err)
	}
	return &assistant, nil
}

// ListForUser returns the user's own assistants plus shared ones.
func (r *assistantRepository) ListForUser(ctx context.Context, userID string) ([]*models.Assistant, error) {
	var assistants []*models.Assistant
	err := r.db.WithContext(ctx).
		Where("owner_id = ? OR shared = ?", userID, true).
		Order("name ASC").
		Find(&assistants).Error
	if err != nil {
		return nil, apperrors.ErrInternal("list assistants").WithCause(err)
	}
	return assistants, nil
}

func (r *assistantRepository) Update(ctx context.Context, assistant *models.Assistant) error {
	result := r.db.WithContext(ctx).Model(&models.Assistant{}).
		Where("id = ?", assistant.ID).
		Select("name", "description", "instructions", "model_id", "vector_store_id", "shared").
		Updates(assistant)
	if result.Error != nil {
		return apperrors.ErrInternal("update assistant").WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound("assistant", assistant.ID)
	}
	return nil
}

func (r *assistantRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Assistant{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.ErrInternal("delete assistant").WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound("assistant", id)
	}
	return nil
}
