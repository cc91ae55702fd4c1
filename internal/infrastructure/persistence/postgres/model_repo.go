package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/nimbusworks/nimbus/pkg/errors"

	"github.com/nimbusworks/nimbus/internal/domain/models"
	"github.com/nimbusworks/nimbus/internal/domain/repository"
)

type modelRepository struct {
	db *gorm.DB
}

func NewModelRepository(db *gorm.DB) repository.ModelRepository {
	return &modelRepository{db: db}
}

func (r *modelRepository) Create(ctx context.Context, model *models.ManagedModel) error {
	err := r.db.WithContext(ctx).Create(model).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.ErrConflict("a model with that id already exists")
	}
	if err != nil {
		return apperrors.ErrInternal("create managed model").WithCause(err)
	}
	return nil
}

func (r *modelRepository) Get(ctx context.Context, id string) (*models.ManagedModel, error) {
	var model models.ManagedModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound("model", id)
	}
	if err != nil {
		return nil, apperrors.ErrInternal("get managed model").WithCause(err)
	}
	return &model, nil
}

func (r *modelRepository) List(ctx context.Context, enabledOnly bool) ([]*models.ManagedModel, error) {
	query := r.db.WithContext(ctx).Order("display_name ASC")
	if enabledOnly {
		query = query.Where("enabled = ?", true)
	}
	var list []*models.ManagedModel
	if err := query.Find(&list).Error; err != nil {
		return nil, apperrors.ErrInternal("list managed models").WithCause(err)
	}
	return list, nil
}

func (r *modelRepository) Update(ctx context.Context, model *models.ManagedModel) error {
	result := r.db.WithContext(ctx).Model(&models.ManagedModel{}).
		Where("id = ?", model.ID).
		Select("provider", "display_name", "input_per_1k_usd", "output_per_1k_usd", "context_window", "enabled").
		Updates(model)
	if result.Error != nil {
		return apperrors.ErrInternal("update managed model").WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound("model", model.ID)
	}
	return nil
}

func (r *modelRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.ManagedModel{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.ErrInternal("delete managed model").WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound("model", id)
	}
	return nil
}
