package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/nimbusworks/nimbus/pkg/errors"

	"github.com/nimbusworks/nimbus/internal/domain/models"
	"github.com/nimbusworks/nimbus/internal/domain/repository"
)

// quotaRepository persists tiers, assignments, and overrides. Lookups that
// feed quota resolution (assignment, override, default tier) report a missing
// row as nil, nil so the resolver can fall through the precedence chain.
type quotaRepository struct {
	db *gorm.DB
}

func NewQuotaRepository(db *gorm.DB) repository.QuotaRepository {
	return &quotaRepository{db: db}
}

func (r *quotaRepository) CreateTier(ctx context.Context, tier *models.QuotaTier) error {
	err := r.db.WithContext(ctx).Create(tier).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.ErrConflict("a tier with that name already exists")
	}
	if err != nil {
		return apperrors.ErrInternal("create quota tier").WithCause(err)
	}
	return nil
}

func (r *quotaRepository) GetTier(ctx context.Context, id string) (*models.QuotaTier, error) {
	var tier models.QuotaTier
	err := r.db.WithContext(ctx).First(&tier, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound("quota tier", id)
	}
	if err != nil {
		return nil, apperrors.ErrInternal("get quota tier").WithCause(err)
	}
	return &tier, nil
}

func (r *quotaRepository) ListTiers(ctx context.Context) ([]*models.QuotaTier, error) {
	var tiers []*models.QuotaTier
	if err := r.db.WithContext(ctx).Order("monthly_usd ASC").Find(&tiers).Error; err != nil {
		return nil, apperrors.ErrInternal("list quota tiers").WithCause(err)
	}
	return tiers, nil
}

func (r *quotaRepository) UpdateTier(ctx context.Context, tier *models.QuotaTier) error {
	result := r.db.WithContext(ctx).Model(&models.QuotaTier{}).
		Where("id = ?", tier.ID).
		Select("name", "description", "monthly_usd", "default").
		Updates(tier)
	if result.Error != nil {
		return apperrors.ErrInternal("update quota tier").WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound("quota tier", tier.ID)
	}
	return nil
}

func (r *quotaRepository) DeleteTier(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.QuotaTier{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.ErrInternal("delete quota tier").WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound("quota tier", id)
	}
	return nil
}

func (r *quotaRepository) GetDefaultTier(ctx context.Context) (*models.QuotaTier, error) {
	var tier models.QuotaTier
	err := r.db.WithContext(ctx).First(&tier, `"default" = ?`, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.ErrInternal("get default quota tier").WithCause(err)
	}
	return &tier, nil
}

func (r *quotaRepository) UpsertAssignment(ctx context.Context, assignment *models.QuotaAssignment) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tier_id", "updated_at"}),
	}).Create(assignment).Error
	if err != nil {
		return apperrors.ErrInternal("upsert quota assignment").WithCause(err)
	}
	return nil
}

func (r *quotaRepository) GetAssignment(ctx context.Context, userID string) (*models.QuotaAssignment, error) {
	var assignment models.QuotaAssignment
	err := r.db.WithContext(ctx).First(&assignment, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.ErrInternal("get quota assignment").WithCause(err)
	}
	return &assignment, nil
}

func (r *quotaRepository) DeleteAssignment(ctx context.Context, userID string) error {
	result := r.db.WithContext(ctx).Delete(&models.QuotaAssignment{}, "user_id = ?", userID)
	if result.Error != nil {
		return apperrors.ErrInternal("delete quota assignment").WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound("quota assignment", userID)
	}
	return nil
}

func (r *quotaRepository) UpsertOverride(ctx context.Context, override *models.QuotaOverride) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"monthly_usd", "reason", "expires_at"}),
	}).Create(override).Error
	if err != nil {
		return apperrors.ErrInternal("upsert quota override").WithCause(err)
	}
	return nil
}

func (r *quotaRepository) GetOverride(ctx context.Context, userID string) (*models.QuotaOverride, error) {
	var override models.QuotaOverride
	err := r.db.WithContext(ctx).First(&override, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.ErrInternal("get quota override").WithCause(err)
	}
	return &override, nil
}

func (r *quotaRepository) DeleteOverride(ctx context.Context, userID string) error {
	result := r.db.WithContext(ctx).Delete(&models.QuotaOverride{}, "user_id = ?", userID)
	if result.Error != nil {
		return apperrors.ErrInternal("delete quota override").WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound("quota override", userID)
	}
	return nil
}
