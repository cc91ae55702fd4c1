package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/nimbusworks/nimbus/pkg/errors"

	"github.com/nimbusworks/nimbus/internal/domain/models"
	"github.com/nimbusworks/nimbus/internal/domain/repository"
)

type usageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) repository.UsageRepository {
	return &usageRepository{db: db}
}

func (r *usageRepository) Record(ctx context.Context, event *models.UsageEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return apperrors.ErrInternal("record usage event").WithCause(err)
	}
	return nil
}

func (r *usageRepository) Summarize(ctx context.Context, from, to time.Time) (*models.CostSummary, error) {
	return r.summarize(ctx, "", from, to)
}

func (r *usageRepository) SummarizeUser(ctx context.Context, userID string, from, to time.Time) (*models.CostSummary, error) {
	return r.summarize(ctx, userID, from, to)
}

func (r *usageRepository) summarize(ctx context.Context, userID string, from, to time.Time) (*models.CostSummary, error) {
	query := r.db.WithContext(ctx).Model(&models.UsageEvent{}).
		Where("created_at >= ? AND created_at < ?", from, to)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var slices []models.ModelCostSlice
	err := query.
		Select("model_id, SUM(cost_usd) AS total_usd, SUM(input_tokens) AS input_tokens, SUM(output_tokens) AS output_tokens, COUNT(*) AS events").
		Group("model_id").
		Order("total_usd DESC").
		Scan(&slices).Error
	if err != nil {
		return nil, apperrors.ErrInternal("summarize usage").WithCause(err)
	}

	summary := &models.CostSummary{ByModel: slices}
	for _, slice := range slices {
		summary.TotalUSD += slice.TotalUSD
		summary.InputTokens += slice.InputTokens
		summary.OutputTokens += slice.OutputTokens
		summary.Events += slice.Events
	}
	return summary, nil
}

func (r *usageRepository) UserCostSince(ctx context.Context, userID string, since time.Time) (float64, error) {
	var total *float64
	err := r.db.WithContext(ctx).Model(&models.UsageEvent{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Select("SUM(cost_usd)").
		Scan(&total).Error
	if err != nil {
		return 0, apperrors.ErrInternal("sum user cost").WithCause(err)
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}
