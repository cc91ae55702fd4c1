package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/nimbusworks/nimbus/pkg/errors"
	"github.com/nimbusworks/nimbus/pkg/logger"

	"github.com/nimbusworks/nimbus/internal/application/dto"
	"github.com/nimbusworks/nimbus/internal/config"
	"github.com/nimbusworks/nimbus/internal/domain/models"
	"github.com/nimbusworks/nimbus/internal/domain/repository"
)

// Quota limit sources, reported alongside resolved limits for admin surfaces.
const (
	LimitSourceOverride = "override"
	LimitSourceTier     = "tier"
	LimitSourceDefault  = "default_tier"
	LimitSourceConfig   = "config"
)

// ResolvedLimit is a user's effective monthly limit and where it came from.
type ResolvedLimit struct {
	UserID     string  `json:"user_id"`
	MonthlyUSD float64 `json:"monthly_usd"`
	Source     string  `json:"source"`
	TierID     string  `json:"tier_id,omitempty"`
}

// QuotaService manages tiers and enforces monthly spend limits.
type QuotaService struct {
	cfg    config.QuotaConfig
	quotas repository.QuotaRepository
	usage  repository.UsageRepository
	log    logger.Logger
}

func NewQuotaService(
	cfg config.QuotaConfig,
	quotas repository.QuotaRepository,
	usage repository.UsageRepository,
	log logger.Logger,
) *QuotaService {
	return &QuotaService{
		cfg:    cfg,
		quotas: quotas,
		usage:  usage,
		log:    log.WithComponent("quota"),
	}
}

// CreateTier adds a tier to the catalog.
func (s *QuotaService) CreateTier(ctx context.Context, req *dto.TierRequest) (*models.QuotaTier, error) {
	tier := &models.QuotaTier{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		MonthlyUSD:  req.MonthlyUSD,
		Default:     req.Default,
	}
	if err := s.quotas.CreateTier(ctx, tier); err != nil {
		return nil, err
	}
	return tier, nil
}

func (s *QuotaService) ListTiers(ctx context.Context) ([]*models.QuotaTier, error) {
	return s.quotas.ListTiers(ctx)
}

func (s *QuotaService) UpdateTier(ctx context.Context, id string, req *dto.TierRequest) (*models.QuotaTier, error) {
	tier := &models.QuotaTier{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		MonthlyUSD:  req.MonthlyUSD,
		Default:     req.Default,
	}
	if err := s.quotas.UpdateTier(ctx, tier); err != nil {
		return nil, err
	}
	return s.quotas.GetTier(ctx, id)
}

func (s *QuotaService) DeleteTier(ctx context.Context, id string) error {
	return s.quotas.DeleteTier(ctx, id)
}

// Assign binds a user to a tier, replacing any previous assignment.
func (s *QuotaService) Assign(ctx context.Context, req *dto.AssignTierRequest) error {
	if _, err := s.quotas.GetTier(ctx, req.TierID); err != nil {
		return err
	}
	return s.quotas.UpsertAssignment(ctx, &models.QuotaAssignment{
		UserID: req.UserID,
		TierID: req.TierID,
	})
}

func (s *QuotaService) Unassign(ctx context.Context, userID string) error {
	return s.quotas.DeleteAssignment(ctx, userID)
}

// SetOverride grants a temporary per-user limit.
func (s *QuotaService) SetOverride(ctx context.Context, req *dto.OverrideRequest) (*models.QuotaOverride, error) {
	if !req.ExpiresAt.After(time.Now()) {
		return nil, apperrors.ErrInvalidRequest("override expiry must be in the future")
	}
	override := &models.QuotaOverride{
		UserID:     req.UserID,
		MonthlyUSD: req.MonthlyUSD,
		Reason:     req.Reason,
		ExpiresAt:  req.ExpiresAt,
	}
	if err := s.quotas.UpsertOverride(ctx, override); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "quota override set",
		logger.String("user_id", req.UserID),
		logger.Float64("monthly_usd", req.MonthlyUSD),
	)
	return override, nil
}

func (s *QuotaService) ClearOverride(ctx context.Context, userID string) error {
	return s.quotas.DeleteOverride(ctx, userID)
}

// ResolveLimit walks the precedence chain: active override, assigned tier,
// default tier, then the configured fallback.
func (s *QuotaService) ResolveLimit(ctx context.Context, userID string) (*ResolvedLimit, error) {
	override, err := s.quotas.GetOverride(ctx, userID)
	if err != nil {
		return nil, err
	}
	if override != nil && override.Active(time.Now()) {
		return &ResolvedLimit{
			UserID:     userID,
			MonthlyUSD: override.MonthlyUSD,
			Source:     LimitSourceOverride,
		}, nil
	}

	assignment, err := s.quotas.GetAssignment(ctx, userID)
	if err != nil {
		return nil, err
	}
	if assignment != nil {
		tier, err := s.quotas.GetTier(ctx, assignment.TierID)
		if err == nil {
			return &ResolvedLimit{
				UserID:     userID,
				MonthlyUSD: tier.MonthlyUSD,
				Source:     LimitSourceTier,
				TierID:     tier.ID,
			}, nil
		}
		// A dangling assignment falls through to the default.
		s.log.Warn(ctx, "quota assignment points at missing tier",
			logger.String("user_id", userID),
			logger.String("tier_id", assignment.TierID),
		)
	}

	def, err := s.quotas.GetDefaultTier(ctx)
	if err != nil {
		return nil, err
	}
	if def != nil {
		return &ResolvedLimit{
			UserID:     userID,
			MonthlyUSD: def.MonthlyUSD,
			Source:     LimitSourceDefault,
			TierID:     def.ID,
		}, nil
	}

	return &ResolvedLimit{
		UserID:     userID,
		MonthlyUSD: s.cfg.DefaultMonthlyLimitUSD,
		Source:     LimitSourceConfig,
	}, nil
}

// CheckQuota rejects the request when the user's month-to-date spend has
// reached their limit. Spend accrues after each response, so a single turn
// may overshoot; the next turn is then blocked.
func (s *QuotaService) CheckQuota(ctx context.Context, userID string) error {
	limit, err := s.ResolveLimit(ctx, userID)
	if err != nil {
		return err
	}

	spent, err := s.usage.UserCostSince(ctx, userID, monthStart(time.Now().UTC()))
	if err != nil {
		return err
	}
	if spent >= limit.MonthlyUSD {
		return apperrors.ErrQuotaExceeded(userID, limit.MonthlyUSD)
	}
	return nil
}

// UserUsage is the admin view of one user's current quota standing.
type UserUsage struct {
	Limit       *ResolvedLimit      `json:"limit"`
	MonthToDate float64             `json:"month_to_date_usd"`
	MonthStart  time.Time           `json:"month_start"`
	Summary     *models.CostSummary `json:"summary"`
}

// Usage reports a user's resolved limit and month-to-date consumption.
func (s *QuotaService) Usage(ctx context.Context, userID string) (*UserUsage, error) {
	limit, err := s.ResolveLimit(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	start := monthStart(now)
	summary, err := s.usage.SummarizeUser(ctx, userID, start, now)
	if err != nil {
		return nil, err
	}
	return &UserUsage{
		Limit:       limit,
		MonthToDate: summary.TotalUSD,
		MonthStart:  start,
		Summary:     summary,
	}, nil
}

// monthStart returns midnight UTC on the first of now's month.
func monthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
