package service

import (
	"context"
	"time"

	apperrors "github.com/nimbusworks/nimbus/pkg/errors"

	"github.com/nimbusworks/nimbus/internal/domain/models"
	"github.com/nimbusworks/nimbus/internal/domain/repository"
)

// CostService serves the admin cost-reporting endpoints.
type CostService struct {
	usage repository.UsageRepository
}

func NewCostService(usage repository.UsageRepository) *CostService {
	return &CostService{usage: usage}
}

// CostReport is a summary plus the range it covers.
type CostReport struct {
	From    time.Time           `json:"from"`
	To      time.Time           `json:"to"`
	Summary *models.CostSummary `json:"summary"`
}

// Summary aggregates platform-wide spend over [from, to). Zero bounds
// default to the current calendar month.
func (s *CostService) Summary(ctx context.Context, from, to time.Time) (*CostReport, error) {
	from, to, err := normalizeRange(from, to)
	if err != nil {
		return nil, err
	}
	summary, err := s.usage.Summarize(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return &CostReport{From: from, To: to, Summary: summary}, nil
}

// UserSummary aggregates one user's spend over [from, to).
func (s *CostService) UserSummary(ctx context.Context, userID string, from, to time.Time) (*CostReport, error) {
	from, to, err := normalizeRange(from, to)
	if err != nil {
		return nil, err
	}
	summary, err := s.usage.SummarizeUser(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	return &CostReport{From: from, To: to, Summary: summary}, nil
}

func normalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	if from.IsZero() {
		from = monthStart(now)
	}
	if to.IsZero() {
		to = now
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, apperrors.ErrInvalidRequest("from must be before to")
	}
	return from, to, nil
}
