package service

import (
	"context"
	"time"

	"github.com/jengzang/regps-supervision-go/internal/analysis/daily"
	"github.com/jengzang/regps-supervision-go/internal/errorutil"
	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/repository"
)

// DailyMetricsLister reads persisted daily metrics
type DailyMetricsLister interface {
	List(ctx context.Context, filter repository.DailyMetricsFilter) ([]models.DailyMetrics, error)
}

// DailyMetricsService serves the persisted daily metrics
type DailyMetricsService struct {
	repo DailyMetricsLister
}

func NewDailyMetricsService(repo DailyMetricsLister) *DailyMetricsService {
	return &DailyMetricsService{repo: repo}
}

// List returns the daily metrics matching filter. Dates must be YYYY-MM-DD.
func (s *DailyMetricsService) List(ctx context.Context, filter repository.DailyMetricsFilter) ([]models.DailyMetrics, error) {
	for field, v := range map[string]string{"from": filter.From, "to": filter.To} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(daily.DateLayout, v); err != nil {
			return nil, errorutil.NewValidationError(field, "expected a YYYY-MM-DD date")
		}
	}
	if filter.From != "" && filter.To != "" && filter.From > filter.To {
		return nil, errorutil.NewValidationError("from", "must not be after to")
	}

	metrics, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = []models.DailyMetrics{}
	}
	return metrics, nil
}
