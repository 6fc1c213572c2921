package analytics

import (
	"context"

	"github.com/halcyon/model-bridge-api/internal/store"
	"github.com/halcyon/model-bridge-api/internal/store/model"
)

// Service reads back what the ingestor wrote, for the usage endpoints.
type Service interface {
	GetUsageOverview(ctx context.Context, days int) ([]model.DailyStats, error)
	GetRecentRequests(ctx context.Context, limit int) ([]model.RequestLog, error)
	GetResolutionHistory(ctx context.Context, publicName string, limit int) ([]model.ResolutionLog, error)
}

type service struct {
	repo store.Repository
}

func NewService(repo store.Repository) Service {
	return &service{
		repo: repo,
	}
}

func (s *service) GetUsageOverview(ctx context.Context, days int) ([]model.DailyStats, error) {
	if days <= 0 {
		days = 7 // default to last week
	}
	if days > 90 {
		days = 90
	}
	return s.repo.Requests().GetDailyStats(ctx, days)
}

func (s *service) GetRecentRequests(ctx context.Context, limit int) ([]model.RequestLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.repo.Requests().GetRecent(ctx, limit)
}

func (s *service) GetResolutionHistory(ctx context.Context, publicName string, limit int) ([]model.ResolutionLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.repo.Resolutions().GetRecent(ctx, publicName, limit)
}
