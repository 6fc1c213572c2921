package store

import (
	"context"

	"github.com/halcyon/model-bridge-api/internal/store/model"
)

// Repository is the contract for the audit data layer.
type Repository interface {
	Requests() RequestRepository
	Resolutions() ResolutionRepository

	Close() error
}

type RequestRepository interface {
	// Log stores a completed request.
	Log(ctx context.Context, log *model.RequestLog) error
	// GetRecent returns the last N request logs.
	GetRecent(ctx context.Context, limit int) ([]model.RequestLog, error)
	// GetDailyStats returns aggregated stats grouped by day.
	GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error)
}

type ResolutionRepository interface {
	// Log records one resolution outcome.
	Log(ctx context.Context, log *model.ResolutionLog) error
	// GetRecent returns the last N resolutions, optionally filtered to one
	// public name ("" means all).
	GetRecent(ctx context.Context, publicName string, limit int) ([]model.ResolutionLog, error)
}
