package sqlite

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/halcyon/model-bridge-api/internal/store"
	"github.com/halcyon/model-bridge-api/internal/store/model"
)

// DB is the query surface shared by *sqlx.DB and *sqlx.Tx.
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SqliteRepository implements store.Repository
type SqliteRepository struct {
	db *sqlx.DB
}

func NewSqliteRepository(db *sqlx.DB) *SqliteRepository {
	return &SqliteRepository{db: db}
}

func (r *SqliteRepository) Close() error {
	return r.db.Close()
}

func (r *SqliteRepository) Requests() store.RequestRepository {
	return &requestRepo{db: r.db}
}

func (r *SqliteRepository) Resolutions() store.ResolutionRepository {
	return &resolutionRepo{db: r.db}
}

type requestRepo struct {
	db DB
}

func (r *requestRepo) Log(ctx context.Context, log *model.RequestLog) error {
	query := `
	INSERT INTO request_logs (id, requested_model, resolved_model, thinking, stream, finish_reason, status_code, latency_ms, input_tokens, output_tokens, created_at)
	VALUES (:id, :requested_model, :resolved_model, :thinking, :stream, :finish_reason, :status_code, :latency_ms, :input_tokens, :output_tokens, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, log)
	return err
}

func (r *requestRepo) GetRecent(ctx context.Context, limit int) ([]model.RequestLog, error) {
	var logs []model.RequestLog
	query := `SELECT * FROM request_logs ORDER BY created_at DESC LIMIT ?`
	err := r.db.SelectContext(ctx, &logs, query, limit)
	return logs, err
}

func (r *requestRepo) GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error) {
	var stats []model.DailyStats
	query := `
	SELECT date(created_at) AS day,
	       COUNT(*) AS requests,
	       COALESCE(SUM(input_tokens), 0) AS input_tokens,
	       COALESCE(SUM(output_tokens), 0) AS output_tokens
	FROM request_logs
	WHERE created_at >= date('now', '-' || ? || ' days')
	GROUP BY day
	ORDER BY day DESC`
	err := r.db.SelectContext(ctx, &stats, query, days)
	return stats, err
}

type resolutionRepo struct {
	db DB
}

func (r *resolutionRepo) Log(ctx context.Context, log *model.ResolutionLog) error {
	query := `
	INSERT INTO resolution_logs (id, public_name, backend_name, source, thinking, created_at)
	VALUES (:id, :public_name, :backend_name, :source, :thinking, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, log)
	return err
}

func (r *resolutionRepo) GetRecent(ctx context.Context, publicName string, limit int) ([]model.ResolutionLog, error) {
	var logs []model.ResolutionLog
	if publicName == "" {
		query := `SELECT * FROM resolution_logs ORDER BY created_at DESC LIMIT ?`
		err := r.db.SelectContext(ctx, &logs, query, limit)
		return logs, err
	}
	query := `SELECT * FROM resolution_logs WHERE public_name = ? ORDER BY created_at DESC LIMIT ?`
	err := r.db.SelectContext(ctx, &logs, query, publicName, limit)
	return logs, err
}
