package model

import "time"

// RequestLog is one completed proxy request.
type RequestLog struct {
	ID             string    `db:"id" json:"id"`
	RequestedModel string    `db:"requested_model" json:"requested_model"`
	ResolvedModel  string    `db:"resolved_model" json:"resolved_model"`
	Thinking       bool      `db:"thinking" json:"thinking"`
	Stream         bool      `db:"stream" json:"stream"`
	FinishReason   string    `db:"finish_reason" json:"finish_reason"`
	StatusCode     int       `db:"status_code" json:"status_code"`
	LatencyMS      int64     `db:"latency_ms" json:"latency_ms"`
	InputTokens    int       `db:"input_tokens" json:"input_tokens"`
	OutputTokens   int       `db:"output_tokens" json:"output_tokens"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ResolutionLog is one model-identity resolution, kept for observability:
// it answers "why did alias X land on backend Y".
type ResolutionLog struct {
	ID          string    `db:"id" json:"id"`
	PublicName  string    `db:"public_name" json:"public_name"`
	BackendName string    `db:"backend_name" json:"backend_name"`
	Source      string    `db:"source" json:"source"` // alias, cache, shared, probe, fallback
	Thinking    bool      `db:"thinking" json:"thinking"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// DailyStats aggregates request volume per day.
type DailyStats struct {
	Day          string `db:"day" json:"day"`
	Requests     int    `db:"requests" json:"requests"`
	InputTokens  int    `db:"input_tokens" json:"input_tokens"`
	OutputTokens int    `db:"output_tokens" json:"output_tokens"`
}
