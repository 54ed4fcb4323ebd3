// Package db persists the run registry: every generated or injected
// dataset is recorded together with its seed, its injected anomaly windows,
// and per-channel summary statistics, so any dataset on disk can be traced
// back to the exact run that produced it and replayed.
package db

import (
	"context"
	"time"
)

// Store is the persistence interface for the run registry.
type Store interface {
	RunStore
	AnomalyWindowStore
	ChannelStatStore

	// Close releases database resources.
	Close() error

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error
}

// ─── Run store ────────────────────────────────────────────────────────────────

// RunRecord is the DB representation of one generation or injection run.
type RunRecord struct {
	ID              string    `json:"id"`
	Mode            string    `json:"mode"`   // generate | inject
	Status          string    `json:"status"` // completed | failed
	OutputPath      string    `json:"output_path"`
	Seed            int64     `json:"seed"`
	SeedDrawn       bool      `json:"seed_drawn"` // seed came from the clock, not config
	StartDate       string    `json:"start_date"`
	Days            int       `json:"days"`
	IntervalMinutes int       `json:"interval_minutes"`
	Rows            int       `json:"rows"`
	Error           string    `json:"error"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

// RunStore persists run records.
type RunStore interface {
	// SaveRun creates or updates a run record.
	SaveRun(ctx context.Context, rec *RunRecord) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns runs, newest first.
	ListRuns(ctx context.Context, limit, offset int) ([]*RunRecord, error)

	// DeleteRun removes a run and its windows and stats.
	DeleteRun(ctx context.Context, id string) error
}

// ─── Anomaly window store ─────────────────────────────────────────────────────

// AnomalyWindowRecord is one injected anomaly span, the run's ground truth.
type AnomalyWindowRecord struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Column    string    `json:"column"`
	Kind      string    `json:"kind"`
	StartIdx  int       `json:"start_idx"`
	EndIdx    int       `json:"end_idx"` // exclusive
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// AnomalyWindowStore persists injected anomaly windows per run.
type AnomalyWindowStore interface {
	// AppendAnomalyWindows stores the windows injected during a run.
	AppendAnomalyWindows(ctx context.Context, runID string, windows []*AnomalyWindowRecord) error

	// GetAnomalyWindows returns a run's windows ordered by column and start.
	GetAnomalyWindows(ctx context.Context, runID string) ([]*AnomalyWindowRecord, error)
}

// ─── Channel stat store ───────────────────────────────────────────────────────

// ChannelStatRecord summarizes one channel of a run's dataset.
type ChannelStatRecord struct {
	ID          int64   `json:"id"`
	RunID       string  `json:"run_id"`
	Channel     string  `json:"channel"`
	Mean        float64 `json:"mean"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	AnomalyRows int     `json:"anomaly_rows"`
}

// ChannelStatStore persists per-channel summary statistics.
type ChannelStatStore interface {
	// AppendChannelStats stores a run's channel summaries.
	AppendChannelStats(ctx context.Context, runID string, stats []*ChannelStatRecord) error

	// GetChannelStats returns a run's channel summaries.
	GetChannelStats(ctx context.Context, runID string) ([]*ChannelStatRecord, error)
}
