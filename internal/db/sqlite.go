package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)
)

// schema defines the tables for the run registry.
// Version is tracked in the schema_versions table.
var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
    id               TEXT PRIMARY KEY,
    mode             TEXT NOT NULL DEFAULT 'generate',
    status           TEXT NOT NULL DEFAULT 'completed',
    output_path      TEXT NOT NULL DEFAULT '',
    seed             INTEGER NOT NULL DEFAULT 0,
    seed_drawn       BOOLEAN NOT NULL DEFAULT 0,
    start_date       TEXT NOT NULL DEFAULT '',
    days             INTEGER NOT NULL DEFAULT 0,
    interval_minutes INTEGER NOT NULL DEFAULT 0,
    rows             INTEGER NOT NULL DEFAULT 0,
    error            TEXT NOT NULL DEFAULT '',
    started_at       DATETIME NOT NULL,
    finished_at      DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_mode ON runs(mode);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS anomaly_windows (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    column_name TEXT NOT NULL,
    kind       TEXT NOT NULL,
    start_idx  INTEGER NOT NULL,
    end_idx    INTEGER NOT NULL,
    start_time DATETIME NOT NULL,
    end_time   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_anomaly_windows_run ON anomaly_windows(run_id, column_name, start_idx);

CREATE TABLE IF NOT EXISTS channel_stats (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    channel      TEXT NOT NULL,
    mean         REAL NOT NULL DEFAULT 0.0,
    min          REAL NOT NULL DEFAULT 0.0,
    max          REAL NOT NULL DEFAULT 0.0,
    anomaly_rows INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_channel_stats_run ON channel_stats(run_id, channel);
`,
	},
}

// sqliteStore is the SQLite-backed implementation of Store.
type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path and
// runs all pending schema migrations. Pass ":memory:" for an in-memory store.
func NewSQLiteStore(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// Enable WAL mode for better concurrency and performance.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	// Enable foreign-key constraints.
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &sqliteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate applies any unapplied migrations in order.
func (s *sqliteStore) migrate() error {
	// Ensure schema_versions table exists before reading from it.
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
        version    INTEGER PRIMARY KEY,
        applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_versions WHERE version = ?`, m.version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if count > 0 {
			continue // already applied
		}

		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}

		if _, err := s.db.Exec(`INSERT INTO schema_versions(version) VALUES(?)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func (s *sqliteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// ─── Runs ─────────────────────────────────────────────────────────────────────

func (s *sqliteStore) SaveRun(ctx context.Context, rec *RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO runs(id, mode, status, output_path, seed, seed_drawn, start_date, days, interval_minutes, rows, error, started_at, finished_at)
        VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET
            status      = excluded.status,
            output_path = excluded.output_path,
            rows        = excluded.rows,
            error       = excluded.error,
            finished_at = excluded.finished_at
    `,
		rec.ID, rec.Mode, rec.Status, rec.OutputPath, rec.Seed, rec.SeedDrawn,
		rec.StartDate, rec.Days, rec.IntervalMinutes, rec.Rows, rec.Error,
		rec.StartedAt.UTC(), rec.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

func (s *sqliteStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id,mode,status,output_path,seed,seed_drawn,start_date,days,interval_minutes,rows,error,started_at,finished_at
        FROM runs WHERE id=?`, id)
	return scanRun(row)
}

func (s *sqliteStore) ListRuns(ctx context.Context, limit, offset int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id,mode,status,output_path,seed,seed_drawn,start_date,days,interval_minutes,rows,error,started_at,finished_at
        FROM runs ORDER BY started_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (s *sqliteStore) DeleteRun(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id=?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	rec := &RunRecord{}
	var startedAt, finishedAt string
	err := row.Scan(&rec.ID, &rec.Mode, &rec.Status, &rec.OutputPath, &rec.Seed,
		&rec.SeedDrawn, &rec.StartDate, &rec.Days, &rec.IntervalMinutes,
		&rec.Rows, &rec.Error, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	rec.StartedAt, _ = parseTime(startedAt)
	rec.FinishedAt, _ = parseTime(finishedAt)
	return rec, nil
}

// ─── Anomaly windows ──────────────────────────────────────────────────────────

func (s *sqliteStore) AppendAnomalyWindows(ctx context.Context, runID string, windows []*AnomalyWindowRecord) error {
	if len(windows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, w := range windows {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO anomaly_windows(run_id, column_name, kind, start_idx, end_idx, start_time, end_time)
            VALUES(?,?,?,?,?,?,?)
        `, runID, w.Column, w.Kind, w.StartIdx, w.EndIdx, w.StartTime.UTC(), w.EndTime.UTC())
		if err != nil {
			return fmt.Errorf("insert anomaly window: %w", err)
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) GetAnomalyWindows(ctx context.Context, runID string) ([]*AnomalyWindowRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id,run_id,column_name,kind,start_idx,end_idx,start_time,end_time
        FROM anomaly_windows WHERE run_id=? ORDER BY column_name, start_idx`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*AnomalyWindowRecord
	for rows.Next() {
		rec := &AnomalyWindowRecord{}
		var st, et string
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Column, &rec.Kind,
			&rec.StartIdx, &rec.EndIdx, &st, &et); err != nil {
			return nil, err
		}
		rec.StartTime, _ = parseTime(st)
		rec.EndTime, _ = parseTime(et)
		result = append(result, rec)
	}
	return result, rows.Err()
}

// ─── Channel stats ────────────────────────────────────────────────────────────

func (s *sqliteStore) AppendChannelStats(ctx context.Context, runID string, stats []*ChannelStatRecord) error {
	if len(stats) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range stats {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO channel_stats(run_id, channel, mean, min, max, anomaly_rows)
            VALUES(?,?,?,?,?,?)
        `, runID, c.Channel, c.Mean, c.Min, c.Max, c.AnomalyRows)
		if err != nil {
			return fmt.Errorf("insert channel stat: %w", err)
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) GetChannelStats(ctx context.Context, runID string) ([]*ChannelStatRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id,run_id,channel,mean,min,max,anomaly_rows
        FROM channel_stats WHERE run_id=? ORDER BY channel`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*ChannelStatRecord
	for rows.Next() {
		rec := &ChannelStatRecord{}
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Channel, &rec.Mean,
			&rec.Min, &rec.Max, &rec.AnomalyRows); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func parseTime(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", s)
}
