package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRun(id string) *RunRecord {
	now := time.Now().UTC().Round(time.Second)
	return &RunRecord{
		ID:              id,
		Mode:            "generate",
		Status:          "completed",
		OutputPath:      "data/dataset.csv",
		Seed:            42,
		StartDate:       "2020-01-01",
		Days:            180,
		IntervalMinutes: 1,
		Rows:            259200,
		StartedAt:       now.Add(-time.Minute),
		FinishedAt:      now,
	}
}

// ─── Runs ─────────────────────────────────────────────────────────────────────

func TestRunCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := testRun("run-001")
	if err := s.SaveRun(ctx, rec); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.GetRun(ctx, "run-001")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.ID != "run-001" || got.Mode != "generate" {
		t.Errorf("unexpected run: %+v", got)
	}
	if got.Seed != 42 || got.Rows != 259200 {
		t.Errorf("numeric fields lost: %+v", got)
	}
	if !got.StartedAt.Equal(rec.StartedAt) {
		t.Errorf("started_at mismatch: %s vs %s", got.StartedAt, rec.StartedAt)
	}

	// Upsert updates status and rows, keeps identity fields.
	rec.Status = "failed"
	rec.Error = "disk full"
	rec.Rows = 0
	if err := s.SaveRun(ctx, rec); err != nil {
		t.Fatalf("SaveRun update: %v", err)
	}
	got, err = s.GetRun(ctx, "run-001")
	if err != nil {
		t.Fatalf("GetRun after update: %v", err)
	}
	if got.Status != "failed" || got.Error != "disk full" || got.Rows != 0 {
		t.Errorf("update lost: %+v", got)
	}
	if got.Seed != 42 {
		t.Errorf("seed must survive upsert, got %d", got.Seed)
	}
}

func TestGetRunMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Round(time.Second)
	for i := 0; i < 5; i++ {
		rec := testRun(fmt.Sprintf("run-%03d", i))
		rec.StartedAt = base.Add(time.Duration(i) * time.Hour)
		rec.FinishedAt = rec.StartedAt.Add(time.Minute)
		if err := s.SaveRun(ctx, rec); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	runs, err := s.ListRuns(ctx, 3, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	// Newest first.
	if runs[0].ID != "run-004" || runs[2].ID != "run-002" {
		t.Errorf("unexpected order: %s, %s, %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}

	rest, err := s.ListRuns(ctx, 10, 3)
	if err != nil {
		t.Fatalf("ListRuns offset: %v", err)
	}
	if len(rest) != 2 {
		t.Errorf("expected 2 remaining runs, got %d", len(rest))
	}
}

// ─── Anomaly windows ──────────────────────────────────────────────────────────

func TestAnomalyWindows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := testRun("run-win")
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	windows := []*AnomalyWindowRecord{
		{Column: "temperature", Kind: "spike", StartIdx: 500, EndIdx: 505,
			StartTime: start.Add(500 * time.Minute), EndTime: start.Add(505 * time.Minute)},
		{Column: "temperature", Kind: "drift", StartIdx: 100, EndIdx: 160,
			StartTime: start.Add(100 * time.Minute), EndTime: start.Add(160 * time.Minute)},
		{Column: "sensor_motion", Kind: "false_trigger", StartIdx: 50, EndIdx: 52,
			StartTime: start.Add(50 * time.Minute), EndTime: start.Add(52 * time.Minute)},
	}
	if err := s.AppendAnomalyWindows(ctx, run.ID, windows); err != nil {
		t.Fatalf("AppendAnomalyWindows: %v", err)
	}

	got, err := s.GetAnomalyWindows(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetAnomalyWindows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(got))
	}
	// Ordered by column, then start index.
	if got[0].Column != "sensor_motion" {
		t.Errorf("expected sensor_motion first, got %s", got[0].Column)
	}
	if got[1].Kind != "drift" || got[2].Kind != "spike" {
		t.Errorf("temperature windows out of order: %s, %s", got[1].Kind, got[2].Kind)
	}
	if !got[2].StartTime.Equal(start.Add(500 * time.Minute)) {
		t.Errorf("start_time mismatch: %s", got[2].StartTime)
	}
}

func TestDeleteRunCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := testRun("run-del")
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	windows := []*AnomalyWindowRecord{{
		Column: "humidity", Kind: "sudden_shift", StartIdx: 1, EndIdx: 10,
		StartTime: time.Now().UTC(), EndTime: time.Now().UTC(),
	}}
	if err := s.AppendAnomalyWindows(ctx, run.ID, windows); err != nil {
		t.Fatalf("AppendAnomalyWindows: %v", err)
	}
	stats := []*ChannelStatRecord{{Channel: "humidity", Mean: 55, Min: 30, Max: 90}}
	if err := s.AppendChannelStats(ctx, run.ID, stats); err != nil {
		t.Fatalf("AppendChannelStats: %v", err)
	}

	if err := s.DeleteRun(ctx, run.ID); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}

	gotW, err := s.GetAnomalyWindows(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetAnomalyWindows: %v", err)
	}
	if len(gotW) != 0 {
		t.Errorf("windows should cascade on delete, got %d", len(gotW))
	}
	gotS, err := s.GetChannelStats(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetChannelStats: %v", err)
	}
	if len(gotS) != 0 {
		t.Errorf("stats should cascade on delete, got %d", len(gotS))
	}
}

// ─── Channel stats ────────────────────────────────────────────────────────────

func TestChannelStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := testRun("run-stats")
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	stats := []*ChannelStatRecord{
		{Channel: "temperature", Mean: 22.3, Min: 15, Max: 30, AnomalyRows: 120},
		{Channel: "fridge_power", Mean: 48.7, Min: 8, Max: 280, AnomalyRows: 300},
	}
	if err := s.AppendChannelStats(ctx, run.ID, stats); err != nil {
		t.Fatalf("AppendChannelStats: %v", err)
	}

	got, err := s.GetChannelStats(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetChannelStats: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 stats, got %d", len(got))
	}
	// Ordered by channel name.
	if got[0].Channel != "fridge_power" || got[1].Channel != "temperature" {
		t.Errorf("unexpected order: %s, %s", got[0].Channel, got[1].Channel)
	}
	if got[0].AnomalyRows != 300 || got[1].Mean != 22.3 {
		t.Errorf("values lost: %+v", got)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	s := newTestStore(t)
	impl := s.(*sqliteStore)
	if err := impl.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
