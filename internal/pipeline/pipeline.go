// Package pipeline orchestrates full runs: generation, injection, and
// detection, recording every run in the registry.
//
// Responsibilities:
//   - Translate the config into timeline, simulation, and anomaly inputs
//   - Run the generator chain in dependency order and assemble the dataset
//   - Inject configured anomalies and persist the ground-truth windows
//   - Record runs, windows, and channel statistics in the registry
//   - Score existing datasets with the baseline detectors
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/homesense/sensorsim/internal/anomaly"
	"github.com/homesense/sensorsim/internal/config"
	"github.com/homesense/sensorsim/internal/dataset"
	"github.com/homesense/sensorsim/internal/db"
	"github.com/homesense/sensorsim/internal/detect"
	"github.com/homesense/sensorsim/internal/metrics"
	"github.com/homesense/sensorsim/internal/simulation"
	"github.com/homesense/sensorsim/internal/timeline"
	"github.com/homesense/sensorsim/pkg/types"
)

// Runner executes pipeline runs against a config, a logger, and the run
// registry. The store may be nil, in which case runs are not recorded.
type Runner struct {
	cfg   *config.Config
	log   *zap.Logger
	store db.Store
}

// Result summarizes one completed run.
type Result struct {
	RunID      string
	Seed       int64
	SeedDrawn  bool
	Rows       int
	OutputPath string
	Windows    []anomaly.Window
}

// NewRunner builds a runner. A nil logger falls back to a no-op logger.
func NewRunner(cfg *config.Config, log *zap.Logger, store db.Store) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{cfg: cfg, log: log, store: store}
}

// Generate runs the full generation pipeline and writes the dataset to the
// configured output path.
func (r *Runner) Generate(ctx context.Context) (*Result, error) {
	started := time.Now()
	res, err := r.generate(ctx)
	r.record(ctx, "generate", started, res, err)
	observeRun("generate", started, err)
	return res, err
}

func (r *Runner) generate(ctx context.Context) (*Result, error) {
	seed, seedDrawn := r.resolveSeed()
	r.log.Info("starting generation",
		zap.Int64("seed", seed),
		zap.Bool("seed_drawn", seedDrawn),
		zap.String("start_date", r.cfg.Simulation.StartDate),
		zap.Int("days", r.cfg.Simulation.Days))

	tl, err := r.buildTimeline()
	if err != nil {
		return nil, err
	}

	env := simulation.NewEnvironmentGenerator(tl, seed)
	readings, err := env.Generate()
	if err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	persons := make([]*simulation.Person, 0, len(r.cfg.Persons))
	for _, pc := range r.cfg.Persons {
		p, err := simulation.NewPerson(toPersonConfig(pc),
			simulation.DeriveSeed(seed, "person", pc.Name))
		if err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}

	apt, err := simulation.NewApartment(tl, persons, toApartmentConfig(r.cfg), seed)
	if err != nil {
		return nil, err
	}
	series, err := apt.Generate()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tbl, err := assemble(tl, readings, series)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:      uuid.NewString(),
		Seed:       seed,
		SeedDrawn:  seedDrawn,
		Rows:       tbl.Len(),
		OutputPath: r.cfg.Output.Path,
	}

	if len(r.cfg.Anomalies) > 0 {
		specs, err := toSpecs(r.cfg.Anomalies)
		if err != nil {
			return nil, err
		}
		inj := anomaly.NewInjector(simulation.DeriveSeed(seed, "anomaly"), r.log)
		res.Windows, err = inj.Apply(tbl, tl.Features(), specs)
		if err != nil {
			return nil, fmt.Errorf("inject: %w", err)
		}
		observeInjection(res.Windows, tbl)
	}

	if err := tbl.WriteFile(r.cfg.Output.Path); err != nil {
		return nil, err
	}
	for _, name := range tbl.ColumnNames() {
		if types.IsChannel(name) {
			metrics.RowsGenerated.WithLabelValues(name).Add(float64(tbl.Len()))
		}
	}

	r.log.Info("generation complete",
		zap.String("run_id", res.RunID),
		zap.Int("rows", res.Rows),
		zap.Int("anomaly_windows", len(res.Windows)),
		zap.String("output", res.OutputPath))

	r.persistDetails(ctx, res, tl, tbl)
	return res, nil
}

// Inject loads an existing dataset, applies the configured anomalies, and
// writes the labeled result to the output path.
func (r *Runner) Inject(ctx context.Context, inputPath string) (*Result, error) {
	started := time.Now()
	res, err := r.inject(ctx, inputPath)
	r.record(ctx, "inject", started, res, err)
	observeRun("inject", started, err)
	return res, err
}

func (r *Runner) inject(ctx context.Context, inputPath string) (*Result, error) {
	if len(r.cfg.Anomalies) == 0 {
		return nil, fmt.Errorf("inject: no anomalies configured")
	}

	tbl, err := dataset.ReadFile(inputPath)
	if err != nil {
		return nil, err
	}
	tl, err := timelineFromTable(tbl)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seed, seedDrawn := r.resolveSeed()
	specs, err := toSpecs(r.cfg.Anomalies)
	if err != nil {
		return nil, err
	}

	inj := anomaly.NewInjector(simulation.DeriveSeed(seed, "anomaly"), r.log)
	windows, err := inj.Apply(tbl, tl.Features(), specs)
	if err != nil {
		return nil, fmt.Errorf("inject: %w", err)
	}
	observeInjection(windows, tbl)

	if err := tbl.WriteFile(r.cfg.Output.Path); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:      uuid.NewString(),
		Seed:       seed,
		SeedDrawn:  seedDrawn,
		Rows:       tbl.Len(),
		OutputPath: r.cfg.Output.Path,
		Windows:    windows,
	}
	r.log.Info("injection complete",
		zap.String("run_id", res.RunID),
		zap.String("input", inputPath),
		zap.Int("anomaly_windows", len(windows)),
		zap.String("output", res.OutputPath))

	r.persistDetails(ctx, res, tl, tbl)
	return res, nil
}

// Detect scores a dataset with the statistical detector and the isolation
// forest, returning per-method reports keyed by channel (plus "overall").
func (r *Runner) Detect(ctx context.Context, inputPath string) (map[string]map[string]detect.Metrics, error) {
	tbl, err := dataset.ReadFile(inputPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dc := r.cfg.Detection
	det, err := detect.NewDetector(detect.Options{
		Sensitivity: dc.Sensitivity,
		Window:      dc.WindowRows,
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string]detect.Metrics, 2)

	preds, err := det.Detect(tbl)
	if err != nil {
		metrics.DetectionsTotal.WithLabelValues("baseline", "error").Inc()
		return nil, err
	}
	baseline, err := detect.Report(tbl, preds)
	if err != nil {
		metrics.DetectionsTotal.WithLabelValues("baseline", "error").Inc()
		return nil, err
	}
	out["baseline"] = baseline
	metrics.DetectionsTotal.WithLabelValues("baseline", "ok").Inc()

	seed, _ := r.resolveSeed()
	forest := detect.NewForest(dc.ForestTrees, dc.ForestSubsample,
		simulation.DeriveSeed(seed, "detect.forest"))
	points := detect.FeatureMatrix(tbl)
	forest.Fit(points)
	flags := forest.Flags(points, dc.ForestThreshold)

	if overall, ok := tbl.Column(types.ColOverallIndicator); ok {
		m, err := detect.Evaluate(flags, overall.Bits)
		if err != nil {
			return nil, err
		}
		out["forest"] = map[string]detect.Metrics{"overall": m}
		metrics.DetectionsTotal.WithLabelValues("forest", "ok").Inc()
	}

	return out, nil
}

// resolveSeed returns the configured seed, or draws one from the clock when
// the config leaves it at zero. The drawn seed is reported so the run stays
// replayable.
func (r *Runner) resolveSeed() (int64, bool) {
	if s := r.cfg.Simulation.Seed; s != 0 {
		return s, false
	}
	return time.Now().UnixNano(), true
}

func (r *Runner) buildTimeline() (*timeline.Timeline, error) {
	start, err := time.Parse("2006-01-02", r.cfg.Simulation.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start date: %w", err)
	}
	interval := time.Duration(r.cfg.Simulation.IntervalMinutes) * time.Minute
	return timeline.New(start, r.cfg.Simulation.Days, interval)
}

// record writes the run record; failures to persist are logged, not fatal.
func (r *Runner) record(ctx context.Context, mode string, started time.Time, res *Result, runErr error) {
	if r.store == nil {
		return
	}

	rec := &db.RunRecord{
		Mode:            mode,
		Status:          "completed",
		StartDate:       r.cfg.Simulation.StartDate,
		Days:            r.cfg.Simulation.Days,
		IntervalMinutes: r.cfg.Simulation.IntervalMinutes,
		StartedAt:       started,
		FinishedAt:      time.Now(),
	}
	if res != nil {
		rec.ID = res.RunID
		rec.Seed = res.Seed
		rec.SeedDrawn = res.SeedDrawn
		rec.Rows = res.Rows
		rec.OutputPath = res.OutputPath
	} else {
		rec.ID = uuid.NewString()
	}
	if runErr != nil {
		rec.Status = "failed"
		rec.Error = runErr.Error()
	}

	if err := r.store.SaveRun(ctx, rec); err != nil {
		r.log.Warn("failed to record run", zap.Error(err), zap.String("run_id", rec.ID))
	}
}

// persistDetails stores ground-truth windows and channel statistics for a
// successful run.
func (r *Runner) persistDetails(ctx context.Context, res *Result, tl *timeline.Timeline, tbl *dataset.Table) {
	if r.store == nil {
		return
	}

	if len(res.Windows) > 0 {
		recs := make([]*db.AnomalyWindowRecord, len(res.Windows))
		for i, w := range res.Windows {
			recs[i] = &db.AnomalyWindowRecord{
				Column:    w.Column,
				Kind:      w.Kind.String(),
				StartIdx:  w.Start,
				EndIdx:    w.End,
				StartTime: tl.At(w.Start),
				EndTime:   tl.At(w.End - 1).Add(tl.Interval),
			}
		}
		if err := r.store.AppendAnomalyWindows(ctx, res.RunID, recs); err != nil {
			r.log.Warn("failed to record anomaly windows", zap.Error(err))
		}
	}

	if stats := channelStats(tbl); len(stats) > 0 {
		if err := r.store.AppendChannelStats(ctx, res.RunID, stats); err != nil {
			r.log.Warn("failed to record channel stats", zap.Error(err))
		}
	}
}

// channelStats summarizes every sensor channel in the table.
func channelStats(tbl *dataset.Table) []*db.ChannelStatRecord {
	var out []*db.ChannelStatRecord
	for _, name := range types.Channels() {
		c, ok := tbl.Column(name)
		if !ok {
			continue
		}
		rec := &db.ChannelStatRecord{Channel: name}

		switch c.Kind {
		case dataset.Float:
			if len(c.Float) == 0 {
				continue
			}
			sum := 0.0
			rec.Min, rec.Max = c.Float[0], c.Float[0]
			for _, v := range c.Float {
				sum += v
				if v < rec.Min {
					rec.Min = v
				}
				if v > rec.Max {
					rec.Max = v
				}
			}
			rec.Mean = sum / float64(len(c.Float))
		case dataset.Binary:
			active := 0
			for _, b := range c.Bits {
				if b {
					active++
				}
			}
			if len(c.Bits) > 0 {
				rec.Mean = float64(active) / float64(len(c.Bits))
				rec.Max = 1
			}
		}

		if ind, ok := tbl.Column(types.IndicatorColumn(name)); ok {
			for _, b := range ind.Bits {
				if b {
					rec.AnomalyRows++
				}
			}
		}
		out = append(out, rec)
	}
	return out
}

// assemble builds the dataset table in the published column order.
func assemble(tl *timeline.Timeline, env *simulation.EnvironmentReadings, apt *simulation.ApartmentSeries) (*dataset.Table, error) {
	tbl := dataset.New(tl.Timestamps())
	steps := []struct {
		name string
		add  func() error
	}{
		{types.ColTemperature, func() error { return tbl.AddFloat(types.ColTemperature, env.Temperature) }},
		{types.ColHumidity, func() error { return tbl.AddFloat(types.ColHumidity, env.Humidity) }},
		{types.ColFridgePower, func() error { return tbl.AddFloat(types.ColFridgePower, env.FridgePower) }},
		{types.ColWindow, func() error { return tbl.AddBinary(types.ColWindow, apt.Window) }},
		{types.ColDoor, func() error { return tbl.AddBinary(types.ColDoor, apt.Door) }},
		{types.ColMotion, func() error { return tbl.AddBinary(types.ColMotion, apt.Motion) }},
	}
	for _, s := range steps {
		if err := s.add(); err != nil {
			return nil, fmt.Errorf("assemble %s: %w", s.name, err)
		}
	}
	return tbl, nil
}

// timelineFromTable reconstructs the timeline of a loaded dataset, checking
// that its timestamps form a uniform whole-day grid.
func timelineFromTable(tbl *dataset.Table) (*timeline.Timeline, error) {
	if tbl.Len() < 2 {
		return nil, fmt.Errorf("dataset too short to infer a timeline")
	}
	interval := tbl.Timestamps[1].Sub(tbl.Timestamps[0])
	if interval <= 0 {
		return nil, fmt.Errorf("timestamps are not increasing")
	}
	perDay := int((24 * time.Hour) / interval)
	if perDay == 0 || tbl.Len()%perDay != 0 {
		return nil, fmt.Errorf("dataset does not cover whole days at interval %s", interval)
	}

	tl, err := timeline.New(tbl.Timestamps[0], tbl.Len()/perDay, interval)
	if err != nil {
		return nil, err
	}
	for i, ts := range tbl.Timestamps {
		if !ts.Equal(tl.At(i)) {
			return nil, fmt.Errorf("row %d: timestamp %s breaks the uniform grid", i, ts)
		}
	}
	return tl, nil
}

// ─── Config translation ───────────────────────────────────────────────────────

func toPersonConfig(p config.Person) simulation.PersonConfig {
	return simulation.PersonConfig{
		Name:           p.Name,
		WeekdayOutside: toHourRanges(p.WeekdayOutside),
		WeekendOutside: toHourRanges(p.WeekendOutside),
		Sleep:          simulation.HourRange{Start: p.Sleep.Start, End: p.Sleep.End},
		Window:         toEventConfig(p.WindowEvents),
		Door:           toEventConfig(p.DoorEvents),
		Room:           toEventConfig(p.RoomEvents),
	}
}

func toHourRanges(rs []config.HourRange) []simulation.HourRange {
	out := make([]simulation.HourRange, len(rs))
	for i, r := range rs {
		out[i] = simulation.HourRange{Start: r.Start, End: r.End}
	}
	return out
}

func toEventConfig(e config.EventRates) simulation.EventConfig {
	return simulation.EventConfig{
		CountMin: e.CountMin,
		CountMax: e.CountMax,
		DurMin:   e.DurationMin,
		DurMax:   e.DurationMax,
	}
}

func toApartmentConfig(cfg *config.Config) simulation.ApartmentConfig {
	a := cfg.Apartment
	return simulation.ApartmentConfig{
		MovementProb: a.MovementProbability,
		BurstMin:     a.BurstMin,
		BurstMax:     a.BurstMax,
		AmbientProb:  a.AmbientProbability,
		AmbientMin:   a.AmbientMin,
		AmbientMax:   a.AmbientMax,
	}
}

func toSpecs(as []config.Anomaly) ([]anomaly.Spec, error) {
	specs := make([]anomaly.Spec, 0, len(as))
	for i, a := range as {
		kind, err := anomaly.ParseKind(a.Kind)
		if err != nil {
			return nil, fmt.Errorf("anomaly %d: %w", i, err)
		}
		spec := anomaly.Spec{
			Kind:              kind,
			Column:            a.Column,
			Periods:           a.Periods,
			Rate:              a.Rate,
			Length:            anomaly.IntRange{Min: a.Length.Min, Max: a.Length.Max},
			Recovery:          anomaly.IntRange{Min: a.Recovery.Min, Max: a.Recovery.Max},
			Magnitude:         anomaly.Range{Min: a.Magnitude.Min, Max: a.Magnitude.Max},
			Value:             a.Value,
			StuckAt:           a.StuckAt,
			OutageLevel:       anomaly.Range{Min: a.OutageLevel.Min, Max: a.OutageLevel.Max},
			RecoveryLevel:     anomaly.Range{Min: a.RecoveryLevel.Min, Max: a.RecoveryLevel.Max},
			Multiplier:        anomaly.Range{Min: a.Multiplier.Min, Max: a.Multiplier.Max},
			ActivityThreshold: a.ActivityThreshold,
		}
		if b := a.RestrictedHours; b != nil {
			spec.RestrictedHours = &anomaly.HourBand{
				Start: int(b.Start * 60),
				End:   int(b.End * 60),
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// ─── Metrics ──────────────────────────────────────────────────────────────────

func observeRun(mode string, started time.Time, err error) {
	status := "completed"
	if err != nil {
		status = "failed"
	}
	metrics.RunsTotal.WithLabelValues(mode, status).Inc()
	metrics.RunDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
}

func observeInjection(windows []anomaly.Window, tbl *dataset.Table) {
	for _, w := range windows {
		metrics.AnomalyWindowsInjected.WithLabelValues(w.Column, w.Kind.String()).Inc()
	}
	for _, name := range types.Channels() {
		if ind, ok := tbl.Column(types.IndicatorColumn(name)); ok {
			rows := 0
			for _, b := range ind.Bits {
				if b {
					rows++
				}
			}
			metrics.AnomalyRowsInjected.WithLabelValues(name).Add(float64(rows))
		}
	}
}
