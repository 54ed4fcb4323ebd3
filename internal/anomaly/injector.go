package anomaly

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/homesense/sensorsim/internal/dataset"
	"github.com/homesense/sensorsim/internal/timeline"
	"github.com/homesense/sensorsim/pkg/types"
)

// Window is one injected anomaly span, [Start, End) in timeline indices.
// The injector returns these as the run's ground truth.
type Window struct {
	Column string
	Kind   Kind
	Start  int
	End    int
}

// placeAttempts bounds random placement retries before the injector falls
// back to the largest free gap.
const placeAttempts = 16

// Injector applies anomaly specs to a dataset. All randomness comes from a
// single seeded stream, so a given (dataset, seed, specs) triple always
// produces the same labeled output.
type Injector struct {
	rng *rand.Rand
	log *zap.Logger

	// occupied tracks injected windows per column so later specs never
	// overwrite earlier ones in the same column.
	occupied map[string][]Window
}

// NewInjector creates an injector with its own RNG stream.
func NewInjector(seed int64, log *zap.Logger) *Injector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Injector{
		rng:      rand.New(rand.NewSource(seed)),
		log:      log,
		occupied: make(map[string][]Window),
	}
}

// Apply validates and applies the specs in order, then recomputes the
// overall indicator. It returns every injected window.
func (inj *Injector) Apply(tbl *dataset.Table, feats *timeline.Features, specs []Spec) ([]Window, error) {
	var all []Window
	for i, spec := range specs {
		if errs := spec.Validate(); len(errs) > 0 {
			return nil, fmt.Errorf("spec %d (%s on %s): %w", i, spec.Kind, spec.Column, errs[0])
		}
		ws, err := inj.applyOne(tbl, feats, spec.withDefaults())
		if err != nil {
			return nil, fmt.Errorf("spec %d (%s on %s): %w", i, spec.Kind, spec.Column, err)
		}
		all = append(all, ws...)
	}
	RecomputeOverall(tbl)
	return all, nil
}

func (inj *Injector) applyOne(tbl *dataset.Table, feats *timeline.Features, spec Spec) ([]Window, error) {
	col, ok := tbl.Column(spec.Column)
	if !ok {
		return nil, fmt.Errorf("dataset has no column %q", spec.Column)
	}
	if spec.Kind.binary() != (col.Kind == dataset.Binary) {
		return nil, fmt.Errorf("kind %s does not match column kind of %q", spec.Kind, spec.Column)
	}

	ind, err := inj.indicator(tbl, spec.Column)
	if err != nil {
		return nil, err
	}

	n := tbl.Len()
	count := inj.periodCount(spec, n)

	var windows []Window
	for p := 0; p < count; p++ {
		length := intBetween(inj.rng, spec.Length.Min, spec.Length.Max)
		if spec.Kind == KindOutage {
			length += intBetween(inj.rng, spec.Recovery.Min, spec.Recovery.Max)
		}

		start, length, ok := inj.place(spec.Column, n, length)
		if !ok {
			inj.log.Warn("no room left for anomaly windows",
				zap.String("column", spec.Column),
				zap.String("kind", spec.Kind.String()),
				zap.Int("placed", p),
				zap.Int("requested", count))
			break
		}

		w := Window{Column: spec.Column, Kind: spec.Kind, Start: start, End: start + length}
		// Flag before mutating: a false trigger only labels rows that were
		// quiet before the injection.
		inj.flag(ind, col, feats, spec, w)
		inj.mutate(col, feats, spec, w)
		inj.occupied[spec.Column] = append(inj.occupied[spec.Column], w)
		windows = append(windows, w)
	}
	return windows, nil
}

// indicator returns the per-channel indicator column, creating it zeroed on
// first use.
func (inj *Injector) indicator(tbl *dataset.Table, channel string) (*dataset.Column, error) {
	name := types.IndicatorColumn(channel)
	if c, ok := tbl.Column(name); ok {
		return c, nil
	}
	if err := tbl.AddBinary(name, make([]bool, tbl.Len())); err != nil {
		return nil, err
	}
	c, _ := tbl.Column(name)
	return c, nil
}

// periodCount resolves how many windows to inject: explicit count, count
// derived from a target anomaly rate, or the kind's default range.
func (inj *Injector) periodCount(spec Spec, n int) int {
	if spec.Periods > 0 {
		return spec.Periods
	}
	if spec.Rate > 0 {
		avgLen := float64(spec.Length.Min+spec.Length.Max) / 2
		if spec.Kind == KindOutage {
			avgLen += float64(spec.Recovery.Min+spec.Recovery.Max) / 2
		}
		count := int(math.Round(spec.Rate * float64(n) / avgLen))
		if count < 1 {
			count = 1
		}
		return count
	}
	d := kindDefaults[spec.Kind]
	return intBetween(inj.rng, d.periods.Min, d.periods.Max)
}

// place finds a window of the requested length that does not overlap any
// window already injected into the column. It first tries random starts,
// then degrades deterministically: the largest remaining free gap is used
// with the length clamped to fit. Returns ok=false when the column is full.
func (inj *Injector) place(column string, n, length int) (start, actual int, ok bool) {
	if length > n {
		length = n
	}
	occ := inj.occupied[column]

	for attempt := 0; attempt < placeAttempts; attempt++ {
		s := inj.rng.Intn(n - length + 1)
		if !overlapsAny(occ, s, s+length) {
			return s, length, true
		}
	}

	gapStart, gapLen := largestGap(occ, n)
	if gapLen < 1 {
		return 0, 0, false
	}
	if length > gapLen {
		length = gapLen
	}
	return gapStart, length, true
}

func overlapsAny(occ []Window, start, end int) bool {
	for _, w := range occ {
		if start < w.End && w.Start < end {
			return true
		}
	}
	return false
}

// largestGap returns the start and length of the biggest free interval.
func largestGap(occ []Window, n int) (int, int) {
	if len(occ) == 0 {
		return 0, n
	}
	sorted := make([]Window, len(occ))
	copy(sorted, occ)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	bestStart, bestLen := 0, 0
	cursor := 0
	for _, w := range sorted {
		if w.Start-cursor > bestLen {
			bestStart, bestLen = cursor, w.Start-cursor
		}
		if w.End > cursor {
			cursor = w.End
		}
	}
	if n-cursor > bestLen {
		bestStart, bestLen = cursor, n-cursor
	}
	return bestStart, bestLen
}

// mutate writes the anomaly's raw value change into the column.
func (inj *Injector) mutate(col *dataset.Column, feats *timeline.Features, spec Spec, w Window) {
	switch spec.Kind {
	case KindFixedValue:
		for i := w.Start; i < w.End; i++ {
			col.Float[i] = spec.Value
		}

	case KindSpike:
		mag := uniform(inj.rng, spec.Magnitude.Min, spec.Magnitude.Max)
		for i := w.Start; i < w.End; i++ {
			p := progress(i, w)
			d := (p - 0.5) * 6
			col.Float[i] = round2(col.Float[i] + mag*math.Exp(-d*d))
		}

	case KindDrift:
		mag := uniform(inj.rng, spec.Magnitude.Min, spec.Magnitude.Max)
		dir := direction(inj.rng)
		for i := w.Start; i < w.End; i++ {
			col.Float[i] = round2(col.Float[i] + dir*mag*progress(i, w))
		}

	case KindSuddenShift:
		mag := uniform(inj.rng, spec.Magnitude.Min, spec.Magnitude.Max)
		offset := direction(inj.rng) * mag
		for i := w.Start; i < w.End; i++ {
			v := col.Float[i] + offset + uniform(inj.rng, -2, 2)
			col.Float[i] = round2(clamp(v, 0, 100))
		}

	case KindOutage:
		// The window covers the outage segment followed by recovery: the
		// compressor catches up at elevated draw after power returns.
		recLen := intBetween(inj.rng, spec.Recovery.Min, spec.Recovery.Max)
		if recLen > w.End-w.Start-1 {
			recLen = (w.End - w.Start) / 2
		}
		recStart := w.End - recLen
		for i := w.Start; i < recStart; i++ {
			col.Float[i] = round2(uniform(inj.rng, spec.OutageLevel.Min, spec.OutageLevel.Max))
		}
		for i := recStart; i < w.End; i++ {
			col.Float[i] = round2(uniform(inj.rng, spec.RecoveryLevel.Min, spec.RecoveryLevel.Max))
		}

	case KindDegradation:
		mult := uniform(inj.rng, spec.Multiplier.Min, spec.Multiplier.Max)
		for i := w.Start; i < w.End; i++ {
			if col.Float[i] > spec.ActivityThreshold {
				col.Float[i] = round2(col.Float[i] * mult)
			}
		}

	case KindStuck:
		stuck := spec.StuckAt
		if stuck == nil {
			v := inj.rng.Intn(2)
			stuck = &v
		}
		for i := w.Start; i < w.End; i++ {
			col.Bits[i] = *stuck == 1
		}

	case KindFalseTrigger:
		for i := w.Start; i < w.End; i++ {
			col.Bits[i] = true
		}
	}
}

// flag sets the ground-truth indicator for the window, honoring the
// restricted-hours band. Existing labels are never cleared. False triggers
// only label rows that were quiet before the mutation: a trigger on an
// already active sensor changes nothing.
func (inj *Injector) flag(ind, col *dataset.Column, feats *timeline.Features, spec Spec, w Window) {
	for i := w.Start; i < w.End; i++ {
		if spec.RestrictedHours != nil && !spec.RestrictedHours.Contains(feats.MinuteOfDay[i]) {
			continue
		}
		if spec.Kind == KindFalseTrigger && col.Bits[i] {
			continue
		}
		ind.Bits[i] = true
	}
}

// RecomputeOverall rebuilds the overall indicator as the row-wise OR of
// every per-channel indicator column.
func RecomputeOverall(tbl *dataset.Table) {
	overall := make([]bool, tbl.Len())
	for _, c := range tbl.Columns {
		if !types.IsIndicatorColumn(c.Name) {
			continue
		}
		for i, b := range c.Bits {
			overall[i] = overall[i] || b
		}
	}
	if c, ok := tbl.Column(types.ColOverallIndicator); ok {
		copy(c.Bits, overall)
		return
	}
	_ = tbl.AddBinary(types.ColOverallIndicator, overall)
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func progress(i int, w Window) float64 {
	if w.End-w.Start <= 1 {
		return 0.5
	}
	return float64(i-w.Start) / float64(w.End-w.Start-1)
}

func direction(rng *rand.Rand) float64 {
	if rng.Intn(2) == 0 {
		return -1
	}
	return 1
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func intBetween(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
