// Package anomaly injects labeled anomalies into generated datasets.
//
// Responsibilities:
//   - Define the closed set of anomaly kinds and their typed parameters
//   - Validate specs at construction, before any data is touched
//   - Place anomaly windows without overlap inside a column, degrading
//     deterministically when space runs out
//   - Maintain per-channel ground-truth indicator columns and the overall
//     indicator as their row-wise OR
package anomaly

import (
	"fmt"

	"github.com/homesense/sensorsim/pkg/types"
)

// Kind identifies an anomaly mutation. The set is closed: specs carrying an
// unknown kind fail validation, there is no string dispatch at inject time.
type Kind int

const (
	KindUnknown Kind = iota
	KindFixedValue
	KindSpike
	KindDrift
	KindSuddenShift
	KindOutage
	KindDegradation
	KindStuck
	KindFalseTrigger
)

var kindNames = map[Kind]string{
	KindFixedValue:   "fixed_value",
	KindSpike:        "spike",
	KindDrift:        "drift",
	KindSuddenShift:  "sudden_shift",
	KindOutage:       "outage",
	KindDegradation:  "degradation",
	KindStuck:        "stuck",
	KindFalseTrigger: "false_trigger",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// ParseKind maps a config string to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, n := range kindNames {
		if n == s {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown anomaly kind %q", s)
}

// binary reports whether the kind mutates 0/1 channels.
func (k Kind) binary() bool {
	return k == KindStuck || k == KindFalseTrigger
}

// Range is an inclusive float parameter range.
type Range struct {
	Min float64
	Max float64
}

func (r Range) zero() bool { return r.Min == 0 && r.Max == 0 }

// IntRange is an inclusive integer parameter range, in timeline steps.
type IntRange struct {
	Min int
	Max int
}

func (r IntRange) zero() bool { return r.Min == 0 && r.Max == 0 }

// HourBand is a daily band in minutes of day, [Start, End), wrapping past
// midnight when Start > End. A false trigger carrying a band is only flagged
// anomalous inside it.
type HourBand struct {
	Start int
	End   int
}

// Contains reports whether the minute of day falls inside the band.
func (b HourBand) Contains(minuteOfDay int) bool {
	if b.Start <= b.End {
		return minuteOfDay >= b.Start && minuteOfDay < b.End
	}
	return minuteOfDay >= b.Start || minuteOfDay < b.End
}

// Spec describes one anomaly injection: what to mutate, where, how often,
// and how strongly. Zero-valued ranges fall back to the kind's defaults.
type Spec struct {
	Kind   Kind
	Column string

	// Periods fixes the number of windows. When zero, the count is derived
	// from Rate (target fraction of anomalous rows), and when both are
	// zero it is drawn from the kind's default period range.
	Periods int
	Rate    float64

	// Length bounds the window length in steps. For outages it bounds the
	// outage segment; Recovery bounds the recovery segment.
	Length   IntRange
	Recovery IntRange

	Magnitude Range

	// Value is the replacement level for fixed-value specs.
	Value float64

	// StuckAt pins a binary channel to 0 or 1. Nil draws it per window.
	StuckAt *int

	// OutageLevel and RecoveryLevel bound the power draw during outage and
	// recovery segments.
	OutageLevel   Range
	RecoveryLevel Range

	// Multiplier bounds the degradation factor; it applies only where the
	// channel exceeds ActivityThreshold.
	Multiplier        Range
	ActivityThreshold float64

	// RestrictedHours restricts flagging to a daily band: the mutation is
	// written wherever placed, but only rows inside the band are labeled
	// anomalous.
	RestrictedHours *HourBand
}

// Validate checks the spec and returns every problem found.
func (s *Spec) Validate() []error {
	var errs []error
	if _, ok := kindNames[s.Kind]; !ok {
		errs = append(errs, fmt.Errorf("anomaly: unknown kind %d", int(s.Kind)))
	}
	if s.Column == "" {
		errs = append(errs, fmt.Errorf("anomaly: column is required"))
	} else if !types.IsChannel(s.Column) {
		errs = append(errs, fmt.Errorf("anomaly: %q is not a sensor channel", s.Column))
	} else if _, ok := kindNames[s.Kind]; ok {
		if s.Kind.binary() && !types.IsBinaryChannel(s.Column) {
			errs = append(errs, fmt.Errorf("anomaly: kind %s requires a binary channel, got %q", s.Kind, s.Column))
		}
		if !s.Kind.binary() && !types.IsFloatChannel(s.Column) {
			errs = append(errs, fmt.Errorf("anomaly: kind %s requires a numeric channel, got %q", s.Kind, s.Column))
		}
	}
	if s.Periods < 0 {
		errs = append(errs, fmt.Errorf("anomaly: periods cannot be negative, got %d", s.Periods))
	}
	if s.Rate < 0 || s.Rate > 1 {
		errs = append(errs, fmt.Errorf("anomaly: rate must be in [0,1], got %g", s.Rate))
	}
	if !s.Length.zero() && (s.Length.Min < 1 || s.Length.Max < s.Length.Min) {
		errs = append(errs, fmt.Errorf("anomaly: invalid length range [%d,%d]", s.Length.Min, s.Length.Max))
	}
	if !s.Recovery.zero() && (s.Recovery.Min < 1 || s.Recovery.Max < s.Recovery.Min) {
		errs = append(errs, fmt.Errorf("anomaly: invalid recovery range [%d,%d]", s.Recovery.Min, s.Recovery.Max))
	}
	if !s.Magnitude.zero() && s.Magnitude.Max < s.Magnitude.Min {
		errs = append(errs, fmt.Errorf("anomaly: invalid magnitude range [%g,%g]", s.Magnitude.Min, s.Magnitude.Max))
	}
	if !s.Multiplier.zero() && s.Multiplier.Max < s.Multiplier.Min {
		errs = append(errs, fmt.Errorf("anomaly: invalid multiplier range [%g,%g]", s.Multiplier.Min, s.Multiplier.Max))
	}
	if s.StuckAt != nil && *s.StuckAt != 0 && *s.StuckAt != 1 {
		errs = append(errs, fmt.Errorf("anomaly: stuck value must be 0 or 1, got %d", *s.StuckAt))
	}
	if b := s.RestrictedHours; b != nil {
		if b.Start < 0 || b.Start >= 24*60 || b.End < 0 || b.End > 24*60 {
			errs = append(errs, fmt.Errorf("anomaly: restricted hours out of range: %+v", *b))
		}
	}
	return errs
}

// kindDefaults carries the per-kind fallback parameters. Values mirror the
// tool's established dataset recipes.
type kindDefault struct {
	periods   IntRange
	length    IntRange
	magnitude Range
}

var kindDefaults = map[Kind]kindDefault{
	KindFixedValue:   {periods: IntRange{1, 30}, length: IntRange{1, 10}},
	KindSpike:        {periods: IntRange{5, 25}, length: IntRange{1, 5}, magnitude: Range{5, 15}},
	KindDrift:        {periods: IntRange{1, 10}, length: IntRange{30, 120}, magnitude: Range{3, 8}},
	KindSuddenShift:  {periods: IntRange{3, 15}, length: IntRange{10, 60}, magnitude: Range{15, 35}},
	KindOutage:       {periods: IntRange{2, 8}, length: IntRange{5, 180}},
	KindDegradation:  {periods: IntRange{1, 5}, length: IntRange{120, 480}},
	KindStuck:        {periods: IntRange{2, 8}, length: IntRange{30, 300}},
	KindFalseTrigger: {periods: IntRange{10, 50}, length: IntRange{1, 3}},
}

// withDefaults fills zero-valued parameter ranges from the kind table.
func (s Spec) withDefaults() Spec {
	d := kindDefaults[s.Kind]
	if s.Length.zero() {
		s.Length = d.length
	}
	if s.Magnitude.zero() {
		s.Magnitude = d.magnitude
	}
	if s.Kind == KindOutage {
		if s.Recovery.zero() {
			s.Recovery = IntRange{10, 30}
		}
		if s.OutageLevel.zero() {
			s.OutageLevel = Range{0, 5}
		}
		if s.RecoveryLevel.zero() {
			s.RecoveryLevel = Range{200, 280}
		}
	}
	if s.Kind == KindDegradation {
		if s.Multiplier.zero() {
			s.Multiplier = Range{1.2, 2.0}
		}
		if s.ActivityThreshold == 0 {
			s.ActivityThreshold = 50
		}
	}
	return s
}
