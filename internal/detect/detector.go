// Package detect ships the baseline detectors used to score generated
// datasets against their ground-truth labels.
//
// Responsibilities:
//   - Compute per-channel baselines (mean, stddev, quartiles)
//   - Flag rows with a rolling z-score test plus IQR fences
//   - Score rows with a seedable isolation forest over the numeric channels
//   - Evaluate predictions against the dataset's indicator columns
package detect

import (
	"fmt"
	"math"
	"sort"

	"github.com/homesense/sensorsim/internal/dataset"
	"github.com/homesense/sensorsim/pkg/types"
)

// Baseline summarizes the normal behavior of one channel.
type Baseline struct {
	Mean   float64
	StdDev float64
	Q1     float64
	Q3     float64
	IQR    float64
	Count  int
}

// minBaselineRows is the smallest sample a baseline is trusted on.
const minBaselineRows = 30

// Options configures the statistical detector.
type Options struct {
	// Sensitivity in [0,1] maps linearly to the z-score threshold:
	// 0 → z=4.0 (least sensitive), 1 → z=1.5 (most sensitive).
	Sensitivity float64

	// Window is the trailing baseline width in rows. Zero uses a single
	// whole-series baseline.
	Window int

	// IQRFactor scales the interquartile fences. Zero defaults to 1.5.
	IQRFactor float64
}

// Detector flags anomalous rows in numeric channels by comparing each value
// to a baseline of recent behavior.
type Detector struct {
	zThreshold float64
	window     int
	iqrFactor  float64
}

// NewDetector validates the options and builds a detector.
func NewDetector(opts Options) (*Detector, error) {
	if opts.Sensitivity < 0 || opts.Sensitivity > 1 {
		return nil, fmt.Errorf("detect: sensitivity must be in [0,1], got %g", opts.Sensitivity)
	}
	if opts.Window < 0 {
		return nil, fmt.Errorf("detect: window cannot be negative, got %d", opts.Window)
	}
	if opts.Window > 0 && opts.Window < minBaselineRows {
		return nil, fmt.Errorf("detect: window must be at least %d rows, got %d", minBaselineRows, opts.Window)
	}
	factor := opts.IQRFactor
	if factor == 0 {
		factor = 1.5
	}
	if factor < 0 {
		return nil, fmt.Errorf("detect: iqr factor cannot be negative, got %g", factor)
	}
	return &Detector{
		zThreshold: sensitivityToZThreshold(opts.Sensitivity),
		window:     opts.Window,
		iqrFactor:  factor,
	}, nil
}

// sensitivityToZThreshold maps [0,1] sensitivity onto [4.0, 1.5].
func sensitivityToZThreshold(s float64) float64 {
	return 4.0 - s*2.5
}

// Detect flags every numeric sensor channel present in the table and
// returns per-channel row predictions.
func (d *Detector) Detect(tbl *dataset.Table) (map[string][]bool, error) {
	out := make(map[string][]bool)
	for _, name := range types.FloatChannels {
		c, ok := tbl.Column(name)
		if !ok {
			continue
		}
		if c.Kind != dataset.Float {
			return nil, fmt.Errorf("detect: column %q is not numeric", name)
		}
		out[name] = d.DetectValues(c.Float)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("detect: dataset has no numeric sensor channels")
	}
	return out, nil
}

// DetectValues flags one value series. A row is anomalous when its z-score
// against the baseline exceeds the threshold, or when it falls outside the
// IQR fences. With a rolling window the baseline trails the row; the first
// rows without enough history are never flagged.
func (d *Detector) DetectValues(values []float64) []bool {
	flags := make([]bool, len(values))
	if len(values) < minBaselineRows {
		return flags
	}

	if d.window == 0 {
		bl := computeBaseline(values)
		for i, v := range values {
			flags[i] = d.flagValue(v, bl)
		}
		return flags
	}

	// Recomputing quartiles at every row would dominate the run; a stride
	// of a quarter window keeps the baseline fresh enough.
	stride := d.window / 4
	if stride < 1 {
		stride = 1
	}
	var bl Baseline
	for i := d.window; i < len(values); i++ {
		if (i-d.window)%stride == 0 {
			bl = computeBaseline(values[i-d.window : i])
		}
		flags[i] = d.flagValue(values[i], bl)
	}
	return flags
}

func (d *Detector) flagValue(v float64, bl Baseline) bool {
	if bl.Count < minBaselineRows {
		return false
	}
	if bl.StdDev > 0 {
		z := math.Abs(v-bl.Mean) / bl.StdDev
		if z > d.zThreshold {
			return true
		}
	}
	lower := bl.Q1 - d.iqrFactor*bl.IQR
	upper := bl.Q3 + d.iqrFactor*bl.IQR
	return v < lower || v > upper
}

// Combine ORs per-channel predictions into one overall row prediction.
func Combine(perChannel map[string][]bool, n int) []bool {
	overall := make([]bool, n)
	for _, flags := range perChannel {
		for i, b := range flags {
			if i < n {
				overall[i] = overall[i] || b
			}
		}
	}
	return overall
}

func computeBaseline(values []float64) Baseline {
	if len(values) == 0 {
		return Baseline{}
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	q1 := quartile(sorted, 25)
	q3 := quartile(sorted, 75)

	return Baseline{
		Mean:   mean,
		StdDev: math.Sqrt(variance),
		Q1:     q1,
		Q3:     q3,
		IQR:    q3 - q1,
		Count:  len(values),
	}
}

// quartile interpolates the p-th percentile of a sorted slice.
func quartile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi || hi >= len(sorted) {
		return sorted[lo]
	}
	w := rank - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
