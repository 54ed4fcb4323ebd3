package detect

import (
	"fmt"

	"github.com/homesense/sensorsim/internal/dataset"
	"github.com/homesense/sensorsim/pkg/types"
)

// Metrics holds the confusion counts and derived scores for one channel.
type Metrics struct {
	TruePositives  int
	FalsePositives int
	FalseNegatives int
	TrueNegatives  int

	Precision float64
	Recall    float64
	F1        float64
}

// Evaluate compares row predictions against ground truth.
func Evaluate(predicted, truth []bool) (Metrics, error) {
	if len(predicted) != len(truth) {
		return Metrics{}, fmt.Errorf("detect: prediction length %d does not match truth length %d",
			len(predicted), len(truth))
	}

	var m Metrics
	for i := range truth {
		switch {
		case predicted[i] && truth[i]:
			m.TruePositives++
		case predicted[i] && !truth[i]:
			m.FalsePositives++
		case !predicted[i] && truth[i]:
			m.FalseNegatives++
		default:
			m.TrueNegatives++
		}
	}

	if m.TruePositives+m.FalsePositives > 0 {
		m.Precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}
	if m.TruePositives+m.FalseNegatives > 0 {
		m.Recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m, nil
}

// Report scores per-channel predictions against the dataset's indicator
// columns, plus an "overall" entry against the combined indicator. Channels
// without a ground-truth column are skipped.
func Report(tbl *dataset.Table, perChannel map[string][]bool) (map[string]Metrics, error) {
	out := make(map[string]Metrics)
	for channel, pred := range perChannel {
		truthCol, ok := tbl.Column(types.IndicatorColumn(channel))
		if !ok {
			continue
		}
		m, err := Evaluate(pred, truthCol.Bits)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", channel, err)
		}
		out[channel] = m
	}

	if overallCol, ok := tbl.Column(types.ColOverallIndicator); ok {
		m, err := Evaluate(Combine(perChannel, tbl.Len()), overallCol.Bits)
		if err != nil {
			return nil, fmt.Errorf("overall: %w", err)
		}
		out["overall"] = m
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("detect: dataset carries no ground-truth columns")
	}
	return out, nil
}
