package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generator metrics for production monitoring
var (
	// Run metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensorsim_runs_total",
			Help: "Total number of runs executed",
		},
		[]string{"mode", "status"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sensorsim_run_duration_seconds",
			Help:    "Run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~7min
		},
		[]string{"mode"},
	)

	// Generation metrics
	RowsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensorsim_rows_generated_total",
			Help: "Total number of data rows generated per channel",
		},
		[]string{"channel"},
	)

	// Injection metrics
	AnomalyWindowsInjected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensorsim_anomaly_windows_total",
			Help: "Total number of anomaly windows injected",
		},
		[]string{"column", "kind"},
	)

	AnomalyRowsInjected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensorsim_anomaly_rows_total",
			Help: "Total number of rows labeled anomalous",
		},
		[]string{"column"},
	)

	// Detection metrics
	DetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensorsim_detections_total",
			Help: "Total number of detection runs",
		},
		[]string{"method", "status"}, // method: baseline/forest
	)
)

// Handler returns the HTTP handler exposing the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
