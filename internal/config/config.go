// Package config provides configuration management for sensorsim.
//
// Responsibilities:
//   - Load configuration from YAML files, environment variables, and CLI flags
//   - Validate configuration on startup
//   - Provide runtime access to all configuration
//   - Support configuration reloading for watch-capable settings
//   - Establish reasonable defaults, including a two-person household preset
//
// Configuration Sources (priority order, high to low):
//  1. CLI flags (highest priority)
//  2. Environment variables (SENSORSIM_* prefix)
//  3. YAML config files (default: sensorsim.yaml in the working directory)
//  4. Built-in defaults (lowest priority)
package config

import "context"

// Config contains all configuration fields.
type Config struct {
	// Simulation controls the timeline and master seed.
	Simulation struct {
		StartDate       string `mapstructure:"start_date"` // YYYY-MM-DD
		Days            int    `mapstructure:"days"`
		IntervalMinutes int    `mapstructure:"interval_minutes"`
		// Seed is the master seed every generator stream derives from.
		// Zero draws a seed from the wall clock; the drawn value is
		// recorded with the run so it can be replayed.
		Seed int64 `mapstructure:"seed"`
	} `mapstructure:"simulation"`

	// Persons describes the household members.
	Persons []Person `mapstructure:"persons"`

	// Apartment controls shared-sensor aggregation.
	Apartment struct {
		MovementProbability float64 `mapstructure:"movement_probability"`
		BurstMin            int     `mapstructure:"burst_min"`
		BurstMax            int     `mapstructure:"burst_max"`
		AmbientProbability  float64 `mapstructure:"ambient_probability"`
		AmbientMin          int     `mapstructure:"ambient_min"`
		AmbientMax          int     `mapstructure:"ambient_max"`
	} `mapstructure:"apartment"`

	// Anomalies lists the injections applied after generation.
	Anomalies []Anomaly `mapstructure:"anomalies"`

	// Output controls where datasets land.
	Output struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"output"`

	// Database configuration for the run registry.
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`

	// Logging configuration.
	Logging struct {
		Level      string `mapstructure:"level"`  // debug | info | warn | error
		Format     string `mapstructure:"format"` // json | text
		File       string `mapstructure:"file"`   // empty logs to stderr only
		MaxSizeMB  int    `mapstructure:"max_size_mb"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAgeDays int    `mapstructure:"max_age_days"`
	} `mapstructure:"logging"`

	// Metrics configuration.
	Metrics struct {
		Enabled bool   `mapstructure:"enabled"`
		Addr    string `mapstructure:"addr"`
	} `mapstructure:"metrics"`

	// Detection configuration for the baseline detectors.
	Detection struct {
		Sensitivity     float64 `mapstructure:"sensitivity"` // 0..1
		WindowRows      int     `mapstructure:"window_rows"` // 0 = whole series
		ForestTrees     int     `mapstructure:"forest_trees"`
		ForestSubsample int     `mapstructure:"forest_subsample"`
		ForestThreshold float64 `mapstructure:"forest_threshold"`
	} `mapstructure:"detection"`
}

// HourRange is a daily interval in fractional hours. Start > End wraps past
// midnight.
type HourRange struct {
	Start float64 `mapstructure:"start"`
	End   float64 `mapstructure:"end"`
}

// EventRates bounds per-day event counts and per-event durations in steps.
type EventRates struct {
	CountMin    int `mapstructure:"count_min"`
	CountMax    int `mapstructure:"count_max"`
	DurationMin int `mapstructure:"duration_min"`
	DurationMax int `mapstructure:"duration_max"`
}

// Person describes one household member's schedule and habits.
type Person struct {
	Name           string      `mapstructure:"name"`
	WeekdayOutside []HourRange `mapstructure:"weekday_outside"`
	WeekendOutside []HourRange `mapstructure:"weekend_outside"`
	Sleep          HourRange   `mapstructure:"sleep"`
	WindowEvents   EventRates  `mapstructure:"window_events"`
	DoorEvents     EventRates  `mapstructure:"door_events"`
	RoomEvents     EventRates  `mapstructure:"room_events"`
}

// FloatRange is an inclusive float parameter range.
type FloatRange struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// IntRange is an inclusive integer parameter range.
type IntRange struct {
	Min int `mapstructure:"min"`
	Max int `mapstructure:"max"`
}

// Anomaly describes one injection. Zero-valued ranges fall back to the
// kind's built-in defaults.
type Anomaly struct {
	Kind   string `mapstructure:"kind"`
	Column string `mapstructure:"column"`

	Periods int     `mapstructure:"periods"`
	Rate    float64 `mapstructure:"rate"`

	Length   IntRange `mapstructure:"length"`
	Recovery IntRange `mapstructure:"recovery"`

	Magnitude FloatRange `mapstructure:"magnitude"`
	Value     float64    `mapstructure:"value"`
	StuckAt   *int       `mapstructure:"stuck_at"`

	OutageLevel   FloatRange `mapstructure:"outage_level"`
	RecoveryLevel FloatRange `mapstructure:"recovery_level"`

	Multiplier        FloatRange `mapstructure:"multiplier"`
	ActivityThreshold float64    `mapstructure:"activity_threshold"`

	// RestrictedHours limits labeling to a daily band, in fractional hours.
	RestrictedHours *HourRange `mapstructure:"restricted_hours"`
}

// Manager defines the interface for configuration access.
type Manager interface {
	// Load loads configuration from all sources.
	Load(ctx context.Context) error

	// Get returns the current configuration.
	Get(ctx context.Context) *Config

	// Validate validates configuration is correct and complete.
	Validate(ctx context.Context) error

	// Watch watches for configuration changes and reloads.
	Watch(ctx context.Context) <-chan Config

	// Reload reloads configuration from sources.
	Reload(ctx context.Context) error
}

// NewManager creates a configuration manager reading from configPath.
func NewManager(configPath string) (Manager, error) {
	return &viperManager{
		configPath: configPath,
		config:     DefaultConfig(),
		watchChan:  make(chan Config, 1),
	}, nil
}

// NewManagerWithDefaults creates a manager with the default config path.
func NewManagerWithDefaults() (Manager, error) {
	return NewManager("sensorsim.yaml")
}
