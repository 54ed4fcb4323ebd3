package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// viperManager implements Manager using Viper.
type viperManager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
	watchChan  chan Config
}

// Load loads configuration from all sources.
func (m *viperManager) Load(ctx context.Context) error {
	m.viper = viper.New()

	m.viper.SetConfigFile(m.configPath)
	m.viper.SetConfigType("yaml")

	m.viper.SetEnvPrefix("SENSORSIM")
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	m.setDefaults()

	// The config file is optional: defaults plus env vars are a complete
	// configuration.
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// use defaults
		} else if os.IsNotExist(err) {
			// use defaults
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	return nil
}

// Get returns the current configuration.
func (m *viperManager) Get(ctx context.Context) *Config {
	return m.config
}

// Validate validates configuration is correct and complete.
func (m *viperManager) Validate(ctx context.Context) error {
	errs := m.config.Validate()
	if len(errs) > 0 {
		var msgs []string
		for _, err := range errs {
			msgs = append(msgs, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
	}
	return nil
}

// Watch watches for configuration changes and reloads.
func (m *viperManager) Watch(ctx context.Context) <-chan Config {
	m.viper.WatchConfig()
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		if err := m.unmarshalConfig(); err != nil {
			return
		}
		select {
		case m.watchChan <- *m.config:
		default:
			// channel full, skip this update
		}
	})
	return m.watchChan
}

// Reload reloads configuration from sources.
func (m *viperManager) Reload(ctx context.Context) error {
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	return nil
}

// setDefaults sets default values in viper.
func (m *viperManager) setDefaults() {
	defaults := DefaultConfig()

	// Simulation defaults
	m.viper.SetDefault("simulation.start_date", defaults.Simulation.StartDate)
	m.viper.SetDefault("simulation.days", defaults.Simulation.Days)
	m.viper.SetDefault("simulation.interval_minutes", defaults.Simulation.IntervalMinutes)
	m.viper.SetDefault("simulation.seed", defaults.Simulation.Seed)

	// Apartment defaults
	m.viper.SetDefault("apartment.movement_probability", defaults.Apartment.MovementProbability)
	m.viper.SetDefault("apartment.burst_min", defaults.Apartment.BurstMin)
	m.viper.SetDefault("apartment.burst_max", defaults.Apartment.BurstMax)
	m.viper.SetDefault("apartment.ambient_probability", defaults.Apartment.AmbientProbability)
	m.viper.SetDefault("apartment.ambient_min", defaults.Apartment.AmbientMin)
	m.viper.SetDefault("apartment.ambient_max", defaults.Apartment.AmbientMax)

	// Output defaults
	m.viper.SetDefault("output.path", defaults.Output.Path)

	// Database defaults
	m.viper.SetDefault("database.path", defaults.Database.Path)

	// Logging defaults
	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)
	m.viper.SetDefault("logging.file", defaults.Logging.File)
	m.viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	m.viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	m.viper.SetDefault("logging.max_age_days", defaults.Logging.MaxAgeDays)

	// Metrics defaults
	m.viper.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	m.viper.SetDefault("metrics.addr", defaults.Metrics.Addr)

	// Detection defaults
	m.viper.SetDefault("detection.sensitivity", defaults.Detection.Sensitivity)
	m.viper.SetDefault("detection.window_rows", defaults.Detection.WindowRows)
	m.viper.SetDefault("detection.forest_trees", defaults.Detection.ForestTrees)
	m.viper.SetDefault("detection.forest_subsample", defaults.Detection.ForestSubsample)
	m.viper.SetDefault("detection.forest_threshold", defaults.Detection.ForestThreshold)
}

// unmarshalConfig unmarshals viper config into the Config struct.
func (m *viperManager) unmarshalConfig() error {
	cfg := &Config{}

	// Simulation
	cfg.Simulation.StartDate = m.viper.GetString("simulation.start_date")
	cfg.Simulation.Days = m.viper.GetInt("simulation.days")
	cfg.Simulation.IntervalMinutes = m.viper.GetInt("simulation.interval_minutes")
	cfg.Simulation.Seed = m.viper.GetInt64("simulation.seed")

	// Persons and anomalies are structured lists; they only come from the
	// config file, falling back to the built-in household when absent.
	if m.viper.IsSet("persons") {
		if err := m.viper.UnmarshalKey("persons", &cfg.Persons); err != nil {
			return fmt.Errorf("persons: %w", err)
		}
	} else {
		cfg.Persons = DefaultConfig().Persons
	}
	if m.viper.IsSet("anomalies") {
		if err := m.viper.UnmarshalKey("anomalies", &cfg.Anomalies); err != nil {
			return fmt.Errorf("anomalies: %w", err)
		}
	}

	// Apartment
	cfg.Apartment.MovementProbability = m.viper.GetFloat64("apartment.movement_probability")
	cfg.Apartment.BurstMin = m.viper.GetInt("apartment.burst_min")
	cfg.Apartment.BurstMax = m.viper.GetInt("apartment.burst_max")
	cfg.Apartment.AmbientProbability = m.viper.GetFloat64("apartment.ambient_probability")
	cfg.Apartment.AmbientMin = m.viper.GetInt("apartment.ambient_min")
	cfg.Apartment.AmbientMax = m.viper.GetInt("apartment.ambient_max")

	// Output
	cfg.Output.Path = m.viper.GetString("output.path")

	// Database
	cfg.Database.Path = m.viper.GetString("database.path")

	// Logging
	cfg.Logging.Level = m.viper.GetString("logging.level")
	cfg.Logging.Format = m.viper.GetString("logging.format")
	cfg.Logging.File = m.viper.GetString("logging.file")
	cfg.Logging.MaxSizeMB = m.viper.GetInt("logging.max_size_mb")
	cfg.Logging.MaxBackups = m.viper.GetInt("logging.max_backups")
	cfg.Logging.MaxAgeDays = m.viper.GetInt("logging.max_age_days")

	// Metrics
	cfg.Metrics.Enabled = m.viper.GetBool("metrics.enabled")
	cfg.Metrics.Addr = m.viper.GetString("metrics.addr")

	// Detection
	cfg.Detection.Sensitivity = m.viper.GetFloat64("detection.sensitivity")
	cfg.Detection.WindowRows = m.viper.GetInt("detection.window_rows")
	cfg.Detection.ForestTrees = m.viper.GetInt("detection.forest_trees")
	cfg.Detection.ForestSubsample = m.viper.GetInt("detection.forest_subsample")
	cfg.Detection.ForestThreshold = m.viper.GetFloat64("detection.forest_threshold")

	m.config = cfg
	return nil
}
