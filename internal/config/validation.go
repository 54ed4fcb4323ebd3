package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/homesense/sensorsim/internal/anomaly"
	"github.com/homesense/sensorsim/pkg/types"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

func fieldErr(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate validates the configuration and returns every problem found.
func (c *Config) Validate() []error {
	var errs []error

	// Validate simulation configuration
	if _, err := time.Parse("2006-01-02", c.Simulation.StartDate); err != nil {
		errs = append(errs, fieldErr("simulation.start_date",
			"invalid date %q, expected YYYY-MM-DD", c.Simulation.StartDate))
	}
	if c.Simulation.Days < 1 {
		errs = append(errs, fieldErr("simulation.days",
			"days must be at least 1, got %d", c.Simulation.Days))
	}
	if c.Simulation.IntervalMinutes < 1 {
		errs = append(errs, fieldErr("simulation.interval_minutes",
			"interval must be at least 1 minute, got %d", c.Simulation.IntervalMinutes))
	} else if (24*60)%c.Simulation.IntervalMinutes != 0 {
		errs = append(errs, fieldErr("simulation.interval_minutes",
			"interval %d does not divide a day evenly", c.Simulation.IntervalMinutes))
	}

	// Validate persons
	if len(c.Persons) == 0 {
		errs = append(errs, fieldErr("persons", "at least one person is required"))
	}
	seen := make(map[string]bool)
	for i, p := range c.Persons {
		field := fmt.Sprintf("persons[%d]", i)
		if p.Name == "" {
			errs = append(errs, fieldErr(field+".name", "name is required"))
		} else if seen[p.Name] {
			errs = append(errs, fieldErr(field+".name", "duplicate name %q", p.Name))
		}
		seen[p.Name] = true

		for j, r := range p.WeekdayOutside {
			errs = append(errs, validateHourRange(fmt.Sprintf("%s.weekday_outside[%d]", field, j), r)...)
		}
		for j, r := range p.WeekendOutside {
			errs = append(errs, validateHourRange(fmt.Sprintf("%s.weekend_outside[%d]", field, j), r)...)
		}
		errs = append(errs, validateHourRange(field+".sleep", p.Sleep)...)

		errs = append(errs, validateEventRates(field+".window_events", p.WindowEvents)...)
		errs = append(errs, validateEventRates(field+".door_events", p.DoorEvents)...)
		errs = append(errs, validateEventRates(field+".room_events", p.RoomEvents)...)
	}

	// Validate apartment configuration
	if c.Apartment.MovementProbability < 0 || c.Apartment.MovementProbability > 1 {
		errs = append(errs, fieldErr("apartment.movement_probability",
			"must be in [0,1], got %g", c.Apartment.MovementProbability))
	}
	if c.Apartment.AmbientProbability < 0 || c.Apartment.AmbientProbability > 1 {
		errs = append(errs, fieldErr("apartment.ambient_probability",
			"must be in [0,1], got %g", c.Apartment.AmbientProbability))
	}
	if c.Apartment.BurstMin < 1 || c.Apartment.BurstMax < c.Apartment.BurstMin {
		errs = append(errs, fieldErr("apartment.burst_min",
			"invalid burst range [%d,%d]", c.Apartment.BurstMin, c.Apartment.BurstMax))
	}
	if c.Apartment.AmbientMin < 1 || c.Apartment.AmbientMax < c.Apartment.AmbientMin {
		errs = append(errs, fieldErr("apartment.ambient_min",
			"invalid ambient range [%d,%d]", c.Apartment.AmbientMin, c.Apartment.AmbientMax))
	}

	// Validate anomalies
	for i, a := range c.Anomalies {
		field := fmt.Sprintf("anomalies[%d]", i)
		if _, err := anomaly.ParseKind(a.Kind); err != nil {
			errs = append(errs, fieldErr(field+".kind", "%v", err))
		}
		if !types.IsChannel(a.Column) {
			errs = append(errs, fieldErr(field+".column",
				"%q is not a sensor channel", a.Column))
		}
		if b := a.RestrictedHours; b != nil {
			errs = append(errs, validateHourRange(field+".restricted_hours", *b)...)
		}
	}

	// Validate output configuration
	if c.Output.Path == "" {
		errs = append(errs, fieldErr("output.path", "output path is required"))
	}

	// Validate database configuration
	if c.Database.Path == "" {
		errs = append(errs, fieldErr("database.path", "database path is required"))
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fieldErr("logging.level",
			"invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level))
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fieldErr("logging.format",
			"invalid log format %q, must be one of: json, text", c.Logging.Format))
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		errs = append(errs, fieldErr("logging", "rotation settings cannot be negative"))
	}

	// Validate metrics configuration
	if c.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			errs = append(errs, fieldErr("metrics.addr",
				"invalid listen address %q: %v", c.Metrics.Addr, err))
		}
	}

	// Validate detection configuration
	if c.Detection.Sensitivity < 0 || c.Detection.Sensitivity > 1 {
		errs = append(errs, fieldErr("detection.sensitivity",
			"must be in [0,1], got %g", c.Detection.Sensitivity))
	}
	if c.Detection.WindowRows < 0 {
		errs = append(errs, fieldErr("detection.window_rows",
			"cannot be negative, got %d", c.Detection.WindowRows))
	}
	if c.Detection.ForestTrees < 0 || c.Detection.ForestSubsample < 0 {
		errs = append(errs, fieldErr("detection.forest_trees",
			"forest parameters cannot be negative"))
	}
	if c.Detection.ForestThreshold < 0 || c.Detection.ForestThreshold > 1 {
		errs = append(errs, fieldErr("detection.forest_threshold",
			"must be in [0,1], got %g", c.Detection.ForestThreshold))
	}

	return errs
}

func validateHourRange(field string, r HourRange) []error {
	var errs []error
	if r.Start < 0 || r.Start >= 24 {
		errs = append(errs, fieldErr(field+".start", "must be in [0,24), got %g", r.Start))
	}
	if r.End < 0 || r.End > 24 {
		errs = append(errs, fieldErr(field+".end", "must be in [0,24], got %g", r.End))
	}
	return errs
}

func validateEventRates(field string, e EventRates) []error {
	var errs []error
	if e.CountMin < 0 || e.CountMax < e.CountMin {
		errs = append(errs, fieldErr(field, "invalid count range [%d,%d]", e.CountMin, e.CountMax))
	}
	if e.CountMax > 0 && (e.DurationMin < 1 || e.DurationMax < e.DurationMin) {
		errs = append(errs, fieldErr(field, "invalid duration range [%d,%d]", e.DurationMin, e.DurationMax))
	}
	return errs
}
