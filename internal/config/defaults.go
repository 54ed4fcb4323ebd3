package config

// DefaultConfig returns a configuration with all default values: a
// two-person household generating 180 days of minute data.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Simulation defaults
	cfg.Simulation.StartDate = "2020-01-01"
	cfg.Simulation.Days = 180
	cfg.Simulation.IntervalMinutes = 1
	cfg.Simulation.Seed = 42

	// Household defaults: one office worker, one shift worker.
	cfg.Persons = []Person{
		{
			Name:           "alice",
			WeekdayOutside: []HourRange{{Start: 8, End: 17}},
			WeekendOutside: []HourRange{{Start: 10, End: 13}},
			Sleep:          HourRange{Start: 23, End: 6.5},
			WindowEvents:   EventRates{CountMin: 1, CountMax: 4, DurationMin: 10, DurationMax: 45},
			DoorEvents:     EventRates{CountMin: 2, CountMax: 6, DurationMin: 1, DurationMax: 3},
			RoomEvents:     EventRates{CountMin: 8, CountMax: 20, DurationMin: 5, DurationMax: 60},
		},
		{
			Name:           "bob",
			WeekdayOutside: []HourRange{{Start: 13, End: 21.5}},
			WeekendOutside: []HourRange{{Start: 9, End: 11}, {Start: 17, End: 20}},
			Sleep:          HourRange{Start: 0.5, End: 8},
			WindowEvents:   EventRates{CountMin: 0, CountMax: 3, DurationMin: 15, DurationMax: 60},
			DoorEvents:     EventRates{CountMin: 1, CountMax: 5, DurationMin: 1, DurationMax: 4},
			RoomEvents:     EventRates{CountMin: 6, CountMax: 16, DurationMin: 5, DurationMax: 90},
		},
	}

	// Apartment defaults
	cfg.Apartment.MovementProbability = 0.3
	cfg.Apartment.BurstMin = 1
	cfg.Apartment.BurstMax = 10
	cfg.Apartment.AmbientProbability = 0.002
	cfg.Apartment.AmbientMin = 1
	cfg.Apartment.AmbientMax = 5

	// Anomalies default to none: generation produces a clean dataset
	// unless the config or the inject command says otherwise.
	cfg.Anomalies = nil

	// Output defaults
	cfg.Output.Path = "data/dataset.csv"

	// Database defaults
	cfg.Database.Path = "data/sensorsim.db"

	// Logging defaults
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.File = ""
	cfg.Logging.MaxSizeMB = 100
	cfg.Logging.MaxBackups = 3
	cfg.Logging.MaxAgeDays = 28

	// Metrics defaults
	cfg.Metrics.Enabled = false
	cfg.Metrics.Addr = ":9090"

	// Detection defaults
	cfg.Detection.Sensitivity = 0.5
	cfg.Detection.WindowRows = 1440
	cfg.Detection.ForestTrees = 100
	cfg.Detection.ForestSubsample = 256
	cfg.Detection.ForestThreshold = 0.6

	return cfg
}
