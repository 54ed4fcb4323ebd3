package simulation

import (
	"fmt"

	"github.com/homesense/sensorsim/internal/timeline"
)

// ApartmentConfig tunes the apartment-level motion model.
type ApartmentConfig struct {
	// MovementProb is the per-step probability that a person present in the
	// room starts a movement burst.
	MovementProb float64
	// BurstMin/BurstMax bound the movement burst length in steps.
	BurstMin int
	BurstMax int

	// AmbientProb is the per-step probability of an ambient motion event
	// (pets, drafts, sensor self-triggers) independent of occupancy.
	// Zero disables the ambient process.
	AmbientProb float64
	AmbientMin  int
	AmbientMax  int
}

// Validate checks the motion model parameters.
func (c ApartmentConfig) Validate() []error {
	var errs []error
	if c.MovementProb < 0 || c.MovementProb > 1 {
		errs = append(errs, fmt.Errorf("apartment: movement probability must be in [0,1], got %g", c.MovementProb))
	}
	if c.BurstMin < 1 {
		errs = append(errs, fmt.Errorf("apartment: burst min must be at least 1, got %d", c.BurstMin))
	}
	if c.BurstMax < c.BurstMin {
		errs = append(errs, fmt.Errorf("apartment: burst max %d is less than burst min %d", c.BurstMax, c.BurstMin))
	}
	if c.AmbientProb < 0 || c.AmbientProb > 1 {
		errs = append(errs, fmt.Errorf("apartment: ambient probability must be in [0,1], got %g", c.AmbientProb))
	}
	if c.AmbientProb > 0 {
		if c.AmbientMin < 1 {
			errs = append(errs, fmt.Errorf("apartment: ambient min must be at least 1, got %d", c.AmbientMin))
		}
		if c.AmbientMax < c.AmbientMin {
			errs = append(errs, fmt.Errorf("apartment: ambient max %d is less than ambient min %d", c.AmbientMax, c.AmbientMin))
		}
	}
	return errs
}

// ApartmentSeries holds the aggregated apartment-level sensor streams,
// parallel to the timeline.
type ApartmentSeries struct {
	Window []bool
	Door   []bool
	Motion []bool
}

// Apartment aggregates per-person behavior into the apartment's sensor
// streams. Window and door are the OR across occupants; motion is a
// stochastic process driven by room presence plus an optional ambient
// process.
type Apartment struct {
	tl      *timeline.Timeline
	persons []*Person
	cfg     ApartmentConfig
	seed    int64
}

// NewApartment validates the config and binds every person to the timeline.
func NewApartment(tl *timeline.Timeline, persons []*Person, cfg ApartmentConfig, seed int64) (*Apartment, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid apartment config: %w", joinErrors(errs))
	}
	for _, p := range persons {
		p.SetTimeline(tl)
	}
	return &Apartment{tl: tl, persons: persons, cfg: cfg, seed: seed}, nil
}

// Generate produces the aggregated streams. Each person's motion stream and
// the ambient stream run on their own derived seeds, so output does not
// depend on the order persons are listed.
func (a *Apartment) Generate() (*ApartmentSeries, error) {
	n := a.tl.Len()
	out := &ApartmentSeries{
		Window: make([]bool, n),
		Door:   make([]bool, n),
		Motion: make([]bool, n),
	}

	for _, p := range a.persons {
		s, err := p.Generate()
		if err != nil {
			return nil, fmt.Errorf("apartment: %w", err)
		}
		for i := 0; i < n; i++ {
			out.Window[i] = out.Window[i] || s.Window[i]
			out.Door[i] = out.Door[i] || s.Door[i]
		}
		a.personMotion(p.Name(), s.Room, out.Motion)
	}

	if a.cfg.AmbientProb > 0 {
		a.ambientMotion(out.Motion)
	}
	return out, nil
}

// personMotion walks one person's room-presence stream: while present, each
// step may start a movement burst that marks the next few steps and skips
// past them. A burst ends early when room presence ends, so a person never
// triggers motion after leaving. The stream seed derives from the person's
// name, so the result does not depend on listing order.
func (a *Apartment) personMotion(name string, room []bool, motion []bool) {
	rng := newRand(DeriveSeed(a.seed, "motion.person", name))
	for i := 0; i < len(room); {
		if room[i] && rng.Float64() < a.cfg.MovementProb {
			dur := intBetween(rng, a.cfg.BurstMin, a.cfg.BurstMax)
			j := i
			for ; j < i+dur && j < len(room) && room[j]; j++ {
				motion[j] = true
			}
			i = j
			continue
		}
		i++
	}
}

// ambientMotion overlays occupancy-independent motion events.
func (a *Apartment) ambientMotion(motion []bool) {
	rng := newRand(DeriveSeed(a.seed, "motion.ambient"))
	for i := 0; i < len(motion); {
		if rng.Float64() < a.cfg.AmbientProb {
			dur := intBetween(rng, a.cfg.AmbientMin, a.cfg.AmbientMax)
			for j := i; j < i+dur && j < len(motion); j++ {
				motion[j] = true
			}
			i += dur
			continue
		}
		i++
	}
}
