package simulation

import (
	"fmt"
	"math/rand"

	"github.com/homesense/sensorsim/internal/timeline"
)

// HourRange is a half-open interval of fractional hours [Start, End). Ranges
// may wrap past midnight (Start > End), e.g. {22, 6} covers 22:00–06:00.
type HourRange struct {
	Start float64
	End   float64
}

// Contains reports whether fractional hour h falls inside the range, with
// modular wrap when Start > End.
func (r HourRange) Contains(h float64) bool {
	if r.Start <= r.End {
		return h >= r.Start && h < r.End
	}
	return h >= r.Start || h < r.End
}

func (r HourRange) valid() bool {
	return r.Start >= 0 && r.Start < 24 && r.End >= 0 && r.End <= 24
}

// EventConfig describes a daily event process: how many events per day and
// how long each one lasts, in timeline steps.
type EventConfig struct {
	CountMin int
	CountMax int
	DurMin   int
	DurMax   int
}

func (c EventConfig) validate(field string) []error {
	var errs []error
	if c.CountMin < 0 {
		errs = append(errs, fmt.Errorf("%s: count min cannot be negative, got %d", field, c.CountMin))
	}
	if c.CountMax < c.CountMin {
		errs = append(errs, fmt.Errorf("%s: count max %d is less than count min %d", field, c.CountMax, c.CountMin))
	}
	if c.DurMin < 1 {
		errs = append(errs, fmt.Errorf("%s: duration min must be at least 1 step, got %d", field, c.DurMin))
	}
	if c.DurMax < c.DurMin {
		errs = append(errs, fmt.Errorf("%s: duration max %d is less than duration min %d", field, c.DurMax, c.DurMin))
	}
	return errs
}

// PersonConfig describes one occupant's schedule and event behavior.
type PersonConfig struct {
	Name string

	// WeekdayOutside and WeekendOutside list the hours the person is away
	// from the apartment on the respective day type.
	WeekdayOutside []HourRange
	WeekendOutside []HourRange

	// Sleep is the nightly sleep interval; it usually wraps midnight.
	Sleep HourRange

	Window EventConfig
	Door   EventConfig
	Room   EventConfig
}

// Validate checks the schedule for internal consistency. It returns every
// problem found rather than stopping at the first.
func (c PersonConfig) Validate() []error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, fmt.Errorf("person: name is required"))
	}
	for i, r := range c.WeekdayOutside {
		if !r.valid() {
			errs = append(errs, fmt.Errorf("person %s: weekday outside range %d out of [0,24): %+v", c.Name, i, r))
		}
	}
	for i, r := range c.WeekendOutside {
		if !r.valid() {
			errs = append(errs, fmt.Errorf("person %s: weekend outside range %d out of [0,24): %+v", c.Name, i, r))
		}
	}
	if !c.Sleep.valid() {
		errs = append(errs, fmt.Errorf("person %s: sleep range out of [0,24): %+v", c.Name, c.Sleep))
	}
	errs = append(errs, c.Window.validate(fmt.Sprintf("person %s: window events", c.Name))...)
	errs = append(errs, c.Door.validate(fmt.Sprintf("person %s: door events", c.Name))...)
	errs = append(errs, c.Room.validate(fmt.Sprintf("person %s: room events", c.Name))...)

	// The person must have some awake time at home on both day types,
	// otherwise no event can ever be placed.
	if len(errs) == 0 {
		if !c.hasAwakeHomeTime(c.WeekdayOutside) {
			errs = append(errs, fmt.Errorf("person %s: weekday schedule leaves no awake time at home", c.Name))
		}
		if !c.hasAwakeHomeTime(c.WeekendOutside) {
			errs = append(errs, fmt.Errorf("person %s: weekend schedule leaves no awake time at home", c.Name))
		}
	}
	return errs
}

func (c PersonConfig) hasAwakeHomeTime(outside []HourRange) bool {
	for h := 0.0; h < 24; h += 0.25 {
		if c.Sleep.Contains(h) {
			continue
		}
		away := false
		for _, r := range outside {
			if r.Contains(h) {
				away = true
				break
			}
		}
		if !away {
			return true
		}
	}
	return false
}

// PersonSeries holds one occupant's generated state, parallel to the
// timeline.
type PersonSeries struct {
	Inside   []bool
	Sleeping []bool
	Room     []bool // present and awake in the sensor room
	Window   []bool
	Door     []bool
}

// Person generates occupancy behavior over a timeline. Results are cached:
// repeated Generate calls return the same series until SetTimeline rebinds
// the model, which also re-arms the RNG so an identical timeline reproduces
// identical output.
type Person struct {
	cfg  PersonConfig
	seed int64

	tl     *timeline.Timeline
	series *PersonSeries
}

// NewPerson validates the config and creates a person model. The seed is
// the person's private stream seed (derive it from the run's base seed).
func NewPerson(cfg PersonConfig, seed int64) (*Person, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config for person %q: %w", cfg.Name, joinErrors(errs))
	}
	return &Person{cfg: cfg, seed: seed}, nil
}

// Name returns the occupant's name.
func (p *Person) Name() string { return p.cfg.Name }

// SetTimeline binds the person to a timeline, dropping any cached series and
// resetting the RNG to its seed.
func (p *Person) SetTimeline(tl *timeline.Timeline) {
	p.tl = tl
	p.series = nil
}

// Generate produces the person's state series. The result is cached until
// the timeline is rebound.
func (p *Person) Generate() (*PersonSeries, error) {
	if p.tl == nil {
		return nil, fmt.Errorf("person %q: no timeline bound", p.cfg.Name)
	}
	if p.series != nil {
		return p.series, nil
	}

	rng := newRand(p.seed)
	f := p.tl.Features()
	n := p.tl.Len()

	s := &PersonSeries{
		Inside:   make([]bool, n),
		Sleeping: make([]bool, n),
		Room:     make([]bool, n),
		Window:   make([]bool, n),
		Door:     make([]bool, n),
	}

	for i := 0; i < n; i++ {
		outside := p.cfg.WeekdayOutside
		if f.IsWeekend[i] {
			outside = p.cfg.WeekendOutside
		}
		away := false
		for _, r := range outside {
			if r.Contains(f.Hour[i]) {
				away = true
				break
			}
		}
		s.Inside[i] = !away
		// Sleeping only counts while at home: the person cannot be asleep
		// in an apartment they are not in.
		s.Sleeping[i] = s.Inside[i] && p.cfg.Sleep.Contains(f.Hour[i])
	}

	valid := func(i int) bool { return s.Inside[i] && !s.Sleeping[i] }

	for _, day := range f.DayRanges() {
		p.placeDayEvents(rng, day, valid, p.cfg.Room, s.Room, false)
		p.placeDayEvents(rng, day, valid, p.cfg.Window, s.Window, true)
		p.placeDayEvents(rng, day, valid, p.cfg.Door, s.Door, true)
	}

	// Door pulses on every arrival and departure.
	for i := 1; i < n; i++ {
		if s.Inside[i] != s.Inside[i-1] {
			s.Door[i] = true
		}
	}

	p.series = s
	return s, nil
}

// placeEventAttempts bounds random placement retries before an event is
// dropped for the day.
const placeEventAttempts = 8

// placeDayEvents places the day's events for one channel. Events never
// overlap an already marked span of the same channel. When truncate is set
// the event ends early at loss of presence or sleep onset (window left open
// until the person leaves or goes to bed); otherwise invalid indices inside
// the span are simply skipped.
func (p *Person) placeDayEvents(rng *rand.Rand, day [2]int, valid func(int) bool, cfg EventConfig, out []bool, truncate bool) {
	var candidates []int
	for i := day[0]; i < day[1]; i++ {
		if valid(i) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return
	}

	count := intBetween(rng, cfg.CountMin, cfg.CountMax)
	for e := 0; e < count; e++ {
		for attempt := 0; attempt < placeEventAttempts; attempt++ {
			start := candidates[rng.Intn(len(candidates))]
			if out[start] {
				continue
			}
			dur := intBetween(rng, cfg.DurMin, cfg.DurMax)

			span := spanIndices(day, start, dur, valid, truncate)
			if len(span) == 0 || overlaps(out, span) {
				continue
			}
			for _, i := range span {
				out[i] = true
			}
			break
		}
	}
}

// spanIndices collects the indices an event starting at start with the given
// duration would mark.
func spanIndices(day [2]int, start, dur int, valid func(int) bool, truncate bool) []int {
	var span []int
	for i := start; i < start+dur && i < day[1]; i++ {
		if !valid(i) {
			if truncate {
				break
			}
			continue
		}
		span = append(span, i)
	}
	return span
}

func overlaps(out []bool, span []int) bool {
	for _, i := range span {
		if out[i] {
			return true
		}
	}
	return false
}

func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
