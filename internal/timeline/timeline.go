// Package timeline builds the uniformly spaced timestamp grid every
// generator consumes, together with the calendar features derived from it.
//
// Responsibilities:
//   - Construct a fixed-interval timeline covering N whole days
//   - Extract calendar features (month, fractional hour, weekday, ...) once,
//     so downstream generators never repeat calendar arithmetic
//   - Expose per-calendar-day index ranges for day-scoped event placement
package timeline

import (
	"fmt"
	"time"
)

// Timeline is an immutable, uniformly spaced series of timestamps.
type Timeline struct {
	Start    time.Time
	Interval time.Duration
	Days     int

	timestamps []time.Time
	features   *Features
}

// Features holds calendar features for every timeline index.
// Slices are parallel to the timeline's timestamps.
type Features struct {
	Month       []int     // 1..12
	Day         []int     // day of month, 1..31
	Hour        []float64 // fractional hour, e.g. 14.5 for 14:30
	MinuteOfDay []int     // 0..1439
	Weekday     []int     // 0=Monday .. 6=Sunday
	IsWeekend   []bool
	DayOfYear   []int // 1..366
	DayKey      []int // index of the calendar day within the timeline, 0-based

	dayRanges [][2]int
}

// New builds a timeline starting at start, covering days whole days at the
// given interval. The interval must be a positive whole number of minutes
// that divides a day evenly.
func New(start time.Time, days int, interval time.Duration) (*Timeline, error) {
	if days < 1 {
		return nil, fmt.Errorf("timeline: days must be at least 1, got %d", days)
	}
	if interval < time.Minute || interval%time.Minute != 0 {
		return nil, fmt.Errorf("timeline: interval must be a whole number of minutes, got %s", interval)
	}
	if (24*time.Hour)%interval != 0 {
		return nil, fmt.Errorf("timeline: interval %s does not divide a day evenly", interval)
	}

	perDay := int((24 * time.Hour) / interval)
	n := days * perDay
	ts := make([]time.Time, n)
	for i := 0; i < n; i++ {
		ts[i] = start.Add(time.Duration(i) * interval)
	}

	tl := &Timeline{
		Start:      start,
		Interval:   interval,
		Days:       days,
		timestamps: ts,
	}
	tl.features = extractFeatures(ts)
	return tl, nil
}

// Len returns the number of timestamps.
func (tl *Timeline) Len() int { return len(tl.timestamps) }

// Timestamps returns the underlying timestamp slice. Callers must not
// modify it.
func (tl *Timeline) Timestamps() []time.Time { return tl.timestamps }

// At returns the timestamp at index i.
func (tl *Timeline) At(i int) time.Time { return tl.timestamps[i] }

// Features returns the calendar features, computed once at construction.
func (tl *Timeline) Features() *Features { return tl.features }

func extractFeatures(ts []time.Time) *Features {
	n := len(ts)
	f := &Features{
		Month:       make([]int, n),
		Day:         make([]int, n),
		Hour:        make([]float64, n),
		MinuteOfDay: make([]int, n),
		Weekday:     make([]int, n),
		IsWeekend:   make([]bool, n),
		DayOfYear:   make([]int, n),
		DayKey:      make([]int, n),
	}

	dayKey := -1
	var prevDate string
	for i, t := range ts {
		f.Month[i] = int(t.Month())
		f.Day[i] = t.Day()
		f.Hour[i] = float64(t.Hour()) + float64(t.Minute())/60.0
		f.MinuteOfDay[i] = t.Hour()*60 + t.Minute()
		// time.Weekday counts Sunday=0; shift so Monday=0, matching the
		// weekday/weekend split used by the behavior models.
		wd := (int(t.Weekday()) + 6) % 7
		f.Weekday[i] = wd
		f.IsWeekend[i] = wd >= 5
		f.DayOfYear[i] = t.YearDay()

		date := t.Format("2006-01-02")
		if date != prevDate {
			dayKey++
			prevDate = date
			f.dayRanges = append(f.dayRanges, [2]int{i, i})
		}
		f.DayKey[i] = dayKey
		f.dayRanges[dayKey][1] = i + 1
	}
	return f
}

// DayRanges returns one [start, end) index range per calendar day, in order.
func (f *Features) DayRanges() [][2]int { return f.dayRanges }
