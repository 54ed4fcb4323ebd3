package timeline

import (
	"testing"
	"time"
)

func mustTimeline(t *testing.T, start time.Time, days int, interval time.Duration) *Timeline {
	t.Helper()
	tl, err := New(start, days, interval)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tl
}

func TestNewLength(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	tl := mustTimeline(t, start, 2, time.Minute)
	if tl.Len() != 2*24*60 {
		t.Errorf("expected %d rows, got %d", 2*24*60, tl.Len())
	}
	if !tl.At(0).Equal(start) {
		t.Errorf("first timestamp should equal start, got %s", tl.At(0))
	}
	last := tl.At(tl.Len() - 1)
	want := start.Add(2*24*time.Hour - time.Minute)
	if !last.Equal(want) {
		t.Errorf("last timestamp: expected %s, got %s", want, last)
	}
}

func TestNewValidation(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := New(start, 0, time.Minute); err == nil {
		t.Error("expected error for zero days")
	}
	if _, err := New(start, 1, 30*time.Second); err == nil {
		t.Error("expected error for sub-minute interval")
	}
	if _, err := New(start, 1, 7*time.Minute); err == nil {
		t.Error("expected error for interval that does not divide a day")
	}
}

func TestFeaturesCalendar(t *testing.T) {
	// 2020-01-01 is a Wednesday.
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	tl := mustTimeline(t, start, 7, time.Hour)
	f := tl.Features()

	if f.Month[0] != 1 || f.Day[0] != 1 {
		t.Errorf("expected Jan 1, got month=%d day=%d", f.Month[0], f.Day[0])
	}
	if f.Weekday[0] != 2 {
		t.Errorf("2020-01-01 is Wednesday, expected weekday 2, got %d", f.Weekday[0])
	}
	if f.IsWeekend[0] {
		t.Error("Wednesday should not be weekend")
	}

	// Saturday starts 3 days in.
	sat := 3 * 24
	if f.Weekday[sat] != 5 || !f.IsWeekend[sat] {
		t.Errorf("expected Saturday (weekday 5, weekend), got weekday=%d weekend=%v",
			f.Weekday[sat], f.IsWeekend[sat])
	}
}

func TestFeaturesFractionalHour(t *testing.T) {
	start := time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC)
	tl := mustTimeline(t, start, 1, 15*time.Minute)
	f := tl.Features()

	// Index 58 is 14:30.
	i := 14*4 + 2
	if f.Hour[i] != 14.5 {
		t.Errorf("expected fractional hour 14.5, got %v", f.Hour[i])
	}
	if f.MinuteOfDay[i] != 14*60+30 {
		t.Errorf("expected minute-of-day %d, got %d", 14*60+30, f.MinuteOfDay[i])
	}
}

func TestDayRanges(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	tl := mustTimeline(t, start, 3, time.Minute)
	f := tl.Features()

	ranges := f.DayRanges()
	if len(ranges) != 3 {
		t.Fatalf("expected 3 day ranges, got %d", len(ranges))
	}
	for d, r := range ranges {
		if r[1]-r[0] != 24*60 {
			t.Errorf("day %d: expected 1440 rows, got %d", d, r[1]-r[0])
		}
		for i := r[0]; i < r[1]; i++ {
			if f.DayKey[i] != d {
				t.Fatalf("index %d: expected day key %d, got %d", i, d, f.DayKey[i])
			}
		}
	}
}

func TestDayKeyIncrementsAtMidnight(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	tl := mustTimeline(t, start, 2, time.Minute)
	f := tl.Features()

	lastOfDay0 := 24*60 - 1
	if f.DayKey[lastOfDay0] != 0 {
		t.Errorf("23:59 should still be day 0, got %d", f.DayKey[lastOfDay0])
	}
	if f.DayKey[lastOfDay0+1] != 1 {
		t.Errorf("00:00 next day should be day 1, got %d", f.DayKey[lastOfDay0+1])
	}
}
