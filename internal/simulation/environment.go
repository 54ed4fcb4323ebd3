// Package simulation contains the generative models for the synthetic
// apartment: environmental channels, per-person behavior, and the
// apartment-level aggregation that merges them into sensor streams.
//
// Responsibilities:
//   - Generate indoor temperature, humidity, and fridge power with their
//     explicit cross-channel dependencies (temperature → humidity → fridge)
//   - Simulate per-person presence, sleep, and window/door/room events
//   - Aggregate persons into apartment-level window/door/motion streams
//   - Keep every stochastic stream on its own derived seed so identical
//     inputs reproduce bit-identical output
package simulation

import (
	"fmt"
	"math"
	"time"

	"github.com/homesense/sensorsim/internal/timeline"
)

// sydneyClimate holds per-month {min, avg, max} outdoor temperature in °C.
// Southern-hemisphere seasonality: warmest in January, coolest in July.
var sydneyClimate = [12][3]float64{
	{18.0, 23.5, 27.0}, // Jan
	{18.5, 23.5, 27.0}, // Feb
	{17.0, 22.5, 26.0}, // Mar
	{14.0, 20.0, 24.0}, // Apr
	{11.0, 17.0, 21.0}, // May
	{9.0, 14.5, 18.0},  // Jun
	{8.0, 13.5, 17.0},  // Jul
	{8.5, 14.5, 19.0},  // Aug
	{10.5, 17.0, 22.0}, // Sep
	{13.0, 19.5, 24.0}, // Oct
	{15.0, 21.5, 25.0}, // Nov
	{16.5, 22.5, 26.0}, // Dec
}

// monthlyBaseHumidity is the per-month baseline relative humidity in %.
var monthlyBaseHumidity = [12]float64{72, 72, 68, 65, 62, 58, 56, 58, 62, 66, 68, 72}

const (
	comfortTemp = 22.0 // indoor setpoint the dwelling regulates toward

	tempMin = 15.0
	tempMax = 30.0

	humidityMin = 30.0
	humidityMax = 90.0

	// Fridge compressor duty cycle: first 20 minutes of each hour ON.
	fridgeCycleMinutes = 60
	fridgeOnMinutes    = 20
)

// EnvironmentGenerator produces the three environmental channels for a
// timeline. Channels must be generated in dependency order: temperature
// first, then humidity (which reads temperature), then fridge power (which
// reads both). Generate runs the full chain.
type EnvironmentGenerator struct {
	tl   *timeline.Timeline
	seed int64
}

// EnvironmentReadings holds the generated environmental channels, parallel
// to the timeline.
type EnvironmentReadings struct {
	Temperature []float64
	Humidity    []float64
	FridgePower []float64
}

// NewEnvironmentGenerator creates a generator bound to a timeline. The seed
// is the run's base seed; each channel derives its own sub-stream from it.
func NewEnvironmentGenerator(tl *timeline.Timeline, seed int64) *EnvironmentGenerator {
	return &EnvironmentGenerator{tl: tl, seed: seed}
}

// Generate produces all three channels in dependency order.
func (g *EnvironmentGenerator) Generate() (*EnvironmentReadings, error) {
	temp := g.Temperature()
	hum, err := g.Humidity(temp)
	if err != nil {
		return nil, err
	}
	power, err := g.FridgePower(temp, hum)
	if err != nil {
		return nil, err
	}
	return &EnvironmentReadings{Temperature: temp, Humidity: hum, FridgePower: power}, nil
}

// Temperature generates indoor temperature in °C.
//
// Outdoor temperature follows the monthly climatology with a per-calendar-day
// fluctuation and a diurnal sinusoid peaking mid-afternoon (minimum near
// 02:00, maximum near 14:00). Indoor temperature is the comfort setpoint
// pulled 30% toward outdoor, plus measurement noise.
func (g *EnvironmentGenerator) Temperature() []float64 {
	f := g.tl.Features()
	n := g.tl.Len()
	rng := newRand(DeriveSeed(g.seed, "env.temperature"))

	out := make([]float64, n)
	fluct := 0.0
	prevDay := -1
	for i := 0; i < n; i++ {
		if f.DayKey[i] != prevDay {
			fluct = uniform(rng, -2, 2)
			prevDay = f.DayKey[i]
		}
		clim := sydneyClimate[f.Month[i]-1]
		mid := clim[1] + fluct
		amp := (clim[2] - clim[0]) / 2

		outdoor := mid + amp*math.Sin(math.Pi*(f.Hour[i]-8)/12)
		indoor := comfortTemp + 0.3*(outdoor-comfortTemp) + uniform(rng, -1, 1)
		out[i] = round2(clampFinite(indoor, tempMin, tempMax))
	}
	return out
}

// Humidity generates relative humidity in %, coupled to temperature: warmer
// indoor air reads drier. The monthly baseline is interpolated across the
// month so there is no step at month boundaries, and the additive noise is
// smoothed with a short moving average so consecutive readings stay
// autocorrelated.
func (g *EnvironmentGenerator) Humidity(temperature []float64) ([]float64, error) {
	n := g.tl.Len()
	if len(temperature) != n {
		return nil, fmt.Errorf("humidity: temperature length %d does not match timeline length %d", len(temperature), n)
	}
	f := g.tl.Features()
	rng := newRand(DeriveSeed(g.seed, "env.humidity"))

	noise := make([]float64, n)
	for i := range noise {
		noise[i] = uniform(rng, -3, 3)
	}
	smooth := movingAverage(noise, 5)

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		cur := monthlyBaseHumidity[f.Month[i]-1]
		next := monthlyBaseHumidity[f.Month[i]%12]
		frac := float64(f.Day[i]-1) / float64(daysInMonth(g.tl.At(i).Year(), f.Month[i]))
		base := cur + (next-cur)*frac

		diurnal := 5 * math.Sin(math.Pi*(f.Hour[i]-20)/12)
		coupling := -1.5 * (temperature[i] - comfortTemp)

		out[i] = round2(clampFinite(base+diurnal+coupling+smooth[i], humidityMin, humidityMax))
	}
	return out, nil
}

// FridgePower generates fridge power draw in watts. The compressor runs the
// first 20 minutes of every hour: a ramp from ~140W down to ~100W, scaled by
// a seasonal factor and loaded by ambient temperature and humidity. Off-cycle
// draw is standby (~10W).
func (g *EnvironmentGenerator) FridgePower(temperature, humidity []float64) ([]float64, error) {
	n := g.tl.Len()
	if len(temperature) != n {
		return nil, fmt.Errorf("fridge: temperature length %d does not match timeline length %d", len(temperature), n)
	}
	if len(humidity) != n {
		return nil, fmt.Errorf("fridge: humidity length %d does not match timeline length %d", len(humidity), n)
	}
	f := g.tl.Features()
	rng := newRand(DeriveSeed(g.seed, "env.fridge"))

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		cyclePos := f.MinuteOfDay[i] % fridgeCycleMinutes
		if cyclePos < fridgeOnMinutes {
			tNorm := float64(cyclePos) / fridgeOnMinutes
			p := 140 - 40*tNorm + uniform(rng, -3, 3)

			seasonal := 1 + 0.3*math.Sin(2*math.Pi*float64(f.DayOfYear[i])/365-math.Pi/2)
			p *= seasonal

			p += 5 * math.Max(temperature[i]-4, 0)
			p += clampFinite(0.2*(humidity[i]-50), 0, 10)
			out[i] = round2(math.Max(p, 0))
		} else {
			out[i] = round2(math.Max(10+uniform(rng, -2, 2), 0))
		}
	}
	return out, nil
}

// movingAverage returns a centered moving average of values with the given
// window. Edges average over the indices actually available.
func movingAverage(values []float64, window int) []float64 {
	if window <= 1 {
		return values
	}
	half := window / 2
	out := make([]float64, len(values))
	for i := range values {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi >= len(values) {
			hi = len(values) - 1
		}
		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// clampFinite clamps v into [lo, hi]. Non-finite inputs land mid-range so a
// bad intermediate value can never surface as NaN in the dataset.
func clampFinite(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return (lo + hi) / 2
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// daysInMonth returns the calendar length of the month, leap years included.
func daysInMonth(y, m int) int {
	return time.Date(y, time.Month(m)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
