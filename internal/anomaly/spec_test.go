package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for k, name := range kindNames {
		parsed, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
		assert.Equal(t, name, parsed.String())
	}

	_, err := ParseKind("volcano")
	assert.Error(t, err)
}

func TestSpecValidateOK(t *testing.T) {
	s := Spec{Kind: KindDrift, Column: "temperature", Periods: 3}
	assert.Empty(t, s.Validate())

	s = Spec{Kind: KindStuck, Column: "sensor_window", Rate: 0.01}
	assert.Empty(t, s.Validate())
}

func TestSpecValidateFailures(t *testing.T) {
	stuckTwo := 2
	cases := []struct {
		name string
		spec Spec
	}{
		{"unknown kind", Spec{Kind: Kind(99), Column: "temperature"}},
		{"missing column", Spec{Kind: KindDrift}},
		{"unknown column", Spec{Kind: KindDrift, Column: "co2"}},
		{"numeric kind on binary column", Spec{Kind: KindDrift, Column: "sensor_door"}},
		{"binary kind on numeric column", Spec{Kind: KindStuck, Column: "humidity"}},
		{"negative periods", Spec{Kind: KindSpike, Column: "temperature", Periods: -1}},
		{"rate above 1", Spec{Kind: KindSpike, Column: "temperature", Rate: 1.5}},
		{"inverted length range", Spec{Kind: KindSpike, Column: "temperature", Length: IntRange{10, 2}}},
		{"zero-min length range", Spec{Kind: KindSpike, Column: "temperature", Length: IntRange{0, 5}}},
		{"inverted magnitude range", Spec{Kind: KindSpike, Column: "temperature", Magnitude: Range{5, 1}}},
		{"bad stuck value", Spec{Kind: KindStuck, Column: "sensor_motion", StuckAt: &stuckTwo}},
		{"restricted band out of range", Spec{Kind: KindFalseTrigger, Column: "sensor_motion",
			RestrictedHours: &HourBand{Start: -5, End: 100}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotEmpty(t, tc.spec.Validate())
		})
	}
}

func TestWithDefaults(t *testing.T) {
	s := Spec{Kind: KindDrift, Column: "temperature"}.withDefaults()
	assert.Equal(t, IntRange{30, 120}, s.Length)
	assert.Equal(t, Range{3, 8}, s.Magnitude)

	// Explicit values survive.
	s = Spec{Kind: KindDrift, Column: "temperature", Length: IntRange{5, 9}}.withDefaults()
	assert.Equal(t, IntRange{5, 9}, s.Length)

	o := Spec{Kind: KindOutage, Column: "fridge_power"}.withDefaults()
	assert.Equal(t, IntRange{10, 30}, o.Recovery)
	assert.Equal(t, Range{0, 5}, o.OutageLevel)
	assert.Equal(t, Range{200, 280}, o.RecoveryLevel)

	d := Spec{Kind: KindDegradation, Column: "fridge_power"}.withDefaults()
	assert.Equal(t, Range{1.2, 2.0}, d.Multiplier)
	assert.Equal(t, 50.0, d.ActivityThreshold)
}

func TestHourBandContains(t *testing.T) {
	// 00:30–05:30.
	band := HourBand{Start: 30, End: 330}
	assert.True(t, band.Contains(30))
	assert.True(t, band.Contains(200))
	assert.False(t, band.Contains(330))
	assert.False(t, band.Contains(720))

	// 23:00–01:00 wraps midnight.
	wrap := HourBand{Start: 23 * 60, End: 60}
	assert.True(t, wrap.Contains(23*60+30))
	assert.True(t, wrap.Contains(0))
	assert.False(t, wrap.Contains(61))
}
