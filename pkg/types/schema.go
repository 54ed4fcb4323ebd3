// Package types defines the published dataset schema shared between the
// generator, the injector, and downstream detector code.
package types

// Column names in output order. Every dataset produced by sensorsim starts
// with these seven columns; labeled datasets append one indicator column per
// channel plus the overall indicator.
const (
	ColTimestamp   = "timestamp"
	ColTemperature = "temperature"
	ColHumidity    = "humidity"
	ColFridgePower = "fridge_power"
	ColWindow      = "sensor_window"
	ColDoor        = "sensor_door"
	ColMotion      = "sensor_motion"

	// ColOverallIndicator is the row-wise OR of every per-channel indicator.
	ColOverallIndicator = "is_anomaly"

	// indicatorPrefix prefixes per-channel ground-truth columns.
	indicatorPrefix = "is_anomaly_"
)

// FloatChannels are the continuous sensor channels, in output order.
var FloatChannels = []string{ColTemperature, ColHumidity, ColFridgePower}

// BinaryChannels are the 0/1 sensor channels, in output order.
var BinaryChannels = []string{ColWindow, ColDoor, ColMotion}

// Channels returns every sensor channel in output order.
func Channels() []string {
	out := make([]string, 0, len(FloatChannels)+len(BinaryChannels))
	out = append(out, FloatChannels...)
	out = append(out, BinaryChannels...)
	return out
}

// IndicatorColumn returns the ground-truth indicator column name for a
// sensor channel, e.g. "is_anomaly_temperature".
func IndicatorColumn(channel string) string {
	return indicatorPrefix + channel
}

// IsIndicatorColumn reports whether name is a per-channel indicator column.
// The overall indicator column is not a per-channel indicator.
func IsIndicatorColumn(name string) bool {
	if name == ColOverallIndicator {
		return false
	}
	return len(name) > len(indicatorPrefix) && name[:len(indicatorPrefix)] == indicatorPrefix
}

// IsFloatChannel reports whether name is one of the continuous channels.
func IsFloatChannel(name string) bool {
	for _, c := range FloatChannels {
		if c == name {
			return true
		}
	}
	return false
}

// IsBinaryChannel reports whether name is one of the 0/1 channels.
func IsBinaryChannel(name string) bool {
	for _, c := range BinaryChannels {
		if c == name {
			return true
		}
	}
	return false
}

// IsChannel reports whether name is any sensor channel.
func IsChannel(name string) bool {
	return IsFloatChannel(name) || IsBinaryChannel(name)
}
