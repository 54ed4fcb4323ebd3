package dataset

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func testTimestamps(n int) []time.Time {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := make([]time.Time, n)
	for i := range ts {
		ts[i] = start.Add(time.Duration(i) * time.Minute)
	}
	return ts
}

func TestAddColumnValidation(t *testing.T) {
	tbl := New(testTimestamps(3))

	if err := tbl.AddFloat("temperature", []float64{1, 2, 3}); err != nil {
		t.Fatalf("AddFloat: %v", err)
	}
	if err := tbl.AddFloat("temperature", []float64{1, 2, 3}); err == nil {
		t.Error("expected error for duplicate column")
	}
	if err := tbl.AddFloat("humidity", []float64{1, 2}); err == nil {
		t.Error("expected error for length mismatch")
	}
	if err := tbl.AddBinary("", []bool{true, false, true}); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestColumnLookup(t *testing.T) {
	tbl := New(testTimestamps(2))
	if err := tbl.AddBinary("sensor_window", []bool{true, false}); err != nil {
		t.Fatalf("AddBinary: %v", err)
	}

	c, ok := tbl.Column("sensor_window")
	if !ok {
		t.Fatal("expected column to exist")
	}
	if c.Kind != Binary || !c.Bits[0] || c.Bits[1] {
		t.Errorf("unexpected column content: %+v", c)
	}
	if _, ok := tbl.Column("nope"); ok {
		t.Error("expected lookup miss")
	}
}

func TestCSVRoundTrip(t *testing.T) {
	tbl := New(testTimestamps(4))
	if err := tbl.AddFloat("temperature", []float64{22.15, 21.9, 23, 22.47}); err != nil {
		t.Fatalf("AddFloat: %v", err)
	}
	if err := tbl.AddBinary("sensor_window", []bool{false, true, true, false}); err != nil {
		t.Fatalf("AddBinary: %v", err)
	}
	if err := tbl.AddBinary("is_anomaly_temperature", []bool{false, false, true, false}); err != nil {
		t.Fatalf("AddBinary: %v", err)
	}

	var buf bytes.Buffer
	if err := tbl.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if got.Len() != tbl.Len() {
		t.Fatalf("expected %d rows, got %d", tbl.Len(), got.Len())
	}
	if !got.Timestamps[3].Equal(tbl.Timestamps[3]) {
		t.Errorf("timestamp mismatch: %s vs %s", got.Timestamps[3], tbl.Timestamps[3])
	}

	temp, _ := got.Column("temperature")
	if temp.Kind != Float {
		t.Fatal("temperature should read back as float")
	}
	if temp.Float[0] != 22.15 || temp.Float[2] != 23 {
		t.Errorf("float values lost in round trip: %v", temp.Float)
	}

	win, _ := got.Column("sensor_window")
	if win.Kind != Binary {
		t.Fatal("sensor_window should read back as binary")
	}
	if win.Bits[0] || !win.Bits[1] {
		t.Errorf("binary values lost in round trip: %v", win.Bits)
	}

	ind, _ := got.Column("is_anomaly_temperature")
	if ind.Kind != Binary || !ind.Bits[2] {
		t.Errorf("indicator column lost in round trip: %+v", ind)
	}
}

func TestCSVHeaderFormat(t *testing.T) {
	tbl := New(testTimestamps(1))
	_ = tbl.AddFloat("temperature", []float64{22})

	var buf bytes.Buffer
	if err := tbl.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "timestamp,temperature" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if lines[1] != "2020-01-01 00:00:00,22" {
		t.Errorf("unexpected row: %q", lines[1])
	}
}

func TestReadCSVErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"bad header", "time,temperature\n"},
		{"bad timestamp", "timestamp,temperature\nnot-a-time,22\n"},
		{"bad binary", "timestamp,sensor_window\n2020-01-01 00:00:00,2\n"},
		{"bad float", "timestamp,temperature\n2020-01-01 00:00:00,abc\n"},
		{"field count", "timestamp,temperature\n2020-01-01 00:00:00\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tc.in)); err == nil {
				t.Errorf("expected error for %s", tc.name)
			}
		})
	}
}
