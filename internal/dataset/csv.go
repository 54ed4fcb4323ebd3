package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/homesense/sensorsim/pkg/types"
)

// timestampLayout is the wire format for the timestamp column.
const timestampLayout = "2006-01-02 15:04:05"

// WriteCSV writes the table with a header row. Floats keep their shortest
// exact representation; binary columns are 0/1.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := append([]string{types.ColTimestamp}, t.ColumnNames()...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(header))
	for i := 0; i < t.Len(); i++ {
		row[0] = t.Timestamps[i].Format(timestampLayout)
		for j, c := range t.Columns {
			switch c.Kind {
			case Float:
				row[j+1] = strconv.FormatFloat(c.Float[i], 'f', -1, 64)
			case Binary:
				if c.Bits[i] {
					row[j+1] = "1"
				} else {
					row[j+1] = "0"
				}
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to path, creating parent directories as needed.
func (t *Table) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := t.WriteCSV(f); err != nil {
		return err
	}
	return f.Close()
}

// ReadCSV loads a table previously written by WriteCSV. Column kinds are
// derived from the schema: sensor and indicator columns are binary,
// everything else is parsed as float.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 || header[0] != types.ColTimestamp {
		return nil, fmt.Errorf("unexpected header: first column must be %q", types.ColTimestamp)
	}

	names := header[1:]
	binary := make([]bool, len(names))
	for i, n := range names {
		binary[i] = types.IsBinaryChannel(n) || types.IsIndicatorColumn(n) || n == types.ColOverallIndicator
	}

	var timestamps []time.Time
	floatData := make([][]float64, len(names))
	bitData := make([][]bool, len(names))

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", line, len(header), len(rec))
		}

		ts, err := time.Parse(timestampLayout, rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad timestamp %q: %w", line, rec[0], err)
		}
		timestamps = append(timestamps, ts)

		for i, field := range rec[1:] {
			if binary[i] {
				switch field {
				case "0":
					bitData[i] = append(bitData[i], false)
				case "1":
					bitData[i] = append(bitData[i], true)
				default:
					return nil, fmt.Errorf("line %d: column %q: expected 0/1, got %q", line, names[i], field)
				}
			} else {
				v, err := strconv.ParseFloat(field, 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: column %q: %w", line, names[i], err)
				}
				floatData[i] = append(floatData[i], v)
			}
		}
	}

	t := New(timestamps)
	for i, n := range names {
		if binary[i] {
			if err := t.AddBinary(n, bitData[i]); err != nil {
				return nil, err
			}
		} else {
			if err := t.AddFloat(n, floatData[i]); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// ReadFile loads a table from a CSV file.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}
