// Package dataset holds the column-oriented table the pipeline assembles and
// the CSV codec used to persist and reload it.
package dataset

import (
	"fmt"
	"time"
)

// Kind distinguishes continuous from 0/1 columns.
type Kind int

const (
	Float Kind = iota
	Binary
)

// Column is one named series, parallel to the table's timestamps. Exactly
// one of Float/Bits is populated, matching Kind.
type Column struct {
	Name  string
	Kind  Kind
	Float []float64
	Bits  []bool
}

// Table is an ordered set of columns over a shared timestamp axis.
type Table struct {
	Timestamps []time.Time
	Columns    []*Column

	index map[string]int
}

// New creates an empty table over the given timestamps.
func New(timestamps []time.Time) *Table {
	return &Table{
		Timestamps: timestamps,
		index:      make(map[string]int),
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Timestamps) }

// AddFloat appends a continuous column. The series length must match the
// timestamp axis and the name must be unused.
func (t *Table) AddFloat(name string, values []float64) error {
	if err := t.checkAdd(name, len(values)); err != nil {
		return err
	}
	t.index[name] = len(t.Columns)
	t.Columns = append(t.Columns, &Column{Name: name, Kind: Float, Float: values})
	return nil
}

// AddBinary appends a 0/1 column.
func (t *Table) AddBinary(name string, values []bool) error {
	if err := t.checkAdd(name, len(values)); err != nil {
		return err
	}
	t.index[name] = len(t.Columns)
	t.Columns = append(t.Columns, &Column{Name: name, Kind: Binary, Bits: values})
	return nil
}

func (t *Table) checkAdd(name string, n int) error {
	if name == "" {
		return fmt.Errorf("dataset: column name is required")
	}
	if _, ok := t.index[name]; ok {
		return fmt.Errorf("dataset: duplicate column %q", name)
	}
	if n != t.Len() {
		return fmt.Errorf("dataset: column %q has %d rows, table has %d", name, n, t.Len())
	}
	return nil
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.Columns[i], true
}

// HasColumn reports whether the table contains a column with the name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}
