package data

import "fmt"

// Table is an ordered collection of equally sized columns keyed by field
// name. It plays the role of the raw batch: loaders slice it, expand it
// with negative samples, and finally convert it to an Interaction.
type Table struct {
	names []string
	cols  map[string]*Column
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{cols: map[string]*Column{}}
}

// WithColumn appends (or replaces) a column and returns the table for
// chaining. A replaced column keeps its original position in the field
// order. The caller must keep column lengths equal; Len reports the
// length of the first column.
func (t *Table) WithColumn(name string, col *Column) *Table {
	if _, ok := t.cols[name]; !ok {
		t.names = append(t.names, name)
	}
	t.cols[name] = col
	return t
}

// Fields returns the field names in insertion order.
func (t *Table) Fields() []string { return t.names }

// Column returns the named column, or nil if absent.
func (t *Table) Column(name string) *Column { return t.cols[name] }

// Len returns the number of rows.
func (t *Table) Len() int {
	if len(t.names) == 0 {
		return 0
	}
	return t.cols[t.names[0]].Len()
}

// Slice returns a view over rows [lo, hi) of every column, clamped to
// the table length.
func (t *Table) Slice(lo, hi int) *Table {
	n := t.Len()
	if hi > n {
		hi = n
	}
	if lo > hi {
		lo = hi
	}
	out := NewTable()
	for _, name := range t.names {
		out.WithColumn(name, t.cols[name].Slice(lo, hi))
	}
	return out
}

// Gather returns a new table holding the rows addressed by idx for
// every column.
func (t *Table) Gather(idx []int) *Table {
	out := NewTable()
	for _, name := range t.names {
		out.WithColumn(name, t.cols[name].Gather(idx))
	}
	return out
}

// Repeat tiles the whole table n times.
func (t *Table) Repeat(n int) *Table {
	out := NewTable()
	for _, name := range t.names {
		out.WithColumn(name, t.cols[name].Repeat(n))
	}
	return out
}

// Concat appends other's rows. Field sets and orders must match.
func (t *Table) Concat(other *Table) (*Table, error) {
	if len(t.names) != len(other.names) {
		return nil, fmt.Errorf("cannot concat tables with %d and %d fields", len(t.names), len(other.names))
	}
	out := NewTable()
	for _, name := range t.names {
		oc := other.cols[name]
		if oc == nil {
			return nil, fmt.Errorf("field %q missing from concat operand", name)
		}
		col, err := t.cols[name].Concat(oc)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out.WithColumn(name, col)
	}
	return out, nil
}
