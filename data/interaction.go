package data

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Device places a materialized tensor onto an execution target. gomlx
// backends wrap their device-buffer upload behind this; tests use a
// pass-through device.
type Device interface {
	Put(t *tensors.Tensor) (*tensors.Tensor, error)
}

// Interaction is the unit of data handed from a data loader to model
// code: an ordered mapping from field name to a column, every column
// holding the same number of rows. An Interaction is created fresh for
// each batch and is read-mostly for consumers; the only mutating
// operation is Update.
type Interaction struct {
	names  []string
	cols   map[string]*Column
	placed map[string]*tensors.Tensor
}

// NewInteraction builds an Interaction over the table's columns. It
// fails if the columns do not all share one length.
func NewInteraction(tbl *Table) (*Interaction, error) {
	in := &Interaction{cols: map[string]*Column{}}
	length := -1
	for _, name := range tbl.Fields() {
		col := tbl.Column(name)
		if length == -1 {
			length = col.Len()
		} else if col.Len() != length {
			return nil, fmt.Errorf("field %q has %d rows, want %d", name, col.Len(), length)
		}
		in.names = append(in.names, name)
		in.cols[name] = col
	}
	return in, nil
}

// Len returns the number of rows shared by every field.
func (in *Interaction) Len() int {
	if len(in.names) == 0 {
		return 0
	}
	return in.cols[in.names[0]].Len()
}

// Fields returns the field names in order.
func (in *Interaction) Fields() []string { return in.names }

// Has reports whether the field is present.
func (in *Interaction) Has(name string) bool {
	_, ok := in.cols[name]
	return ok
}

// Get returns the raw column of a field. Absent fields are an error,
// mirroring a map-key miss.
func (in *Interaction) Get(name string) (*Column, error) {
	col, ok := in.cols[name]
	if !ok {
		return nil, fmt.Errorf("interaction has no field %q", name)
	}
	return col, nil
}

// Slice returns a new Interaction over rows [lo, hi) of every field.
func (in *Interaction) Slice(lo, hi int) *Interaction {
	out := &Interaction{cols: map[string]*Column{}}
	for _, name := range in.names {
		out.names = append(out.names, name)
		out.cols[name] = in.cols[name].Slice(lo, hi)
	}
	return out
}

// Row returns a one-row Interaction for the given index.
func (in *Interaction) Row(i int) *Interaction {
	return in.Slice(i, i+1)
}

// Gather returns a new Interaction holding the rows addressed by idx
// for every field. Indices may repeat.
func (in *Interaction) Gather(idx []int) *Interaction {
	out := &Interaction{cols: map[string]*Column{}}
	for _, name := range in.names {
		out.names = append(out.names, name)
		out.cols[name] = in.cols[name].Gather(idx)
	}
	return out
}

// Mask returns a new Interaction keeping only rows where sel is true.
// sel must be as long as the Interaction.
func (in *Interaction) Mask(sel []bool) (*Interaction, error) {
	if len(sel) != in.Len() {
		return nil, fmt.Errorf("mask has %d entries for %d rows", len(sel), in.Len())
	}
	idx := make([]int, 0, len(sel))
	for i, keep := range sel {
		if keep {
			idx = append(idx, i)
		}
	}
	return in.Gather(idx), nil
}

// Repeat tiles every field n times.
func (in *Interaction) Repeat(n int) *Interaction {
	out := &Interaction{cols: map[string]*Column{}}
	for _, name := range in.names {
		out.names = append(out.names, name)
		out.cols[name] = in.cols[name].Repeat(n)
	}
	return out
}

// To places the selected fields onto the device and returns a new
// Interaction; unselected fields pass through untouched. With no field
// names every field is placed. If any selected field does not exist the
// whole selection is abandoned and every field is placed instead; this
// fallback is deliberate and matches how evaluation code treats a
// malformed field selector.
func (in *Interaction) To(dev Device, fields ...string) (*Interaction, error) {
	selected := map[string]bool{}
	all := len(fields) == 0
	for _, f := range fields {
		if _, ok := in.cols[f]; !ok {
			all = true
			break
		}
		selected[f] = true
	}
	out := &Interaction{cols: map[string]*Column{}, placed: map[string]*tensors.Tensor{}}
	for _, name := range in.names {
		out.names = append(out.names, name)
		out.cols[name] = in.cols[name]
		if !all && !selected[name] {
			continue
		}
		t, err := dev.Put(in.cols[name].Tensor())
		if err != nil {
			return nil, fmt.Errorf("placing field %q: %w", name, err)
		}
		out.placed[name] = t
	}
	return out, nil
}

// ToDeviceRepeatInterleave repeats each row of every field `repeats`
// times and places the result on the device. Used by evaluation-time
// scoring to pair one user row with many candidate items.
func (in *Interaction) ToDeviceRepeatInterleave(dev Device, repeats int) (*Interaction, error) {
	out := &Interaction{cols: map[string]*Column{}, placed: map[string]*tensors.Tensor{}}
	for _, name := range in.names {
		col := in.cols[name].RepeatInterleave(repeats)
		t, err := dev.Put(col.Tensor())
		if err != nil {
			return nil, fmt.Errorf("placing field %q: %w", name, err)
		}
		out.names = append(out.names, name)
		out.cols[name] = col
		out.placed[name] = t
	}
	return out, nil
}

// Update merges other's fields into the receiver, overwriting on name
// collision and appending new fields at the end. Lengths are not
// validated; callers merging mismatched batches get what they asked
// for.
func (in *Interaction) Update(other *Interaction) {
	for _, name := range other.names {
		if _, ok := in.cols[name]; !ok {
			in.names = append(in.names, name)
		}
		in.cols[name] = other.cols[name]
		if t, ok := other.placed[name]; ok {
			if in.placed == nil {
				in.placed = map[string]*tensors.Tensor{}
			}
			in.placed[name] = t
		}
	}
}

// Tensor materializes one field as a gomlx tensor, preferring the
// device-placed copy when To has run.
func (in *Interaction) Tensor(name string) (*tensors.Tensor, error) {
	if t, ok := in.placed[name]; ok {
		return t, nil
	}
	col, err := in.Get(name)
	if err != nil {
		return nil, err
	}
	return col.Tensor(), nil
}

// Tensors materializes every field, in field order, returning parallel
// name and tensor slices ready for a gomlx training step.
func (in *Interaction) Tensors() ([]string, []*tensors.Tensor) {
	ts := make([]*tensors.Tensor, len(in.names))
	for i, name := range in.names {
		if t, ok := in.placed[name]; ok {
			ts[i] = t
			continue
		}
		ts[i] = in.cols[name].Tensor()
	}
	return append([]string{}, in.names...), ts
}
