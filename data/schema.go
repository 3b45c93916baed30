package data

import "fmt"

// Schema is an immutable registry of field metadata: the field type and
// the maximum sequence length used when converting sequence fields to
// tensors. Loaders that introduce synthetic fields (labels, negative
// item columns) derive an extended Schema with WithField rather than
// mutating a shared registry, so construction order cannot change what
// another component sees.
type Schema struct {
	types  map[string]FieldType
	seqlen map[string]int
}

// NewSchema returns an empty schema.
func NewSchema() Schema {
	return Schema{
		types:  map[string]FieldType{},
		seqlen: map[string]int{},
	}
}

// WithField returns a copy of the schema with the given field
// registered. Scalar fields should pass seqlen 1. Registering an
// already-known field overwrites its metadata in the copy only.
func (s Schema) WithField(name string, ftype FieldType, seqlen int) Schema {
	out := Schema{
		types:  make(map[string]FieldType, len(s.types)+1),
		seqlen: make(map[string]int, len(s.seqlen)+1),
	}
	for k, v := range s.types {
		out.types[k] = v
	}
	for k, v := range s.seqlen {
		out.seqlen[k] = v
	}
	out.types[name] = ftype
	out.seqlen[name] = seqlen
	return out
}

// Type returns the registered type of a field.
func (s Schema) Type(name string) (FieldType, bool) {
	t, ok := s.types[name]
	return t, ok
}

// SeqLen returns the registered maximum sequence length of a field.
func (s Schema) SeqLen(name string) int {
	return s.seqlen[name]
}

// Has reports whether the field is registered.
func (s Schema) Has(name string) bool {
	_, ok := s.types[name]
	return ok
}

// Check verifies that every field of the table has a registered type and
// sequence length. Loaders call this before conversion so schema bugs
// surface before iteration starts.
func (s Schema) Check(tbl *Table) error {
	for _, name := range tbl.Fields() {
		t, ok := s.types[name]
		if !ok {
			return fmt.Errorf("field %q has no registered type", name)
		}
		if t.Seq() && s.seqlen[name] <= 0 {
			return fmt.Errorf("sequence field %q has no registered seqlen", name)
		}
	}
	return nil
}
