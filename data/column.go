package data

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// FieldType describes how the raw values of a field are stored and how
// they are converted into tensors.
type FieldType string

const (
	// Token fields hold a single integer id per row.
	Token FieldType = "token"
	// Float fields hold a single float32 per row.
	Float FieldType = "float"
	// TokenSeq fields hold a variable-length list of integer ids per row.
	TokenSeq FieldType = "token_seq"
	// FloatSeq fields hold a variable-length list of float32 per row.
	FloatSeq FieldType = "float_seq"
)

// Valid reports whether t is one of the four supported field types.
func (t FieldType) Valid() bool {
	switch t {
	case Token, Float, TokenSeq, FloatSeq:
		return true
	}
	return false
}

// Seq reports whether t is a sequence type.
func (t FieldType) Seq() bool {
	return t == TokenSeq || t == FloatSeq
}

// Column is a homogeneous array of values for one field. Exactly one of
// the backing slices is populated, selected by the field type. Column
// values are the unit stored in Tables and Interactions; all batch
// expansion (slicing, tiling, interleaving) happens at this level so
// every field of a batch is transformed identically.
type Column struct {
	ftype     FieldType
	tokens    []int64
	floats    []float32
	tokenSeqs [][]int64
	floatSeqs [][]float32
}

// Tokens builds a token column over vals. The slice is retained.
func Tokens(vals []int64) *Column {
	return &Column{ftype: Token, tokens: vals}
}

// Floats builds a float column over vals. The slice is retained.
func Floats(vals []float32) *Column {
	return &Column{ftype: Float, floats: vals}
}

// TokenSeqs builds a token-sequence column. Rows may have different
// lengths; padding happens at tensor-conversion time.
func TokenSeqs(rows [][]int64) *Column {
	return &Column{ftype: TokenSeq, tokenSeqs: rows}
}

// FloatSeqs builds a float-sequence column.
func FloatSeqs(rows [][]float32) *Column {
	return &Column{ftype: FloatSeq, floatSeqs: rows}
}

// Type returns the field type of the column.
func (c *Column) Type() FieldType { return c.ftype }

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	switch c.ftype {
	case Token:
		return len(c.tokens)
	case Float:
		return len(c.floats)
	case TokenSeq:
		return len(c.tokenSeqs)
	case FloatSeq:
		return len(c.floatSeqs)
	}
	return 0
}

// TokenValues returns the backing slice of a token column, or nil for
// any other type.
func (c *Column) TokenValues() []int64 { return c.tokens }

// FloatValues returns the backing slice of a float column, or nil for
// any other type.
func (c *Column) FloatValues() []float32 { return c.floats }

// TokenSeqValues returns the backing rows of a token-sequence column.
func (c *Column) TokenSeqValues() [][]int64 { return c.tokenSeqs }

// FloatSeqValues returns the backing rows of a float-sequence column.
func (c *Column) FloatSeqValues() [][]float32 { return c.floatSeqs }

// Slice returns a view over rows [lo, hi). The view shares backing
// storage with the original column.
func (c *Column) Slice(lo, hi int) *Column {
	switch c.ftype {
	case Token:
		return &Column{ftype: Token, tokens: c.tokens[lo:hi]}
	case Float:
		return &Column{ftype: Float, floats: c.floats[lo:hi]}
	case TokenSeq:
		return &Column{ftype: TokenSeq, tokenSeqs: c.tokenSeqs[lo:hi]}
	case FloatSeq:
		return &Column{ftype: FloatSeq, floatSeqs: c.floatSeqs[lo:hi]}
	}
	return c
}

// Gather returns a new column holding the rows addressed by idx, in
// order. Indices may repeat.
func (c *Column) Gather(idx []int) *Column {
	switch c.ftype {
	case Token:
		out := make([]int64, len(idx))
		for i, j := range idx {
			out[i] = c.tokens[j]
		}
		return Tokens(out)
	case Float:
		out := make([]float32, len(idx))
		for i, j := range idx {
			out[i] = c.floats[j]
		}
		return Floats(out)
	case TokenSeq:
		out := make([][]int64, len(idx))
		for i, j := range idx {
			out[i] = c.tokenSeqs[j]
		}
		return TokenSeqs(out)
	case FloatSeq:
		out := make([][]float32, len(idx))
		for i, j := range idx {
			out[i] = c.floatSeqs[j]
		}
		return FloatSeqs(out)
	}
	return c
}

// Repeat tiles the whole column n times: [a b] -> [a b a b ...].
func (c *Column) Repeat(n int) *Column {
	ln := c.Len()
	idx := make([]int, 0, ln*n)
	for range n {
		for i := range ln {
			idx = append(idx, i)
		}
	}
	return c.Gather(idx)
}

// RepeatInterleave repeats each row n times in place:
// [a b] -> [a a b b ...].
func (c *Column) RepeatInterleave(n int) *Column {
	ln := c.Len()
	idx := make([]int, 0, ln*n)
	for i := range ln {
		for range n {
			idx = append(idx, i)
		}
	}
	return c.Gather(idx)
}

// Concat appends other to c and returns the combined column. The two
// columns must share a field type.
func (c *Column) Concat(other *Column) (*Column, error) {
	if c.ftype != other.ftype {
		return nil, fmt.Errorf("cannot concat column of type %q with %q", c.ftype, other.ftype)
	}
	switch c.ftype {
	case Token:
		return Tokens(append(append([]int64{}, c.tokens...), other.tokens...)), nil
	case Float:
		return Floats(append(append([]float32{}, c.floats...), other.floats...)), nil
	case TokenSeq:
		return TokenSeqs(append(append([][]int64{}, c.tokenSeqs...), other.tokenSeqs...)), nil
	case FloatSeq:
		return FloatSeqs(append(append([][]float32{}, c.floatSeqs...), other.floatSeqs...)), nil
	}
	return nil, fmt.Errorf("unknown column type %q", c.ftype)
}

// Clone returns a deep copy of the column. Sequence rows are copied as
// well, so mutating the clone never aliases the source.
func (c *Column) Clone() *Column {
	switch c.ftype {
	case Token:
		return Tokens(append([]int64{}, c.tokens...))
	case Float:
		return Floats(append([]float32{}, c.floats...))
	case TokenSeq:
		rows := make([][]int64, len(c.tokenSeqs))
		for i, r := range c.tokenSeqs {
			rows[i] = append([]int64{}, r...)
		}
		return TokenSeqs(rows)
	case FloatSeq:
		rows := make([][]float32, len(c.floatSeqs))
		for i, r := range c.floatSeqs {
			rows[i] = append([]float32{}, r...)
		}
		return FloatSeqs(rows)
	}
	return c
}

// Tensor materializes the column as a gomlx tensor. Scalar columns
// become 1D tensors; sequence columns are zero-padded on the right to
// the longest row and become 2D tensors.
func (c *Column) Tensor() *tensors.Tensor {
	switch c.ftype {
	case Token:
		return tensors.FromAnyValue(c.tokens)
	case Float:
		return tensors.FromAnyValue(c.floats)
	case TokenSeq:
		width := 0
		for _, r := range c.tokenSeqs {
			if len(r) > width {
				width = len(r)
			}
		}
		padded := make([][]int64, len(c.tokenSeqs))
		for i, r := range c.tokenSeqs {
			row := make([]int64, width)
			copy(row, r)
			padded[i] = row
		}
		return tensors.FromAnyValue(padded)
	case FloatSeq:
		width := 0
		for _, r := range c.floatSeqs {
			if len(r) > width {
				width = len(r)
			}
		}
		padded := make([][]float32, len(c.floatSeqs))
		for i, r := range c.floatSeqs {
			row := make([]float32, width)
			copy(row, r)
			padded[i] = row
		}
		return tensors.FromAnyValue(padded)
	}
	return nil
}
