package data

import "fmt"

// TableToInteraction converts a raw batch table into the Interaction
// handed to model code. Every field is dispatched on its schema type:
// token and float columns pass through as 1D arrays, sequence columns
// are right-truncated to the field's registered maximum length and then
// zero-padded to the longest remaining row so the batch stacks into a
// 2D array. A field whose type is unregistered, or whose stored values
// disagree with the registered type, is a schema bug and fails the
// whole batch.
func TableToInteraction(tbl *Table, schema Schema) (*Interaction, error) {
	out := NewTable()
	for _, name := range tbl.Fields() {
		ftype, ok := schema.Type(name)
		if !ok {
			return nil, fmt.Errorf("illegal ftype for field %q: not registered", name)
		}
		col := tbl.Column(name)
		if col.Type() != ftype {
			return nil, fmt.Errorf("field %q stored as %q but registered as %q", name, col.Type(), ftype)
		}
		switch ftype {
		case Token, Float:
			out.WithColumn(name, col)
		case TokenSeq:
			out.WithColumn(name, TokenSeqs(padTokenSeqs(col.TokenSeqValues(), schema.SeqLen(name))))
		case FloatSeq:
			out.WithColumn(name, FloatSeqs(padFloatSeqs(col.FloatSeqValues(), schema.SeqLen(name))))
		default:
			return nil, fmt.Errorf("illegal ftype %q for field %q", ftype, name)
		}
	}
	return NewInteraction(out)
}

func padTokenSeqs(rows [][]int64, maxLen int) [][]int64 {
	width := 0
	cut := make([][]int64, len(rows))
	for i, r := range rows {
		if len(r) > maxLen {
			r = r[:maxLen]
		}
		cut[i] = r
		if len(r) > width {
			width = len(r)
		}
	}
	out := make([][]int64, len(cut))
	for i, r := range cut {
		row := make([]int64, width)
		copy(row, r)
		out[i] = row
	}
	return out
}

func padFloatSeqs(rows [][]float32, maxLen int) [][]float32 {
	width := 0
	cut := make([][]float32, len(rows))
	for i, r := range rows {
		if len(r) > maxLen {
			r = r[:maxLen]
		}
		cut[i] = r
		if len(r) > width {
			width = len(r)
		}
	}
	out := make([][]float32, len(cut))
	for i, r := range cut {
		row := make([]float32, width)
		copy(row, r)
		out[i] = row
	}
	return out
}
