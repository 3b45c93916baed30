package data

import (
	"testing"
)

func TestColumnGatherRepeat(t *testing.T) {
	col := Tokens([]int64{1, 2, 3})

	got := col.Repeat(2).TokenValues()
	want := []int64{1, 2, 3, 1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("Repeat length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Repeat[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	got = col.RepeatInterleave(2).TokenValues()
	want = []int64{1, 1, 2, 2, 3, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("RepeatInterleave[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestColumnRepeatDoesNotAliasSource(t *testing.T) {
	src := []int64{1, 2, 3}
	col := Tokens(src)
	rep := col.Repeat(2)
	rep.TokenValues()[0] = 99
	if src[0] != 1 {
		t.Fatalf("Repeat aliased the source slice")
	}
}

func TestColumnSliceIsView(t *testing.T) {
	col := Floats([]float32{1, 2, 3, 4})
	view := col.Slice(1, 3)
	if view.Len() != 2 {
		t.Fatalf("Slice length = %d, want 2", view.Len())
	}
	if view.FloatValues()[0] != 2 {
		t.Fatalf("Slice[0] = %v, want 2", view.FloatValues()[0])
	}
}

func TestColumnConcatTypeMismatch(t *testing.T) {
	a := Tokens([]int64{1})
	b := Floats([]float32{1})
	if _, err := a.Concat(b); err == nil {
		t.Fatalf("expected error concatenating token with float column")
	}
}

func TestColumnTensorPadsSequences(t *testing.T) {
	col := TokenSeqs([][]int64{{1, 2, 3}, {4}})
	tensor := col.Tensor()
	if tensor == nil {
		t.Fatalf("Tensor returned nil")
	}
	shape := tensor.Shape()
	if len(shape.Dimensions) != 2 || shape.Dimensions[0] != 2 || shape.Dimensions[1] != 3 {
		t.Fatalf("sequence tensor shape = %v, want [2 3]", shape.Dimensions)
	}
}
