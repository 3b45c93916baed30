package data

import (
	"testing"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// countingDevice records how many tensors were placed on it.
type countingDevice struct {
	puts int
}

func (d *countingDevice) Put(t *tensors.Tensor) (*tensors.Tensor, error) {
	d.puts++
	return t, nil
}

func testInteraction(t *testing.T) *Interaction {
	t.Helper()
	tbl := NewTable().
		WithColumn("user_id", Tokens([]int64{1, 2, 3})).
		WithColumn("item_id", Tokens([]int64{10, 20, 30})).
		WithColumn("rating", Floats([]float32{5, 4, 3}))
	in, err := NewInteraction(tbl)
	if err != nil {
		t.Fatalf("NewInteraction error: %v", err)
	}
	return in
}

func TestInteractionLengthInvariant(t *testing.T) {
	tbl := NewTable().
		WithColumn("user_id", Tokens([]int64{1, 2})).
		WithColumn("item_id", Tokens([]int64{10}))
	if _, err := NewInteraction(tbl); err == nil {
		t.Fatalf("expected error for columns of different lengths")
	}
}

func TestInteractionGetMissingField(t *testing.T) {
	in := testInteraction(t)
	if _, err := in.Get("nope"); err == nil {
		t.Fatalf("expected error for missing field")
	}
}

func TestInteractionSlicePreservesOrderAndLength(t *testing.T) {
	in := testInteraction(t)
	sliced := in.Slice(1, 3)
	if sliced.Len() != 2 {
		t.Fatalf("slice length = %d, want 2", sliced.Len())
	}
	fields := sliced.Fields()
	want := []string{"user_id", "item_id", "rating"}
	for i := range want {
		if fields[i] != want[i] {
			t.Fatalf("field order %v, want %v", fields, want)
		}
	}
	col, err := sliced.Get("user_id")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if col.TokenValues()[0] != 2 {
		t.Fatalf("sliced user_id[0] = %d, want 2", col.TokenValues()[0])
	}
}

func TestInteractionRepeat(t *testing.T) {
	in := testInteraction(t)
	rep := in.Repeat(2)
	if rep.Len() != 6 {
		t.Fatalf("repeated length = %d, want 6", rep.Len())
	}
	col, _ := rep.Get("item_id")
	if col.TokenValues()[3] != 10 {
		t.Fatalf("repeated item_id[3] = %d, want 10", col.TokenValues()[3])
	}
}

func TestInteractionUpdateOverwrites(t *testing.T) {
	in := testInteraction(t)
	patchTbl := NewTable().
		WithColumn("rating", Floats([]float32{1, 1, 1})).
		WithColumn("label", Floats([]float32{1, 0, 1}))
	patch, err := NewInteraction(patchTbl)
	if err != nil {
		t.Fatalf("NewInteraction error: %v", err)
	}
	in.Update(patch)
	col, _ := in.Get("rating")
	if col.FloatValues()[0] != 1 {
		t.Fatalf("rating not overwritten, got %v", col.FloatValues()[0])
	}
	if !in.Has("label") {
		t.Fatalf("label field not merged")
	}
	uid, _ := in.Get("user_id")
	if uid.TokenValues()[0] != 1 {
		t.Fatalf("untouched field changed by update")
	}
}

func TestInteractionToSelectedFields(t *testing.T) {
	in := testInteraction(t)
	dev := &countingDevice{}
	out, err := in.To(dev, "user_id")
	if err != nil {
		t.Fatalf("To error: %v", err)
	}
	if dev.puts != 1 {
		t.Fatalf("placed %d tensors, want 1", dev.puts)
	}
	if out.Len() != in.Len() {
		t.Fatalf("To changed the length: %d != %d", out.Len(), in.Len())
	}
}

func TestInteractionToFallsBackOnBadSelector(t *testing.T) {
	in := testInteraction(t)
	dev := &countingDevice{}
	// One of the selected fields does not exist: the selector is
	// abandoned and every field is transferred.
	if _, err := in.To(dev, "user_id", "missing"); err != nil {
		t.Fatalf("To error: %v", err)
	}
	if dev.puts != 3 {
		t.Fatalf("placed %d tensors, want all 3", dev.puts)
	}
}

func TestInteractionToDeviceRepeatInterleave(t *testing.T) {
	in := testInteraction(t)
	dev := &countingDevice{}
	out, err := in.ToDeviceRepeatInterleave(dev, 3)
	if err != nil {
		t.Fatalf("ToDeviceRepeatInterleave error: %v", err)
	}
	if out.Len() != 9 {
		t.Fatalf("interleaved length = %d, want 9", out.Len())
	}
	col, _ := out.Get("user_id")
	want := []int64{1, 1, 1, 2, 2, 2, 3, 3, 3}
	for i, v := range want {
		if col.TokenValues()[i] != v {
			t.Fatalf("interleaved user_id = %v, want %v", col.TokenValues(), want)
		}
	}
}
