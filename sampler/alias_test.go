package sampler

import (
	"math/rand"
	"testing"
)

func TestBuildAliasDrawsWithinRange(t *testing.T) {
	table := buildAlias([]float64{0, 3, 1, 6}, 0.75)
	if len(table) != 4 {
		t.Fatalf("table size = %d, want 4", len(table))
	}
	rng := rand.New(rand.NewSource(5))
	for range 1000 {
		id := sampleAlias(table, rng)
		if id < 0 || id > 3 {
			t.Fatalf("draw out of range: %d", id)
		}
		// Index 0 has zero weight and must never come up.
		if id == 0 {
			t.Fatalf("drew zero-weight index")
		}
	}
}

func TestBuildAliasDegenerateFallsBackToUniform(t *testing.T) {
	table := buildAlias([]float64{0, 0, 0}, 0.75)
	for i, cell := range table {
		if cell.prob != 1.0 || cell.alias != int64(i) {
			t.Fatalf("cell %d = %+v, want self with prob 1", i, cell)
		}
	}
}

func TestBuildAliasEmpty(t *testing.T) {
	if table := buildAlias(nil, 0.75); table != nil {
		t.Fatalf("expected nil table for empty distribution")
	}
	if id := sampleAlias(nil, rand.New(rand.NewSource(1))); id != -1 {
		t.Fatalf("empty table draw = %d, want -1", id)
	}
}
