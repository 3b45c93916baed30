package sampler

import (
	"math"
	"math/rand"
)

// aliasCell is one slot of a Walker alias table.
type aliasCell struct {
	prob  float64
	alias int64
}

// buildAlias builds an alias table for O(1) weighted sampling over the
// given distribution, after raising every weight to power (0.75 is the
// usual smoothing for popularity sampling).
func buildAlias(distribution []float64, power float64) []aliasCell {
	n := len(distribution)
	if n == 0 {
		return nil
	}

	table := make([]aliasCell, n)

	sum := 0.0
	norm := make([]float64, n)
	for i := range n {
		if distribution[i] > 0 {
			norm[i] = math.Pow(distribution[i], power)
		}
		sum += norm[i]
	}
	if sum == 0 {
		// Degenerate input: fall back to uniform.
		for i := range n {
			table[i] = aliasCell{prob: 1.0, alias: int64(i)}
		}
		return table
	}
	for i := range n {
		norm[i] = norm[i] * float64(n) / sum
	}

	small := make([]int, 0, n)
	large := make([]int, 0, n)
	for i := range n {
		if norm[i] < 1.0 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	for len(small) > 0 && len(large) > 0 {
		l := small[len(small)-1]
		small = small[:len(small)-1]
		g := large[len(large)-1]
		large = large[:len(large)-1]

		table[l] = aliasCell{prob: norm[l], alias: int64(g)}

		norm[g] = norm[g] + norm[l] - 1.0
		if norm[g] < 1.0 {
			small = append(small, g)
		} else {
			large = append(large, g)
		}
	}
	for len(large) > 0 {
		g := large[len(large)-1]
		large = large[:len(large)-1]
		table[g] = aliasCell{prob: 1.0, alias: int64(g)}
	}
	for len(small) > 0 {
		l := small[len(small)-1]
		small = small[:len(small)-1]
		table[l] = aliasCell{prob: 1.0, alias: int64(l)}
	}
	return table
}

// sampleAlias draws one index from the alias table in O(1).
func sampleAlias(table []aliasCell, rng *rand.Rand) int64 {
	if len(table) == 0 {
		return -1
	}
	i := rng.Intn(len(table))
	if rng.Float64() < table[i].prob {
		return int64(i)
	}
	return table[i].alias
}
