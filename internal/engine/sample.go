package engine

import (
	"math/rand/v2"

	"dialogsmith/internal/grammar"
)

// Source supplies uniform draws in [0, 1).
type Source interface {
	Float64() float64
}

// NewSource returns a PCG source. A zero seed picks a random one; the seed
// in use is returned so a session can be replayed.
func NewSource(seed uint64) (Source, uint64) {
	if seed == 0 {
		seed = rand.Uint64() | 1
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), seed
}

// Sample draws one entry by cumulative weight: the first entry whose running
// total reaches a uniform draw in [0, total) wins.
func Sample(pool []grammar.TextEntry, src Source) (int, bool) {
	if len(pool) == 0 {
		return 0, false
	}
	draw := src.Float64() * grammar.TotalWeight(pool)
	cumulative := 0.0
	for i, entry := range pool {
		cumulative += entry.Weight
		if cumulative >= draw {
			return i, true
		}
	}
	return len(pool) - 1, true
}
