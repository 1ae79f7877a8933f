package backtest

import (
	"math/rand"
	"sort"
	"time"
)

// Source yields uniform random values in [0, 1). The simulator takes all
// of its randomness through this seam so tests can substitute a
// deterministic sequence. Production uses an unseeded-equivalent source;
// reproducibility across runs is explicitly not a goal.
type Source interface {
	Float64() float64
}

// NewSource returns a time-seeded random source
func NewSource() Source {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// PickWeighted draws one key from a weight map using cumulative-weight
// sampling: r is a uniform value in [0, 1) scaled across the total weight.
// Keys are visited in lexical order so the same r always lands on the
// same key. Returns "" when the map is empty or all weights are zero.
func PickWeighted(weights map[string]int, r float64) string {
	if len(weights) == 0 {
		return ""
	}

	names := make([]string, 0, len(weights))
	total := 0
	for name, w := range weights {
		names = append(names, name)
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return ""
	}
	sort.Strings(names)

	target := r * float64(total)
	for _, name := range names {
		w := weights[name]
		if w <= 0 {
			continue
		}
		target -= float64(w)
		if target < 0 {
			return name
		}
	}
	return names[len(names)-1]
}
