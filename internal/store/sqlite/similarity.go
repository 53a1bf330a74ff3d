package sqlite

import (
	"cmp"
	"math"
	"slices"

	"github.com/viterin/vek/vek32"
)

// cosine returns the cosine similarity of a and b. ok is false when the
// vectors differ in length or either has zero magnitude.
func cosine(a, b []float32) (sim float64, ok bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	na := math.Sqrt(float64(vek32.Dot(a, a)))
	nb := math.Sqrt(float64(vek32.Dot(b, b)))
	if na == 0 || nb == 0 {
		return 0, false
	}
	return float64(vek32.Dot(a, b)) / (na * nb), true
}

type scored[T any] struct {
	id    int64
	sim   float64
	value T
}

// rank keeps candidates strictly above threshold, orders them by similarity
// descending then id ascending, and truncates to limit when limit > 0.
func rank[T any](candidates []scored[T], threshold float64, limit int) []scored[T] {
	kept := candidates[:0]
	for _, c := range candidates {
		if c.sim > threshold {
			kept = append(kept, c)
		}
	}
	slices.SortStableFunc(kept, func(a, b scored[T]) int {
		if c := cmp.Compare(b.sim, a.sim); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}
