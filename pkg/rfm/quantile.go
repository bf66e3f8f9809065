package rfm

import (
	"fmt"
	"math"
	"sort"
)

// QCut assigns each value to one of q equal-population buckets (0-based).
// Edges are the k/q quantiles of values (linear interpolation); each bucket is
// right-closed, and the minimum value falls into bucket 0. Duplicate edges or
// an empty bucket are rejected with ErrDegenerateDistribution. An empty input
// yields no buckets.
func QCut(values []float64, q int) ([]int, []float64, error) {
	if q < 1 {
		return nil, nil, fmt.Errorf("bucket count must be positive, got %d", q)
	}
	if len(values) == 0 {
		return []int{}, nil, nil
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	edges := make([]float64, q+1)
	for i := range edges {
		edges[i] = quantile(sorted, float64(i)/float64(q))
	}
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			return nil, edges, fmt.Errorf("%w: %v", ErrDegenerateDistribution, edges)
		}
	}

	buckets := make([]int, len(values))
	counts := make([]int, q)
	for i, v := range values {
		b := sort.SearchFloat64s(edges, v) - 1
		if b < 0 {
			b = 0
		}
		buckets[i] = b
		counts[b]++
	}
	for b, n := range counts {
		if n == 0 {
			return nil, edges, fmt.Errorf("%w: bucket %d of %d is empty", ErrDegenerateDistribution, b+1, q)
		}
	}
	return buckets, edges, nil
}

// quantile interpolates linearly between the two closest ranks of sorted.
func quantile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	a, b := sorted[lo], sorted[lo+1]
	t := pos - float64(lo)
	if t >= 0.5 {
		return b - (b-a)*(1-t)
	}
	return a + (b-a)*t
}

// RankFirst returns the 1-based rank of each value; equal values are ranked
// in order of first occurrence, so every rank is unique.
func RankFirst(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] < values[idx[b]]
	})

	ranks := make([]float64, len(values))
	for pos, i := range idx {
		ranks[i] = float64(pos + 1)
	}
	return ranks
}
