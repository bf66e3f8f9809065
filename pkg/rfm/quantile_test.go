package rfm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQCut_EqualPopulation(t *testing.T) {
	values := []float64{7, 1, 10, 4, 2, 9, 3, 6, 8, 5}

	buckets, edges, err := QCut(values, 5)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{1, 2.8, 4.6, 6.4, 8.2, 10}, edges, 1e-9)
	assert.Equal(t, []int{3, 0, 4, 1, 0, 4, 1, 2, 3, 2}, buckets)
}

func TestQCut_RightClosedBins(t *testing.T) {
	// edges: 0, 1, 2, 3, 4, 5 -> a value on an edge belongs to the lower bin
	values := []float64{0, 1, 2, 3, 4, 5}

	buckets, _, err := QCut(values, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1, 2, 3, 4}, buckets)
}

func TestQCut_EmptyBucket(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{"two values", []float64{10, 20}},
		{"four values", []float64{1, 2, 3, 4}},
		// edges 0, 0.8, 1, 4.6, 12, 20 are unique but nothing lands in (0.8, 1]
		{"gap between unique edges", []float64{0, 1, 1, 10, 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, edges, err := QCut(tt.values, 5)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDegenerateDistribution))
			assert.Len(t, edges, 6)
		})
	}
}

func TestQCut_Degenerate(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{"single value", []float64{42}},
		{"all equal", []float64{3, 3, 3, 3, 3, 3}},
		{"heavy ties", []float64{1, 1, 1, 1, 1, 1, 1, 1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := QCut(tt.values, 5)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDegenerateDistribution))
		})
	}
}

func TestQCut_Empty(t *testing.T) {
	buckets, edges, err := QCut(nil, 5)
	require.NoError(t, err)
	assert.Empty(t, buckets)
	assert.Nil(t, edges)
}

func TestQCut_InvalidBucketCount(t *testing.T) {
	_, _, err := QCut([]float64{1, 2}, 0)
	assert.Error(t, err)
}

func TestRankFirst(t *testing.T) {
	got := RankFirst([]float64{3, 1, 3, 2, 1})
	assert.Equal(t, []float64{4, 1, 5, 3, 2}, got)
}
