package rfm

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfm-segmentation/pkg/models"
)

// population builds n customers with distinct recency, heavily tied
// frequency and continuous monetary values.
func population(n int, seed int64) []models.CustomerMetrics {
	rng := rand.New(rand.NewSource(seed))
	recencies := rng.Perm(n)
	out := make([]models.CustomerMetrics, n)
	for i := range out {
		out[i] = models.CustomerMetrics{
			CustomerID: fmt.Sprintf("%05d", 12346+i),
			Recency:    recencies[i],
			Frequency:  1 + rng.Intn(4),
			Monetary:   1 + rng.Float64()*5000,
		}
	}
	return out
}

func TestScore_Bounds(t *testing.T) {
	scored, err := Score(population(237, 1))
	require.NoError(t, err)
	require.Len(t, scored, 237)

	for _, c := range scored {
		assert.True(t, c.RecencyScore.Valid(), "recency score %d", c.RecencyScore)
		assert.True(t, c.FrequencyScore.Valid(), "frequency score %d", c.FrequencyScore)
		assert.True(t, c.MonetaryScore.Valid(), "monetary score %d", c.MonetaryScore)
	}
}

func TestScore_Monotonicity(t *testing.T) {
	scored, err := Score(population(300, 2))
	require.NoError(t, err)

	for _, a := range scored {
		for _, b := range scored {
			if a.Frequency < b.Frequency {
				assert.LessOrEqual(t, a.FrequencyScore, b.FrequencyScore)
			}
			if a.Recency < b.Recency {
				assert.GreaterOrEqual(t, a.RecencyScore, b.RecencyScore)
			}
			if a.Monetary < b.Monetary {
				assert.LessOrEqual(t, a.MonetaryScore, b.MonetaryScore)
			}
		}
	}
}

func TestScore_FrequencyBucketBalance(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{"divisible", 250},
		{"with remainder", 253},
		{"small", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := population(tt.n, 3)
			// every customer shares the same invoice count
			for i := range metrics {
				metrics[i].Frequency = 1
			}
			scored, err := Score(metrics)
			require.NoError(t, err)

			counts := map[models.Score]int{}
			for _, c := range scored {
				counts[c.FrequencyScore]++
			}
			require.Len(t, counts, Buckets)
			for s, c := range counts {
				assert.InDelta(t, float64(tt.n)/float64(Buckets), float64(c), 1, "score %d", s)
			}
		})
	}
}

func TestScore_FrequencyTiesBrokenByCustomerOrder(t *testing.T) {
	metrics := make([]models.CustomerMetrics, 10)
	for i := range metrics {
		metrics[i] = models.CustomerMetrics{
			CustomerID: fmt.Sprintf("c%02d", i),
			Recency:    i,
			Frequency:  2,
			Monetary:   float64(i + 1),
		}
	}

	scored, err := Score(metrics)
	require.NoError(t, err)

	got := make([]models.Score, len(scored))
	for i, c := range scored {
		got[i] = c.FrequencyScore
	}
	assert.Equal(t, []models.Score{1, 1, 2, 2, 3, 3, 4, 4, 5, 5}, got)
}

func TestScore_RecencyIsInverted(t *testing.T) {
	metrics := make([]models.CustomerMetrics, 5)
	for i := range metrics {
		metrics[i] = models.CustomerMetrics{
			CustomerID: fmt.Sprintf("c%d", i),
			Recency:    i * 30,
			Frequency:  i + 1,
			Monetary:   float64(100 * (i + 1)),
		}
	}

	scored, err := Score(metrics)
	require.NoError(t, err)

	for i, c := range scored {
		assert.Equal(t, models.Score(5-i), c.RecencyScore)
		assert.Equal(t, models.Score(i+1), c.FrequencyScore)
		assert.Equal(t, models.Score(i+1), c.MonetaryScore)
	}
}

func TestScore_DegenerateMetric(t *testing.T) {
	metrics := population(20, 4)
	for i := range metrics {
		metrics[i].Monetary = 99.5
	}

	_, err := Score(metrics)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDegenerateDistribution))

	var metricErr *MetricError
	require.True(t, errors.As(err, &metricErr))
	assert.Equal(t, "monetary", metricErr.Metric)
}

func TestScore_SingleCustomerIsDegenerate(t *testing.T) {
	_, err := Score([]models.CustomerMetrics{{CustomerID: "1", Recency: 3, Frequency: 1, Monetary: 10}})
	var metricErr *MetricError
	require.True(t, errors.As(err, &metricErr))
	assert.Equal(t, "recency", metricErr.Metric)
}

func TestScore_FewerCustomersThanBuckets(t *testing.T) {
	for n := 2; n < Buckets; n++ {
		t.Run(fmt.Sprintf("%d customers", n), func(t *testing.T) {
			metrics := make([]models.CustomerMetrics, n)
			for i := range metrics {
				metrics[i] = models.CustomerMetrics{
					CustomerID: fmt.Sprintf("c%d", i),
					Recency:    10 * i,
					Frequency:  i + 1,
					Monetary:   float64(50 * (i + 1)),
				}
			}

			_, err := Score(metrics)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDegenerateDistribution))

			var metricErr *MetricError
			require.True(t, errors.As(err, &metricErr))
			assert.Equal(t, "recency", metricErr.Metric)
		})
	}
}

func TestScore_Empty(t *testing.T) {
	scored, err := Score(nil)
	require.NoError(t, err)
	assert.Empty(t, scored)
}
