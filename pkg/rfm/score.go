package rfm

import (
	"rfm-segmentation/pkg/models"
)

// Buckets is the number of quintile scores.
const Buckets = int(models.MaxScore)

// Score quintile-scores every customer. Recency is scored inversely (the most
// recent buyers get 5); frequency is ranked first so repeated invoice counts
// still split into balanced buckets; monetary is bucketed on raw values.
func Score(metrics []models.CustomerMetrics) ([]models.ScoredCustomer, error) {
	if len(metrics) == 0 {
		return []models.ScoredCustomer{}, nil
	}

	recency := make([]float64, len(metrics))
	frequency := make([]float64, len(metrics))
	monetary := make([]float64, len(metrics))
	for i, m := range metrics {
		recency[i] = float64(m.Recency)
		frequency[i] = float64(m.Frequency)
		monetary[i] = m.Monetary
	}

	rBuckets, err := bucketize("recency", recency)
	if err != nil {
		return nil, err
	}
	fBuckets, err := bucketize("frequency", RankFirst(frequency))
	if err != nil {
		return nil, err
	}
	mBuckets, err := bucketize("monetary", monetary)
	if err != nil {
		return nil, err
	}

	out := make([]models.ScoredCustomer, len(metrics))
	for i, m := range metrics {
		out[i] = models.ScoredCustomer{
			CustomerMetrics: m,
			RecencyScore:    models.MaxScore - models.Score(rBuckets[i]),
			FrequencyScore:  models.MinScore + models.Score(fBuckets[i]),
			MonetaryScore:   models.MinScore + models.Score(mBuckets[i]),
		}
	}
	return out, nil
}

func bucketize(metric string, values []float64) ([]int, error) {
	buckets, _, err := QCut(values, Buckets)
	if err != nil {
		return nil, &MetricError{Metric: metric, Err: err}
	}
	return buckets, nil
}
