package rfm

import (
	"math"
	"sort"

	"rfm-segmentation/pkg/models"
)

// FilterBySegment returns the customers labelled seg, in input order.
func FilterBySegment(customers []models.ClassifiedCustomer, seg models.Segment) []models.ClassifiedCustomer {
	out := make([]models.ClassifiedCustomer, 0)
	for _, c := range customers {
		if c.Segment == seg {
			out = append(out, c)
		}
	}
	return out
}

// SummarizeBySegment returns count and mean raw metrics per segment, sorted
// by segment name. Segments with no customers are omitted.
func SummarizeBySegment(customers []models.ClassifiedCustomer) []models.SegmentSummary {
	type acc struct {
		n                 int
		rec, freq, monAmt float64
	}
	groups := make(map[models.Segment]*acc)
	for _, c := range customers {
		g, ok := groups[c.Segment]
		if !ok {
			g = &acc{}
			groups[c.Segment] = g
		}
		g.n++
		g.rec += float64(c.Recency)
		g.freq += float64(c.Frequency)
		g.monAmt += c.Monetary
	}

	out := make([]models.SegmentSummary, 0, len(groups))
	for seg, g := range groups {
		n := float64(g.n)
		out = append(out, models.SegmentSummary{
			Segment:       seg,
			Count:         g.n,
			RecencyMean:   g.rec / n,
			FrequencyMean: g.freq / n,
			MonetaryMean:  g.monAmt / n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })
	return out
}

// Stats are descriptive statistics of one metric.
type Stats struct {
	Metric string
	Count  int
	Mean   float64
	Std    float64 // sample standard deviation, NaN below two values
	Min    float64
	P25    float64
	P50    float64
	P75    float64
	Max    float64
}

// Describe returns descriptive statistics for recency, frequency and monetary.
func Describe(metrics []models.CustomerMetrics) []Stats {
	cols := map[string][]float64{}
	for _, m := range metrics {
		cols["recency"] = append(cols["recency"], float64(m.Recency))
		cols["frequency"] = append(cols["frequency"], float64(m.Frequency))
		cols["monetary"] = append(cols["monetary"], m.Monetary)
	}
	out := make([]Stats, 0, 3)
	for _, name := range []string{"recency", "frequency", "monetary"} {
		out = append(out, describe(name, cols[name]))
	}
	return out
}

func describe(name string, values []float64) Stats {
	s := Stats{Metric: name, Count: len(values), Std: math.NaN()}
	if len(values) == 0 {
		s.Mean, s.Min, s.P25, s.P50, s.P75, s.Max = math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return s
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	s.Mean = sum / float64(len(sorted))
	if len(sorted) > 1 {
		ss := 0.0
		for _, v := range sorted {
			ss += (v - s.Mean) * (v - s.Mean)
		}
		s.Std = math.Sqrt(ss / float64(len(sorted)-1))
	}
	s.Min = sorted[0]
	s.P25 = quantile(sorted, 0.25)
	s.P50 = quantile(sorted, 0.5)
	s.P75 = quantile(sorted, 0.75)
	s.Max = sorted[len(sorted)-1]
	return s
}
