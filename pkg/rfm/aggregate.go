// Package rfm computes recency/frequency/monetary metrics, quintile scores and
// behavioral segments for a customer population.
package rfm

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"rfm-segmentation/pkg/models"
)

const day = 24 * time.Hour

// AggregateStats describes what Aggregate kept and dropped.
type AggregateStats struct {
	Transactions     int
	Customers        int // distinct customers in the input
	DroppedNonPaying int // customers with monetary <= 0
}

type customerAcc struct {
	last     time.Time
	invoices map[string]struct{}
	totals   []float64
}

// Aggregate reduces transactions to one CustomerMetrics per customer, measured
// against reference. Customers whose total spend is not positive are dropped.
// The result is sorted by CustomerID (numerically when every id is an integer)
// and does not depend on input order.
func Aggregate(txs []models.Transaction, reference time.Time) ([]models.CustomerMetrics, AggregateStats, error) {
	stats := AggregateStats{Transactions: len(txs)}

	byCustomer := make(map[string]*customerAcc)
	for _, tx := range txs {
		acc, ok := byCustomer[tx.CustomerID]
		if !ok {
			acc = &customerAcc{invoices: make(map[string]struct{})}
			byCustomer[tx.CustomerID] = acc
		}
		if tx.InvoiceDate.After(acc.last) {
			acc.last = tx.InvoiceDate
		}
		acc.invoices[tx.InvoiceID] = struct{}{}
		acc.totals = append(acc.totals, tx.LineTotal())
	}
	stats.Customers = len(byCustomer)

	ids := make([]string, 0, len(byCustomer))
	for id := range byCustomer {
		ids = append(ids, id)
	}
	sortIDs(ids)

	out := make([]models.CustomerMetrics, 0, len(ids))
	for _, id := range ids {
		acc := byCustomer[id]
		elapsed := reference.Sub(acc.last)
		if elapsed < 0 {
			return nil, stats, fmt.Errorf("%w: customer %s last invoiced %s, reference %s",
				ErrReferenceBeforeLastTransaction, id,
				acc.last.Format(time.RFC3339), reference.Format(time.RFC3339))
		}

		m := models.CustomerMetrics{
			CustomerID: id,
			Recency:    int(elapsed / day),
			Frequency:  len(acc.invoices),
			Monetary:   sumSorted(acc.totals),
		}
		if m.Monetary <= 0 {
			stats.DroppedNonPaying++
			continue
		}
		out = append(out, m)
	}
	return out, stats, nil
}

// sumSorted adds values in ascending order so the float result is the same
// whatever order the transactions arrived in.
func sumSorted(values []float64) float64 {
	sort.Float64s(values)
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

// sortIDs orders ids numerically when every id is an integer, and
// lexicographically otherwise.
func sortIDs(ids []string) {
	nums := make(map[string]int64, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			sort.Strings(ids)
			return
		}
		nums[id] = n
	}
	sort.Slice(ids, func(i, j int) bool {
		if a, b := nums[ids[i]], nums[ids[j]]; a != b {
			return a < b
		}
		return ids[i] < ids[j]
	})
}
