package calculator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rfm-segmentation/pkg/log"
	"rfm-segmentation/pkg/models"
	"rfm-segmentation/pkg/rfm"

	"github.com/schollz/progressbar/v3"
)

//go:generate mockgen -source=rfm.go -destination=mocks/mock_calculator.go -package=mocks

// TransactionSource delivers cleaned transactions (file export or database table).
type TransactionSource interface {
	Load(ctx context.Context) ([]models.Transaction, error)
}

// SegmentStore persists the assignments of a run.
type SegmentStore interface {
	SaveRun(ctx context.Context, runID string, reference time.Time, customers []models.ClassifiedCustomer) error
}

var ErrNoStore = errors.New("persist requested without a segment store")

const (
	stageLoad      = "load"
	stageAggregate = "aggregate"
	stageScore     = "score"
	stageClassify  = "classify"
	stagePersist   = "persist"
)

func Run(ctx context.Context, source TransactionSource, store SegmentStore, cfg models.Config) (*models.RunResult, error) {
	if cfg.ReferenceDate.IsZero() {
		return nil, fmt.Errorf("reference date is required")
	}
	if cfg.Persist && store == nil {
		return nil, ErrNoStore
	}

	ctx, runID := log.WithRunID(ctx)
	logger := log.ForContext(ctx)

	stages := []string{stageLoad, stageAggregate, stageScore, stageClassify}
	if cfg.Persist {
		stages = append(stages, stagePersist)
	}
	bar := newBar(len(stages), cfg.Verbose)
	step := func(stage string) {
		bar.Describe(stage)
		_ = bar.Add(1)
	}

	txs, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stageLoad, err)
	}
	step(stageLoad)

	metrics, stats, err := rfm.Aggregate(txs, cfg.ReferenceDate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stageAggregate, err)
	}
	step(stageAggregate)
	if cfg.Verbose {
		logger.Infof("transactions=%d customers=%d dropped_non_paying=%d reference=%s",
			stats.Transactions, stats.Customers, stats.DroppedNonPaying, formatDate(cfg.ReferenceDate))
		for _, s := range rfm.Describe(metrics) {
			logger.Debugf("%s count=%d mean=%.2f std=%.2f min=%.2f p50=%.2f max=%.2f",
				s.Metric, s.Count, s.Mean, s.Std, s.Min, s.P50, s.Max)
		}
	}

	scored, err := rfm.Score(metrics)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stageScore, err)
	}
	step(stageScore)

	customers, err := rfm.ClassifyAll(scored)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stageClassify, err)
	}
	step(stageClassify)

	if cfg.Persist {
		if err := store.SaveRun(ctx, runID, cfg.ReferenceDate, customers); err != nil {
			return nil, fmt.Errorf("%s: %w", stagePersist, err)
		}
		step(stagePersist)
		logger.Infof("saved %d assignments", len(customers))
	}
	_ = bar.Finish()

	result := &models.RunResult{
		RunID:           runID,
		ReferenceDate:   cfg.ReferenceDate,
		TransactionsIn:  stats.Transactions,
		DroppedCustomer: stats.DroppedNonPaying,
		Customers:       customers,
		Summary:         rfm.SummarizeBySegment(customers),
	}
	if cfg.Verbose {
		for _, s := range result.Summary {
			logger.Infof("%s -> customers=%d recency=%.1f frequency=%.1f monetary=%.2f",
				s.Segment, s.Count, s.RecencyMean, s.FrequencyMean, s.MonetaryMean)
		}
	}
	return result, nil
}

func newBar(stages int, verbose bool) *progressbar.ProgressBar {
	if verbose {
		return progressbar.Default(int64(stages), "rfm")
	}
	return progressbar.DefaultSilent(int64(stages), "rfm")
}

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}
