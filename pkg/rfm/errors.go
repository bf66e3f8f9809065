package rfm

import (
	"errors"
	"fmt"

	"rfm-segmentation/pkg/models"
)

var (
	// ErrReferenceBeforeLastTransaction means recency would be negative.
	ErrReferenceBeforeLastTransaction = errors.New("reference date is before the latest transaction")

	// ErrDegenerateDistribution means quantile edges collapsed and fewer than
	// the requested number of buckets could be formed.
	ErrDegenerateDistribution = errors.New("bin edges must be unique")

	// ErrUnclassifiedCode means no segment rule matched a score code.
	ErrUnclassifiedCode = errors.New("no segment rule matches code")

	// ErrInvalidScore means a score fell outside 1..5.
	ErrInvalidScore = models.ErrInvalidScore
)

// MetricError reports which metric failed to score.
type MetricError struct {
	Metric string
	Err    error
}

func (e *MetricError) Error() string {
	return fmt.Sprintf("score %s: %v", e.Metric, e.Err)
}

func (e *MetricError) Unwrap() error {
	return e.Err
}

// UnclassifiedCodeError carries the offending two-digit code.
type UnclassifiedCodeError struct {
	Code string
}

func (e *UnclassifiedCodeError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnclassifiedCode, e.Code)
}

func (e *UnclassifiedCodeError) Unwrap() error {
	return ErrUnclassifiedCode
}
