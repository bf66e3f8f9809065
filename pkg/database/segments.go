package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"rfm-segmentation/pkg/models"
)

const (
	segmentsTable = "rfm_segments"
	insertBatch   = 500
)

const segmentsSchema = `CREATE TABLE IF NOT EXISTS rfm_segments (
	run_id          VARCHAR(36) NOT NULL,
	reference_date  VARCHAR(10) NOT NULL,
	customer_id     VARCHAR(64) NOT NULL,
	recency         INT NOT NULL,
	frequency       INT NOT NULL,
	monetary        DOUBLE NOT NULL,
	recency_score   SMALLINT NOT NULL,
	frequency_score SMALLINT NOT NULL,
	monetary_score  SMALLINT NOT NULL,
	rfm_score       VARCHAR(3) NOT NULL,
	segment         VARCHAR(32) NOT NULL,
	PRIMARY KEY (run_id, customer_id)
)`

// SegmentRepository persists the segment assignments of pipeline runs.
type SegmentRepository interface {
	EnsureSchema(ctx context.Context) error
	SaveRun(ctx context.Context, runID string, reference time.Time, customers []models.ClassifiedCustomer) error
	ListBySegment(ctx context.Context, runID string, seg models.Segment) ([]models.ClassifiedCustomer, error)
}

type segmentRepository struct {
	db *sql.DB
}

func NewSegmentRepository(db *sql.DB) SegmentRepository {
	return &segmentRepository{db: db}
}

func (r *segmentRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, segmentsSchema); err != nil {
		return errors.Wrap(err, "create rfm_segments")
	}
	return nil
}

// SaveRun inserts every assignment of a run inside one transaction.
func (r *segmentRepository) SaveRun(ctx context.Context, runID string, reference time.Time, customers []models.ClassifiedCustomer) error {
	if len(customers) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	refDate := reference.Format("2006-01-02")
	for start := 0; start < len(customers); start += insertBatch {
		end := start + insertBatch
		if end > len(customers) {
			end = len(customers)
		}

		query := squirrel.
			Insert(segmentsTable).
			Columns(
				"run_id",
				"reference_date",
				"customer_id",
				"recency",
				"frequency",
				"monetary",
				"recency_score",
				"frequency_score",
				"monetary_score",
				"rfm_score",
				"segment",
			)
		for _, c := range customers[start:end] {
			query = query.Values(
				runID,
				refDate,
				c.CustomerID,
				c.Recency,
				c.Frequency,
				c.Monetary,
				int(c.RecencyScore),
				int(c.FrequencyScore),
				int(c.MonetaryScore),
				c.RFMScore(),
				string(c.Segment),
			)
		}

		sqlQuery, args, err := query.ToSql()
		if err != nil {
			return errors.Wrap(err, "build insert")
		}
		if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
			return errors.Wrapf(err, "insert rows %d-%d", start, end)
		}
	}

	return errors.Wrap(tx.Commit(), "commit")
}

// ListBySegment returns the customers of one segment for a run, ordered by id.
func (r *segmentRepository) ListBySegment(ctx context.Context, runID string, seg models.Segment) ([]models.ClassifiedCustomer, error) {
	query, args, err := squirrel.
		Select(
			"customer_id",
			"recency",
			"frequency",
			"monetary",
			"recency_score",
			"frequency_score",
			"monetary_score",
			"segment",
		).
		From(segmentsTable).
		Where(squirrel.Eq{"run_id": runID, "segment": string(seg)}).
		OrderBy("customer_id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build select")
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query rfm_segments")
	}
	defer rows.Close()

	out := make([]models.ClassifiedCustomer, 0)
	for rows.Next() {
		c, err := scanClassified(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rfm_segments")
	}
	return out, nil
}

func scanClassified(rows *sql.Rows) (models.ClassifiedCustomer, error) {
	var (
		c       models.ClassifiedCustomer
		r, f, m int
		segment string
	)
	if err := rows.Scan(&c.CustomerID, &c.Recency, &c.Frequency, &c.Monetary, &r, &f, &m, &segment); err != nil {
		return c, errors.Wrap(err, "scan rfm_segments")
	}

	var err error
	if c.RecencyScore, err = models.NewScore(r); err != nil {
		return c, errors.Wrapf(err, "customer %s recency_score", c.CustomerID)
	}
	if c.FrequencyScore, err = models.NewScore(f); err != nil {
		return c, errors.Wrapf(err, "customer %s frequency_score", c.CustomerID)
	}
	if c.MonetaryScore, err = models.NewScore(m); err != nil {
		return c, errors.Wrapf(err, "customer %s monetary_score", c.CustomerID)
	}
	if c.Segment, err = models.ParseSegment(segment); err != nil {
		return c, errors.Wrapf(err, "customer %s", c.CustomerID)
	}
	return c, nil
}
