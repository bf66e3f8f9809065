package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"rfm-segmentation/pkg/log"
	"rfm-segmentation/pkg/models"
)

// TransactionsSchema creates the table LoadTransactions reads. Column names
// follow the Online Retail II export in snake_case.
func TransactionsSchema(table string) (string, error) {
	if err := checkTableName(table); err != nil {
		return "", err
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		invoice      VARCHAR(32) NOT NULL,
		stock_code   VARCHAR(32),
		description  VARCHAR(255),
		quantity     INT NOT NULL,
		invoice_date DATETIME NOT NULL,
		price        DOUBLE NOT NULL,
		customer_id  VARCHAR(64),
		country      VARCHAR(64)
	)`, table), nil
}

// containsMarker tests invoice for the cancellation marker, case-sensitively
// (LIKE and INSTR follow the column collation; REPLACE compares bytes).
const containsMarker = "LENGTH(REPLACE(invoice, ?, '')) < LENGTH(invoice)"

// LoadStats counts the rows excluded by the cleaning filters.
type LoadStats struct {
	Rows            int
	MissingCustomer int
	Cancelled       int
	Loaded          int
}

// LoadTransactions reads cleaned transactions from table: rows without a
// customer id and cancelled invoices are filtered in SQL.
func LoadTransactions(ctx context.Context, db *sql.DB, table string) ([]models.Transaction, LoadStats, error) {
	var stats LoadStats
	if err := checkTableName(table); err != nil {
		return nil, stats, err
	}

	countQ, countArgs, err := squirrel.
		Select("COUNT(*)", "SUM(CASE WHEN customer_id IS NULL THEN 1 ELSE 0 END)").
		Column("SUM(CASE WHEN customer_id IS NOT NULL AND "+containsMarker+" THEN 1 ELSE 0 END)", models.CancelledMarker).
		From(table).
		ToSql()
	if err != nil {
		return nil, stats, errors.Wrap(err, "build count query")
	}

	var missing, cancelledRows sql.NullInt64
	if err := db.QueryRowContext(ctx, countQ, countArgs...).Scan(&stats.Rows, &missing, &cancelledRows); err != nil {
		return nil, stats, errors.Wrapf(err, "count rows of %s", table)
	}
	stats.MissingCustomer = int(missing.Int64)
	stats.Cancelled = int(cancelledRows.Int64)

	q, args, err := squirrel.
		Select("invoice", "stock_code", "description", "quantity", "invoice_date", "price", "customer_id", "country").
		From(table).
		Where(squirrel.NotEq{"customer_id": nil}).
		Where("NOT ("+containsMarker+")", models.CancelledMarker).
		OrderBy("invoice_date", "invoice").
		ToSql()
	if err != nil {
		return nil, stats, errors.Wrap(err, "build select query")
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, stats, errors.Wrapf(err, "query %s", table)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var (
			tx                          models.Transaction
			stock, description, country sql.NullString
			invoiceDate, customerID     any
		)
		if err := rows.Scan(&tx.InvoiceID, &stock, &description, &tx.Quantity, &invoiceDate, &tx.UnitPrice, &customerID, &country); err != nil {
			return nil, stats, errors.Wrap(err, "scan transaction")
		}
		tx.StockCode = stock.String
		tx.Description = description.String
		tx.Country = country.String

		if tx.InvoiceDate, err = asTime(invoiceDate); err != nil {
			return nil, stats, errors.Wrapf(err, "invoice %s", tx.InvoiceID)
		}
		if tx.CustomerID, err = asID(customerID); err != nil {
			return nil, stats, errors.Wrapf(err, "invoice %s", tx.InvoiceID)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, stats, errors.Wrap(err, "iterate transactions")
	}
	stats.Loaded = len(out)

	log.L.WithField("table", table).Debugf("rows=%d missing_customer=%d cancelled=%d loaded=%d",
		stats.Rows, stats.MissingCustomer, stats.Cancelled, stats.Loaded)
	return out, stats, nil
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// asTime converts what the mysql and sqlite drivers return for a DATETIME.
func asTime(v any) (time.Time, error) {
	var s string
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return time.Time{}, fmt.Errorf("unsupported invoice_date type %T", v)
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.ParseInLocation(layout, strings.TrimSpace(s), time.UTC); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable invoice_date %q", s)
}

func asID(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return models.NormalizeID(t), nil
	case []byte:
		return models.NormalizeID(string(t)), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported customer_id type %T", v)
	}
}

// TableSource loads transactions from a database table.
type TableSource struct {
	DB    *sql.DB
	Table string
}

func (s TableSource) Load(ctx context.Context) ([]models.Transaction, error) {
	txs, stats, err := LoadTransactions(ctx, s.DB, s.Table)
	if err != nil {
		return nil, err
	}
	log.ForContext(ctx).WithField("table", s.Table).Infof("loaded %d of %d rows (%d without customer, %d cancelled)",
		stats.Loaded, stats.Rows, stats.MissingCustomer, stats.Cancelled)
	return txs, nil
}
