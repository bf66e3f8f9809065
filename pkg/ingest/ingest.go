// Package ingest reads Online Retail style invoice exports (xlsx or csv) and
// applies the upstream cleaning rules before metrics are computed.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"rfm-segmentation/pkg/log"
	"rfm-segmentation/pkg/models"
)

var ErrMissingColumn = errors.New("missing column")

// Row is one line of an export before cleaning. CustomerID is empty when the
// cell was blank.
type Row struct {
	Invoice     string
	StockCode   string
	Description string
	Quantity    int
	InvoiceDate time.Time
	Price       float64
	CustomerID  string
	Country     string
}

type column int

const (
	colInvoice column = iota
	colStockCode
	colDescription
	colQuantity
	colInvoiceDate
	colPrice
	colCustomerID
	colCountry
	numColumns
)

// header aliases, compared after lowercasing and dropping spaces/underscores
var aliases = map[string]column{
	"invoice":     colInvoice,
	"invoiceno":   colInvoice,
	"stockcode":   colStockCode,
	"description": colDescription,
	"quantity":    colQuantity,
	"invoicedate": colInvoiceDate,
	"price":       colPrice,
	"unitprice":   colPrice,
	"customerid":  colCustomerID,
	"country":     colCountry,
}

var required = []struct {
	col  column
	name string
}{
	{colInvoice, "Invoice"},
	{colQuantity, "Quantity"},
	{colInvoiceDate, "InvoiceDate"},
	{colPrice, "Price"},
	{colCustomerID, "Customer ID"},
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "\ufeff", "").Replace(h)
}

func indexHeader(header []string) ([numColumns]int, error) {
	var idx [numColumns]int
	for i := range idx {
		idx[i] = -1
	}
	for i, h := range header {
		if c, ok := aliases[normalizeHeader(h)]; ok && idx[c] < 0 {
			idx[c] = i
		}
	}
	for _, r := range required {
		if idx[r.col] < 0 {
			return idx, fmt.Errorf("%w %q", ErrMissingColumn, r.name)
		}
	}
	return idx, nil
}

func parseRows(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	idx, err := indexHeader(records[0])
	if err != nil {
		return nil, err
	}

	out := make([]Row, 0, len(records)-1)
	for n, rec := range records[1:] {
		line := n + 2
		cell := func(c column) string {
			i := idx[c]
			if i < 0 || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		if isBlank(rec) {
			continue
		}

		row := Row{
			Invoice:     cell(colInvoice),
			StockCode:   cell(colStockCode),
			Description: cell(colDescription),
			CustomerID:  models.NormalizeID(cell(colCustomerID)),
			Country:     cell(colCountry),
		}
		qty, err := strconv.ParseFloat(cell(colQuantity), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: quantity: %w", line, err)
		}
		row.Quantity = int(qty)
		if row.Price, err = strconv.ParseFloat(cell(colPrice), 64); err != nil {
			return nil, fmt.Errorf("line %d: price: %w", line, err)
		}
		if row.InvoiceDate, err = parseDate(cell(colInvoiceDate)); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2006-01-02",
}

// parseDate accepts the textual layouts seen in csv exports and the serial
// numbers excelize returns for raw date cells.
func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(serial) || serial <= 0 {
		return time.Time{}, fmt.Errorf("invoice date %q: unsupported format", s)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("invoice date %q: %w", s, err)
	}
	return t.Round(time.Second).UTC(), nil
}

// ReadCSV parses a comma separated export with a header line.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return parseRows(records)
}

// ReadXLSX parses sheet of the workbook at path; an empty sheet name selects
// the first sheet.
func ReadXLSX(path, sheet string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%s: workbook has no sheet", path)
		}
		sheet = sheets[0]
	}
	records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return parseRows(records)
}

// CleanStats counts what Clean removed.
type CleanStats struct {
	Rows            int
	MissingCustomer int
	Cancelled       int
	Kept            int
}

// Clean drops rows without a customer id and cancelled invoices, then
// converts the rest to transactions.
func Clean(rows []Row) ([]models.Transaction, CleanStats) {
	stats := CleanStats{Rows: len(rows)}
	out := make([]models.Transaction, 0, len(rows))
	for _, r := range rows {
		switch {
		case r.CustomerID == "":
			stats.MissingCustomer++
			continue
		case strings.Contains(r.Invoice, models.CancelledMarker):
			stats.Cancelled++
			continue
		}
		out = append(out, models.Transaction{
			InvoiceID:   r.Invoice,
			StockCode:   r.StockCode,
			Description: r.Description,
			Quantity:    r.Quantity,
			InvoiceDate: r.InvoiceDate,
			UnitPrice:   r.Price,
			CustomerID:  r.CustomerID,
			Country:     r.Country,
		})
	}
	stats.Kept = len(out)
	return out, stats
}

// FileSource loads transactions from an xlsx or csv export.
type FileSource struct {
	Path  string
	Sheet string
}

func (s FileSource) Load(ctx context.Context) ([]models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		rows []Row
		err  error
	)
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".csv":
		var f *os.File
		if f, err = os.Open(s.Path); err != nil {
			return nil, err
		}
		defer f.Close()
		rows, err = ReadCSV(f)
	case ".xlsx", ".xlsm":
		rows, err = ReadXLSX(s.Path, s.Sheet)
	default:
		return nil, fmt.Errorf("unsupported input %q (want .xlsx or .csv)", s.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}

	txs, stats := Clean(rows)
	log.ForContext(ctx).WithField("input", s.Path).Infof("loaded %d of %d rows (%d without customer, %d cancelled)",
		stats.Kept, stats.Rows, stats.MissingCustomer, stats.Cancelled)
	return txs, nil
}
