// Package export writes the customers of one segment to a file.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/xuri/excelize/v2"

	"rfm-segmentation/pkg/models"
)

// Format is an output file format.
type Format string

const (
	XLSX Format = "xlsx"
	CSV  Format = "csv"
	JSON Format = "json"
)

// ParseFormat returns the Format named s (case insensitive).
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case XLSX, CSV, JSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q (want xlsx, csv or json)", s)
}

const (
	sheetName = "Sheet1"
	rowHeader = "row"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var csvHeader = []string{
	"customer_id", "recency", "frequency", "monetary",
	"recency_score", "frequency_score", "monetary_score", "rfm_score", "segment",
}

// WriteXLSX saves a workbook with a row-number column and the customer ids,
// the layout downstream campaign tools import.
func WriteXLSX(path string, customers []models.ClassifiedCustomer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(sheetName, "A1", &[]interface{}{rowHeader, "customer_id"}); err != nil {
		return err
	}
	for i, c := range customers {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &[]interface{}{i, c.CustomerID}); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// WriteCSV writes one line per customer with metrics, scores and segment.
func WriteCSV(w io.Writer, customers []models.ClassifiedCustomer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, c := range customers {
		rec := []string{
			c.CustomerID,
			strconv.Itoa(c.Recency),
			strconv.Itoa(c.Frequency),
			strconv.FormatFloat(c.Monetary, 'f', -1, 64),
			c.RecencyScore.String(),
			c.FrequencyScore.String(),
			c.MonetaryScore.String(),
			c.RFMScore(),
			string(c.Segment),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the customers as an indented JSON array.
func WriteJSON(w io.Writer, customers []models.ClassifiedCustomer) error {
	if customers == nil {
		customers = []models.ClassifiedCustomer{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(customers)
}

// WriteFile dispatches on format and writes customers to path.
func WriteFile(path string, format Format, customers []models.ClassifiedCustomer) error {
	if format == XLSX {
		return WriteXLSX(path, customers)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	switch format {
	case CSV:
		err = WriteCSV(f, customers)
	case JSON:
		err = WriteJSON(f, customers)
	default:
		err = fmt.Errorf("unknown export format %q", format)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
