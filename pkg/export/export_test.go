package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"rfm-segmentation/pkg/models"
)

func loyal() []models.ClassifiedCustomer {
	mk := func(id string, rec, freq int, mon float64, r, f, m models.Score) models.ClassifiedCustomer {
		return models.ClassifiedCustomer{
			ScoredCustomer: models.ScoredCustomer{
				CustomerMetrics: models.CustomerMetrics{CustomerID: id, Recency: rec, Frequency: freq, Monetary: mon},
				RecencyScore:    r,
				FrequencyScore:  f,
				MonetaryScore:   m,
			},
			Segment: models.LoyalCustomers,
		}
	}
	return []models.ClassifiedCustomer{
		mk("12347", 30, 7, 4310, 3, 5, 5),
		mk("12362", 40, 10, 5154.58, 4, 4, 5),
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, XLSX, f)

	_, err = ParseFormat("parquet")
	assert.Error(t, err)
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loyal_customers.xlsx")
	require.NoError(t, WriteXLSX(path, loyal()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"row", "customer_id"}, rows[0])
	assert.Equal(t, []string{"0", "12347"}, rows[1])
	assert.Equal(t, []string{"1", "12362"}, rows[2])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, loyal()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"12347", "30", "7", "4310", "3", "5", "5", "355", "loyal_customers"}, records[1])
	assert.Equal(t, "5154.58", records[2][3])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, loyal()[:1]))
	assert.JSONEq(t, `[{
		"customer_id": "12347",
		"recency": 30,
		"frequency": 7,
		"monetary": 4310,
		"recency_score": 3,
		"frequency_score": 5,
		"monetary_score": 5,
		"segment": "loyal_customers"
	}]`, buf.String())

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.JSONEq(t, `[]`, buf.String())
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	for _, format := range []Format{XLSX, CSV, JSON} {
		path := filepath.Join(dir, "out."+string(format))
		require.NoError(t, WriteFile(path, format, loyal()), format)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	assert.Error(t, WriteFile(filepath.Join(dir, "out.bin"), Format("bin"), loyal()))
}
