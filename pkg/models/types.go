package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

/*
LOAD → raw types read from a spreadsheet export or the transactions table.
*/

// Transaction is one invoice line as delivered by ingestion, already cleaned
// (customer id present, cancelled invoices removed).
type Transaction struct {
	InvoiceID   string
	StockCode   string
	Description string
	Quantity    int
	InvoiceDate time.Time
	UnitPrice   float64
	CustomerID  string
	Country     string
}

// CancelledMarker flags a cancelled invoice when it appears in the invoice id.
const CancelledMarker = "C"

// LineTotal is quantity × unit price. Returns keep their negative sign.
func (t Transaction) LineTotal() float64 {
	return float64(t.Quantity) * t.UnitPrice
}

/*
COMPUTE → per-customer metrics, scores and segment.
*/

// CustomerMetrics holds the three raw RFM metrics of a customer.
type CustomerMetrics struct {
	CustomerID string  `json:"customer_id"`
	Recency    int     `json:"recency"`   // days since the latest invoice
	Frequency  int     `json:"frequency"` // distinct invoices
	Monetary   float64 `json:"monetary"`  // sum of line totals
}

// Score is an ordinal quintile score, always within [MinScore, MaxScore].
type Score uint8

const (
	MinScore Score = 1
	MaxScore Score = 5
)

// ErrInvalidScore is returned for a score outside [MinScore, MaxScore].
var ErrInvalidScore = errors.New("invalid score")

// NewScore validates v and converts it to a Score.
func NewScore(v int) (Score, error) {
	if v < int(MinScore) || v > int(MaxScore) {
		return 0, fmt.Errorf("%w: %d out of range [%d,%d]", ErrInvalidScore, v, MinScore, MaxScore)
	}
	return Score(v), nil
}

func (s Score) Valid() bool { return s >= MinScore && s <= MaxScore }

func (s Score) String() string { return fmt.Sprintf("%d", uint8(s)) }

// ScoredCustomer is a CustomerMetrics with its three quintile scores.
type ScoredCustomer struct {
	CustomerMetrics
	RecencyScore   Score `json:"recency_score"`
	FrequencyScore Score `json:"frequency_score"`
	MonetaryScore  Score `json:"monetary_score"`
}

// Code is the two-digit classification key: recency digit then frequency digit.
func (c ScoredCustomer) Code() string {
	return c.RecencyScore.String() + c.FrequencyScore.String()
}

// RFMScore is the three-digit reporting key, e.g. "521".
func (c ScoredCustomer) RFMScore() string {
	return c.Code() + c.MonetaryScore.String()
}

// Segment is a named behavioral category.
type Segment string

const (
	Hibernating        Segment = "hibernating"
	AtRisk             Segment = "at_risk"
	CantLoose          Segment = "cant_loose"
	AboutToSleep       Segment = "about_to_sleep"
	NeedAttention      Segment = "need_attention"
	LoyalCustomers     Segment = "loyal_customers"
	Promising          Segment = "promising"
	NewCustomers       Segment = "new_customers"
	PotentialLoyalists Segment = "potential_loyalists"
	Champions          Segment = "champions"
)

// Segments lists every segment in rule-table order.
func Segments() []Segment {
	return []Segment{
		Hibernating, AtRisk, CantLoose, AboutToSleep, NeedAttention,
		LoyalCustomers, Promising, NewCustomers, PotentialLoyalists, Champions,
	}
}

// ParseSegment returns the Segment named s.
func ParseSegment(s string) (Segment, error) {
	for _, seg := range Segments() {
		if string(seg) == s {
			return seg, nil
		}
	}
	return "", fmt.Errorf("unknown segment %q", s)
}

// ClassifiedCustomer is the final per-customer output of a run.
type ClassifiedCustomer struct {
	ScoredCustomer
	Segment Segment `json:"segment"`
}

// SegmentSummary aggregates the raw metrics of one segment.
type SegmentSummary struct {
	Segment       Segment `json:"segment"`
	Count         int     `json:"count"`
	RecencyMean   float64 `json:"recency_mean"`
	FrequencyMean float64 `json:"frequency_mean"`
	MonetaryMean  float64 `json:"monetary_mean"`
}

/*
RUN → result of a full pipeline run.
*/

// RunResult is what calculator.Run hands to the exporters.
type RunResult struct {
	RunID           string
	ReferenceDate   time.Time
	TransactionsIn  int
	DroppedCustomer int // customers removed by the monetary > 0 policy
	Customers       []ClassifiedCustomer
	Summary         []SegmentSummary
}

/*
CONFIG → run parameters.
*/

// Config holds the parameters passed to calculator.Run.
type Config struct {
	ReferenceDate time.Time // recency is measured from this date, never from "now"
	Persist       bool      // store assignments through the SegmentStore
	Verbose       bool      // detailed logs and a visible progress bar
}

// NormalizeID trims an identifier and drops the ".0" suffix spreadsheets add
// to numeric ids ("12346.0" → "12346").
func NormalizeID(raw string) string {
	return strings.TrimSuffix(strings.TrimSpace(raw), ".0")
}
