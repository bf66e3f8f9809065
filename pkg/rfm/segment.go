package rfm

import (
	"fmt"

	"rfm-segmentation/pkg/models"
)

// ScoreRange is an inclusive range of scores.
type ScoreRange struct {
	Min, Max models.Score
}

func (r ScoreRange) contains(s models.Score) bool { return s >= r.Min && s <= r.Max }

func (r ScoreRange) String() string {
	if r.Min == r.Max {
		return r.Min.String()
	}
	return fmt.Sprintf("[%s-%s]", r.Min, r.Max)
}

// Rule maps a recency × frequency block of codes to a segment.
type Rule struct {
	Recency   ScoreRange
	Frequency ScoreRange
	Segment   models.Segment
}

// Pattern renders the rule as the two-digit code pattern it matches.
func (r Rule) Pattern() string {
	return r.Recency.String() + r.Frequency.String()
}

func span(lo, hi models.Score) ScoreRange { return ScoreRange{Min: lo, Max: hi} }
func one(s models.Score) ScoreRange { return ScoreRange{Min: s, Max: s} }

// rules is evaluated top to bottom; the first match wins.
var rules = []Rule{
	{span(1, 2), span(1, 2), models.Hibernating},
	{span(1, 2), span(3, 4), models.AtRisk},
	{span(1, 2), one(5), models.CantLoose},
	{one(3), span(1, 2), models.AboutToSleep},
	{one(3), one(3), models.NeedAttention},
	{span(3, 4), span(4, 5), models.LoyalCustomers},
	{one(4), one(1), models.Promising},
	{one(5), one(1), models.NewCustomers},
	{span(4, 5), span(2, 3), models.PotentialLoyalists},
	{one(5), span(4, 5), models.Champions},
}

// Rules returns a copy of the ordered rule table.
func Rules() []Rule {
	return append([]Rule(nil), rules...)
}

// Classify maps a recency and frequency score to its segment.
func Classify(recency, frequency models.Score) (models.Segment, error) {
	if !recency.Valid() || !frequency.Valid() {
		return "", fmt.Errorf("%w: recency %d, frequency %d", ErrInvalidScore, recency, frequency)
	}
	return match(rules, recency, frequency)
}

func match(table []Rule, recency, frequency models.Score) (models.Segment, error) {
	for _, r := range table {
		if r.Recency.contains(recency) && r.Frequency.contains(frequency) {
			return r.Segment, nil
		}
	}
	return "", &UnclassifiedCodeError{Code: fmt.Sprintf("%d%d", recency, frequency)}
}

// ClassifyAll labels every scored customer, keeping input order.
func ClassifyAll(scored []models.ScoredCustomer) ([]models.ClassifiedCustomer, error) {
	out := make([]models.ClassifiedCustomer, len(scored))
	for i, c := range scored {
		seg, err := Classify(c.RecencyScore, c.FrequencyScore)
		if err != nil {
			return nil, fmt.Errorf("customer %s: %w", c.CustomerID, err)
		}
		out[i] = models.ClassifiedCustomer{ScoredCustomer: c, Segment: seg}
	}
	return out, nil
}
