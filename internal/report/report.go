// Package report builds grouped sums and per-record derived amounts.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"taxtrail/internal/exchange"
)

var hundred = decimal.NewFromInt(100)

// AggregateRecord is a grouped total. It is computed per request and never stored.
type AggregateRecord struct {
	GroupKey    string          `json:"groupKey"`
	Name        string          `json:"name,omitempty"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Count       int             `json:"count"`
}

// GroupSum sums amount(r) per key(r). Groups are returned sorted by key.
func GroupSum[T any](records []T, key func(T) string, amount func(T) decimal.Decimal) []AggregateRecord {
	index := make(map[string]int)
	groups := make([]AggregateRecord, 0)
	for _, r := range records {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, AggregateRecord{GroupKey: k, TotalAmount: decimal.Zero})
		}
		groups[i].TotalAmount = groups[i].TotalAmount.Add(amount(r))
		groups[i].Count++
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].GroupKey < groups[j].GroupKey })
	return groups
}

// WithNames attaches display names. Groups whose key has no name are dropped.
func WithNames(groups []AggregateRecord, names map[string]string) []AggregateRecord {
	out := make([]AggregateRecord, 0, len(groups))
	for _, g := range groups {
		name, ok := names[g.GroupKey]
		if !ok {
			continue
		}
		g.Name = name
		out = append(out, g)
	}
	return out
}

// Adjusted pairs a record with its inflation-adjusted amount.
type Adjusted[T any] struct {
	Record         T
	OriginalAmount decimal.Decimal
	AdjustedAmount decimal.Decimal
}

// AdjustForInflation scales each amount by (1 + ratePct/100), rounded to cents.
func AdjustForInflation[T any](records []T, amount func(T) decimal.Decimal, ratePct decimal.Decimal) []Adjusted[T] {
	factor := decimal.NewFromInt(1).Add(ratePct.Div(hundred))
	out := make([]Adjusted[T], 0, len(records))
	for _, r := range records {
		original := amount(r)
		out = append(out, Adjusted[T]{
			Record:         r,
			OriginalAmount: original,
			AdjustedAmount: original.Mul(factor).Round(2),
		})
	}
	return out
}

// Converted pairs a record with its amount in another currency.
type Converted[T any] struct {
	Record          T
	OriginalAmount  decimal.Decimal
	ConvertedAmount decimal.Decimal
	Currency        string
}

// ConvertCurrency converts every amount with the rate for code. The rate is
// resolved before any record is touched, so an unsupported code yields no output.
func ConvertCurrency[T any](records []T, amount func(T) decimal.Decimal, rates *exchange.RateSet, code string) ([]Converted[T], error) {
	rate, err := rates.Rate(code)
	if err != nil {
		return nil, err
	}
	currency := exchange.NormalizeCode(code)

	out := make([]Converted[T], 0, len(records))
	for _, r := range records {
		original := amount(r)
		out = append(out, Converted[T]{
			Record:          r,
			OriginalAmount:  original,
			ConvertedAmount: exchange.Display(exchange.Convert(original, rate)),
			Currency:        currency,
		})
	}
	return out, nil
}

// Pages returns the number of pages needed for total rows at limit per page.
func Pages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
