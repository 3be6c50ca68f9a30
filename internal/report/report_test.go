package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxtrail/internal/apperr"
	"taxtrail/internal/exchange"
)

type tax struct {
	id     string
	region string
	amount decimal.Decimal
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func taxAmount(t tax) decimal.Decimal { return t.amount }
func taxRegion(t tax) string          { return t.region }

func sampleTaxes() []tax {
	return []tax{
		{id: "a", region: "r-west", amount: d("1000.50")},
		{id: "b", region: "r-central", amount: d("250")},
		{id: "c", region: "r-west", amount: d("99.50")},
		{id: "d", region: "r-ghost", amount: d("10")},
	}
}

func TestGroupSumSortsByKey(t *testing.T) {
	groups := GroupSum(sampleTaxes(), taxRegion, taxAmount)

	require.Len(t, groups, 3)
	assert.Equal(t, "r-central", groups[0].GroupKey)
	assert.Equal(t, "r-ghost", groups[1].GroupKey)
	assert.Equal(t, "r-west", groups[2].GroupKey)
	assert.True(t, groups[2].TotalAmount.Equal(d("1100")))
	assert.Equal(t, 2, groups[2].Count)
}

func TestGroupSumEmpty(t *testing.T) {
	groups := GroupSum([]tax{}, taxRegion, taxAmount)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestWithNamesDropsUnknownGroups(t *testing.T) {
	groups := GroupSum(sampleTaxes(), taxRegion, taxAmount)
	named := WithNames(groups, map[string]string{"r-west": "Western", "r-central": "Central"})

	require.Len(t, named, 2)
	assert.Equal(t, "Central", named[0].Name)
	assert.Equal(t, "Western", named[1].Name)
	assert.Empty(t, groups[0].Name, "input groups are left untouched")
}

func TestAdjustForInflation(t *testing.T) {
	records := []tax{{id: "a", amount: d("1000")}, {id: "b", amount: d("333.33")}}

	adjusted := AdjustForInflation(records, taxAmount, d("6.3"))

	require.Len(t, adjusted, 2)
	assert.Equal(t, "1063.00", adjusted[0].AdjustedAmount.StringFixed(2))
	assert.Equal(t, "354.33", adjusted[1].AdjustedAmount.StringFixed(2))
	assert.True(t, adjusted[1].OriginalAmount.Equal(d("333.33")))
	assert.Equal(t, "b", adjusted[1].Record.id)
}

func TestAdjustForInflationZeroRateKeepsAmount(t *testing.T) {
	adjusted := AdjustForInflation([]tax{{amount: d("42.42")}}, taxAmount, decimal.Zero)
	assert.True(t, adjusted[0].AdjustedAmount.Equal(d("42.42")))
}

func lkrSnapshot() *exchange.RateSet {
	return &exchange.RateSet{
		Base:      "LKR",
		Rates:     map[string]decimal.Decimal{"LKR": decimal.NewFromInt(1), "USD": d("0.0033")},
		FetchedAt: time.Now(),
	}
}

func TestConvertCurrency(t *testing.T) {
	records := []tax{{id: "a", amount: d("1234.5")}}

	converted, err := ConvertCurrency(records, taxAmount, lkrSnapshot(), "usd")
	require.NoError(t, err)
	require.Len(t, converted, 1)

	assert.Equal(t, "USD", converted[0].Currency)
	assert.Equal(t, "4.07", converted[0].ConvertedAmount.StringFixed(2))
	assert.True(t, converted[0].OriginalAmount.Equal(d("1234.5")))
	assert.True(t, records[0].amount.Equal(d("1234.5")), "input record is not mutated")
}

func TestConvertCurrencyUnsupportedProducesNothing(t *testing.T) {
	converted, err := ConvertCurrency(sampleTaxes(), taxAmount, lkrSnapshot(), "GBP")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.UnsupportedCurrency)
	assert.Nil(t, converted)
}

func TestPages(t *testing.T) {
	assert.Equal(t, 0, Pages(0, 10))
	assert.Equal(t, 1, Pages(10, 10))
	assert.Equal(t, 2, Pages(11, 10))
	assert.Equal(t, 0, Pages(5, 0))
}
