package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// IndicatorReading is one year's value of an indicator series.
type IndicatorReading struct {
	Year  string          `json:"year"`
	Value decimal.Decimal `json:"value"`
}

// IndicatorFetcher retrieves indicator series readings for a country, most recent first.
type IndicatorFetcher interface {
	FetchSeries(ctx context.Context, country, series string) ([]IndicatorReading, error)
}

// RateFetcher retrieves conversion multipliers from a base currency.
type RateFetcher interface {
	FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

// HistoryDepth is how many readings callers show as a short history.
const HistoryDepth = 5

// Latest returns the most recent reading.
func Latest(readings []IndicatorReading) (IndicatorReading, bool) {
	if len(readings) == 0 {
		return IndicatorReading{}, false
	}
	return readings[0], true
}

// History returns up to n of the most recent readings.
func History(readings []IndicatorReading, n int) []IndicatorReading {
	if n <= 0 || len(readings) <= n {
		return readings
	}
	return readings[:n]
}

// ForYear returns the reading dated year, if any.
func ForYear(readings []IndicatorReading, year int) (IndicatorReading, bool) {
	want := strconv.Itoa(year)
	for _, r := range readings {
		if strings.TrimSpace(r.Year) == want {
			return r, true
		}
	}
	return IndicatorReading{}, false
}

type apiErrorResponse struct {
	ErrorType string `json:"error-type"`
	Message   string `json:"message"`
}

func parseHTTPError(source string, status int, payload []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("%s api error (%d): %s", source, status, apiErr.Message)
		}
		if apiErr.ErrorType != "" {
			return fmt.Errorf("%s api error (%d): %s", source, status, apiErr.ErrorType)
		}
	}
	if len(payload) > 0 && len(payload) < 512 {
		return fmt.Errorf("%s api error (%d): %s", source, status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("%s api error (%d)", source, status)
}
