package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"taxtrail/internal/apperr"
	"taxtrail/internal/logging"
	"taxtrail/internal/metrics"
	"taxtrail/internal/version"
)

const (
	defaultExchangeURL = "https://open.er-api.com/v6/latest"
	exchangeSource     = "exchange"
	resultSuccess      = "success"
)

// ExchangeOptions parameterise the exchange rate client.
type ExchangeOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// ExchangeRates fetches conversion multipliers from an open exchange-rate API.
type ExchangeRates struct {
	opts    ExchangeOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewExchangeRates constructs an exchange rate client.
func NewExchangeRates(opts ExchangeOptions, logger zerolog.Logger) *ExchangeRates {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultExchangeURL
	}

	return &ExchangeRates{
		opts:    opts,
		logger:  logging.Component(logger, "exchange_fetcher"),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchRates returns target-currency multipliers for base. Failures are RateFetchFailed.
func (e *ExchangeRates) FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		return nil, apperr.New(apperr.KindValidation, "base currency is required")
	}

	start := time.Now()
	rates, err := e.fetch(ctx, base)
	if err != nil {
		metrics.ObserveUpstream(exchangeSource, metrics.ResultError, time.Since(start))
		e.logger.Warn().Err(err).Str("base", base).Msg("exchange rate fetch failed")
		return nil, apperr.Wrap(apperr.KindRateFetchFailed, err, "failed to fetch exchange rates")
	}
	metrics.ObserveUpstream(exchangeSource, metrics.ResultSuccess, time.Since(start))

	e.logger.Debug().Str("base", base).Int("currencies", len(rates)).Msg("exchange rates fetched")
	return rates, nil
}

func (e *ExchangeRates) fetch(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	endpoint := e.baseURL + "/" + url.PathEscape(base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(e.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", version.UserAgent())
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(exchangeSource, resp.StatusCode, payload)
	}

	var res ratesResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if res.Result != resultSuccess {
		if res.ErrorType != "" {
			return nil, fmt.Errorf("exchange api returned %q: %s", res.Result, res.ErrorType)
		}
		return nil, fmt.Errorf("exchange api returned %q", res.Result)
	}
	if len(res.Rates) == 0 {
		return nil, errors.New("exchange api returned no rates")
	}
	return res.Rates, nil
}

type ratesResponse struct {
	Result    string                     `json:"result"`
	ErrorType string                     `json:"error-type"`
	BaseCode  string                     `json:"base_code"`
	Rates     map[string]decimal.Decimal `json:"rates"`
}

var _ RateFetcher = (*ExchangeRates)(nil)
