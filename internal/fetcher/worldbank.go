package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"taxtrail/internal/apperr"
	"taxtrail/internal/logging"
	"taxtrail/internal/metrics"
	"taxtrail/internal/version"
)

// World Bank indicator series codes.
const (
	SeriesGini      = "SI.POV.GINI"
	SeriesPoverty   = "SI.POV.DDAY"
	SeriesInflation = "FP.CPI.TOTL.ZG"
)

const (
	defaultWorldBankURL = "https://api.worldbank.org/v2"
	worldBankSource     = "worldbank"
)

var (
	errNoSeriesData  = errors.New("no data found for the specified country code")
	errNoValidValues = errors.New("no non-null values in series")
)

// WorldBankOptions parameterise the World Bank indicator client.
type WorldBankOptions struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
	UserAgent         string
}

// WorldBank fetches indicator series from the World Bank open data API.
type WorldBank struct {
	opts    WorldBankOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewWorldBank constructs an indicator client.
func NewWorldBank(opts WorldBankOptions, logger zerolog.Logger) *WorldBank {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultWorldBankURL
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		burst := opts.RequestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), burst)
	}

	return &WorldBank{
		opts:    opts,
		logger:  logging.Component(logger, "worldbank_fetcher"),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		limiter: limiter,
	}
}

// FetchSeries returns all non-null readings of series for country, most recent first.
// Every failure, including an empty or all-null series, is reported as IndicatorUnavailable.
func (w *WorldBank) FetchSeries(ctx context.Context, country, series string) ([]IndicatorReading, error) {
	country = strings.TrimSpace(country)
	if country == "" {
		return nil, apperr.New(apperr.KindValidation, "invalid or missing country parameter")
	}

	start := time.Now()
	readings, err := w.fetch(ctx, country, series)
	if err != nil {
		metrics.ObserveUpstream(worldBankSource, metrics.ResultError, time.Since(start))
		w.logger.Warn().Err(err).Str("country", country).Str("series", series).Msg("indicator fetch failed")
		return nil, apperr.Wrap(apperr.KindIndicatorUnavailable, err, "failed to fetch %s data for %s", series, country)
	}
	metrics.ObserveUpstream(worldBankSource, metrics.ResultSuccess, time.Since(start))

	w.logger.Debug().Str("country", country).Str("series", series).Int("readings", len(readings)).Msg("indicator fetched")
	return readings, nil
}

func (w *WorldBank) fetch(ctx context.Context, country, series string) ([]IndicatorReading, error) {
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	endpoint := fmt.Sprintf("%s/country/%s/indicator/%s?format=json", w.baseURL, url.PathEscape(country), url.PathEscape(series))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(w.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", version.UserAgent())
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(worldBankSource, resp.StatusCode, payload)
	}

	return parseSeries(payload)
}

type seriesPoint struct {
	Date  string              `json:"date"`
	Value decimal.NullDecimal `json:"value"`
}

// parseSeries decodes the [meta, points] envelope and drops null values.
func parseSeries(payload []byte) ([]IndicatorReading, error) {
	var envelope []json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode series envelope: %w", err)
	}
	if len(envelope) < 2 {
		return nil, errNoSeriesData
	}
	body := bytes.TrimSpace(envelope[1])
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, errNoSeriesData
	}

	var points []seriesPoint
	if err := json.Unmarshal(body, &points); err != nil {
		return nil, fmt.Errorf("decode series points: %w", err)
	}

	readings := make([]IndicatorReading, 0, len(points))
	for _, p := range points {
		if !p.Value.Valid {
			continue
		}
		readings = append(readings, IndicatorReading{Year: p.Date, Value: p.Value.Decimal})
	}
	if len(readings) == 0 {
		return nil, errNoValidValues
	}

	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Year > readings[j].Year
	})
	return readings, nil
}

var _ IndicatorFetcher = (*WorldBank)(nil)
