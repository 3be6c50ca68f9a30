package exchange

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"taxtrail/internal/apperr"
	"taxtrail/internal/fetcher"
	"taxtrail/internal/logging"
	"taxtrail/internal/metrics"
)

// DefaultTTL is how long a fetched rate set stays valid.
const DefaultTTL = time.Hour

// RateSet is an immutable snapshot of multipliers from one base currency.
type RateSet struct {
	Base      string                     `json:"baseCurrency"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	FetchedAt time.Time                  `json:"fetchedAt"`
}

// Rate returns the multiplier for code. A missing or zero rate is UnsupportedCurrency.
func (s *RateSet) Rate(code string) (decimal.Decimal, error) {
	code = NormalizeCode(code)
	if s == nil {
		return decimal.Decimal{}, apperr.New(apperr.KindUnsupportedCurrency, "no exchange rates loaded for %s", code)
	}
	rate, ok := s.Rates[code]
	if !ok || rate.IsZero() {
		return decimal.Decimal{}, apperr.New(apperr.KindUnsupportedCurrency, "unsupported currency for conversion: %s", code)
	}
	return rate, nil
}

// Options tune the cache.
type Options struct {
	TTL time.Duration
	Now func() time.Time
}

// Cache holds one process-wide rate snapshot and refreshes it after TTL expiry.
type Cache struct {
	fetcher fetcher.RateFetcher
	ttl     time.Duration
	now     func() time.Time
	logger  zerolog.Logger

	snapshot atomic.Pointer[RateSet]
	flight   singleflight.Group
}

// NewCache wraps a rate fetcher with a TTL snapshot.
func NewCache(f fetcher.RateFetcher, opts Options, logger zerolog.Logger) *Cache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		fetcher: f,
		ttl:     ttl,
		now:     now,
		logger:  logging.Component(logger, "rate_cache"),
	}
}

// Rates returns the cached snapshot for base while it is fresh, otherwise refreshes it.
// Concurrent refreshes for the same base share one upstream call. The shared call
// is detached from the caller's cancellation; each caller still stops waiting when
// its own ctx is done.
func (c *Cache) Rates(ctx context.Context, base string) (*RateSet, error) {
	base = NormalizeCode(base)
	if snap := c.fresh(base); snap != nil {
		metrics.IncRateCache(metrics.CacheHit)
		return snap, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(base, func() (any, error) {
		if snap := c.fresh(base); snap != nil {
			return snap, nil
		}
		return c.refresh(fetchCtx, base)
	})

	select {
	case <-ctx.Done():
		metrics.IncRateCache(metrics.CacheError)
		return nil, apperr.Wrap(apperr.KindRateFetchFailed, ctx.Err(), "failed to fetch exchange rates")
	case res := <-ch:
		if res.Err != nil {
			metrics.IncRateCache(metrics.CacheError)
			return nil, res.Err
		}
		return res.Val.(*RateSet), nil
	}
}

// Snapshot returns the current snapshot without refreshing, or nil.
func (c *Cache) Snapshot() *RateSet {
	return c.snapshot.Load()
}

func (c *Cache) fresh(base string) *RateSet {
	snap := c.snapshot.Load()
	if snap == nil || snap.Base != base {
		return nil
	}
	if c.now().Sub(snap.FetchedAt) >= c.ttl {
		return nil
	}
	return snap
}

func (c *Cache) refresh(ctx context.Context, base string) (*RateSet, error) {
	rates, err := c.fetcher.FetchRates(ctx, base)
	if err != nil {
		if apperr.KindOf(err) == "" {
			err = apperr.Wrap(apperr.KindRateFetchFailed, err, "failed to fetch exchange rates")
		}
		return nil, err
	}

	copied := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		copied[strings.ToUpper(code)] = rate
	}
	snap := &RateSet{Base: base, Rates: copied, FetchedAt: c.now()}
	c.snapshot.Store(snap)

	metrics.IncRateCache(metrics.CacheRefresh)
	c.logger.Info().Str("base", base).Int("currencies", len(copied)).Msg("exchange rates refreshed")
	return snap, nil
}

// NormalizeCode trims and upper-cases an ISO currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Convert multiplies amount by rate without rounding.
func Convert(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate)
}

// Display rounds a monetary value to two decimal places.
func Display(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}
