package exchange

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxtrail/internal/apperr"
)

type countingFetcher struct {
	calls atomic.Int32
	rates map[string]decimal.Decimal
	err   error
}

func (f *countingFetcher) FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.rates, nil
}

// blockingFetcher holds every fetch until release is closed or the fetch ctx ends.
type blockingFetcher struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	once    sync.Once
	ctxErr  atomic.Value
}

func newBlockingFetcher() *blockingFetcher {
	return &blockingFetcher{started: make(chan struct{}), release: make(chan struct{})}
}

func (f *blockingFetcher) FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	f.calls.Add(1)
	f.once.Do(func() { close(f.started) })
	select {
	case <-f.release:
		return lkrRates(), nil
	case <-ctx.Done():
		f.ctxErr.Store(ctx.Err())
		return nil, ctx.Err()
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(f *countingFetcher, clock *fakeClock) *Cache {
	return NewCache(f, Options{TTL: time.Hour, Now: clock.Now}, zerolog.Nop())
}

func lkrRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"LKR": decimal.NewFromInt(1),
		"USD": decimal.RequireFromString("0.0033"),
		"eur": decimal.RequireFromString("0.0031"),
	}
}

func TestCacheReusesSnapshotWithinTTL(t *testing.T) {
	f := &countingFetcher{rates: lkrRates()}
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := newTestCache(f, clock)

	first, err := cache.Rates(context.Background(), "LKR")
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	second, err := cache.Rates(context.Background(), "lkr")
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.calls.Load(), "two calls inside the TTL must hit upstream once")
	assert.Same(t, first, second)
}

func TestCacheRefreshesOnceAfterExpiry(t *testing.T) {
	f := &countingFetcher{rates: lkrRates()}
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := newTestCache(f, clock)

	_, err := cache.Rates(context.Background(), "LKR")
	require.NoError(t, err)

	clock.Advance(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Rates(context.Background(), "LKR")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), f.calls.Load(), "expiry must trigger exactly one refresh")
	assert.Equal(t, clock.Now(), cache.Snapshot().FetchedAt)
}

func TestCacheRefetchesForDifferentBase(t *testing.T) {
	f := &countingFetcher{rates: lkrRates()}
	clock := &fakeClock{now: time.Now()}
	cache := newTestCache(f, clock)

	_, err := cache.Rates(context.Background(), "LKR")
	require.NoError(t, err)
	snap, err := cache.Rates(context.Background(), "USD")
	require.NoError(t, err)

	assert.Equal(t, int32(2), f.calls.Load())
	assert.Equal(t, "USD", snap.Base)
}

func TestCacheFetchFailureKeepsKind(t *testing.T) {
	f := &countingFetcher{err: errors.New("connection refused")}
	cache := newTestCache(f, &fakeClock{now: time.Now()})

	_, err := cache.Rates(context.Background(), "LKR")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.RateFetchFailed)
	assert.Nil(t, cache.Snapshot())
}

func TestRateSetUnsupportedCurrency(t *testing.T) {
	snap := &RateSet{Base: "LKR", Rates: map[string]decimal.Decimal{"USD": decimal.RequireFromString("0.0033"), "XAU": decimal.Zero}}

	_, err := snap.Rate("GBP")
	assert.ErrorIs(t, err, apperr.UnsupportedCurrency)

	_, err = snap.Rate("XAU")
	assert.ErrorIs(t, err, apperr.UnsupportedCurrency, "zero rates are treated as unsupported")

	rate, err := snap.Rate(" usd ")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.0033")))
}

func TestCacheNormalisesRateCodes(t *testing.T) {
	f := &countingFetcher{rates: lkrRates()}
	cache := newTestCache(f, &fakeClock{now: time.Now()})

	snap, err := cache.Rates(context.Background(), "LKR")
	require.NoError(t, err)
	_, err = snap.Rate("EUR")
	assert.NoError(t, err)
}

func TestConvertRoundTrip(t *testing.T) {
	amounts := []string{"0", "1", "1250.75", "99999999.99", "0.01"}
	rates := []string{"0.0033", "1", "301.25", "0.000271"}

	for _, a := range amounts {
		for _, r := range rates {
			amount := decimal.RequireFromString(a)
			rate := decimal.RequireFromString(r)

			converted := Convert(amount, rate)
			back := converted.Div(rate)
			assert.Truef(t, back.Round(2).Equal(amount.Round(2)), "round trip %s * %s gave %s", a, r, back)
		}
	}
}

func TestDisplayRoundsToCents(t *testing.T) {
	v := Convert(decimal.RequireFromString("1234.5"), decimal.RequireFromString("0.0033"))
	assert.Equal(t, "4.07385", v.String(), "unrounded product is kept")
	assert.Equal(t, "4.07", Display(v).StringFixed(2))
}

func TestCacheCancelledCallerDoesNotFailSharedRefresh(t *testing.T) {
	f := newBlockingFetcher()
	cache := NewCache(f, Options{TTL: time.Hour}, zerolog.Nop())

	leaderCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	leaderErr := make(chan error, 1)
	go func() {
		_, err := cache.Rates(leaderCtx, "LKR")
		leaderErr <- err
	}()
	<-f.started

	type result struct {
		snap *RateSet
		err  error
	}
	follower := make(chan result, 1)
	go func() {
		snap, err := cache.Rates(context.Background(), "LKR")
		follower <- result{snap, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-leaderErr:
		assert.ErrorIs(t, err, apperr.RateFetchFailed)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller should return without waiting for the fetch")
	}

	close(f.release)
	select {
	case res := <-follower:
		require.NoError(t, res.err)
		assert.Equal(t, "LKR", res.snap.Base)
	case <-time.After(2 * time.Second):
		t.Fatal("follower never received the shared refresh")
	}

	assert.Nil(t, f.ctxErr.Load(), "the shared fetch must not see the leader's cancellation")
	assert.Equal(t, int32(1), f.calls.Load())
	require.NotNil(t, cache.Snapshot())
}

func TestCacheCallerDeadlineWhileWaiting(t *testing.T) {
	f := newBlockingFetcher()
	defer close(f.release)
	cache := NewCache(f, Options{TTL: time.Hour}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := cache.Rates(ctx, "LKR")
	assert.ErrorIs(t, err, apperr.RateFetchFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
