package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"taxtrail/internal/alerting"
	"taxtrail/internal/config"
	"taxtrail/internal/exchange"
	"taxtrail/internal/fetcher"
	"taxtrail/internal/httpapi"
	"taxtrail/internal/logging"
	"taxtrail/internal/metrics"
	"taxtrail/internal/scheduler"
	"taxtrail/internal/service"
	"taxtrail/internal/storage"
	"taxtrail/internal/validation"
	"taxtrail/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
	now    func() time.Time
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger, out io.Writer) *App {
	return &App{
		Config: cfg,
		Logger: logging.Component(logger, "app"),
		Out:    out,
		now:    time.Now,
	}
}

func (a *App) newIndicators() *fetcher.WorldBank {
	return fetcher.NewWorldBank(fetcher.WorldBankOptions{
		BaseURL:           a.Config.WorldBank.BaseURL,
		Timeout:           a.Config.WorldBank.Timeout,
		RequestsPerMinute: a.Config.WorldBank.RequestsPerMinute,
		UserAgent:         a.userAgent(),
	}, a.Logger)
}

func (a *App) newRateCache() *exchange.Cache {
	rates := fetcher.NewExchangeRates(fetcher.ExchangeOptions{
		BaseURL:   a.Config.Exchange.BaseURL,
		Timeout:   a.Config.Exchange.Timeout,
		UserAgent: a.userAgent(),
	}, a.Logger)
	return exchange.NewCache(rates, exchange.Options{TTL: a.Config.Exchange.TTL, Now: a.now}, a.Logger)
}

func (a *App) userAgent() string {
	if a.Config.WorldBank.UserAgent != "" {
		return a.Config.WorldBank.UserAgent
	}
	return version.UserAgent()
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Enabled && a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, a.Config.Alerting.Timeout, a.Logger)
	}
	return alerting.NopNotifier{}
}

func (a *App) serviceOptions() service.Options {
	return service.Options{
		BenchmarkCountry: a.Config.WorldBank.BenchmarkCountry,
		InflationCountry: a.Config.WorldBank.InflationCountry,
		BaseCurrency:     a.Config.Exchange.BaseCurrency,
		Now:              a.now,
	}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, errors.New("database.dsn not configured")
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// services bundles everything a command may need on top of an open store.
type services struct {
	records  *service.RecordService
	analysis *service.AnalysisService
	reports  *service.ReportService
	rates    *exchange.Cache
}

func (a *App) newServices(store *storage.Store) services {
	stores := service.StoresFrom(store)
	indicators := a.newIndicators()
	rates := a.newRateCache()
	validator := validation.New(a.now)
	opts := a.serviceOptions()

	return services{
		records:  service.NewRecordService(stores, validator, a.Logger),
		analysis: service.NewAnalysisService(indicators, stores, a.newNotifier(), opts, a.Logger),
		reports:  service.NewReportService(stores, indicators, rates, validator, opts, a.Logger),
		rates:    rates,
	}
}

// Serve runs the REST API until SIGINT/SIGTERM.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Config.RequireJWTSecret(); err != nil {
		return err
	}
	metrics.Init()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if a.Config.Database.AutoMigrate {
		applied, err := store.Migrate(ctx)
		if err != nil {
			return err
		}
		if len(applied) > 0 {
			a.Logger.Info().Strs("versions", applied).Msg("migrations applied")
		}
	}

	svcs := a.newServices(store)
	accounts, err := service.NewAccountService(store, validation.New(a.now), service.AccountOptions{
		JWTSecret:   []byte(a.Config.Auth.JWTSecret),
		Issuer:      a.Config.Auth.Issuer,
		TokenTTL:    a.Config.Auth.TokenTTL,
		BcryptCost:  a.Config.Auth.BcryptCost,
		AdminEmails: a.Config.Auth.AdminEmails,
		Now:         a.now,
	}, a.Logger)
	if err != nil {
		return err
	}
	srv, err := httpapi.NewServer(httpapi.Deps{
		Records:  svcs.records,
		Analysis: svcs.analysis,
		Reports:  svcs.reports,
		Accounts: accounts,
		Health:   store,
		Rates:    svcs.rates,
	}, httpapi.Options{
		Addr:            a.Config.Server.Addr,
		ReadTimeout:     a.Config.Server.ReadTimeout,
		WriteTimeout:    a.Config.Server.WriteTimeout,
		ShutdownTimeout: a.Config.Server.ShutdownTimeout,
		JWTSecret:       []byte(a.Config.Auth.JWTSecret),
	}, a.Logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if interval := a.Config.Exchange.WarmInterval; interval > 0 {
		warmer := scheduler.New(scheduler.Options{
			Name:       "rates-warmer",
			Interval:   interval,
			RunOnStart: true,
			JobTimeout: a.Config.Exchange.Timeout * 2,
		}, a.Logger)
		g.Go(func() error {
			return warmer.Run(gctx, a.warmRates(svcs.rates))
		})
	}

	a.Logger.Info().Str("version", version.Version).Msg("taxtrail api starting")
	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("api terminated with error")
		return err
	}

	a.Logger.Info().Msg("taxtrail api stopped")
	return nil
}

func (a *App) warmRates(cache *exchange.Cache) scheduler.JobFunc {
	base := a.Config.Exchange.BaseCurrency
	return func(ctx context.Context, _ time.Time) error {
		set, err := cache.Rates(ctx, base)
		if err != nil {
			return fmt.Errorf("warm %s rates: %w", base, err)
		}
		a.Logger.Debug().Str("base", set.Base).Int("currencies", len(set.Rates)).Msg("exchange rates warm")
		return nil
	}
}

// Migrate applies pending schema migrations.
func (a *App) Migrate(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	applied, err := store.Migrate(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(a.Out, "schema up to date")
		return nil
	}
	for _, v := range applied {
		fmt.Fprintf(a.Out, "applied %s\n", v)
	}
	return nil
}

// ExportOptions select the export formats. Empty paths are skipped.
type ExportOptions struct {
	CSVPath  string
	PNGPath  string
	XLSXPath string
	PDFPath  string
	MaxRows  int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// SimulateOptions feed the offline decision table.
type SimulateOptions struct {
	Country      string
	Gini         float64
	Programs     int
	Region       string
	PovertyRate  float64
	Benchmark    float64
	HasBenchmark bool
	Notify       bool
}

// TokenOptions describe a token to mint.
type TokenOptions struct {
	Subject string
	Role    string
	TTL     time.Duration
}
