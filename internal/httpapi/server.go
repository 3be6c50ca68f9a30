package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"taxtrail/internal/analysis"
	"taxtrail/internal/auth"
	"taxtrail/internal/exchange"
	"taxtrail/internal/logging"
	"taxtrail/internal/metrics"
	"taxtrail/internal/service"
	"taxtrail/internal/storage"
	"taxtrail/internal/version"
)

// Records is the CRUD surface the handlers need.
type Records interface {
	CreateRegion(ctx context.Context, r storage.Region) (storage.Region, error)
	GetRegion(ctx context.Context, id string) (storage.Region, error)
	ListRegions(ctx context.Context) ([]storage.Region, error)
	UpdateRegion(ctx context.Context, id string, r storage.Region) (storage.Region, error)
	DeleteRegion(ctx context.Context, id string) error
	CreateDevelopment(ctx context.Context, d storage.RegionalDevelopment) (storage.RegionalDevelopment, error)
	UpdateDevelopment(ctx context.Context, id string, d storage.RegionalDevelopment) (storage.RegionalDevelopment, error)
	ListDevelopment(ctx context.Context, filter storage.DevelopmentFilter) ([]storage.RegionalDevelopment, error)
	CreateTax(ctx context.Context, t storage.TaxContribution) (storage.TaxContribution, error)
	GetTax(ctx context.Context, id string) (storage.TaxContribution, error)
	UpdateTax(ctx context.Context, id string, patch service.TaxPatch) (storage.TaxContribution, error)
	DeleteTax(ctx context.Context, id string) error
	CreateBudget(ctx context.Context, b storage.BudgetAllocation) (storage.BudgetAllocation, error)
	ListBudgets(ctx context.Context) ([]storage.BudgetAllocation, error)
	CreateProgram(ctx context.Context, p storage.SocialProgram, subject string) (storage.SocialProgram, error)
	GetProgram(ctx context.Context, id string) (storage.SocialProgram, error)
	UpdateProgram(ctx context.Context, id string, patch service.ProgramPatch) (storage.SocialProgram, error)
	ListPrograms(ctx context.Context) ([]storage.SocialProgram, error)
	DeleteProgram(ctx context.Context, id string) error
}

// Analyzer produces indicator-backed analyses.
type Analyzer interface {
	GiniHistory(ctx context.Context, country string) (service.IndicatorHistory, error)
	PovertyHistory(ctx context.Context, country string) (service.IndicatorHistory, error)
	InequalityAnalysis(ctx context.Context, country string) (analysis.InequalityAnalysis, error)
	RegionSDG(ctx context.Context, regionName string) (analysis.RegionSDGAnalysis, error)
}

// Reporter produces aggregate reports.
type Reporter interface {
	TaxSummaryByRegion(ctx context.Context) ([]service.RegionTaxTotal, error)
	BudgetSummaryBySector(ctx context.Context) ([]service.SectorBudgetTotal, error)
	AdjustedAllocations(ctx context.Context, year int) (service.AdjustedAllocations, error)
	ListTaxes(ctx context.Context, q service.TaxQuery) (service.TaxPage, error)
}

// Accounts registers users and exchanges credentials for tokens.
type Accounts interface {
	Register(ctx context.Context, name, email, password string) (service.Session, error)
	Login(ctx context.Context, email, password string) (service.Session, error)
}

// Pinger reports backing store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RateSnapshot exposes the cached exchange rates without refreshing them.
type RateSnapshot interface {
	Snapshot() *exchange.RateSet
}

var (
	_ Records      = (*service.RecordService)(nil)
	_ Analyzer     = (*service.AnalysisService)(nil)
	_ Reporter     = (*service.ReportService)(nil)
	_ Accounts     = (*service.AccountService)(nil)
	_ Pinger       = (*storage.Store)(nil)
	_ RateSnapshot = (*exchange.Cache)(nil)
)

// Deps are the services behind the routes. Accounts, Health and Rates may be nil;
// without Accounts the register and login routes are not mounted.
type Deps struct {
	Records  Records
	Analysis Analyzer
	Reports  Reporter
	Accounts Accounts
	Health   Pinger
	Rates    RateSnapshot
}

// Options configures the HTTP server.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	JWTSecret       []byte
}

// Server exposes the REST API.
type Server struct {
	deps     Deps
	opts     Options
	logger   zerolog.Logger
	writeErr func(w http.ResponseWriter, r *http.Request, err error)
	auth     *auth.Middleware
	handler  http.Handler
}

// NewServer builds the router for the given services.
func NewServer(deps Deps, opts Options, logger zerolog.Logger) (*Server, error) {
	if deps.Records == nil || deps.Analysis == nil || deps.Reports == nil {
		return nil, errors.New("httpapi: records, analysis and reports services are required")
	}
	if len(opts.JWTSecret) == 0 {
		return nil, errors.New("httpapi: jwt secret is required")
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	log := logging.Component(logger, "httpapi")
	s := &Server{deps: deps, opts: opts, logger: log}
	s.writeErr = errorWriter(log)
	s.auth = auth.NewMiddleware(opts.JWTSecret, s.writeErr, log)

	mux := http.NewServeMux()
	s.routes(mux)
	s.handler = recoverPanics(instrument(mux, log), log)
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	// Credentials in, token out: these stay outside the bearer check.
	if s.deps.Accounts != nil {
		mux.HandleFunc("POST /api/v1/auth/register", s.register)
		mux.HandleFunc("POST /api/v1/auth/login", s.login)
	}

	s.api(mux, "GET /api/v1/regions", s.listRegions)
	s.api(mux, "POST /api/v1/regions", s.createRegion)
	s.api(mux, "GET /api/v1/regions/{id}", s.getRegion)
	s.api(mux, "PUT /api/v1/regions/{id}", s.updateRegion)
	s.api(mux, "DELETE /api/v1/regions/{id}", s.deleteRegion)

	s.api(mux, "GET /api/v1/regional-development", s.listDevelopment)
	s.api(mux, "POST /api/v1/regional-development", s.createDevelopment)
	s.api(mux, "GET /api/v1/regional-development/sdg-metrics/{regionName}", s.regionSDG)
	s.api(mux, "PUT /api/v1/regional-development/{id}", s.updateDevelopment)

	s.api(mux, "GET /api/v1/tax-contributions", s.listTaxes)
	s.api(mux, "POST /api/v1/tax-contributions", s.createTax)
	s.api(mux, "GET /api/v1/tax-contributions/summary/region", s.taxSummary)
	s.api(mux, "GET /api/v1/tax-contributions/{id}", s.getTax)
	s.api(mux, "PATCH /api/v1/tax-contributions/{id}", s.updateTax)
	s.api(mux, "DELETE /api/v1/tax-contributions/{id}", s.deleteTax)

	s.api(mux, "GET /api/v1/budget-allocations", s.listBudgets)
	s.api(mux, "POST /api/v1/budget-allocations", s.createBudget)
	s.api(mux, "GET /api/v1/budget-allocations/summary/by-sector", s.budgetSummary)
	s.api(mux, "GET /api/v1/budget-allocations/adjusted/{year}", s.adjustedBudgets)

	s.api(mux, "GET /api/v1/social-programs", s.listPrograms)
	s.api(mux, "POST /api/v1/social-programs", s.createProgram)
	s.api(mux, "GET /api/v1/social-programs/inequality-analysis/{country}", s.inequalityAnalysis)
	s.api(mux, "GET /api/v1/social-programs/{id}", s.getProgram)
	s.api(mux, "PUT /api/v1/social-programs/{id}", s.updateProgram)
	s.api(mux, "DELETE /api/v1/social-programs/{id}", s.deleteProgram)

	s.api(mux, "GET /api/v1/inequality/gini/{country}", s.giniHistory)
	s.api(mux, "GET /api/v1/world-bank/poverty/{country}", s.povertyHistory)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "NOT_FOUND", Message: fmt.Sprintf("Route not found: %s", r.URL.Path)})
	})
}

// api registers an authenticated route. Auth wraps the route handler rather
// than the mux so that the matched pattern stays visible to instrument.
func (s *Server) api(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.auth.Wrap(h))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok", "version": version.Version}
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Health.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("health check failed")
			body["status"] = "degraded"
			body["database"] = "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "ok"
	}
	if s.deps.Rates != nil {
		body["exchangeRates"] = rateCacheStatus(s.deps.Rates.Snapshot(), time.Now())
	}
	writeJSON(w, http.StatusOK, body)
}

// rateCacheStatus reports the age of the cached rate snapshot. A cold cache is
// not a health failure; the next conversion fetches rates.
func rateCacheStatus(snap *exchange.RateSet, now time.Time) map[string]any {
	if snap == nil {
		return map[string]any{"status": "cold"}
	}
	return map[string]any{
		"status":     "warm",
		"base":       snap.Base,
		"fetchedAt":  snap.FetchedAt,
		"ageSeconds": int64(now.Sub(snap.FetchedAt).Seconds()),
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.handler,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.opts.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	s.logger.Info().Msg("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
