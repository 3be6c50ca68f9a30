package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"taxtrail/internal/alerting"
	"taxtrail/internal/analysis"
	"taxtrail/internal/apperr"
	"taxtrail/internal/fetcher"
	"taxtrail/internal/logging"
	"taxtrail/internal/metrics"
	"taxtrail/internal/storage"
)

// AnalysisService blends stored records with World Bank indicators.
type AnalysisService struct {
	indicators  fetcher.IndicatorFetcher
	programs    storage.ProgramStore
	development storage.DevelopmentStore
	notifier    alerting.Notifier
	opts        Options
	logger      zerolog.Logger
}

// NewAnalysisService wires the analysis pipeline. A nil notifier disables alerts.
func NewAnalysisService(indicators fetcher.IndicatorFetcher, stores Stores, notifier alerting.Notifier, opts Options, logger zerolog.Logger) *AnalysisService {
	if notifier == nil {
		notifier = alerting.NopNotifier{}
	}
	return &AnalysisService{
		indicators:  indicators,
		programs:    stores.Programs,
		development: stores.Development,
		notifier:    notifier,
		opts:        opts.withDefaults(),
		logger:      logging.Component(logger, "analysis_service"),
	}
}

// IndicatorHistory is a short series lookup.
type IndicatorHistory struct {
	Country   string                     `json:"country"`
	Indicator string                     `json:"indicator"`
	Data      []fetcher.IndicatorReading `json:"data"`
}

// GiniHistory returns up to five recent Gini readings.
func (s *AnalysisService) GiniHistory(ctx context.Context, country string) (IndicatorHistory, error) {
	return s.history(ctx, country, fetcher.SeriesGini, "Gini Index (Income Inequality)")
}

// PovertyHistory returns up to five recent poverty headcount readings.
func (s *AnalysisService) PovertyHistory(ctx context.Context, country string) (IndicatorHistory, error) {
	return s.history(ctx, country, fetcher.SeriesPoverty, "Poverty Rate")
}

func (s *AnalysisService) history(ctx context.Context, country, series, label string) (IndicatorHistory, error) {
	code, err := requireCountry(country)
	if err != nil {
		return IndicatorHistory{}, err
	}
	readings, err := s.indicators.FetchSeries(ctx, code, series)
	if err != nil {
		return IndicatorHistory{}, err
	}
	return IndicatorHistory{
		Country:   code,
		Indicator: label,
		Data:      fetcher.History(readings, fetcher.HistoryDepth),
	}, nil
}

// InequalityAnalysis combines the latest Gini index with program totals. It
// fails when the indicator is unavailable; no partial result is returned.
func (s *AnalysisService) InequalityAnalysis(ctx context.Context, country string) (analysis.InequalityAnalysis, error) {
	code, err := requireCountry(country)
	if err != nil {
		return analysis.InequalityAnalysis{}, err
	}

	readings, err := s.indicators.FetchSeries(ctx, code, fetcher.SeriesGini)
	if err != nil {
		return analysis.InequalityAnalysis{}, err
	}
	latest, ok := fetcher.Latest(readings)
	if !ok {
		return analysis.InequalityAnalysis{}, apperr.New(apperr.KindIndicatorUnavailable, "No valid Gini data available")
	}

	programs, err := s.programs.ListPrograms(ctx)
	if err != nil {
		return analysis.InequalityAnalysis{}, fmt.Errorf("load social programs: %w", err)
	}

	result := analysis.AnalyzeInequality(code, latest, programTotals(programs))
	metrics.IncVerdict("inequality", string(result.Classification))
	s.logger.Info().
		Str("country", code).
		Str("gini", latest.Value.String()).
		Int("programs", result.TotalPrograms).
		Str("classification", string(result.Classification)).
		Msg("inequality analysis computed")

	if result.Classification == analysis.HighInequalityPolicyGap {
		s.notify(ctx, alerting.Notification{
			Analysis:       "inequality",
			Subject:        code,
			Classification: string(result.Classification),
			Value:          latest.Value,
			Message:        result.Analysis,
			Source:         analysis.BenchmarkSourceLive,
			OccurredAt:     s.opts.Now(),
		})
	}
	return result, nil
}

func programTotals(programs []storage.SocialProgram) analysis.ProgramTotals {
	totals := analysis.ProgramTotals{Count: len(programs), Budget: decimal.Zero}
	for _, p := range programs {
		totals.Budget = totals.Budget.Add(p.BudgetUsed)
		totals.Beneficiaries += p.BeneficiariesCount
	}
	return totals
}

// Benchmark fetches the global SDG benchmark. Any failure degrades to the
// offline fallback instead of failing the caller.
func (s *AnalysisService) Benchmark(ctx context.Context) analysis.Benchmark {
	readings, err := s.indicators.FetchSeries(ctx, s.opts.BenchmarkCountry, fetcher.SeriesGini)
	if err == nil {
		if latest, ok := fetcher.Latest(readings); ok {
			return analysis.LiveBenchmark(latest, s.opts.Now())
		}
	}
	s.logger.Warn().Err(err).Str("country", s.opts.BenchmarkCountry).Msg("benchmark unavailable, using offline fallback")
	return analysis.FallbackBenchmark()
}

// RegionSDG compares a province's latest poverty rate with the global benchmark.
func (s *AnalysisService) RegionSDG(ctx context.Context, regionName string) (analysis.RegionSDGAnalysis, error) {
	local, err := s.development.LatestDevelopment(ctx, regionName)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindRecordNotFound {
			return analysis.RegionSDGAnalysis{}, apperr.Wrap(apperr.KindRegionNotFound, err, "No data found for %s", regionName)
		}
		return analysis.RegionSDGAnalysis{}, fmt.Errorf("load regional development: %w", err)
	}

	benchmark := s.Benchmark(ctx)
	result := analysis.AnalyzeRegion(local.RegionName, local.Year, local.PovertyRate, benchmark)
	metrics.IncVerdict("sdg", string(result.Analysis.Status))

	if result.Analysis.Status == analysis.Critical {
		s.notify(ctx, alerting.Notification{
			Analysis:       "sdg",
			Subject:        local.RegionName,
			Classification: string(result.Analysis.Status),
			Value:          local.PovertyRate,
			Benchmark:      decimal.NewNullDecimal(benchmark.GlobalBenchmark),
			Gap:            result.Analysis.Gap,
			Message:        result.Analysis.Recommendation,
			Source:         benchmark.Source,
			OccurredAt:     s.opts.Now(),
		})
	}
	return result, nil
}

func (s *AnalysisService) notify(ctx context.Context, note alerting.Notification) {
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).
			Str("analysis", note.Analysis).
			Str("subject", note.Subject).
			Msg("failed to dispatch alert")
	}
}
