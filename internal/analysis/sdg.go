package analysis

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"taxtrail/internal/fetcher"
)

// Classification is an analysis verdict.
type Classification string

const (
	Critical Classification = "CRITICAL"
	// Moderate is part of the SDG vocabulary but no comparison rule selects it.
	Moderate  Classification = "MODERATE"
	Excellent Classification = "EXCELLENT"

	HighInequalityPolicyGap Classification = "HIGH_INEQUALITY_POLICY_GAP"
	HighInequality          Classification = "HIGH_INEQUALITY"
	ModerateInequality      Classification = "MODERATE_INEQUALITY"
	LowInequality           Classification = "LOW_INEQUALITY"
)

// Benchmark sources and fallback values.
const (
	BenchmarkSourceLive    = "World Bank API (Live)"
	BenchmarkSourceOffline = "World Bank API (Offline Mode)"
	BenchmarkSeries        = "Gini Index (Inequality Measurement)"
)

// FallbackBenchmarkValue is used when the benchmark indicator cannot be fetched.
var FallbackBenchmarkValue = decimal.RequireFromString("27.7")

// Benchmark is the global reference value a region is compared against.
type Benchmark struct {
	Source          string          `json:"source"`
	Series          string          `json:"series"`
	GlobalBenchmark decimal.Decimal `json:"globalBenchmark"`
	Year            string          `json:"year,omitempty"`
	RegionalTrend   string          `json:"regionalTrend"`
	Note            string          `json:"note,omitempty"`
	LastUpdated     *time.Time      `json:"lastUpdated,omitempty"`
	Degraded        bool            `json:"degraded"`
}

// LiveBenchmark wraps a fetched reading.
func LiveBenchmark(reading fetcher.IndicatorReading, fetchedAt time.Time) Benchmark {
	at := fetchedAt.UTC()
	return Benchmark{
		Source:          BenchmarkSourceLive,
		Series:          BenchmarkSeries,
		GlobalBenchmark: reading.Value,
		Year:            reading.Year,
		RegionalTrend:   "Stable",
		LastUpdated:     &at,
	}
}

// FallbackBenchmark is the low-confidence benchmark used in offline mode.
func FallbackBenchmark() Benchmark {
	return Benchmark{
		Source:          BenchmarkSourceOffline,
		Series:          BenchmarkSeries,
		GlobalBenchmark: FallbackBenchmarkValue,
		RegionalTrend:   "Unavailable",
		Note:            "Using cached data for stability",
		Degraded:        true,
	}
}

// SDGVerdict compares a local poverty rate with the global benchmark.
type SDGVerdict struct {
	LocalPovertyRate decimal.Decimal `json:"localPovertyRate"`
	GlobalBenchmark  decimal.Decimal `json:"globalBenchmark"`
	Gap              string          `json:"gap"`
	Status           Classification  `json:"status"`
	Recommendation   string          `json:"recommendation"`
}

// CompareSDG classifies gap = local - benchmark. A positive gap is CRITICAL, anything else EXCELLENT.
// The comparison uses full precision; the reported gap is rounded to two decimals.
func CompareSDG(localPovertyRate, benchmark decimal.Decimal) SDGVerdict {
	gap := localPovertyRate.Sub(benchmark)

	verdict := SDGVerdict{
		LocalPovertyRate: localPovertyRate,
		GlobalBenchmark:  benchmark,
	}
	if gap.IsPositive() {
		verdict.Status = Critical
		verdict.Gap = gap.StringFixed(2)
		verdict.Recommendation = fmt.Sprintf("Poverty is %s%% higher than the global benchmark.", gap.StringFixed(1))
		return verdict
	}

	abs := gap.Abs()
	verdict.Status = Excellent
	verdict.Gap = abs.StringFixed(2)
	verdict.Recommendation = fmt.Sprintf("Region is performing better than the global benchmark by %s%%.", abs.StringFixed(1))
	return verdict
}

// RegionSDGAnalysis is the region-vs-global report for the latest local record.
type RegionSDGAnalysis struct {
	Region    string     `json:"region"`
	Year      int        `json:"year"`
	Analysis  SDGVerdict `json:"analysis"`
	Source    string     `json:"source"`
	Benchmark Benchmark  `json:"benchmark"`
}

// AnalyzeRegion builds the region-vs-global report.
func AnalyzeRegion(region string, year int, localPovertyRate decimal.Decimal, benchmark Benchmark) RegionSDGAnalysis {
	return RegionSDGAnalysis{
		Region:    region,
		Year:      year,
		Analysis:  CompareSDG(localPovertyRate, benchmark.GlobalBenchmark),
		Source:    benchmark.Source,
		Benchmark: benchmark,
	}
}
