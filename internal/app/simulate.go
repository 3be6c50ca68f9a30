package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"taxtrail/internal/alerting"
	"taxtrail/internal/analysis"
	"taxtrail/internal/fetcher"
)

// Simulation is the offline evaluation of both decision tables.
type Simulation struct {
	Inequality analysis.InequalityAnalysis `json:"inequality"`
	SDG        analysis.RegionSDGAnalysis  `json:"sdg"`
}

// Simulate evaluates the decision tables for the given inputs without touching
// the database or the indicator API. With Notify set, verdicts that would
// alert are pushed through the configured notifier.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) (Simulation, error) {
	if opts.Programs < 0 {
		return Simulation{}, errors.New("programs cannot be negative")
	}
	country := strings.ToUpper(strings.TrimSpace(opts.Country))
	if country == "" {
		country = a.Config.WorldBank.BenchmarkCountry
	}

	gini := fetcher.IndicatorReading{Year: "simulated", Value: decimal.NewFromFloat(opts.Gini)}
	benchmark := analysis.FallbackBenchmark()
	if opts.HasBenchmark {
		benchmark = analysis.LiveBenchmark(fetcher.IndicatorReading{Year: "simulated", Value: decimal.NewFromFloat(opts.Benchmark)}, a.now())
	}

	sim := Simulation{
		Inequality: analysis.AnalyzeInequality(country, gini, analysis.ProgramTotals{Count: opts.Programs, Budget: decimal.Zero}),
		SDG:        analysis.AnalyzeRegion(opts.Region, a.now().Year(), decimal.NewFromFloat(opts.PovertyRate), benchmark),
	}

	if err := a.printJSON(sim); err != nil {
		return sim, err
	}
	if !opts.Notify {
		return sim, nil
	}
	if !a.Config.Alerting.Enabled {
		return sim, errors.New("alerting 未启用")
	}
	notifier := a.newNotifier()
	if _, ok := notifier.(alerting.NopNotifier); ok {
		return sim, errors.New("未配置任何告警通道")
	}

	for _, note := range a.simulatedAlerts(sim) {
		if err := notifier.Notify(ctx, note); err != nil {
			return sim, fmt.Errorf("send %s alert: %w", note.Analysis, err)
		}
	}
	return sim, nil
}

func (a *App) simulatedAlerts(sim Simulation) []alerting.Notification {
	var notes []alerting.Notification
	if sim.Inequality.Classification == analysis.HighInequalityPolicyGap {
		notes = append(notes, alerting.Notification{
			Analysis:       "inequality",
			Subject:        sim.Inequality.Country,
			Classification: string(sim.Inequality.Classification),
			Value:          sim.Inequality.GiniIndex,
			Message:        sim.Inequality.Analysis,
			Source:         "simulation",
			OccurredAt:     a.now(),
		})
	}
	if sim.SDG.Analysis.Status == analysis.Critical {
		notes = append(notes, alerting.Notification{
			Analysis:       "sdg",
			Subject:        sim.SDG.Region,
			Classification: string(sim.SDG.Analysis.Status),
			Value:          sim.SDG.Analysis.LocalPovertyRate,
			Benchmark:      decimal.NewNullDecimal(sim.SDG.Analysis.GlobalBenchmark),
			Gap:            sim.SDG.Analysis.Gap,
			Message:        sim.SDG.Analysis.Recommendation,
			Source:         "simulation",
			OccurredAt:     a.now(),
		})
	}
	return notes
}
