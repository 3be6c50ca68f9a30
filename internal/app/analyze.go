package app

import (
	"context"
	"encoding/json"
)

// AnalyzeInequality prints the inequality analysis for a country.
func (a *App) AnalyzeInequality(ctx context.Context, country string) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	result, err := a.newServices(store).analysis.InequalityAnalysis(ctx, country)
	if err != nil {
		return err
	}
	return a.printJSON(result)
}

// AnalyzeSDG prints the region-vs-global poverty comparison.
func (a *App) AnalyzeSDG(ctx context.Context, region string) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	result, err := a.newServices(store).analysis.RegionSDG(ctx, region)
	if err != nil {
		return err
	}
	return a.printJSON(result)
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
