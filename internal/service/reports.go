package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"taxtrail/internal/fetcher"
	"taxtrail/internal/logging"
	"taxtrail/internal/report"
	"taxtrail/internal/storage"
	"taxtrail/internal/validation"
)

// Listing defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// ReportService produces grouped sums and derived amounts.
type ReportService struct {
	regions    storage.RegionStore
	taxes      storage.TaxStore
	budgets    storage.BudgetStore
	indicators fetcher.IndicatorFetcher
	rates      RateSource
	validator  *validation.Validator
	opts       Options
	logger     zerolog.Logger
}

// NewReportService wires the aggregation reporter.
func NewReportService(stores Stores, indicators fetcher.IndicatorFetcher, rates RateSource, validator *validation.Validator, opts Options, logger zerolog.Logger) *ReportService {
	if validator == nil {
		validator = validation.New(nil)
	}
	return &ReportService{
		regions:    stores.Regions,
		taxes:      stores.Taxes,
		budgets:    stores.Budgets,
		indicators: indicators,
		rates:      rates,
		validator:  validator,
		opts:       opts.withDefaults(),
		logger:     logging.Component(logger, "report_service"),
	}
}

// RegionTaxTotal is one row of the tax-by-region summary.
type RegionTaxTotal struct {
	RegionID   string          `json:"regionId"`
	RegionName string          `json:"regionName"`
	TotalTax   decimal.Decimal `json:"totalTax"`
	Count      int             `json:"count"`
}

// TaxSummaryByRegion totals contributions per region. Contributions whose
// region no longer exists are left out.
func (s *ReportService) TaxSummaryByRegion(ctx context.Context) ([]RegionTaxTotal, error) {
	taxes, err := s.taxes.AllTaxes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tax contributions: %w", err)
	}
	regions, err := s.regions.ListRegions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}

	names := make(map[string]string, len(regions))
	for _, r := range regions {
		names[r.ID] = r.Name
	}

	groups := report.WithNames(report.GroupSum(taxes,
		func(t storage.TaxContribution) string { return t.RegionID },
		func(t storage.TaxContribution) decimal.Decimal { return t.Amount },
	), names)

	out := make([]RegionTaxTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, RegionTaxTotal{RegionID: g.GroupKey, RegionName: g.Name, TotalTax: g.TotalAmount, Count: g.Count})
	}
	return out, nil
}

// SectorBudgetTotal is one row of the budget-by-sector summary.
type SectorBudgetTotal struct {
	Sector         string          `json:"sector"`
	TotalAllocated decimal.Decimal `json:"totalAllocated"`
	Count          int             `json:"count"`
}

// BudgetSummaryBySector totals allocations per sector.
func (s *ReportService) BudgetSummaryBySector(ctx context.Context) ([]SectorBudgetTotal, error) {
	budgets, err := s.budgets.AllBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load budget allocations: %w", err)
	}

	groups := report.GroupSum(budgets,
		func(b storage.BudgetAllocation) string { return b.Sector },
		func(b storage.BudgetAllocation) decimal.Decimal { return b.AllocatedAmount },
	)
	out := make([]SectorBudgetTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, SectorBudgetTotal{Sector: g.GroupKey, TotalAllocated: g.TotalAmount, Count: g.Count})
	}
	return out, nil
}

// AdjustedAllocation is an allocation with its inflation-adjusted amount.
type AdjustedAllocation struct {
	storage.BudgetAllocation
	AdjustedAmount decimal.Decimal `json:"adjustedAmount"`
}

// AdjustedAllocations is the inflation report for one year.
type AdjustedAllocations struct {
	Year               int                  `json:"year"`
	InflationRate      decimal.Decimal      `json:"inflationRate"`
	InflationAvailable bool                 `json:"inflationAvailable"`
	Data               []AdjustedAllocation `json:"data"`
}

// AdjustedAllocations applies the year's CPI inflation to each allocation.
// An unavailable inflation rate counts as 0%.
func (s *ReportService) AdjustedAllocations(ctx context.Context, year int) (AdjustedAllocations, error) {
	budgets, err := s.budgets.ListBudgets(ctx, year)
	if err != nil {
		return AdjustedAllocations{}, fmt.Errorf("load budget allocations: %w", err)
	}

	rate, available := s.inflationRate(ctx, year)
	adjusted := report.AdjustForInflation(budgets,
		func(b storage.BudgetAllocation) decimal.Decimal { return b.AllocatedAmount },
		rate,
	)

	out := AdjustedAllocations{Year: year, InflationRate: rate, InflationAvailable: available, Data: make([]AdjustedAllocation, 0, len(adjusted))}
	for _, a := range adjusted {
		out.Data = append(out.Data, AdjustedAllocation{BudgetAllocation: a.Record, AdjustedAmount: a.AdjustedAmount})
	}
	return out, nil
}

func (s *ReportService) inflationRate(ctx context.Context, year int) (decimal.Decimal, bool) {
	if s.indicators == nil {
		return decimal.Zero, false
	}
	readings, err := s.indicators.FetchSeries(ctx, s.opts.InflationCountry, fetcher.SeriesInflation)
	if err != nil {
		s.logger.Warn().Err(err).Int("year", year).Msg("inflation rate unavailable, using 0%")
		return decimal.Zero, false
	}
	reading, ok := fetcher.ForYear(readings, year)
	if !ok {
		s.logger.Warn().Int("year", year).Msg("no inflation reading for year, using 0%")
		return decimal.Zero, false
	}
	return reading.Value, true
}

// TaxQuery selects a page of contributions and an optional display currency.
type TaxQuery struct {
	Filter   storage.TaxFilter
	Page     int
	Limit    int
	Currency string
}

// TaxView is a contribution with optional currency conversion fields.
type TaxView struct {
	storage.TaxContribution
	OriginalAmount    *decimal.Decimal `json:"originalAmount,omitempty"`
	ConvertedAmount   *decimal.Decimal `json:"convertedAmount,omitempty"`
	ConvertedCurrency string           `json:"convertedCurrency,omitempty"`
}

// TaxPage is one page of contributions.
type TaxPage struct {
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Pages int       `json:"pages"`
	Data  []TaxView `json:"data"`
}

// ListTaxes pages through contributions and converts amounts when a currency is requested.
// An unsupported currency fails the whole request.
func (s *ReportService) ListTaxes(ctx context.Context, q TaxQuery) (TaxPage, error) {
	if err := s.validator.IncomeBracket(q.Filter.IncomeBracket); err != nil {
		return TaxPage{}, err
	}
	if q.Page <= 0 {
		q.Page = DefaultPage
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}

	page := storage.Page{Number: q.Page, Size: q.Limit}
	taxes, err := s.taxes.ListTaxes(ctx, q.Filter, page)
	if err != nil {
		return TaxPage{}, fmt.Errorf("list tax contributions: %w", err)
	}
	total, err := s.taxes.CountTaxes(ctx, q.Filter)
	if err != nil {
		return TaxPage{}, fmt.Errorf("count tax contributions: %w", err)
	}

	views := make([]TaxView, 0, len(taxes))
	if q.Currency == "" {
		for _, t := range taxes {
			views = append(views, TaxView{TaxContribution: t})
		}
	} else {
		rates, err := s.rates.Rates(ctx, s.opts.BaseCurrency)
		if err != nil {
			return TaxPage{}, err
		}
		converted, err := report.ConvertCurrency(taxes,
			func(t storage.TaxContribution) decimal.Decimal { return t.Amount },
			rates, q.Currency,
		)
		if err != nil {
			return TaxPage{}, err
		}
		for _, c := range converted {
			original, amount := c.OriginalAmount, c.ConvertedAmount
			views = append(views, TaxView{
				TaxContribution:   c.Record,
				OriginalAmount:    &original,
				ConvertedAmount:   &amount,
				ConvertedCurrency: c.Currency,
			})
		}
	}

	return TaxPage{Total: total, Page: q.Page, Pages: report.Pages(total, q.Limit), Data: views}, nil
}
