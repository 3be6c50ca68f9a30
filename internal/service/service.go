package service

import (
	"context"
	"strings"
	"time"

	"taxtrail/internal/apperr"
	"taxtrail/internal/exchange"
	"taxtrail/internal/storage"
)

// Stores groups the persistence dependencies.
type Stores struct {
	Regions     storage.RegionStore
	Development storage.DevelopmentStore
	Taxes       storage.TaxStore
	Budgets     storage.BudgetStore
	Programs    storage.ProgramStore
	Users       storage.UserStore
}

// StoresFrom exposes one Store through every interface.
func StoresFrom(s *storage.Store) Stores {
	return Stores{Regions: s, Development: s, Taxes: s, Budgets: s, Programs: s, Users: s}
}

// RateSource supplies exchange rate snapshots.
type RateSource interface {
	Rates(ctx context.Context, base string) (*exchange.RateSet, error)
}

var _ RateSource = (*exchange.Cache)(nil)

// Options carry the lookup defaults shared by the services.
type Options struct {
	BenchmarkCountry string
	InflationCountry string
	BaseCurrency     string
	Now              func() time.Time
}

func (o Options) withDefaults() Options {
	if o.BenchmarkCountry == "" {
		o.BenchmarkCountry = "LKA"
	}
	if o.InflationCountry == "" {
		o.InflationCountry = o.BenchmarkCountry
	}
	if o.BaseCurrency == "" {
		o.BaseCurrency = "LKR"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func requireCountry(country string) (string, error) {
	country = strings.TrimSpace(country)
	if country == "" {
		return "", apperr.New(apperr.KindValidation, "Invalid or missing country parameter")
	}
	return strings.ToUpper(country), nil
}

// ensureRegion turns a missing region into RegionNotFound.
func ensureRegion(ctx context.Context, regions storage.RegionStore, id string) (storage.Region, error) {
	region, err := regions.GetRegion(ctx, id)
	if err != nil {
		return storage.Region{}, regionNotFound(err)
	}
	return region, nil
}

func regionNotFound(err error) error {
	if apperr.KindOf(err) == apperr.KindRecordNotFound {
		return apperr.Wrap(apperr.KindRegionNotFound, err, "Region not found")
	}
	return err
}
