package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"taxtrail/internal/alerting"
	"taxtrail/internal/apperr"
	"taxtrail/internal/exchange"
	"taxtrail/internal/fetcher"
	"taxtrail/internal/storage"
)

type memoryStore struct {
	mu          sync.Mutex
	regions     []storage.Region
	development []storage.RegionalDevelopment
	taxes       []storage.TaxContribution
	budgets     []storage.BudgetAllocation
	programs    []storage.SocialProgram
	users       []storage.User
}

func (m *memoryStore) CreateRegion(_ context.Context, r storage.Region) (storage.Region, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.NewString()
	m.regions = append(m.regions, r)
	return r, nil
}

func (m *memoryStore) GetRegion(_ context.Context, id string) (storage.Region, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.regions {
		if r.ID == id {
			return r, nil
		}
	}
	return storage.Region{}, apperr.New(apperr.KindRecordNotFound, "region not found: %s", id)
}

func (m *memoryStore) ListRegions(context.Context) ([]storage.Region, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]storage.Region(nil), m.regions...), nil
}

func (m *memoryStore) UpdateRegion(_ context.Context, r storage.Region) (storage.Region, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.regions {
		if m.regions[i].ID == r.ID {
			m.regions[i].Name = r.Name
			return m.regions[i], nil
		}
	}
	return storage.Region{}, apperr.New(apperr.KindRecordNotFound, "region not found: %s", r.ID)
}

func (m *memoryStore) DeleteRegion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.taxes {
		if t.RegionID == id {
			return apperr.New(apperr.KindValidation, "Region is still referenced by other records")
		}
	}
	for i, r := range m.regions {
		if r.ID == id {
			m.regions = append(m.regions[:i], m.regions[i+1:]...)
			return nil
		}
	}
	return apperr.New(apperr.KindRecordNotFound, "region not found: %s", id)
}

func (m *memoryStore) CreateDevelopment(_ context.Context, d storage.RegionalDevelopment) (storage.RegionalDevelopment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = uuid.NewString()
	m.development = append(m.development, d)
	return d, nil
}

func (m *memoryStore) GetDevelopment(_ context.Context, id string) (storage.RegionalDevelopment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.development {
		if d.ID == id {
			return d, nil
		}
	}
	return storage.RegionalDevelopment{}, apperr.New(apperr.KindRecordNotFound, "regional development data not found: %s", id)
}

func (m *memoryStore) UpdateDevelopment(_ context.Context, d storage.RegionalDevelopment) (storage.RegionalDevelopment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.development {
		if m.development[i].ID == d.ID {
			m.development[i] = d
			return d, nil
		}
	}
	return storage.RegionalDevelopment{}, apperr.New(apperr.KindRecordNotFound, "regional development data not found: %s", d.ID)
}

func (m *memoryStore) ListDevelopment(_ context.Context, f storage.DevelopmentFilter) ([]storage.RegionalDevelopment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]storage.RegionalDevelopment, 0)
	for _, d := range m.development {
		if (f.Year == 0 || d.Year == f.Year) && (f.RegionName == "" || d.RegionName == f.RegionName) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryStore) LatestDevelopment(_ context.Context, name string) (storage.RegionalDevelopment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *storage.RegionalDevelopment
	for i := range m.development {
		d := &m.development[i]
		if d.RegionName == name && (best == nil || d.Year > best.Year) {
			best = d
		}
	}
	if best == nil {
		return storage.RegionalDevelopment{}, apperr.New(apperr.KindRecordNotFound, "regional development data not found: %s", name)
	}
	return *best, nil
}

func (m *memoryStore) CreateTax(_ context.Context, t storage.TaxContribution) (storage.TaxContribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.NewString()
	m.taxes = append(m.taxes, t)
	return t, nil
}

func (m *memoryStore) GetTax(_ context.Context, id string) (storage.TaxContribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.taxes {
		if t.ID == id {
			return t, nil
		}
	}
	return storage.TaxContribution{}, apperr.New(apperr.KindRecordNotFound, "tax record not found: %s", id)
}

func (m *memoryStore) UpdateTax(_ context.Context, t storage.TaxContribution) (storage.TaxContribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.taxes {
		if m.taxes[i].ID == t.ID {
			t.Amount = t.Amount.Round(2)
			m.taxes[i] = t
			return t, nil
		}
	}
	return storage.TaxContribution{}, apperr.New(apperr.KindRecordNotFound, "tax record not found: %s", t.ID)
}

func (m *memoryStore) filteredTaxes(f storage.TaxFilter) []storage.TaxContribution {
	out := make([]storage.TaxContribution, 0)
	for _, t := range m.taxes {
		if (f.RegionID == "" || t.RegionID == f.RegionID) && (f.Year == 0 || t.Year == f.Year) && (f.IncomeBracket == "" || t.IncomeBracket == f.IncomeBracket) {
			out = append(out, t)
		}
	}
	return out
}

func (m *memoryStore) ListTaxes(_ context.Context, f storage.TaxFilter, p storage.Page) ([]storage.TaxContribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.filteredTaxes(f)
	start := p.Offset()
	if start >= len(all) {
		return []storage.TaxContribution{}, nil
	}
	end := start + p.Size
	if p.Size <= 0 || end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (m *memoryStore) CountTaxes(_ context.Context, f storage.TaxFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.filteredTaxes(f))), nil
}

func (m *memoryStore) DeleteTax(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.taxes {
		if t.ID == id {
			m.taxes = append(m.taxes[:i], m.taxes[i+1:]...)
			return nil
		}
	}
	return apperr.New(apperr.KindRecordNotFound, "tax record not found: %s", id)
}

func (m *memoryStore) AllTaxes(context.Context) ([]storage.TaxContribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]storage.TaxContribution(nil), m.taxes...), nil
}

func (m *memoryStore) CreateBudget(_ context.Context, b storage.BudgetAllocation) (storage.BudgetAllocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = uuid.NewString()
	m.budgets = append(m.budgets, b)
	return b, nil
}

func (m *memoryStore) ListBudgets(_ context.Context, year int) ([]storage.BudgetAllocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]storage.BudgetAllocation, 0)
	for _, b := range m.budgets {
		if b.Year == year {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memoryStore) AllBudgets(context.Context) ([]storage.BudgetAllocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]storage.BudgetAllocation(nil), m.budgets...), nil
}

func (m *memoryStore) CreateProgram(_ context.Context, p storage.SocialProgram) (storage.SocialProgram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.NewString()
	m.programs = append(m.programs, p)
	return p, nil
}

func (m *memoryStore) GetProgram(_ context.Context, id string) (storage.SocialProgram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.programs {
		if p.ID == id {
			return p, nil
		}
	}
	return storage.SocialProgram{}, apperr.New(apperr.KindRecordNotFound, "program not found: %s", id)
}

func (m *memoryStore) UpdateProgram(_ context.Context, p storage.SocialProgram) (storage.SocialProgram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.programs {
		if m.programs[i].ID == p.ID {
			m.programs[i] = p
			return p, nil
		}
	}
	return storage.SocialProgram{}, apperr.New(apperr.KindRecordNotFound, "program not found: %s", p.ID)
}

func (m *memoryStore) ListPrograms(context.Context) ([]storage.SocialProgram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]storage.SocialProgram(nil), m.programs...), nil
}

func (m *memoryStore) DeleteProgram(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.programs {
		if p.ID == id {
			m.programs = append(m.programs[:i], m.programs[i+1:]...)
			return nil
		}
	}
	return apperr.New(apperr.KindRecordNotFound, "program not found: %s", id)
}

func (m *memoryStore) CreateUser(_ context.Context, u storage.User) (storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return storage.User{}, apperr.New(apperr.KindValidation, "user already exists")
		}
	}
	u.ID = uuid.NewString()
	m.users = append(m.users, u)
	return u, nil
}

func (m *memoryStore) GetUserByEmail(_ context.Context, email string) (storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return storage.User{}, apperr.New(apperr.KindRecordNotFound, "user not found: %s", email)
}

func (m *memoryStore) stores() Stores {
	return Stores{Regions: m, Development: m, Taxes: m, Budgets: m, Programs: m, Users: m}
}

// fakeIndicators serves canned series keyed by "COUNTRY/SERIES".
type fakeIndicators struct {
	mu     sync.Mutex
	series map[string][]fetcher.IndicatorReading
	err    error
	calls  []string
}

func (f *fakeIndicators) FetchSeries(_ context.Context, country, series string) ([]fetcher.IndicatorReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := country + "/" + series
	f.calls = append(f.calls, key)
	if f.err != nil {
		return nil, f.err
	}
	readings, ok := f.series[key]
	if !ok {
		return nil, apperr.New(apperr.KindIndicatorUnavailable, "no data for %s", key)
	}
	return readings, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []alerting.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, note alerting.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note)
	return nil
}

type staticRates struct {
	snapshot *exchange.RateSet
	err      error
	bases    []string
}

func (s *staticRates) Rates(_ context.Context, base string) (*exchange.RateSet, error) {
	s.bases = append(s.bases, base)
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshot, nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func readings(pairs ...string) []fetcher.IndicatorReading {
	out := make([]fetcher.IndicatorReading, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, fetcher.IndicatorReading{Year: pairs[i], Value: d(pairs[i+1])})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}
