package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"taxtrail/internal/apperr"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

// RegionStore persists regions.
type RegionStore interface {
	CreateRegion(ctx context.Context, region Region) (Region, error)
	GetRegion(ctx context.Context, id string) (Region, error)
	ListRegions(ctx context.Context) ([]Region, error)
	UpdateRegion(ctx context.Context, region Region) (Region, error)
	DeleteRegion(ctx context.Context, id string) error
}

// DevelopmentStore persists regional development metrics.
type DevelopmentStore interface {
	CreateDevelopment(ctx context.Context, rec RegionalDevelopment) (RegionalDevelopment, error)
	GetDevelopment(ctx context.Context, id string) (RegionalDevelopment, error)
	UpdateDevelopment(ctx context.Context, rec RegionalDevelopment) (RegionalDevelopment, error)
	ListDevelopment(ctx context.Context, filter DevelopmentFilter) ([]RegionalDevelopment, error)
	LatestDevelopment(ctx context.Context, regionName string) (RegionalDevelopment, error)
}

// TaxStore persists tax contributions.
type TaxStore interface {
	CreateTax(ctx context.Context, rec TaxContribution) (TaxContribution, error)
	GetTax(ctx context.Context, id string) (TaxContribution, error)
	UpdateTax(ctx context.Context, rec TaxContribution) (TaxContribution, error)
	ListTaxes(ctx context.Context, filter TaxFilter, page Page) ([]TaxContribution, error)
	CountTaxes(ctx context.Context, filter TaxFilter) (int64, error)
	DeleteTax(ctx context.Context, id string) error
	AllTaxes(ctx context.Context) ([]TaxContribution, error)
}

// BudgetStore persists budget allocations.
type BudgetStore interface {
	CreateBudget(ctx context.Context, rec BudgetAllocation) (BudgetAllocation, error)
	ListBudgets(ctx context.Context, year int) ([]BudgetAllocation, error)
	AllBudgets(ctx context.Context) ([]BudgetAllocation, error)
}

// ProgramStore persists social programs.
type ProgramStore interface {
	CreateProgram(ctx context.Context, rec SocialProgram) (SocialProgram, error)
	GetProgram(ctx context.Context, id string) (SocialProgram, error)
	UpdateProgram(ctx context.Context, rec SocialProgram) (SocialProgram, error)
	ListPrograms(ctx context.Context) ([]SocialProgram, error)
	DeleteProgram(ctx context.Context, id string) error
}

// UserStore persists API accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// Store aggregates access to every table.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

func newID() string {
	return uuid.NewString()
}

// notFound maps pgx.ErrNoRows to RecordNotFound.
func notFound(err error, what, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.New(apperr.KindRecordNotFound, "%s not found: %s", what, id)
	}
	return err
}

// PostgreSQL error codes mapped to Validation errors.
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	numericOutOfRangeCode   = "22003"
)

// violation maps a PostgreSQL error with the given code to a Validation error with message.
func violation(err error, code, message string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return apperr.Wrap(apperr.KindValidation, err, "%s", message)
	}
	return err
}

// conflict maps a unique constraint violation to a Validation error with message.
func conflict(err error, message string) error {
	return violation(err, uniqueViolationCode, message)
}

// rejected maps values the column types or CHECK constraints refuse to Validation errors.
func rejected(err error) error {
	if mapped := violation(err, numericOutOfRangeCode, "Numeric value out of range"); mapped != err {
		return mapped
	}
	return violation(err, checkViolationCode, "Value violates a table constraint")
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse %s: %w", field, err)
	}
	return v, nil
}

// whereBuilder accumulates positional predicates.
type whereBuilder struct {
	clauses []string
	args    []any
}

// add appends a predicate; the clause must contain one %d for the placeholder index.
func (w *whereBuilder) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(clause, len(w.args)))
}

func (w *whereBuilder) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

var (
	_ RegionStore      = (*Store)(nil)
	_ DevelopmentStore = (*Store)(nil)
	_ TaxStore         = (*Store)(nil)
	_ BudgetStore      = (*Store)(nil)
	_ ProgramStore     = (*Store)(nil)
	_ UserStore        = (*Store)(nil)
)
