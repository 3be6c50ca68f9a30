package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const (
	insertBudgetSQL = `INSERT INTO budget_allocations (
        id,
        sector,
        allocated_amount,
        target_income_group,
        year,
        region_id
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    RETURNING allocated_amount::text, created_at;`

	selectBudgetSQL = `SELECT
        b.id,
        b.sector,
        b.allocated_amount::text,
        b.target_income_group,
        b.year,
        b.region_id,
        COALESCE(r.region_name, ''),
        b.created_at
    FROM budget_allocations b
    LEFT JOIN regions r ON r.id = b.region_id`
)

// CreateBudget inserts a budget allocation.
func (s *Store) CreateBudget(ctx context.Context, rec BudgetAllocation) (BudgetAllocation, error) {
	pool, err := s.getPool()
	if err != nil {
		return BudgetAllocation{}, err
	}

	rec.ID = newID()
	row := pool.QueryRow(ctx, insertBudgetSQL,
		rec.ID,
		rec.Sector,
		rec.AllocatedAmount.String(),
		rec.TargetIncomeGroup,
		rec.Year,
		rec.RegionID,
	)
	var amountStr string
	if scanErr := row.Scan(&amountStr, &rec.CreatedAt); scanErr != nil {
		if mapped := rejected(scanErr); mapped != scanErr {
			return BudgetAllocation{}, mapped
		}
		return BudgetAllocation{}, fmt.Errorf("insert budget allocation: %w", scanErr)
	}
	if rec.AllocatedAmount, err = parseDecimal("allocated amount", amountStr); err != nil {
		return BudgetAllocation{}, err
	}
	return rec, nil
}

// ListBudgets lists allocations for a year.
func (s *Store) ListBudgets(ctx context.Context, year int) ([]BudgetAllocation, error) {
	if _, err := s.getPool(); err != nil {
		return nil, err
	}
	return s.queryBudgets(ctx, selectBudgetSQL+" WHERE b.year = $1 ORDER BY b.sector, b.id;", year)
}

// AllBudgets lists every allocation.
func (s *Store) AllBudgets(ctx context.Context) ([]BudgetAllocation, error) {
	if _, err := s.getPool(); err != nil {
		return nil, err
	}
	return s.queryBudgets(ctx, selectBudgetSQL+" ORDER BY b.year DESC, b.sector;")
}

func (s *Store) queryBudgets(ctx context.Context, query string, args ...any) ([]BudgetAllocation, error) {
	rows, queryErr := s.pool.Query(ctx, query, args...)
	if queryErr != nil {
		return nil, fmt.Errorf("list budget allocations: %w", queryErr)
	}
	defer rows.Close()

	records := make([]BudgetAllocation, 0)
	for rows.Next() {
		rec, scanErr := scanBudget(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func scanBudget(row pgx.Row) (BudgetAllocation, error) {
	var (
		rec       BudgetAllocation
		amountStr string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Sector,
		&amountStr,
		&rec.TargetIncomeGroup,
		&rec.Year,
		&rec.RegionID,
		&rec.RegionName,
		&rec.CreatedAt,
	); err != nil {
		return BudgetAllocation{}, err
	}

	amount, err := parseDecimal("allocated amount", amountStr)
	if err != nil {
		return BudgetAllocation{}, err
	}
	rec.AllocatedAmount = amount
	return rec, nil
}
