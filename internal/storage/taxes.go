package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const (
	insertTaxSQL = `INSERT INTO tax_contributions (
        id,
        payer_type,
        income_bracket,
        tax_type,
        amount,
        year,
        region_id
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    RETURNING amount::text, created_at;`

	updateTaxSQL = `UPDATE tax_contributions SET
        payer_type = $2,
        income_bracket = $3,
        tax_type = $4,
        amount = $5,
        year = $6,
        region_id = $7
    WHERE id = $1;`

	selectTaxSQL = `SELECT
        t.id,
        t.payer_type,
        t.income_bracket,
        t.tax_type,
        t.amount::text,
        t.year,
        t.region_id,
        COALESCE(r.region_name, ''),
        t.created_at
    FROM tax_contributions t
    LEFT JOIN regions r ON r.id = t.region_id`

	countTaxSQL = `SELECT COUNT(*) FROM tax_contributions t`

	deleteTaxSQL = `DELETE FROM tax_contributions WHERE id = $1;`
)

func taxWhere(filter TaxFilter) whereBuilder {
	var where whereBuilder
	if filter.RegionID != "" {
		where.add("t.region_id = $%d", filter.RegionID)
	}
	if filter.Year > 0 {
		where.add("t.year = $%d", filter.Year)
	}
	if filter.IncomeBracket != "" {
		where.add("t.income_bracket = $%d", filter.IncomeBracket)
	}
	return where
}

// CreateTax inserts a tax contribution.
func (s *Store) CreateTax(ctx context.Context, rec TaxContribution) (TaxContribution, error) {
	pool, err := s.getPool()
	if err != nil {
		return TaxContribution{}, err
	}

	rec.ID = newID()
	row := pool.QueryRow(ctx, insertTaxSQL,
		rec.ID,
		rec.PayerType,
		rec.IncomeBracket,
		rec.TaxType,
		rec.Amount.String(),
		rec.Year,
		rec.RegionID,
	)
	var amountStr string
	if scanErr := row.Scan(&amountStr, &rec.CreatedAt); scanErr != nil {
		if mapped := rejected(scanErr); mapped != scanErr {
			return TaxContribution{}, mapped
		}
		return TaxContribution{}, fmt.Errorf("insert tax contribution: %w", scanErr)
	}
	if rec.Amount, err = parseDecimal("tax amount", amountStr); err != nil {
		return TaxContribution{}, err
	}
	return rec, nil
}

// UpdateTax overwrites every mutable column of a contribution and returns the stored row.
func (s *Store) UpdateTax(ctx context.Context, rec TaxContribution) (TaxContribution, error) {
	pool, err := s.getPool()
	if err != nil {
		return TaxContribution{}, err
	}

	cmdTag, execErr := pool.Exec(ctx, updateTaxSQL,
		rec.ID,
		rec.PayerType,
		rec.IncomeBracket,
		rec.TaxType,
		rec.Amount.String(),
		rec.Year,
		rec.RegionID,
	)
	if execErr != nil {
		if mapped := rejected(execErr); mapped != execErr {
			return TaxContribution{}, mapped
		}
		return TaxContribution{}, fmt.Errorf("update tax contribution: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return TaxContribution{}, notFound(pgx.ErrNoRows, "tax record", rec.ID)
	}
	return s.GetTax(ctx, rec.ID)
}

// GetTax loads a tax contribution by id.
func (s *Store) GetTax(ctx context.Context, id string) (TaxContribution, error) {
	pool, err := s.getPool()
	if err != nil {
		return TaxContribution{}, err
	}

	rec, scanErr := scanTax(pool.QueryRow(ctx, selectTaxSQL+" WHERE t.id = $1;", id))
	if scanErr != nil {
		return TaxContribution{}, notFound(scanErr, "tax record", id)
	}
	return rec, nil
}

// ListTaxes lists one page of contributions matching filter, newest first.
func (s *Store) ListTaxes(ctx context.Context, filter TaxFilter, page Page) ([]TaxContribution, error) {
	if _, err := s.getPool(); err != nil {
		return nil, err
	}

	where := taxWhere(filter)
	query := selectTaxSQL + where.String() + " ORDER BY t.created_at DESC, t.id"
	args := where.args
	if page.Size > 0 {
		args = append(args, page.Size, page.Offset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	return s.queryTaxes(ctx, query+";", args...)
}

// CountTaxes counts contributions matching filter.
func (s *Store) CountTaxes(ctx context.Context, filter TaxFilter) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	where := taxWhere(filter)
	var count int64
	if scanErr := pool.QueryRow(ctx, countTaxSQL+where.String()+";", where.args...).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count tax contributions: %w", scanErr)
	}
	return count, nil
}

// DeleteTax removes a contribution.
func (s *Store) DeleteTax(ctx context.Context, id string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, deleteTaxSQL, id)
	if execErr != nil {
		return fmt.Errorf("delete tax contribution: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "tax record", id)
	}
	return nil
}

// AllTaxes lists every contribution.
func (s *Store) AllTaxes(ctx context.Context) ([]TaxContribution, error) {
	if _, err := s.getPool(); err != nil {
		return nil, err
	}
	return s.queryTaxes(ctx, selectTaxSQL+" ORDER BY t.created_at;")
}

func (s *Store) queryTaxes(ctx context.Context, query string, args ...any) ([]TaxContribution, error) {
	rows, queryErr := s.pool.Query(ctx, query, args...)
	if queryErr != nil {
		return nil, fmt.Errorf("list tax contributions: %w", queryErr)
	}
	defer rows.Close()

	records := make([]TaxContribution, 0)
	for rows.Next() {
		rec, scanErr := scanTax(rows)
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

func scanTax(row pgx.Row) (TaxContribution, error) {
	var (
		rec       TaxContribution
		amountStr string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.PayerType,
		&rec.IncomeBracket,
		&rec.TaxType,
		&amountStr,
		&rec.Year,
		&rec.RegionID,
		&rec.RegionName,
		&rec.CreatedAt,
	); err != nil {
		return TaxContribution{}, err
	}

	amount, err := parseDecimal("tax amount", amountStr)
	if err != nil {
		return TaxContribution{}, err
	}
	rec.Amount = amount
	return rec, nil
}
