package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const (
	insertDevelopmentSQL = `INSERT INTO regional_development (
        id,
        region_name,
        year,
        average_income,
        unemployment_rate,
        poverty_rate,
        access_to_services_index
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    RETURNING
        average_income::text,
        unemployment_rate::text,
        poverty_rate::text,
        access_to_services_index::text,
        last_updated,
        created_at;`

	updateDevelopmentSQL = `UPDATE regional_development SET
        region_name = $2,
        year = $3,
        average_income = $4,
        unemployment_rate = $5,
        poverty_rate = $6,
        access_to_services_index = $7,
        last_updated = now()
    WHERE id = $1
    RETURNING
        average_income::text,
        unemployment_rate::text,
        poverty_rate::text,
        access_to_services_index::text,
        last_updated,
        created_at;`

	selectDevelopmentSQL = `SELECT
        id,
        region_name,
        year,
        average_income::text,
        unemployment_rate::text,
        poverty_rate::text,
        access_to_services_index::text,
        last_updated,
        created_at
    FROM regional_development`

	latestDevelopmentSQL = selectDevelopmentSQL + `
    WHERE region_name = $1
    ORDER BY year DESC
    LIMIT 1;`
)

// CreateDevelopment inserts one year of development metrics.
func (s *Store) CreateDevelopment(ctx context.Context, rec RegionalDevelopment) (RegionalDevelopment, error) {
	pool, err := s.getPool()
	if err != nil {
		return RegionalDevelopment{}, err
	}

	rec.ID = newID()
	stored, scanErr := scanStoredDevelopment(rec, pool.QueryRow(ctx, insertDevelopmentSQL,
		rec.ID,
		rec.RegionName,
		rec.Year,
		rec.AverageIncome.String(),
		rec.UnemploymentRate.String(),
		rec.PovertyRate.String(),
		rec.AccessToServicesIndex.String(),
	))
	if scanErr != nil {
		return RegionalDevelopment{}, developmentWriteError("insert", rec.ID, scanErr)
	}
	return stored, nil
}

// GetDevelopment loads one development record by id.
func (s *Store) GetDevelopment(ctx context.Context, id string) (RegionalDevelopment, error) {
	pool, err := s.getPool()
	if err != nil {
		return RegionalDevelopment{}, err
	}

	rec, scanErr := scanDevelopment(pool.QueryRow(ctx, selectDevelopmentSQL+" WHERE id = $1;", id))
	if scanErr != nil {
		return RegionalDevelopment{}, notFound(scanErr, "regional development data", id)
	}
	return rec, nil
}

// UpdateDevelopment overwrites a development record and bumps last_updated.
func (s *Store) UpdateDevelopment(ctx context.Context, rec RegionalDevelopment) (RegionalDevelopment, error) {
	pool, err := s.getPool()
	if err != nil {
		return RegionalDevelopment{}, err
	}

	stored, scanErr := scanStoredDevelopment(rec, pool.QueryRow(ctx, updateDevelopmentSQL,
		rec.ID,
		rec.RegionName,
		rec.Year,
		rec.AverageIncome.String(),
		rec.UnemploymentRate.String(),
		rec.PovertyRate.String(),
		rec.AccessToServicesIndex.String(),
	))
	if scanErr != nil {
		return RegionalDevelopment{}, developmentWriteError("update", rec.ID, scanErr)
	}
	return stored, nil
}

func developmentWriteError(op, id string, err error) error {
	if mapped := conflict(err, "Data for this region and year already exists"); mapped != err {
		return mapped
	}
	if mapped := rejected(err); mapped != err {
		return mapped
	}
	if mapped := notFound(err, "regional development data", id); mapped != err {
		return mapped
	}
	return fmt.Errorf("%s regional development: %w", op, err)
}

// scanStoredDevelopment reads the RETURNING columns of a write, so the caller
// sees the values as the NUMERIC columns rounded them.
func scanStoredDevelopment(rec RegionalDevelopment, row pgx.Row) (RegionalDevelopment, error) {
	var incomeStr, unemploymentStr, povertyStr, idx string
	if err := row.Scan(
		&incomeStr,
		&unemploymentStr,
		&povertyStr,
		&idx,
		&rec.LastUpdated,
		&rec.CreatedAt,
	); err != nil {
		return RegionalDevelopment{}, err
	}
	if err := parseDevelopmentMetrics(&rec, incomeStr, unemploymentStr, povertyStr, idx); err != nil {
		return RegionalDevelopment{}, err
	}
	return rec, nil
}

// ListDevelopment lists development records, newest year first.
func (s *Store) ListDevelopment(ctx context.Context, filter DevelopmentFilter) ([]RegionalDevelopment, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var where whereBuilder
	if filter.Year > 0 {
		where.add("year = $%d", filter.Year)
	}
	if filter.RegionName != "" {
		where.add("region_name = $%d", filter.RegionName)
	}
	query := selectDevelopmentSQL + where.String() + " ORDER BY year DESC, region_name;"

	rows, queryErr := pool.Query(ctx, query, where.args...)
	if queryErr != nil {
		return nil, fmt.Errorf("list regional development: %w", queryErr)
	}
	defer rows.Close()

	records := make([]RegionalDevelopment, 0)
	for rows.Next() {
		rec, scanErr := scanDevelopment(rows)
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

// LatestDevelopment returns the most recent year recorded for a region.
func (s *Store) LatestDevelopment(ctx context.Context, regionName string) (RegionalDevelopment, error) {
	pool, err := s.getPool()
	if err != nil {
		return RegionalDevelopment{}, err
	}

	rec, scanErr := scanDevelopment(pool.QueryRow(ctx, latestDevelopmentSQL, regionName))
	if scanErr != nil {
		return RegionalDevelopment{}, notFound(scanErr, "regional development data", regionName)
	}
	return rec, nil
}

func scanDevelopment(row pgx.Row) (RegionalDevelopment, error) {
	var (
		rec                                         RegionalDevelopment
		incomeStr, unemploymentStr, povertyStr, idx string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.RegionName,
		&rec.Year,
		&incomeStr,
		&unemploymentStr,
		&povertyStr,
		&idx,
		&rec.LastUpdated,
		&rec.CreatedAt,
	); err != nil {
		return RegionalDevelopment{}, err
	}

	if err := parseDevelopmentMetrics(&rec, incomeStr, unemploymentStr, povertyStr, idx); err != nil {
		return RegionalDevelopment{}, err
	}
	return rec, nil
}

func parseDevelopmentMetrics(rec *RegionalDevelopment, income, unemployment, poverty, idx string) error {
	var err error
	if rec.AverageIncome, err = parseDecimal("average income", income); err != nil {
		return err
	}
	if rec.UnemploymentRate, err = parseDecimal("unemployment rate", unemployment); err != nil {
		return err
	}
	if rec.PovertyRate, err = parseDecimal("poverty rate", poverty); err != nil {
		return err
	}
	if rec.AccessToServicesIndex, err = parseDecimal("access to services index", idx); err != nil {
		return err
	}
	return nil
}
