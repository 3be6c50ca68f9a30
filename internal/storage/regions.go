package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	insertRegionSQL = `INSERT INTO regions (id, region_name)
    VALUES ($1, $2)
    RETURNING created_at;`

	getRegionSQL = `SELECT id, region_name, created_at FROM regions WHERE id = $1;`

	listRegionsSQL = `SELECT id, region_name, created_at FROM regions ORDER BY region_name;`

	updateRegionSQL = `UPDATE regions SET region_name = $2
    WHERE id = $1
    RETURNING created_at;`

	deleteRegionSQL = `DELETE FROM regions WHERE id = $1;`
)

// CreateRegion inserts a region and assigns its id.
func (s *Store) CreateRegion(ctx context.Context, region Region) (Region, error) {
	pool, err := s.getPool()
	if err != nil {
		return Region{}, err
	}

	region.ID = newID()
	var createdAt time.Time
	if scanErr := pool.QueryRow(ctx, insertRegionSQL, region.ID, region.Name).Scan(&createdAt); scanErr != nil {
		if mapped := conflict(scanErr, "Region already exists"); mapped != scanErr {
			return Region{}, mapped
		}
		return Region{}, fmt.Errorf("insert region: %w", scanErr)
	}
	region.CreatedAt = createdAt
	return region, nil
}

// GetRegion loads a region by id.
func (s *Store) GetRegion(ctx context.Context, id string) (Region, error) {
	pool, err := s.getPool()
	if err != nil {
		return Region{}, err
	}

	var r Region
	if scanErr := pool.QueryRow(ctx, getRegionSQL, id).Scan(&r.ID, &r.Name, &r.CreatedAt); scanErr != nil {
		return Region{}, notFound(scanErr, "region", id)
	}
	return r, nil
}

// ListRegions lists every region ordered by name.
func (s *Store) ListRegions(ctx context.Context) ([]Region, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRegionsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list regions: %w", queryErr)
	}
	defer rows.Close()

	regions := make([]Region, 0)
	for rows.Next() {
		var r Region
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return regions, nil
}

// UpdateRegion renames a region.
func (s *Store) UpdateRegion(ctx context.Context, region Region) (Region, error) {
	pool, err := s.getPool()
	if err != nil {
		return Region{}, err
	}

	if scanErr := pool.QueryRow(ctx, updateRegionSQL, region.ID, region.Name).Scan(&region.CreatedAt); scanErr != nil {
		if mapped := conflict(scanErr, "Region already exists"); mapped != scanErr {
			return Region{}, mapped
		}
		if mapped := notFound(scanErr, "region", region.ID); mapped != scanErr {
			return Region{}, mapped
		}
		return Region{}, fmt.Errorf("update region: %w", scanErr)
	}
	return region, nil
}

// DeleteRegion removes a region no record refers to.
func (s *Store) DeleteRegion(ctx context.Context, id string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, deleteRegionSQL, id)
	if execErr != nil {
		if mapped := violation(execErr, foreignKeyViolationCode, "Region is still referenced by other records"); mapped != execErr {
			return mapped
		}
		return fmt.Errorf("delete region: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "region", id)
	}
	return nil
}
