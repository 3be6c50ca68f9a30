package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const (
	insertProgramSQL = `INSERT INTO social_programs (
        id,
        program_name,
        sector,
        target_group,
        beneficiaries_count,
        budget_used,
        year,
        region_id,
        created_by
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    RETURNING budget_used::text, created_at;`

	updateProgramSQL = `UPDATE social_programs SET
        program_name = $2,
        sector = $3,
        target_group = $4,
        beneficiaries_count = $5,
        budget_used = $6,
        year = $7,
        region_id = $8
    WHERE id = $1;`

	selectProgramSQL = `SELECT
        p.id,
        p.program_name,
        p.sector,
        p.target_group,
        p.beneficiaries_count,
        p.budget_used::text,
        p.year,
        p.region_id,
        COALESCE(r.region_name, ''),
        p.created_by,
        p.created_at
    FROM social_programs p
    LEFT JOIN regions r ON r.id = p.region_id`

	deleteProgramSQL = `DELETE FROM social_programs WHERE id = $1;`
)

// CreateProgram inserts a social program.
func (s *Store) CreateProgram(ctx context.Context, rec SocialProgram) (SocialProgram, error) {
	pool, err := s.getPool()
	if err != nil {
		return SocialProgram{}, err
	}

	rec.ID = newID()
	row := pool.QueryRow(ctx, insertProgramSQL,
		rec.ID,
		rec.ProgramName,
		rec.Sector,
		rec.TargetGroup,
		rec.BeneficiariesCount,
		rec.BudgetUsed.String(),
		rec.Year,
		rec.RegionID,
		rec.CreatedBy,
	)
	var budgetStr string
	if scanErr := row.Scan(&budgetStr, &rec.CreatedAt); scanErr != nil {
		if mapped := rejected(scanErr); mapped != scanErr {
			return SocialProgram{}, mapped
		}
		return SocialProgram{}, fmt.Errorf("insert social program: %w", scanErr)
	}
	if rec.BudgetUsed, err = parseDecimal("budget used", budgetStr); err != nil {
		return SocialProgram{}, err
	}
	return rec, nil
}

// UpdateProgram overwrites the editable columns of a program and returns the stored row.
// created_by is kept.
func (s *Store) UpdateProgram(ctx context.Context, rec SocialProgram) (SocialProgram, error) {
	pool, err := s.getPool()
	if err != nil {
		return SocialProgram{}, err
	}

	cmdTag, execErr := pool.Exec(ctx, updateProgramSQL,
		rec.ID,
		rec.ProgramName,
		rec.Sector,
		rec.TargetGroup,
		rec.BeneficiariesCount,
		rec.BudgetUsed.String(),
		rec.Year,
		rec.RegionID,
	)
	if execErr != nil {
		if mapped := rejected(execErr); mapped != execErr {
			return SocialProgram{}, mapped
		}
		return SocialProgram{}, fmt.Errorf("update social program: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return SocialProgram{}, notFound(pgx.ErrNoRows, "program", rec.ID)
	}
	return s.GetProgram(ctx, rec.ID)
}

// GetProgram loads a program by id.
func (s *Store) GetProgram(ctx context.Context, id string) (SocialProgram, error) {
	pool, err := s.getPool()
	if err != nil {
		return SocialProgram{}, err
	}

	rec, scanErr := scanProgram(pool.QueryRow(ctx, selectProgramSQL+" WHERE p.id = $1;", id))
	if scanErr != nil {
		return SocialProgram{}, notFound(scanErr, "program", id)
	}
	return rec, nil
}

// ListPrograms lists every program, newest first.
func (s *Store) ListPrograms(ctx context.Context) ([]SocialProgram, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, selectProgramSQL+" ORDER BY p.created_at DESC;")
	if queryErr != nil {
		return nil, fmt.Errorf("list social programs: %w", queryErr)
	}
	defer rows.Close()

	records := make([]SocialProgram, 0)
	for rows.Next() {
		rec, scanErr := scanProgram(rows)
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

// DeleteProgram removes a program.
func (s *Store) DeleteProgram(ctx context.Context, id string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, deleteProgramSQL, id)
	if execErr != nil {
		return fmt.Errorf("delete social program: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "program", id)
	}
	return nil
}

func scanProgram(row pgx.Row) (SocialProgram, error) {
	var (
		rec       SocialProgram
		budgetStr string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.ProgramName,
		&rec.Sector,
		&rec.TargetGroup,
		&rec.BeneficiariesCount,
		&budgetStr,
		&rec.Year,
		&rec.RegionID,
		&rec.RegionName,
		&rec.CreatedBy,
		&rec.CreatedAt,
	); err != nil {
		return SocialProgram{}, err
	}

	budget, err := parseDecimal("budget used", budgetStr)
	if err != nil {
		return SocialProgram{}, err
	}
	rec.BudgetUsed = budget
	return rec, nil
}
