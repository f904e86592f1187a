package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"plant-monitor/internal/lifecycle"
	masterdata "plant-monitor/internal/masterdata/domain"
)

const defaultLinesTable = "lines"

// LineRepository is a Postgres implementation for production lines.
type LineRepository struct {
	db    DBTX
	table string
}

// NewLineRepository constructs a repository.
func NewLineRepository(db DBTX) *LineRepository {
	return &LineRepository{db: db, table: defaultLinesTable}
}

// List loads lines ordered by id.
func (r *LineRepository) List(ctx context.Context, filter lifecycle.ListFilter) ([]masterdata.Line, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("line repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, block_id, name, target_production, status, inactive, modified
FROM %s
%s
ORDER BY id ASC`, r.table, activeClause(filter.IncludeInactive))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.Line
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Get loads a line by id.
func (r *LineRepository) Get(ctx context.Context, id int64) (*masterdata.Line, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("line repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, block_id, name, target_production, status, inactive, modified
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	line, err := scanLine(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return line, err
}

// Create inserts a line.
func (r *LineRepository) Create(ctx context.Context, line *masterdata.Line) error {
	if r == nil || r.db == nil {
		return errors.New("line repo: nil db")
	}
	if line == nil {
		return errors.New("line repo: nil line")
	}
	if err := line.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (block_id, name, target_production, status, inactive, modified)
VALUES ($1, $2, $3, $4, $5, NOW())
RETURNING id, modified`, r.table)

	if err := r.db.QueryRowContext(ctx, query,
		line.BlockID,
		line.Name,
		line.TargetProduction,
		line.Status,
		line.Inactive,
	).Scan(&line.ID, &line.Modified); err != nil {
		return err
	}
	line.Modified = line.Modified.UTC()
	return nil
}

// Update replaces a line.
func (r *LineRepository) Update(ctx context.Context, id int64, line *masterdata.Line) error {
	if r == nil || r.db == nil {
		return errors.New("line repo: nil db")
	}
	if line == nil {
		return errors.New("line repo: nil line")
	}
	if err := line.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
UPDATE %s
SET block_id = $1, name = $2, target_production = $3, status = $4, inactive = $5, modified = NOW()
WHERE id = $6
RETURNING modified`, r.table)

	if err := r.db.QueryRowContext(ctx, query,
		line.BlockID,
		line.Name,
		line.TargetProduction,
		line.Status,
		line.Inactive,
		id,
	).Scan(&line.Modified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return masterdata.ErrNotFound
		}
		return err
	}
	line.ID = id
	line.Modified = line.Modified.UTC()
	return nil
}

// Delete soft-deletes a line.
func (r *LineRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("line repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET inactive = TRUE, modified = NOW() WHERE id = $1`, r.table), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func scanLine(row rowScanner) (*masterdata.Line, error) {
	var line masterdata.Line
	if err := row.Scan(
		&line.ID,
		&line.BlockID,
		&line.Name,
		&line.TargetProduction,
		&line.Status,
		&line.Inactive,
		&line.Modified,
	); err != nil {
		return nil, err
	}
	line.Modified = line.Modified.UTC()
	return &line, nil
}
