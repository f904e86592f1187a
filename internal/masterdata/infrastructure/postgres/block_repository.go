package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"plant-monitor/internal/lifecycle"
	masterdata "plant-monitor/internal/masterdata/domain"
)

const defaultBlocksTable = "blocks"

// BlockRepository is a Postgres implementation for blocks.
type BlockRepository struct {
	db    DBTX
	table string
}

// NewBlockRepository constructs a repository.
func NewBlockRepository(db DBTX) *BlockRepository {
	return &BlockRepository{db: db, table: defaultBlocksTable}
}

// List loads blocks ordered by id.
func (r *BlockRepository) List(ctx context.Context, filter lifecycle.ListFilter) ([]masterdata.Block, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("block repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, plant_id, name, inactive, modified
FROM %s
%s
ORDER BY id ASC`, r.table, activeClause(filter.IncludeInactive))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.Block
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *block)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Get loads a block by id.
func (r *BlockRepository) Get(ctx context.Context, id int64) (*masterdata.Block, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("block repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, plant_id, name, inactive, modified
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	block, err := scanBlock(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return block, err
}

// Create inserts a block.
func (r *BlockRepository) Create(ctx context.Context, block *masterdata.Block) error {
	if r == nil || r.db == nil {
		return errors.New("block repo: nil db")
	}
	if block == nil {
		return errors.New("block repo: nil block")
	}
	if err := block.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (plant_id, name, inactive, modified)
VALUES ($1, $2, $3, NOW())
RETURNING id, modified`, r.table)

	if err := r.db.QueryRowContext(ctx, query, block.PlantID, block.Name, block.Inactive).Scan(&block.ID, &block.Modified); err != nil {
		return err
	}
	block.Modified = block.Modified.UTC()
	return nil
}

// Update replaces a block.
func (r *BlockRepository) Update(ctx context.Context, id int64, block *masterdata.Block) error {
	if r == nil || r.db == nil {
		return errors.New("block repo: nil db")
	}
	if block == nil {
		return errors.New("block repo: nil block")
	}
	if err := block.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
UPDATE %s
SET plant_id = $1, name = $2, inactive = $3, modified = NOW()
WHERE id = $4
RETURNING modified`, r.table)

	if err := r.db.QueryRowContext(ctx, query, block.PlantID, block.Name, block.Inactive, id).Scan(&block.Modified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return masterdata.ErrNotFound
		}
		return err
	}
	block.ID = id
	block.Modified = block.Modified.UTC()
	return nil
}

// Delete soft-deletes a block.
func (r *BlockRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("block repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET inactive = TRUE, modified = NOW() WHERE id = $1`, r.table), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func scanBlock(row rowScanner) (*masterdata.Block, error) {
	var block masterdata.Block
	if err := row.Scan(&block.ID, &block.PlantID, &block.Name, &block.Inactive, &block.Modified); err != nil {
		return nil, err
	}
	block.Modified = block.Modified.UTC()
	return &block, nil
}
