package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"plant-monitor/internal/lifecycle"
	masterdata "plant-monitor/internal/masterdata/domain"
)

const defaultPlantsTable = "plants"

// PlantRepository is a Postgres implementation for plants.
type PlantRepository struct {
	db    DBTX
	table string
}

// NewPlantRepository constructs a repository.
func NewPlantRepository(db DBTX, opts ...PlantOption) *PlantRepository {
	repo := &PlantRepository{db: db, table: defaultPlantsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// PlantOption configures the repository.
type PlantOption func(*PlantRepository)

// WithPlantTable overrides the default table name.
func WithPlantTable(table string) PlantOption {
	return func(repo *PlantRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// List loads plants ordered by id.
func (r *PlantRepository) List(ctx context.Context, filter lifecycle.ListFilter) ([]masterdata.Plant, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("plant repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, name, address, inactive, modified
FROM %s
%s
ORDER BY id ASC`, r.table, activeClause(filter.IncludeInactive))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.Plant
	for rows.Next() {
		plant, err := scanPlant(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *plant)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Get loads a plant by id.
func (r *PlantRepository) Get(ctx context.Context, id int64) (*masterdata.Plant, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("plant repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, name, address, inactive, modified
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	plant, err := scanPlant(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return plant, err
}

// Create inserts a plant.
func (r *PlantRepository) Create(ctx context.Context, plant *masterdata.Plant) error {
	if r == nil || r.db == nil {
		return errors.New("plant repo: nil db")
	}
	if plant == nil {
		return errors.New("plant repo: nil plant")
	}
	if err := plant.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (name, address, inactive, modified)
VALUES ($1, $2, $3, NOW())
RETURNING id, modified`, r.table)

	if err := r.db.QueryRowContext(ctx, query, plant.Name, plant.Address, plant.Inactive).Scan(&plant.ID, &plant.Modified); err != nil {
		return err
	}
	plant.Modified = plant.Modified.UTC()
	return nil
}

// Update replaces a plant.
func (r *PlantRepository) Update(ctx context.Context, id int64, plant *masterdata.Plant) error {
	if r == nil || r.db == nil {
		return errors.New("plant repo: nil db")
	}
	if plant == nil {
		return errors.New("plant repo: nil plant")
	}
	if err := plant.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
UPDATE %s
SET name = $1, address = $2, inactive = $3, modified = NOW()
WHERE id = $4
RETURNING modified`, r.table)

	if err := r.db.QueryRowContext(ctx, query, plant.Name, plant.Address, plant.Inactive, id).Scan(&plant.Modified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return masterdata.ErrNotFound
		}
		return err
	}
	plant.ID = id
	plant.Modified = plant.Modified.UTC()
	return nil
}

// Delete soft-deletes a plant.
func (r *PlantRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("plant repo: nil db")
	}
	query := fmt.Sprintf(`UPDATE %s SET inactive = TRUE, modified = NOW() WHERE id = $1`, r.table)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func scanPlant(row rowScanner) (*masterdata.Plant, error) {
	var plant masterdata.Plant
	if err := row.Scan(&plant.ID, &plant.Name, &plant.Address, &plant.Inactive, &plant.Modified); err != nil {
		return nil, err
	}
	plant.Modified = plant.Modified.UTC()
	return &plant, nil
}
