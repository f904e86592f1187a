package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"plant-monitor/internal/lifecycle"
	masterdata "plant-monitor/internal/masterdata/domain"
)

const defaultSensorTagTypesTable = "sensor_tag_types"

// SensorTagTypeRepository is a Postgres implementation for tag types.
type SensorTagTypeRepository struct {
	db    DBTX
	table string
}

// NewSensorTagTypeRepository constructs a repository.
func NewSensorTagTypeRepository(db DBTX) *SensorTagTypeRepository {
	return &SensorTagTypeRepository{db: db, table: defaultSensorTagTypesTable}
}

// List loads tag types ordered by id.
func (r *SensorTagTypeRepository) List(ctx context.Context, filter lifecycle.ListFilter) ([]masterdata.SensorTagType, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sensor tag type repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, name, units, category, inactive, modified
FROM %s
%s
ORDER BY id ASC`, r.table, activeClause(filter.IncludeInactive))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.SensorTagType
	for rows.Next() {
		tagType, err := scanSensorTagType(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *tagType)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Get loads a tag type by id.
func (r *SensorTagTypeRepository) Get(ctx context.Context, id int64) (*masterdata.SensorTagType, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sensor tag type repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, name, units, category, inactive, modified
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	tagType, err := scanSensorTagType(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return tagType, err
}

// Create inserts a tag type.
func (r *SensorTagTypeRepository) Create(ctx context.Context, tagType *masterdata.SensorTagType) error {
	if r == nil || r.db == nil {
		return errors.New("sensor tag type repo: nil db")
	}
	if tagType == nil {
		return errors.New("sensor tag type repo: nil tag type")
	}
	if err := tagType.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (name, units, category, inactive, modified)
VALUES ($1, $2, $3, $4, NOW())
RETURNING id, modified`, r.table)

	if err := r.db.QueryRowContext(ctx, query,
		tagType.Name,
		tagType.Units,
		string(tagType.Category),
		tagType.Inactive,
	).Scan(&tagType.ID, &tagType.Modified); err != nil {
		return err
	}
	tagType.Modified = tagType.Modified.UTC()
	return nil
}

// Update replaces a tag type.
func (r *SensorTagTypeRepository) Update(ctx context.Context, id int64, tagType *masterdata.SensorTagType) error {
	if r == nil || r.db == nil {
		return errors.New("sensor tag type repo: nil db")
	}
	if tagType == nil {
		return errors.New("sensor tag type repo: nil tag type")
	}
	if err := tagType.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
UPDATE %s
SET name = $1, units = $2, category = $3, inactive = $4, modified = NOW()
WHERE id = $5
RETURNING modified`, r.table)

	if err := r.db.QueryRowContext(ctx, query,
		tagType.Name,
		tagType.Units,
		string(tagType.Category),
		tagType.Inactive,
		id,
	).Scan(&tagType.Modified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return masterdata.ErrNotFound
		}
		return err
	}
	tagType.ID = id
	tagType.Modified = tagType.Modified.UTC()
	return nil
}

// Delete soft-deletes a tag type.
func (r *SensorTagTypeRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("sensor tag type repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET inactive = TRUE, modified = NOW() WHERE id = $1`, r.table), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func scanSensorTagType(row rowScanner) (*masterdata.SensorTagType, error) {
	var (
		tagType  masterdata.SensorTagType
		category string
	)
	if err := row.Scan(&tagType.ID, &tagType.Name, &tagType.Units, &category, &tagType.Inactive, &tagType.Modified); err != nil {
		return nil, err
	}
	tagType.Category = masterdata.Category(category)
	tagType.Modified = tagType.Modified.UTC()
	return &tagType, nil
}
