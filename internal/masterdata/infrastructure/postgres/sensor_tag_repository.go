package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"plant-monitor/internal/lifecycle"
	masterdata "plant-monitor/internal/masterdata/domain"
)

const defaultSensorTagsTable = "sensor_tags"

// SensorTagRepository is a Postgres implementation for sensor tags.
type SensorTagRepository struct {
	db           DBTX
	table        string
	machineTable string
}

// SensorTagOption configures the repository.
type SensorTagOption func(*SensorTagRepository)

// WithSensorTagTables overrides the tag and machine table names.
func WithSensorTagTables(tags, machines string) SensorTagOption {
	return func(repo *SensorTagRepository) {
		if tags != "" {
			repo.table = tags
		}
		if machines != "" {
			repo.machineTable = machines
		}
	}
}

// NewSensorTagRepository constructs a repository.
func NewSensorTagRepository(db DBTX, opts ...SensorTagOption) *SensorTagRepository {
	repo := &SensorTagRepository{db: db, table: defaultSensorTagsTable, machineTable: defaultMachinesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

const sensorTagColumns = `id, machine_id, tag_type_id, name, min_val, max_val, nominal_val, threshold_alert, continuous_record, frequency, inactive, modified`

// List loads tags ordered by id.
func (r *SensorTagRepository) List(ctx context.Context, filter lifecycle.ListFilter) ([]masterdata.SensorTag, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sensor tag repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
%s
ORDER BY id ASC`, sensorTagColumns, r.table, activeClause(filter.IncludeInactive))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.SensorTag
	for rows.Next() {
		var tag masterdata.SensorTag
		if err := scanSensorTag(rows, &tag); err != nil {
			return nil, err
		}
		result = append(result, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Get loads a tag by id.
func (r *SensorTagRepository) Get(ctx context.Context, id int64) (*masterdata.SensorTag, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sensor tag repo: nil db")
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 LIMIT 1`, sensorTagColumns, r.table)

	var tag masterdata.SensorTag
	if err := scanSensorTag(r.db.QueryRowContext(ctx, query, id), &tag); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &tag, nil
}

// ListActiveTags loads active tags on active machines with the owning line resolved.
func (r *SensorTagRepository) ListActiveTags(ctx context.Context) ([]masterdata.ActiveTag, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sensor tag repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT t.id, t.machine_id, t.tag_type_id, t.name, t.min_val, t.max_val, t.nominal_val,
	t.threshold_alert, t.continuous_record, t.frequency, t.inactive, t.modified, m.line_id
FROM %s t
JOIN %s m ON m.id = t.machine_id
WHERE t.inactive = FALSE AND m.inactive = FALSE
ORDER BY t.id ASC`, r.table, r.machineTable)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.ActiveTag
	for rows.Next() {
		var active masterdata.ActiveTag
		if err := scanSensorTag(rows, &active.SensorTag, &active.LineID); err != nil {
			return nil, err
		}
		result = append(result, active)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Create inserts a tag.
func (r *SensorTagRepository) Create(ctx context.Context, tag *masterdata.SensorTag) error {
	if r == nil || r.db == nil {
		return errors.New("sensor tag repo: nil db")
	}
	if tag == nil {
		return errors.New("sensor tag repo: nil tag")
	}
	if err := tag.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (machine_id, tag_type_id, name, min_val, max_val, nominal_val, threshold_alert, continuous_record, frequency, inactive, modified)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
RETURNING id, modified`, r.table)

	if err := r.db.QueryRowContext(ctx, query, tagArgs(tag)...).Scan(&tag.ID, &tag.Modified); err != nil {
		return err
	}
	tag.Modified = tag.Modified.UTC()
	return nil
}

// Update replaces a tag.
func (r *SensorTagRepository) Update(ctx context.Context, id int64, tag *masterdata.SensorTag) error {
	if r == nil || r.db == nil {
		return errors.New("sensor tag repo: nil db")
	}
	if tag == nil {
		return errors.New("sensor tag repo: nil tag")
	}
	if err := tag.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
UPDATE %s
SET machine_id = $1,
	tag_type_id = $2,
	name = $3,
	min_val = $4,
	max_val = $5,
	nominal_val = $6,
	threshold_alert = $7,
	continuous_record = $8,
	frequency = $9,
	inactive = $10,
	modified = NOW()
WHERE id = $11
RETURNING modified`, r.table)

	args := append(tagArgs(tag), id)
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&tag.Modified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return masterdata.ErrNotFound
		}
		return err
	}
	tag.ID = id
	tag.Modified = tag.Modified.UTC()
	return nil
}

// Delete soft-deletes a tag.
func (r *SensorTagRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("sensor tag repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET inactive = TRUE, modified = NOW() WHERE id = $1`, r.table), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func tagArgs(tag *masterdata.SensorTag) []any {
	nominal := sql.NullFloat64{}
	if tag.NominalVal != nil {
		nominal = sql.NullFloat64{Float64: *tag.NominalVal, Valid: true}
	}
	frequency := sql.NullString{}
	if tag.Frequency != nil {
		frequency = sql.NullString{String: *tag.Frequency, Valid: true}
	}
	return []any{
		tag.MachineID,
		tag.TagTypeID,
		tag.Name,
		tag.MinVal,
		tag.MaxVal,
		nominal,
		tag.ThresholdAlert,
		tag.ContinuousRecord,
		frequency,
		tag.Inactive,
	}
}

func scanSensorTag(row rowScanner, tag *masterdata.SensorTag, extra ...any) error {
	var (
		nominal   sql.NullFloat64
		frequency sql.NullString
	)
	dest := []any{
		&tag.ID,
		&tag.MachineID,
		&tag.TagTypeID,
		&tag.Name,
		&tag.MinVal,
		&tag.MaxVal,
		&nominal,
		&tag.ThresholdAlert,
		&tag.ContinuousRecord,
		&frequency,
		&tag.Inactive,
		&tag.Modified,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	if nominal.Valid {
		v := nominal.Float64
		tag.NominalVal = &v
	}
	if frequency.Valid {
		v := frequency.String
		tag.Frequency = &v
	}
	tag.Modified = tag.Modified.UTC()
	return nil
}
