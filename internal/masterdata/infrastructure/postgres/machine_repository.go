package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"plant-monitor/internal/lifecycle"
	masterdata "plant-monitor/internal/masterdata/domain"
)

const defaultMachinesTable = "machines"

// MachineRepository is a Postgres implementation for machines.
type MachineRepository struct {
	db    DBTX
	table string
}

// NewMachineRepository constructs a repository.
func NewMachineRepository(db DBTX) *MachineRepository {
	return &MachineRepository{db: db, table: defaultMachinesTable}
}

const machineColumns = `id, line_id, name, status, height_px, width_px, x_coordinate, y_coordinate, inactive, modified`

// List loads machines ordered by id.
func (r *MachineRepository) List(ctx context.Context, filter lifecycle.ListFilter) ([]masterdata.Machine, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("machine repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
%s
ORDER BY id ASC`, machineColumns, r.table, activeClause(filter.IncludeInactive))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.Machine
	for rows.Next() {
		machine, err := scanMachine(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *machine)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Get loads a machine by id.
func (r *MachineRepository) Get(ctx context.Context, id int64) (*masterdata.Machine, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("machine repo: nil db")
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 LIMIT 1`, machineColumns, r.table)

	machine, err := scanMachine(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return machine, err
}

// Create inserts a machine.
func (r *MachineRepository) Create(ctx context.Context, machine *masterdata.Machine) error {
	if r == nil || r.db == nil {
		return errors.New("machine repo: nil db")
	}
	if machine == nil {
		return errors.New("machine repo: nil machine")
	}
	if err := machine.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (line_id, name, status, height_px, width_px, x_coordinate, y_coordinate, inactive, modified)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
RETURNING id, modified`, r.table)

	if err := r.db.QueryRowContext(ctx, query,
		machine.LineID,
		machine.Name,
		machine.Status,
		machine.HeightPx,
		machine.WidthPx,
		machine.XCoordinate,
		machine.YCoordinate,
		machine.Inactive,
	).Scan(&machine.ID, &machine.Modified); err != nil {
		return err
	}
	machine.Modified = machine.Modified.UTC()
	return nil
}

// Update replaces a machine.
func (r *MachineRepository) Update(ctx context.Context, id int64, machine *masterdata.Machine) error {
	if r == nil || r.db == nil {
		return errors.New("machine repo: nil db")
	}
	if machine == nil {
		return errors.New("machine repo: nil machine")
	}
	if err := machine.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
UPDATE %s
SET line_id = $1,
	name = $2,
	status = $3,
	height_px = $4,
	width_px = $5,
	x_coordinate = $6,
	y_coordinate = $7,
	inactive = $8,
	modified = NOW()
WHERE id = $9
RETURNING modified`, r.table)

	if err := r.db.QueryRowContext(ctx, query,
		machine.LineID,
		machine.Name,
		machine.Status,
		machine.HeightPx,
		machine.WidthPx,
		machine.XCoordinate,
		machine.YCoordinate,
		machine.Inactive,
		id,
	).Scan(&machine.Modified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return masterdata.ErrNotFound
		}
		return err
	}
	machine.ID = id
	machine.Modified = machine.Modified.UTC()
	return nil
}

// Delete soft-deletes a machine.
func (r *MachineRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("machine repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET inactive = TRUE, modified = NOW() WHERE id = $1`, r.table), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func scanMachine(row rowScanner) (*masterdata.Machine, error) {
	var machine masterdata.Machine
	if err := row.Scan(
		&machine.ID,
		&machine.LineID,
		&machine.Name,
		&machine.Status,
		&machine.HeightPx,
		&machine.WidthPx,
		&machine.XCoordinate,
		&machine.YCoordinate,
		&machine.Inactive,
		&machine.Modified,
	); err != nil {
		return nil, err
	}
	machine.Modified = machine.Modified.UTC()
	return &machine, nil
}
