package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	telemetry "plant-monitor/internal/telemetry/domain"
)

const defaultDaqLogsTable = "daq_logs"

// DaqLogRepository is a Postgres implementation for machine-scoped readings.
type DaqLogRepository struct {
	db           *sql.DB
	table        string
	tagTable     string
	machineTable string
}

// NewDaqLogRepository constructs a repository with default table names.
func NewDaqLogRepository(db *sql.DB, opts ...RepositoryOption) *DaqLogRepository {
	cfg := applyOptions(defaultDaqLogsTable, opts)
	return &DaqLogRepository{db: db, table: cfg.table, tagTable: cfg.tagTable, machineTable: cfg.machineTable}
}

// InsertDaqLogs appends readings in a single transaction.
func (r *DaqLogRepository) InsertDaqLogs(ctx context.Context, logs []telemetry.DaqLog) error {
	if r == nil || r.db == nil {
		return errors.New("daq log repo: nil db")
	}
	if len(logs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
INSERT INTO %s (timestamp, tag_id, value, inactive, modified)
VALUES ($1, $2, $3, FALSE, NOW())`, r.table)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, d := range logs {
		if err := d.Validate(); err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := stmt.ExecContext(ctx, d.Timestamp, d.TagID, d.Value); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// Create appends one reading and fills its id.
func (r *DaqLogRepository) Create(ctx context.Context, d *telemetry.DaqLog) error {
	if r == nil || r.db == nil {
		return errors.New("daq log repo: nil db")
	}
	if d == nil {
		return errors.New("daq log repo: nil daq log")
	}
	if err := d.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (timestamp, tag_id, value, inactive, modified)
VALUES ($1, $2, $3, FALSE, NOW())
RETURNING id, modified`, r.table)
	if err := r.db.QueryRowContext(ctx, query, d.Timestamp, d.TagID, d.Value).Scan(&d.ID, &d.Modified); err != nil {
		return err
	}
	d.Inactive = false
	d.Modified = d.Modified.UTC()
	return nil
}

// QueryDaqLogs returns active readings for tags on the line's machines in [Start, End].
func (r *DaqLogRepository) QueryDaqLogs(ctx context.Context, filter telemetry.DaqLogFilter) ([]telemetry.DaqLogRow, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("daq log repo: nil db")
	}

	conds := []string{
		"m.line_id = $1",
		"d.timestamp BETWEEN $2 AND $3",
		"d.inactive = FALSE",
	}
	args := []any{filter.LineID, filter.Start, filter.End}
	if filter.MachineID > 0 {
		args = append(args, filter.MachineID)
		conds = append(conds, fmt.Sprintf("m.id = $%d", len(args)))
	}
	if filter.TagID > 0 {
		args = append(args, filter.TagID)
		conds = append(conds, fmt.Sprintf("t.id = $%d", len(args)))
	}

	query := fmt.Sprintf(`
SELECT d.id, d.timestamp, d.tag_id, d.value, d.inactive, d.modified, t.name, m.id, m.name
FROM %s d
JOIN %s t ON t.id = d.tag_id
JOIN %s m ON m.id = t.machine_id
WHERE %s
ORDER BY d.timestamp ASC, d.id ASC`, r.table, r.tagTable, r.machineTable, strings.Join(conds, "\n\tAND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]telemetry.DaqLogRow, 0)
	for rows.Next() {
		var row telemetry.DaqLogRow
		if err := rows.Scan(
			&row.ID,
			&row.Timestamp,
			&row.TagID,
			&row.Value,
			&row.Inactive,
			&row.Modified,
			&row.TagName,
			&row.MachineID,
			&row.MachineName,
		); err != nil {
			return nil, err
		}
		row.Modified = row.Modified.UTC()
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete soft-deletes a reading.
func (r *DaqLogRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("daq log repo: nil db")
	}
	return softDelete(ctx, r.db, r.table, id)
}
