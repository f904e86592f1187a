package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	telemetry "plant-monitor/internal/telemetry/domain"
)

const defaultLogsTable = "logs"

// LogRepository is a Postgres implementation for line-scoped readings.
type LogRepository struct {
	db    *sql.DB
	table string
}

// NewLogRepository constructs a repository with default table name.
func NewLogRepository(db *sql.DB, opts ...RepositoryOption) *LogRepository {
	cfg := applyOptions(defaultLogsTable, opts)
	return &LogRepository{db: db, table: cfg.table}
}

// InsertLogs appends readings in a single transaction.
func (r *LogRepository) InsertLogs(ctx context.Context, logs []telemetry.Log) error {
	if r == nil || r.db == nil {
		return errors.New("log repo: nil db")
	}
	if len(logs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
INSERT INTO %s (timestamp, line_id, tag_id, value, inactive, modified)
VALUES ($1, $2, $3, $4, FALSE, NOW())`, r.table)

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

	for _, l := range logs {
		if err := l.Validate(); err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := stmt.ExecContext(ctx, l.Timestamp, l.LineID, l.TagID, l.Value); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// Create appends one reading and fills its id.
func (r *LogRepository) Create(ctx context.Context, l *telemetry.Log) error {
	if r == nil || r.db == nil {
		return errors.New("log repo: nil db")
	}
	if l == nil {
		return errors.New("log repo: nil log")
	}
	if err := l.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (timestamp, line_id, tag_id, value, inactive, modified)
VALUES ($1, $2, $3, $4, FALSE, NOW())
RETURNING id, modified`, r.table)
	if err := r.db.QueryRowContext(ctx, query, l.Timestamp, l.LineID, l.TagID, l.Value).Scan(&l.ID, &l.Modified); err != nil {
		return err
	}
	l.Inactive = false
	l.Modified = l.Modified.UTC()
	return nil
}

// QueryLogs returns active readings in [Start, End] ordered by timestamp.
func (r *LogRepository) QueryLogs(ctx context.Context, filter telemetry.LogFilter) ([]telemetry.Log, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("log repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, timestamp, line_id, tag_id, value, inactive, modified
FROM %s
WHERE line_id = $1
	AND tag_id = $2
	AND timestamp BETWEEN $3 AND $4
	AND inactive = FALSE
ORDER BY timestamp ASC, id ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, filter.LineID, filter.TagID, filter.Start, filter.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]telemetry.Log, 0)
	for rows.Next() {
		var l telemetry.Log
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.LineID, &l.TagID, &l.Value, &l.Inactive, &l.Modified); err != nil {
			return nil, err
		}
		l.Modified = l.Modified.UTC()
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete soft-deletes a reading.
func (r *LogRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("log repo: nil db")
	}
	return softDelete(ctx, r.db, r.table, id)
}

func softDelete(ctx context.Context, db *sql.DB, table string, id int64) error {
	res, err := db.ExecContext(ctx, fmt.Sprintf(`
UPDATE %s SET inactive = TRUE, modified = NOW()
WHERE id = $1 AND inactive = FALSE`, table), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return telemetry.ErrNotFound
	}
	return nil
}
