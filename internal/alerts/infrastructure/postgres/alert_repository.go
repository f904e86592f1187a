package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	alerts "plant-monitor/internal/alerts/domain"
	"plant-monitor/internal/lifecycle"
)

const defaultAlertsTable = "alerts"

const alertColumns = `id, line_id, tag_id, timestamp, name, type, report_title, report_type,
	report_category, report_sub_cat, location, incident_dtls, issued, role, resolved_at,
	inactive, modified`

type rowScanner interface {
	Scan(dest ...any) error
}

// AlertRepository is a Postgres repository for alerts.
type AlertRepository struct {
	db    *sql.DB
	table string
}

// NewAlertRepository constructs a repository.
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db, table: defaultAlertsTable}
}

// List loads alerts ordered by id.
func (r *AlertRepository) List(ctx context.Context, filter lifecycle.ListFilter) ([]alerts.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	where := "WHERE inactive = FALSE"
	if filter.IncludeInactive {
		where = ""
	}
	return r.query(ctx, fmt.Sprintf(`SELECT %s FROM %s %s ORDER BY id ASC`, alertColumns, r.table, where))
}

// Recent returns the newest active alerts first.
func (r *AlertRepository) Recent(ctx context.Context, limit int) ([]alerts.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	if limit <= 0 {
		return nil, errors.New("alert repo: limit must be positive")
	}
	return r.query(ctx, fmt.Sprintf(`
SELECT %s
FROM %s
WHERE inactive = FALSE
ORDER BY timestamp DESC, id DESC
LIMIT $1`, alertColumns, r.table), limit)
}

// Range returns active alerts in [Start, End] ordered by timestamp.
func (r *AlertRepository) Range(ctx context.Context, filter alerts.RangeFilter) ([]alerts.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE inactive = FALSE AND timestamp BETWEEN $1 AND $2`, alertColumns, r.table)
	args := []any{filter.Start.UTC(), filter.End.UTC()}
	if filter.LineID > 0 {
		query += " AND line_id = $3"
		args = append(args, filter.LineID)
	}
	query += " ORDER BY timestamp ASC, id ASC"
	return r.query(ctx, query, args...)
}

// Get loads an alert by id.
func (r *AlertRepository) Get(ctx context.Context, id int64) (*alerts.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, alertColumns, r.table), id)
	alert, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return alert, err
}

// Create inserts an alert.
func (r *AlertRepository) Create(ctx context.Context, alert *alerts.Alert) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	if alert == nil {
		return errors.New("alert repo: nil alert")
	}
	alert.Normalize()
	if err := alert.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	line_id, tag_id, timestamp, name, type, report_title, report_type,
	report_category, report_sub_cat, location, incident_dtls, issued, role, resolved_at,
	inactive, modified
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
RETURNING id, modified`, r.table)

	if err := r.db.QueryRowContext(ctx, query, alertArgs(alert)...).Scan(&alert.ID, &alert.Modified); err != nil {
		return err
	}
	alert.Modified = alert.Modified.UTC()
	return nil
}

// Update replaces an alert.
func (r *AlertRepository) Update(ctx context.Context, id int64, alert *alerts.Alert) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	if alert == nil {
		return errors.New("alert repo: nil alert")
	}
	alert.Normalize()
	if err := alert.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
UPDATE %s
SET line_id = $1, tag_id = $2, timestamp = $3, name = $4, type = $5, report_title = $6,
	report_type = $7, report_category = $8, report_sub_cat = $9, location = $10,
	incident_dtls = $11, issued = $12, role = $13, resolved_at = $14, inactive = $15,
	modified = NOW()
WHERE id = $16
RETURNING modified`, r.table)

	args := append(alertArgs(alert), id)
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&alert.Modified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return alerts.ErrNotFound
		}
		return err
	}
	alert.ID = id
	alert.Modified = alert.Modified.UTC()
	return nil
}

// Delete soft-deletes an alert.
func (r *AlertRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET inactive = TRUE, modified = NOW() WHERE id = $1`, r.table), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return alerts.ErrNotFound
	}
	return nil
}

func (r *AlertRepository) query(ctx context.Context, query string, args ...any) ([]alerts.Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []alerts.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *alert)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func alertArgs(alert *alerts.Alert) []any {
	return []any{
		alert.LineID,
		alert.TagID,
		alert.Timestamp.UTC(),
		alert.Name,
		alert.Type,
		alert.ReportTitle,
		alert.ReportType,
		alert.ReportCategory,
		alert.ReportSubCat,
		alert.Location,
		alert.IncidentDtls,
		alert.Issued,
		alert.Role,
		nullableTime(alert.ResolvedAt),
		alert.Inactive,
	}
}

func scanAlert(row rowScanner) (*alerts.Alert, error) {
	var alert alerts.Alert
	var resolvedAt sql.NullTime
	if err := row.Scan(
		&alert.ID,
		&alert.LineID,
		&alert.TagID,
		&alert.Timestamp,
		&alert.Name,
		&alert.Type,
		&alert.ReportTitle,
		&alert.ReportType,
		&alert.ReportCategory,
		&alert.ReportSubCat,
		&alert.Location,
		&alert.IncidentDtls,
		&alert.Issued,
		&alert.Role,
		&resolvedAt,
		&alert.Inactive,
		&alert.Modified,
	); err != nil {
		return nil, err
	}
	alert.Timestamp = alert.Timestamp.UTC()
	alert.Modified = alert.Modified.UTC()
	if resolvedAt.Valid {
		resolved := resolvedAt.Time.UTC()
		alert.ResolvedAt = &resolved
	}
	return &alert, nil
}

func nullableTime(value *time.Time) sql.NullTime {
	if value == nil || value.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value.UTC(), Valid: true}
}
