package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	incidents "plant-monitor/internal/incidents/domain"
	"plant-monitor/internal/lifecycle"
)

const defaultIncidentsTable = "incidents"

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// IncidentRepository is a Postgres repository for incidents.
type IncidentRepository struct {
	db    DBTX
	table string
}

// NewIncidentRepository constructs a repository.
func NewIncidentRepository(db DBTX) *IncidentRepository {
	return &IncidentRepository{db: db, table: defaultIncidentsTable}
}

// List loads incidents ordered by id.
func (r *IncidentRepository) List(ctx context.Context, filter lifecycle.ListFilter) ([]incidents.Incident, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("incident repo: nil db")
	}
	where := "WHERE inactive = FALSE"
	if filter.IncludeInactive {
		where = ""
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT id, alert_id, title, location_id, line_id, tag_id, date, open, inactive, modified
FROM %s
%s
ORDER BY id ASC`, r.table, where))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []incidents.Incident
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *incident)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Get loads an incident by id.
func (r *IncidentRepository) Get(ctx context.Context, id int64) (*incidents.Incident, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("incident repo: nil db")
	}
	incident, err := scanIncident(r.db.QueryRowContext(ctx, fmt.Sprintf(`
SELECT id, alert_id, title, location_id, line_id, tag_id, date, open, inactive, modified
FROM %s
WHERE id = $1`, r.table), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return incident, err
}

// Create inserts an incident.
func (r *IncidentRepository) Create(ctx context.Context, incident *incidents.Incident) error {
	if r == nil || r.db == nil {
		return errors.New("incident repo: nil db")
	}
	if incident == nil {
		return errors.New("incident repo: nil incident")
	}
	if err := incident.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (alert_id, title, location_id, line_id, tag_id, date, open, inactive, modified)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
RETURNING id, modified`, r.table)

	if err := r.db.QueryRowContext(ctx, query,
		incident.AlertID,
		incident.Title,
		incident.LocationID,
		incident.LineID,
		incident.TagID,
		incident.Date.Time,
		incident.Open,
		incident.Inactive,
	).Scan(&incident.ID, &incident.Modified); err != nil {
		return err
	}
	incident.Modified = incident.Modified.UTC()
	return nil
}

// Update replaces an incident.
func (r *IncidentRepository) Update(ctx context.Context, id int64, incident *incidents.Incident) error {
	if r == nil || r.db == nil {
		return errors.New("incident repo: nil db")
	}
	if incident == nil {
		return errors.New("incident repo: nil incident")
	}
	if err := incident.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
UPDATE %s
SET alert_id = $1, title = $2, location_id = $3, line_id = $4, tag_id = $5, date = $6,
	open = $7, inactive = $8, modified = NOW()
WHERE id = $9
RETURNING modified`, r.table)

	if err := r.db.QueryRowContext(ctx, query,
		incident.AlertID,
		incident.Title,
		incident.LocationID,
		incident.LineID,
		incident.TagID,
		incident.Date.Time,
		incident.Open,
		incident.Inactive,
		id,
	).Scan(&incident.Modified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return incidents.ErrNotFound
		}
		return err
	}
	incident.ID = id
	incident.Modified = incident.Modified.UTC()
	return nil
}

// Delete soft-deletes an incident.
func (r *IncidentRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("incident repo: nil db")
	}
	return softDelete(ctx, r.db, r.table, id, incidents.ErrNotFound)
}

func scanIncident(row rowScanner) (*incidents.Incident, error) {
	var incident incidents.Incident
	if err := row.Scan(
		&incident.ID,
		&incident.AlertID,
		&incident.Title,
		&incident.LocationID,
		&incident.LineID,
		&incident.TagID,
		&incident.Date.Time,
		&incident.Open,
		&incident.Inactive,
		&incident.Modified,
	); err != nil {
		return nil, err
	}
	incident.Date = incidents.DateOf(incident.Date.Time)
	incident.Modified = incident.Modified.UTC()
	return &incident, nil
}

func softDelete(ctx context.Context, db DBTX, table string, id int64, notFound error) error {
	res, err := db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET inactive = TRUE, modified = NOW() WHERE id = $1`, table), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
