package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	incidents "plant-monitor/internal/incidents/domain"
	"plant-monitor/internal/lifecycle"
)

const defaultTransactionsTable = "incident_transactions"

// TransactionRepository is a Postgres repository for incident transactions.
type TransactionRepository struct {
	db    DBTX
	table string
}

// NewTransactionRepository constructs a repository.
func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db, table: defaultTransactionsTable}
}

// List loads transactions ordered by id.
func (r *TransactionRepository) List(ctx context.Context, filter lifecycle.ListFilter) ([]incidents.Transaction, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("incident transaction repo: nil db")
	}
	where := "WHERE inactive = FALSE"
	if filter.IncludeInactive {
		where = ""
	}
	return r.query(ctx, fmt.Sprintf(`
SELECT id, incident_id, timestamp, issued_by, msg, inactive, modified
FROM %s
%s
ORDER BY id ASC`, r.table, where))
}

// ListByIncident returns the active log of one incident, oldest first.
func (r *TransactionRepository) ListByIncident(ctx context.Context, incidentID int64) ([]incidents.Transaction, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("incident transaction repo: nil db")
	}
	return r.query(ctx, fmt.Sprintf(`
SELECT id, incident_id, timestamp, issued_by, msg, inactive, modified
FROM %s
WHERE incident_id = $1 AND inactive = FALSE
ORDER BY timestamp ASC, id ASC`, r.table), incidentID)
}

// Get loads a transaction by id.
func (r *TransactionRepository) Get(ctx context.Context, id int64) (*incidents.Transaction, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("incident transaction repo: nil db")
	}
	txn, err := scanTransaction(r.db.QueryRowContext(ctx, fmt.Sprintf(`
SELECT id, incident_id, timestamp, issued_by, msg, inactive, modified
FROM %s
WHERE id = $1`, r.table), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return txn, err
}

// Create appends a transaction.
func (r *TransactionRepository) Create(ctx context.Context, txn *incidents.Transaction) error {
	if r == nil || r.db == nil {
		return errors.New("incident transaction repo: nil db")
	}
	if txn == nil {
		return errors.New("incident transaction repo: nil transaction")
	}
	if err := txn.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (incident_id, timestamp, issued_by, msg, inactive, modified)
VALUES ($1, $2, $3, $4, $5, NOW())
RETURNING id, modified`, r.table)

	if err := r.db.QueryRowContext(ctx, query,
		txn.IncidentID,
		txn.Timestamp.UTC(),
		txn.IssuedBy,
		nullableString(txn.Msg),
		txn.Inactive,
	).Scan(&txn.ID, &txn.Modified); err != nil {
		return err
	}
	txn.Modified = txn.Modified.UTC()
	return nil
}

// Update replaces a transaction.
func (r *TransactionRepository) Update(ctx context.Context, id int64, txn *incidents.Transaction) error {
	if r == nil || r.db == nil {
		return errors.New("incident transaction repo: nil db")
	}
	if txn == nil {
		return errors.New("incident transaction repo: nil transaction")
	}
	if err := txn.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
UPDATE %s
SET incident_id = $1, timestamp = $2, issued_by = $3, msg = $4, inactive = $5, modified = NOW()
WHERE id = $6
RETURNING modified`, r.table)

	if err := r.db.QueryRowContext(ctx, query,
		txn.IncidentID,
		txn.Timestamp.UTC(),
		txn.IssuedBy,
		nullableString(txn.Msg),
		txn.Inactive,
		id,
	).Scan(&txn.Modified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return incidents.ErrTransactionNotFound
		}
		return err
	}
	txn.ID = id
	txn.Modified = txn.Modified.UTC()
	return nil
}

// Delete soft-deletes a transaction.
func (r *TransactionRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("incident transaction repo: nil db")
	}
	return softDelete(ctx, r.db, r.table, id, incidents.ErrTransactionNotFound)
}

func (r *TransactionRepository) query(ctx context.Context, query string, args ...any) ([]incidents.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []incidents.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanTransaction(row rowScanner) (*incidents.Transaction, error) {
	var txn incidents.Transaction
	var msg sql.NullString
	if err := row.Scan(
		&txn.ID,
		&txn.IncidentID,
		&txn.Timestamp,
		&txn.IssuedBy,
		&msg,
		&txn.Inactive,
		&txn.Modified,
	); err != nil {
		return nil, err
	}
	if msg.Valid {
		txn.Msg = &msg.String
	}
	txn.Timestamp = txn.Timestamp.UTC()
	txn.Modified = txn.Modified.UTC()
	return &txn, nil
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
