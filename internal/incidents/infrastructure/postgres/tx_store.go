package postgres

import (
	"context"
	"database/sql"
	"errors"

	incidents "plant-monitor/internal/incidents/domain"
)

// TxStore runs incident writes inside one database transaction.
type TxStore struct {
	db *sql.DB
}

// NewTxStore constructs a transactional store.
func NewTxStore(db *sql.DB) (*TxStore, error) {
	if db == nil {
		return nil, errors.New("incident tx store: nil db")
	}
	return &TxStore{db: db}, nil
}

// WithinTx calls fn with repositories bound to a new transaction, committing
// when fn succeeds and rolling back otherwise.
func (s *TxStore) WithinTx(ctx context.Context, fn func(incidents.IncidentWriter, incidents.TransactionWriter) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(NewIncidentRepository(tx), NewTransactionRepository(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
