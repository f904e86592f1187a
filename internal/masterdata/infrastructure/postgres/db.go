package postgres

import (
	"context"
	"database/sql"

	masterdata "plant-monitor/internal/masterdata/domain"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func activeClause(includeInactive bool) string {
	if includeInactive {
		return ""
	}
	return "WHERE inactive = FALSE"
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return masterdata.ErrNotFound
	}
	return nil
}
