package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	identity "plant-monitor/internal/identity/domain"
	"plant-monitor/internal/lifecycle"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const defaultRolesTable = "auth_roles"

// RoleRepository is a Postgres implementation for auth roles.
type RoleRepository struct {
	db    DBTX
	table string
}

// NewRoleRepository constructs a repository.
func NewRoleRepository(db DBTX) *RoleRepository {
	return &RoleRepository{db: db, table: defaultRolesTable}
}

// List loads roles ordered by id.
func (r *RoleRepository) List(ctx context.Context, filter lifecycle.ListFilter) ([]identity.Role, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("role repo: nil db")
	}
	where := "WHERE inactive = FALSE"
	if filter.IncludeInactive {
		where = ""
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT id, name, inactive, modified
FROM %s
%s
ORDER BY id ASC`, r.table, where))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []identity.Role
	for rows.Next() {
		var role identity.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Inactive, &role.Modified); err != nil {
			return nil, err
		}
		role.Modified = role.Modified.UTC()
		result = append(result, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Get loads a role by id.
func (r *RoleRepository) Get(ctx context.Context, id int64) (*identity.Role, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("role repo: nil db")
	}
	var role identity.Role
	err := r.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT id, name, inactive, modified FROM %s WHERE id = $1`, r.table), id).
		Scan(&role.ID, &role.Name, &role.Inactive, &role.Modified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	role.Modified = role.Modified.UTC()
	return &role, nil
}

// Create inserts a role.
func (r *RoleRepository) Create(ctx context.Context, role *identity.Role) error {
	if r == nil || r.db == nil {
		return errors.New("role repo: nil db")
	}
	if role == nil {
		return errors.New("role repo: nil role")
	}
	if err := role.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (name, inactive, modified)
VALUES ($1, $2, NOW())
RETURNING id, modified`, r.table)
	if err := r.db.QueryRowContext(ctx, query, role.Name, role.Inactive).Scan(&role.ID, &role.Modified); err != nil {
		return err
	}
	role.Modified = role.Modified.UTC()
	return nil
}

// Update replaces a role.
func (r *RoleRepository) Update(ctx context.Context, id int64, role *identity.Role) error {
	if r == nil || r.db == nil {
		return errors.New("role repo: nil db")
	}
	if role == nil {
		return errors.New("role repo: nil role")
	}
	if err := role.Validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`
UPDATE %s SET name = $1, inactive = $2, modified = NOW()
WHERE id = $3
RETURNING modified`, r.table)
	if err := r.db.QueryRowContext(ctx, query, role.Name, role.Inactive, id).Scan(&role.Modified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.ErrNotFound
		}
		return err
	}
	role.ID = id
	role.Modified = role.Modified.UTC()
	return nil
}

// Delete soft-deletes a role.
func (r *RoleRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("role repo: nil db")
	}
	return softDelete(ctx, r.db, r.table, id)
}

func softDelete(ctx context.Context, db DBTX, table string, id int64) error {
	res, err := db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET inactive = TRUE, modified = NOW() WHERE id = $1`, table), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return identity.ErrNotFound
	}
	return nil
}
