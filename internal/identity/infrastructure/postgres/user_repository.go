package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	identity "plant-monitor/internal/identity/domain"
	"plant-monitor/internal/lifecycle"
)

const defaultUsersTable = "auth_users"

// UserRepository is a Postgres implementation for auth users.
type UserRepository struct {
	db        DBTX
	table     string
	roleTable string
}

// NewUserRepository constructs a repository.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db, table: defaultUsersTable, roleTable: defaultRolesTable}
}

func (r *UserRepository) selectQuery() string {
	return fmt.Sprintf(`
SELECT u.id, u.role_id, COALESCE(ro.name, ''), u.name, u.email, u.password,
	u.last_login, u.created_at, u.updated_at, u.inactive, u.modified
FROM %s u
LEFT JOIN %s ro ON ro.id = u.role_id`, r.table, r.roleTable)
}

// List loads users ordered by id.
func (r *UserRepository) List(ctx context.Context, filter lifecycle.ListFilter) ([]identity.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repo: nil db")
	}
	query := r.selectQuery()
	if !filter.IncludeInactive {
		query += "\nWHERE u.inactive = FALSE"
	}
	query += "\nORDER BY u.id ASC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []identity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Get loads a user by id.
func (r *UserRepository) Get(ctx context.Context, id int64) (*identity.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repo: nil db")
	}
	user, err := scanUser(r.db.QueryRowContext(ctx, r.selectQuery()+"\nWHERE u.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

// GetByEmail loads an active user by email, ignoring case.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repo: nil db")
	}
	query := r.selectQuery() + "\nWHERE lower(u.email) = lower($1) AND u.inactive = FALSE\nORDER BY u.id ASC\nLIMIT 1"
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

// RecordLogin stamps last_login without touching modified.
func (r *UserRepository) RecordLogin(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("user repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET last_login = NOW() WHERE id = $1", r.table), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return identity.ErrNotFound
	}
	return nil
}

// Create inserts a user. PasswordHash must already be set.
func (r *UserRepository) Create(ctx context.Context, user *identity.User) error {
	if r == nil || r.db == nil {
		return errors.New("user repo: nil db")
	}
	if user == nil {
		return errors.New("user repo: nil user")
	}
	if user.PasswordHash == "" {
		return identity.ErrPasswordRequired
	}
	query := fmt.Sprintf(`
INSERT INTO %s (role_id, name, email, password, last_login, created_at, updated_at, inactive, modified)
VALUES ($1, $2, $3, $4, NOW(), NOW(), NOW(), $5, NOW())
RETURNING id, last_login, created_at, updated_at, modified`, r.table)
	if err := r.db.QueryRowContext(ctx, query,
		user.RoleID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Inactive,
	).Scan(&user.ID, &user.LastLogin, &user.CreatedAt, &user.UpdatedAt, &user.Modified); err != nil {
		return err
	}
	normalizeUserTimes(user)
	return nil
}

// Update replaces a user. An empty PasswordHash keeps the stored hash.
func (r *UserRepository) Update(ctx context.Context, id int64, user *identity.User) error {
	if r == nil || r.db == nil {
		return errors.New("user repo: nil db")
	}
	if user == nil {
		return errors.New("user repo: nil user")
	}
	query := fmt.Sprintf(`
UPDATE %s
SET role_id = $1,
	name = $2,
	email = $3,
	password = COALESCE(NULLIF($4, ''), password),
	inactive = $5,
	updated_at = NOW(),
	modified = NOW()
WHERE id = $6
RETURNING last_login, created_at, updated_at, modified`, r.table)
	if err := r.db.QueryRowContext(ctx, query,
		user.RoleID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Inactive,
		id,
	).Scan(&user.LastLogin, &user.CreatedAt, &user.UpdatedAt, &user.Modified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.ErrNotFound
		}
		return err
	}
	user.ID = id
	normalizeUserTimes(user)
	return nil
}

// Delete soft-deletes a user.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("user repo: nil db")
	}
	return softDelete(ctx, r.db, r.table, id)
}

func scanUser(row interface{ Scan(...any) error }) (*identity.User, error) {
	var user identity.User
	if err := row.Scan(
		&user.ID,
		&user.RoleID,
		&user.RoleName,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Inactive,
		&user.Modified,
	); err != nil {
		return nil, err
	}
	normalizeUserTimes(&user)
	return &user, nil
}

func normalizeUserTimes(user *identity.User) {
	user.LastLogin = user.LastLogin.UTC()
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	user.Modified = user.Modified.UTC()
}
