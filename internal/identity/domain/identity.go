package identity

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"plant-monitor/internal/apperrors"
	"plant-monitor/internal/lifecycle"
)

var (
	// ErrNotFound indicates a missing role or user.
	ErrNotFound = apperrors.NotFound("identity")
	// ErrPasswordRequired is returned when a new user has no password.
	ErrPasswordRequired = apperrors.Invalid("auth user: password is required")
	// ErrInvalidCredentials is returned for an unknown email, a wrong password or an inactive user.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

// Role is a named permission group.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	lifecycle.Lifecycle
}

// Validate checks role invariants.
func (r Role) Validate() error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return apperrors.Invalid("auth role: empty name")
	}
	if len(name) > 50 {
		return apperrors.Invalid("auth role: name longer than 50 characters")
	}
	return nil
}

// User is an operator account. Password carries plaintext on input only;
// PasswordHash is never serialized.
type User struct {
	ID           int64     `json:"id"`
	RoleID       int64     `json:"role_id"`
	RoleName     string    `json:"role,omitempty"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Password     string    `json:"password,omitempty"`
	PasswordHash string    `json:"-"`
	LastLogin    time.Time `json:"last_login"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	lifecycle.Lifecycle
}

// Validate checks user invariants.
func (u User) Validate() error {
	if u.RoleID <= 0 {
		return apperrors.Invalid("auth user: role_id is required")
	}
	if strings.TrimSpace(u.Name) == "" {
		return apperrors.Invalid("auth user: empty name")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return apperrors.Invalidf("auth user: invalid email %q", u.Email)
	}
	return nil
}

// SetPassword hashes the plaintext password into PasswordHash and clears it.
func (u *User) SetPassword(plain string) error {
	if plain == "" {
		return ErrPasswordRequired
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return apperrors.Invalid("auth user: password too long")
		}
		return err
	}
	u.PasswordHash = string(hash)
	u.Password = ""
	return nil
}

// CheckPassword reports whether plain matches the stored hash.
func (u User) CheckPassword(plain string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}
