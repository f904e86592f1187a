package application

import (
	"context"
	"errors"
	"strings"

	"plant-monitor/internal/apperrors"
	identity "plant-monitor/internal/identity/domain"
	"plant-monitor/internal/lifecycle"
)

// UserStore persists users with pre-hashed passwords.
type UserStore interface {
	List(ctx context.Context, filter lifecycle.ListFilter) ([]identity.User, error)
	Get(ctx context.Context, id int64) (*identity.User, error)
	Create(ctx context.Context, user *identity.User) error
	Update(ctx context.Context, id int64, user *identity.User) error
	Delete(ctx context.Context, id int64) error
	// GetByEmail matches the address case-insensitively; nil when missing.
	GetByEmail(ctx context.Context, email string) (*identity.User, error)
	RecordLogin(ctx context.Context, id int64) error
}

// UserService hashes passwords on the way in and strips them on the way out.
type UserService struct {
	store UserStore
}

// NewUserService constructs a user service.
func NewUserService(store UserStore) (*UserService, error) {
	if store == nil {
		return nil, errors.New("user service: nil store")
	}
	return &UserService{store: store}, nil
}

// List returns users without credentials.
func (s *UserService) List(ctx context.Context, filter lifecycle.ListFilter) ([]identity.User, error) {
	users, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range users {
		scrub(&users[i])
	}
	return users, nil
}

// Get returns a user without credentials, or nil when missing.
func (s *UserService) Get(ctx context.Context, id int64) (*identity.User, error) {
	user, err := s.store.Get(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}
	scrub(user)
	return user, nil
}

// Create validates, hashes the password and stores the user.
func (s *UserService) Create(ctx context.Context, user *identity.User) error {
	if user == nil {
		return errors.New("user service: nil user")
	}
	if err := user.Validate(); err != nil {
		return err
	}
	if err := user.SetPassword(user.Password); err != nil {
		return err
	}
	if err := s.store.Create(ctx, user); err != nil {
		return err
	}
	scrub(user)
	return nil
}

// Update validates and stores the user; an empty password keeps the current hash.
func (s *UserService) Update(ctx context.Context, id int64, user *identity.User) error {
	if user == nil {
		return errors.New("user service: nil user")
	}
	if err := user.Validate(); err != nil {
		return err
	}
	user.PasswordHash = ""
	if user.Password != "" {
		if err := user.SetPassword(user.Password); err != nil {
			return err
		}
	}
	if err := s.store.Update(ctx, id, user); err != nil {
		return err
	}
	scrub(user)
	return nil
}

// Delete soft-deletes a user.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// Authenticate checks email and password and stamps last_login. Every failure
// other than a storage error is reported as ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*identity.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.Invalid("auth: email and password are required")
	}
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Inactive || !user.CheckPassword(password) {
		return nil, identity.ErrInvalidCredentials
	}
	if err := s.store.RecordLogin(ctx, user.ID); err != nil {
		return nil, err
	}
	scrub(user)
	return user, nil
}

func scrub(user *identity.User) {
	user.Password = ""
	user.PasswordHash = ""
}
