package service

import (
	"context"
	"errors"
	"fmt"

	"profile-api/internal/domain"
	"profile-api/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserAlreadyExists is returned when attempting to register with an existing username.
	ErrUserAlreadyExists = errors.New("username already exists")
	// ErrUserNotFound is returned when no user has the requested id.
	ErrUserNotFound = errors.New("user not found")
)

// UserDirectory owns the set of user records and their lifecycle.
type UserDirectory interface {
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	Register(ctx context.Context, candidate *domain.User) (*domain.User, error)
	GetProfile(ctx context.Context, id int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, id int64, patch domain.ProfilePatch) (*domain.User, error)
}

type userDirectory struct {
	users repository.UserRepository
}

func NewUserDirectory(users repository.UserRepository) UserDirectory {
	return &userDirectory{users: users}
}

// Authenticate matches username and password byte for byte.
func (s *userDirectory) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.GetByCredentials(ctx, username, password)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate %q: %w", username, err)
	}
	return sanitizeUser(user), nil
}

// Register stores candidate under a fresh id. The candidate's ID is ignored.
func (s *userDirectory) Register(ctx context.Context, candidate *domain.User) (*domain.User, error) {
	if candidate == nil {
		return nil, errors.New("candidate user is required")
	}

	_, err := s.users.GetByUsername(ctx, candidate.Username)
	switch {
	case err == nil:
		return nil, ErrUserAlreadyExists
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("lookup username: %w", err)
	}

	user := &domain.User{
		Username:  candidate.Username,
		Password:  candidate.Password,
		Email:     candidate.Email,
		FirstName: candidate.FirstName,
		LastName:  candidate.LastName,
	}
	// the unique constraint still catches a concurrent insert that won the race
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *userDirectory) GetProfile(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return sanitizeUser(user), nil
}

// UpdateProfile overwrites email, first name and last name. Username,
// password and id are never touched.
func (s *userDirectory) UpdateProfile(ctx context.Context, id int64, patch domain.ProfilePatch) (*domain.User, error) {
	user, err := s.users.UpdateProfile(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return sanitizeUser(user), nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
