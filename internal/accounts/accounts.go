// Package accounts registers and authenticates users against a Repository.
package accounts

import (
	"context"
	"errors"
	"fmt"

	"filedrop/internal/models"
	"filedrop/internal/security"

	"github.com/sirupsen/logrus"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Repository persists users. GetUserByUsername returns models.ErrNotFound for
// an unknown name and CreateUser returns models.ErrDuplicateUsername when the
// name is taken. DeleteUser on a missing id is not an error.
type Repository interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, username, passwordHash string, role models.Role) (*models.User, error)
	DeleteUser(ctx context.Context, id int) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

type Service struct {
	repo Repository
	log  logrus.FieldLogger
}

func NewService(repo Repository, log logrus.FieldLogger) *Service {
	return &Service{repo: repo, log: log}
}

// Register creates an account with the default role.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	return s.Create(ctx, username, password, models.RoleUser)
}

// Create stores a new account with an explicit role. Usernames are compared
// exactly, case included.
func (s *Service) Create(ctx context.Context, username, password string, role models.Role) (*models.User, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	_, err := s.repo.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, models.ErrDuplicateUsername
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, username, hash, role)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user": username, "role": role}).Info("account created")
	return user, nil
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !security.ComparePasswords(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Delete removes a user. Their files stay in the registry.
func (s *Service) Delete(ctx context.Context, id int) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.log.WithField("user_id", id).Info("account deleted")
	return nil
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	return s.repo.ListUsers(ctx)
}

// EnsureAdmin creates an admin account named username unless that name is
// already taken. An existing account is left exactly as it is.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	_, err := s.Create(ctx, username, password, models.RoleAdmin)
	if errors.Is(err, models.ErrDuplicateUsername) {
		return nil
	}
	return err
}
