package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/octobees/usersapi/internal/auth"
	"github.com/octobees/usersapi/internal/entity"
	"github.com/octobees/usersapi/internal/repository"
	"github.com/octobees/usersapi/internal/validation"
)

// UserService exposes user reads and mutations to handlers. It owns password
// hashing; callers never see plaintext or hash.
type UserService struct {
	repo   repository.UsersRepository
	hasher auth.PasswordHasher
	logger zerolog.Logger
}

// NewUserService builds a new UserService instance.
func NewUserService(repo repository.UsersRepository, hasher auth.PasswordHasher, logger zerolog.Logger) *UserService {
	return &UserService{repo: repo, hasher: hasher, logger: logger}
}

// ListUsers returns every user ordered by id.
func (s *UserService) ListUsers(ctx context.Context) ([]entity.User, error) {
	return s.repo.List(ctx)
}

// GetUser returns one user or repository.ErrUserNotFound.
func (s *UserService) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateUser applies a validated payload. Only present fields are written.
func (s *UserService) UpdateUser(ctx context.Context, id int64, payload validation.UpdatePayload) (*entity.User, error) {
	changes := repository.UserChanges{
		Name:  payload.Name,
		Email: payload.Email,
		Role:  payload.Role,
	}

	if payload.Password != nil {
		hashed, err := s.hasher.Hash(*payload.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		changes.PasswordHash = &hashed
	}

	user, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", user.ID).Str("email", user.Email).Msg("user updated")
	return user, nil
}

// DeleteUser removes a user and returns its identifying fields.
func (s *UserService) DeleteUser(ctx context.Context, id int64) (*entity.DeletedUser, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", deleted.ID).Str("email", deleted.Email).Msg("user deleted")
	return deleted, nil
}
