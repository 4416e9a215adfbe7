package service

import (
	"context"
	"errors"
	"strings"

	"github.com/octobees/usersapi/internal/auth"
	"github.com/octobees/usersapi/internal/entity"
	"github.com/octobees/usersapi/internal/repository"
)

// ErrInvalidCredentials covers both unknown email and wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService coordinates credential validation and token issuance.
type AuthService struct {
	users  repository.UsersRepository
	hasher auth.PasswordHasher
	jwt    *auth.JWTManager
	// dummyHash is compared against on unknown emails so both failure
	// paths pay for one hash comparison.
	dummyHash string
}

// NewAuthService constructs a new AuthService.
func NewAuthService(users repository.UsersRepository, hasher auth.PasswordHasher, jwtManager *auth.JWTManager) *AuthService {
	dummy, _ := hasher.Hash("unknown-account-placeholder")
	return &AuthService{users: users, hasher: hasher, jwt: jwtManager, dummyHash: dummy}
}

// SignIn validates credentials and returns the user projection with a signed token.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*entity.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	creds, err := s.users.FindCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_ = s.hasher.Compare(s.dummyHash, password)
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := s.hasher.Compare(creds.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(creds.User.ID, creds.User.Email, creds.User.Role)
	if err != nil {
		return nil, "", err
	}

	user := creds.User
	return &user, token, nil
}
