package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/octobees/usersapi/internal/auth"
	"github.com/octobees/usersapi/internal/config"
	"github.com/octobees/usersapi/internal/entity"
)

// Execer is the subset of pgxpool.Pool used for bootstrap statements.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const usersTableDDL = `
CREATE TABLE IF NOT EXISTS users (
    id         BIGSERIAL PRIMARY KEY,
    email      TEXT NOT NULL,
    name       TEXT NOT NULL,
    password   TEXT NOT NULL,
    role       TEXT NOT NULL DEFAULT 'regular' CHECK (role IN ('regular', 'admin')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT users_email_key UNIQUE (email)
)`

// EnsureSchema creates the users table when it does not exist yet.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, usersTableDDL); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

// EnsureAdmin inserts the configured administrator unless the email is
// already taken. It is a no-op when no seed credentials are configured.
func EnsureAdmin(ctx context.Context, db Execer, hasher auth.PasswordHasher, seed config.AdminSeed) (bool, error) {
	if seed.Email == "" || seed.Password == "" {
		return false, nil
	}

	hash, err := hasher.Hash(seed.Password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	tag, err := db.Exec(ctx, `
        INSERT INTO users (email, name, password, role)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (email) DO NOTHING
    `, seed.Email, seed.Name, hash, string(entity.RoleAdmin))
	if err != nil {
		return false, fmt.Errorf("seed admin user: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
