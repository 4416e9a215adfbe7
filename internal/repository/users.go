package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/usersapi/internal/entity"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup criteria.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailDuplicate is returned when a write collides with an existing email.
	ErrEmailDuplicate = errors.New("email already exists")
)

const (
	uniqueViolation      = "23505"
	emailUniqueIndexName = "users_email_key"
	userColumns          = "id, email, name, role, created_at, updated_at"
)

// UserChanges is a partial update. Nil fields are left untouched; the
// password must already be hashed.
type UserChanges struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *entity.Role
}

// UsersRepository declares the persistence operations on users.
type UsersRepository interface {
	List(ctx context.Context) ([]entity.User, error)
	FindByID(ctx context.Context, id int64) (*entity.User, error)
	FindCredentialsByEmail(ctx context.Context, email string) (*entity.Credentials, error)
	Update(ctx context.Context, id int64, changes UserChanges) (*entity.User, error)
	Delete(ctx context.Context, id int64) (*entity.DeletedUser, error)
}

// PGXUsersRepository implements UsersRepository with pgx.
type PGXUsersRepository struct {
	pool pgxPool
}

// NewPGXUsersRepository instantiates a users repository.
func NewPGXUsersRepository(pool *pgxpool.Pool) *PGXUsersRepository {
	return &PGXUsersRepository{pool: pool}
}

func scanUser(row pgx.Row, user *entity.User, extra ...any) error {
	dest := append([]any{&user.ID, &user.Email, &user.Name, &user.Role, &user.CreatedAt, &user.UpdatedAt}, extra...)
	return row.Scan(dest...)
}

// List returns every user ordered by id.
func (r *PGXUsersRepository) List(ctx context.Context) ([]entity.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]entity.User, 0)
	for rows.Next() {
		var user entity.User
		if err := scanUser(rows, &user); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// FindByID retrieves a user by identifier.
func (r *PGXUsersRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	var user entity.User
	if err := scanUser(row, &user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query user by id: %w", err)
	}

	return &user, nil
}

// FindCredentialsByEmail fetches the projection and stored hash for sign-in.
func (r *PGXUsersRepository) FindCredentialsByEmail(ctx context.Context, email string) (*entity.Credentials, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+`, password FROM users WHERE email = $1`, email)

	var creds entity.Credentials
	if err := scanUser(row, &creds.User, &creds.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query user by email: %w", err)
	}

	return &creds, nil
}

// Update patches user attributes in a single conditional statement, so a row
// removed concurrently surfaces as ErrUserNotFound rather than a lost write.
func (r *PGXUsersRepository) Update(ctx context.Context, id int64, changes UserChanges) (*entity.User, error) {
	setClauses := make([]string, 0, 5)
	args := make([]any, 0, 5)
	idx := 1

	if changes.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", idx))
		args = append(args, *changes.Name)
		idx++
	}
	if changes.Email != nil {
		setClauses = append(setClauses, fmt.Sprintf("email = $%d", idx))
		args = append(args, *changes.Email)
		idx++
	}
	if changes.PasswordHash != nil {
		setClauses = append(setClauses, fmt.Sprintf("password = $%d", idx))
		args = append(args, *changes.PasswordHash)
		idx++
	}
	if changes.Role != nil {
		setClauses = append(setClauses, fmt.Sprintf("role = $%d", idx))
		args = append(args, string(*changes.Role))
		idx++
	}

	if len(setClauses) == 0 {
		return r.FindByID(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING `+userColumns, strings.Join(setClauses, ", "), idx)

	var user entity.User
	if err := scanUser(r.pool.QueryRow(ctx, query, args...), &user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == emailUniqueIndexName {
			return nil, fmt.Errorf("%w: %w", ErrEmailDuplicate, err)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	return &user, nil
}

// Delete removes a user by id and returns what was removed.
func (r *PGXUsersRepository) Delete(ctx context.Context, id int64) (*entity.DeletedUser, error) {
	row := r.pool.QueryRow(ctx, `DELETE FROM users WHERE id = $1 RETURNING id, email, name`, id)

	var deleted entity.DeletedUser
	if err := row.Scan(&deleted.ID, &deleted.Email, &deleted.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("delete user: %w", err)
	}

	return &deleted, nil
}
