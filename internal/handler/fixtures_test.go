package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/octobees/usersapi/internal/auth"
	"github.com/octobees/usersapi/internal/entity"
	"github.com/octobees/usersapi/internal/repository"
	"github.com/octobees/usersapi/internal/service"
	"github.com/octobees/usersapi/internal/validation"
)

type storedUser struct {
	user entity.User
	hash string
}

// memoryUsersRepo is an in-memory UsersRepository that counts store calls.
type memoryUsersRepo struct {
	mu    sync.Mutex
	users map[int64]*storedUser
	calls int
	fail  error
}

func newMemoryUsersRepo(users ...entity.User) *memoryUsersRepo {
	r := &memoryUsersRepo{users: make(map[int64]*storedUser)}
	for _, u := range users {
		r.users[u.ID] = &storedUser{user: u, hash: "hashed:initial"}
	}
	return r
}

func (r *memoryUsersRepo) touch() error {
	r.calls++
	return r.fail
}

func (r *memoryUsersRepo) storeCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *memoryUsersRepo) List(ctx context.Context) ([]entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.touch(); err != nil {
		return nil, err
	}
	users := make([]entity.User, 0, len(r.users))
	for _, s := range r.users {
		users = append(users, s.user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *memoryUsersRepo) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.touch(); err != nil {
		return nil, err
	}
	s, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	user := s.user
	return &user, nil
}

func (r *memoryUsersRepo) FindCredentialsByEmail(ctx context.Context, email string) (*entity.Credentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.touch(); err != nil {
		return nil, err
	}
	for _, s := range r.users {
		if s.user.Email == email {
			return &entity.Credentials{User: s.user, PasswordHash: s.hash}, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *memoryUsersRepo) Update(ctx context.Context, id int64, changes repository.UserChanges) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.touch(); err != nil {
		return nil, err
	}
	s, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if changes.Email != nil {
		for otherID, other := range r.users {
			if otherID != id && other.user.Email == *changes.Email {
				return nil, repository.ErrEmailDuplicate
			}
		}
		s.user.Email = *changes.Email
	}
	if changes.Name != nil {
		s.user.Name = *changes.Name
	}
	if changes.Role != nil {
		s.user.Role = *changes.Role
	}
	if changes.PasswordHash != nil {
		s.hash = *changes.PasswordHash
	}
	s.user.UpdatedAt = s.user.UpdatedAt.Add(time.Second)
	user := s.user
	return &user, nil
}

func (r *memoryUsersRepo) Delete(ctx context.Context, id int64) (*entity.DeletedUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.touch(); err != nil {
		return nil, err
	}
	s, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	delete(r.users, id)
	return &entity.DeletedUser{ID: s.user.ID, Email: s.user.Email, Name: s.user.Name}, nil
}

type tagHasher struct{}

func (tagHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func (tagHasher) Compare(hash, plain string) error {
	if hash != "hashed:"+plain {
		return errors.New("mismatch")
	}
	return nil
}

var (
	alice = entity.User{ID: 1, Email: "alice@example.com", Name: "Alice", Role: entity.RoleRegular}
	bob   = entity.User{ID: 2, Email: "bob@example.com", Name: "Bob", Role: entity.RoleRegular}
	carol = entity.User{ID: 3, Email: "carol@example.com", Name: "Carol", Role: entity.RoleAdmin}
)

type usersFixture struct {
	e    *echo.Echo
	repo *memoryUsersRepo
	jwt  *auth.JWTManager
}

func newUsersFixture(t *testing.T) *usersFixture {
	t.Helper()

	repo := newMemoryUsersRepo(alice, bob, carol)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	users := service.NewUserService(repo, tagHasher{}, zerolog.Nop())
	h := NewUsersHandler(users, jwtManager, validation.New(), "token", zerolog.Nop())

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zerolog.Nop())
	e.GET("/api/users", h.List)
	e.GET("/api/users/:id", h.Get)
	e.PUT("/api/users/:id", h.Update)
	e.DELETE("/api/users/:id", h.Delete)

	return &usersFixture{e: e, repo: repo, jwt: jwtManager}
}

func (f *usersFixture) token(t *testing.T, id int64, role entity.Role) string {
	t.Helper()
	token, err := f.jwt.GenerateToken(id, "caller@example.com", role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func (f *usersFixture) do(method, path, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}
