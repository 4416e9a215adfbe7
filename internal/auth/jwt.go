package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/octobees/usersapi/internal/entity"
)

// ErrUnauthenticated covers every reason a credential is rejected. Callers
// must not be told which check failed.
var ErrUnauthenticated = errors.New("unauthenticated")

// Claims defines the payload encoded for authenticated users.
type Claims struct {
	jwt.RegisteredClaims
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Identity is the caller derived from a verified token. It lives for one request.
type Identity struct {
	UserID int64
	Email  string
	Role   entity.Role
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == entity.RoleAdmin
}

// JWTManager handles issuing and verifying HMAC signed tokens.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTManager constructs a manager with the given secret and token lifetime.
func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the lifetime applied to issued tokens.
func (m *JWTManager) TTL() time.Duration {
	return m.ttl
}

// GenerateToken creates an access token for the given user.
func (m *JWTManager) GenerateToken(id int64, email string, role entity.Role) (string, error) {
	if len(m.secret) == 0 {
		return "", errors.New("jwt secret must not be empty")
	}

	now := m.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		ID:    id,
		Email: email,
		Role:  string(role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", err
	}

	return signed, nil
}

// ParseToken verifies the token signature and payload integrity.
func (m *JWTManager) ParseToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// Verify turns a raw credential into an Identity. Any failure collapses to
// ErrUnauthenticated.
func (m *JWTManager) Verify(raw string) (Identity, error) {
	if raw == "" || len(m.secret) == 0 {
		return Identity{}, ErrUnauthenticated
	}

	claims, err := m.ParseToken(raw)
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}

	role := entity.Role(claims.Role)
	if claims.ID <= 0 || !role.Valid() {
		return Identity{}, ErrUnauthenticated
	}

	return Identity{UserID: claims.ID, Email: claims.Email, Role: role}, nil
}
