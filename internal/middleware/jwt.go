package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	authpkg "github.com/octobees/usersapi/internal/auth"
)

// Verifier turns a raw token into a caller identity.
type Verifier interface {
	Verify(raw string) (authpkg.Identity, error)
}

// Identify verifies the request token, when one is present, and stores the
// caller identity in the context. It never rejects; routes that require a
// caller check for the identity themselves.
func Identify(verifier Verifier, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := TokenFromRequest(c.Request(), cookieName); raw != "" {
				if identity, err := verifier.Verify(raw); err == nil {
					c.Set(ContextKeyIdentity, identity)
				}
			}
			return next(c)
		}
	}
}

// TokenFromRequest reads the auth cookie first and falls back to an
// "Authorization: Bearer" header.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if cookieName != "" {
		if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
