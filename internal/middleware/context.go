package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/octobees/usersapi/internal/auth"
)

// Context keys used to store request metadata.
const (
	ContextKeyIdentity  = "identity"
	ContextKeyRequestID = "request_id"
)

// IdentityFromContext returns the verified caller, if any.
func IdentityFromContext(c echo.Context) (auth.Identity, bool) {
	identity, ok := c.Get(ContextKeyIdentity).(auth.Identity)
	return identity, ok
}
