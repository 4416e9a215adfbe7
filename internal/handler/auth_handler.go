package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/octobees/usersapi/internal/dto"
	"github.com/octobees/usersapi/internal/entity"
	"github.com/octobees/usersapi/internal/service"
)

// Authenticator exchanges credentials for a user and a signed token.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*entity.User, string, error)
}

// CookieConfig controls the token cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// AuthHandler exposes sign-in and sign-out.
type AuthHandler struct {
	auth   Authenticator
	cookie CookieConfig
	logger zerolog.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth Authenticator, cookie CookieConfig, logger zerolog.Logger) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "token"
	}
	return &AuthHandler{auth: auth, cookie: cookie, logger: logger}
}

// SignIn handles POST /api/auth/sign-in and sets the token cookie.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req dto.SignInRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, labelValidation, "Invalid request payload")
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return Error(c, http.StatusBadRequest, labelValidation, "Email and password are required")
	}

	user, token, err := h.auth.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return Error(c, http.StatusUnauthorized, labelUnauthorized, "Invalid email or password")
		}
		return err
	}

	c.SetCookie(h.tokenCookie(token, int(h.cookie.TTL.Seconds())))
	h.logger.Info().Int64("user_id", user.ID).Str("email", user.Email).Msg("user signed in")

	return c.JSON(http.StatusOK, dto.UserResponse{Message: "User signed in successfully", User: user})
}

// SignOut handles POST /api/auth/sign-out by expiring the token cookie.
func (h *AuthHandler) SignOut(c echo.Context) error {
	c.SetCookie(h.tokenCookie("", -1))
	return c.JSON(http.StatusOK, MessageResponse{Message: "User signed out successfully"})
}

func (h *AuthHandler) tokenCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}
