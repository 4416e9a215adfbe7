package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/octobees/usersapi/internal/dto"
	"github.com/octobees/usersapi/internal/entity"
	middlewarepkg "github.com/octobees/usersapi/internal/middleware"
	"github.com/octobees/usersapi/internal/policy"
	"github.com/octobees/usersapi/internal/repository"
	"github.com/octobees/usersapi/internal/validation"
)

// UserService is the user store as seen by handlers.
type UserService interface {
	ListUsers(ctx context.Context) ([]entity.User, error)
	GetUser(ctx context.Context, id int64) (*entity.User, error)
	UpdateUser(ctx context.Context, id int64, payload validation.UpdatePayload) (*entity.User, error)
	DeleteUser(ctx context.Context, id int64) (*entity.DeletedUser, error)
}

// UsersHandler serves /api/users. Every method runs authentication,
// validation and authorization steps before touching the store.
type UsersHandler struct {
	users  UserService
	logger zerolog.Logger

	list   []step
	get    []step
	update []step
	delete []step
}

// NewUsersHandler constructs a UsersHandler. cookieName names the cookie
// carrying the token; a bearer header is accepted as a fallback.
func NewUsersHandler(users UserService, verifier middlewarepkg.Verifier, v *validation.Validator, cookieName string, logger zerolog.Logger) *UsersHandler {
	authenticate := authenticateStep(verifier, cookieName)
	readable := authorizeStep(func(x *exchange) policy.Decision { return policy.CanRead(x.caller) })

	return &UsersHandler{
		users:  users,
		logger: logger,
		list:   []step{authenticate, readable},
		get:    []step{authenticate, validateIDStep(v), readable},
		update: []step{
			authenticate,
			validateIDStep(v),
			validateBodyStep(v),
			requireChangesStep(),
			authorizeStep(func(x *exchange) policy.Decision {
				return policy.CanUpdate(x.caller, x.targetID, x.payload)
			}),
		},
		delete: []step{
			authenticate,
			validateIDStep(v),
			authorizeStep(func(x *exchange) policy.Decision {
				return policy.CanDelete(x.caller, x.targetID)
			}),
		},
	}
}

// List handles GET /api/users.
func (h *UsersHandler) List(c echo.Context) error {
	return runSteps(c, h.logger, h.list, func(x *exchange) error {
		h.logger.Info().Str("action", "list_users").Int64("user_id", x.caller.UserID).Msg("listing users")

		users, err := h.users.ListUsers(c.Request().Context())
		if err != nil {
			return h.storeFailure(x, "list_users", err)
		}
		return c.JSON(http.StatusOK, dto.UsersListResponse{
			Message: "Successfully retrieved users",
			Users:   users,
			Count:   len(users),
		})
	})
}

// Get handles GET /api/users/:id.
func (h *UsersHandler) Get(c echo.Context) error {
	return runSteps(c, h.logger, h.get, func(x *exchange) error {
		h.logAction(x, "get_user").Msg("getting user")

		user, err := h.users.GetUser(c.Request().Context(), x.targetID)
		if err != nil {
			return h.storeFailure(x, "get_user", err)
		}
		return c.JSON(http.StatusOK, dto.UserResponse{Message: "Successfully retrieved user", User: user})
	})
}

// Update handles PUT /api/users/:id.
func (h *UsersHandler) Update(c echo.Context) error {
	return runSteps(c, h.logger, h.update, func(x *exchange) error {
		h.logAction(x, "update_user").Strs("fields", x.payload.Fields()).Msg("updating user")

		user, err := h.users.UpdateUser(c.Request().Context(), x.targetID, x.payload)
		if err != nil {
			return h.storeFailure(x, "update_user", err)
		}
		return c.JSON(http.StatusOK, dto.UserResponse{Message: "User updated successfully", User: user})
	})
}

// Delete handles DELETE /api/users/:id.
func (h *UsersHandler) Delete(c echo.Context) error {
	return runSteps(c, h.logger, h.delete, func(x *exchange) error {
		h.logAction(x, "delete_user").Msg("deleting user")

		deleted, err := h.users.DeleteUser(c.Request().Context(), x.targetID)
		if err != nil {
			return h.storeFailure(x, "delete_user", err)
		}
		return c.JSON(http.StatusOK, dto.DeletedUserResponse{Message: "User deleted successfully", User: deleted})
	})
}

func (h *UsersHandler) logAction(x *exchange, action string) *zerolog.Event {
	return h.logger.Info().
		Str("action", action).
		Int64("user_id", x.caller.UserID).
		Int64("target_id", x.targetID)
}

// storeFailure maps absence to 404 and hands anything else to the echo
// error handler.
func (h *UsersHandler) storeFailure(x *exchange, action string, err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return Error(x.c, http.StatusNotFound, labelUserNotFound, "")
	}
	if errors.Is(err, repository.ErrEmailDuplicate) {
		return err
	}

	h.logger.Error().Err(err).
		Str("action", action).
		Int64("user_id", x.caller.UserID).
		Int64("target_id", x.targetID).
		Msg("user store operation failed")
	return err
}
