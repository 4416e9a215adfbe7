package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/usersapi/internal/validation"
)

// Error labels used in the "error" field of failure bodies.
const (
	labelValidation   = "Validation failed"
	labelUnauthorized = "Unauthorized"
	labelForbidden    = "Forbidden"
	labelUserNotFound = "User not found"
	labelNotFound     = "Not Found"
	labelConflict     = "Conflict"
	labelInternal     = "Internal Server Error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string                `json:"error"`
	Message string                `json:"message,omitempty"`
	Details validation.Violations `json:"details,omitempty"`
}

// MessageResponse carries a bare message.
type MessageResponse struct {
	Message string `json:"message"`
}

// Error sends an error body with the given label and optional message.
func Error(c echo.Context, status int, label, message string) error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, ErrorResponse{Error: label, Message: message})
}

// ValidationFailed sends 400 with field-level detail.
func ValidationFailed(c echo.Context, violations validation.Violations) error {
	return c.JSON(http.StatusBadRequest, validationBody(violations))
}

func validationBody(violations validation.Violations) ErrorResponse {
	return ErrorResponse{Error: labelValidation, Details: violations}
}
