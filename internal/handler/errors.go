package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	middlewarepkg "github.com/octobees/usersapi/internal/middleware"
	"github.com/octobees/usersapi/internal/repository"
)

// ErrorHandler renders errors that escaped a handler. Causes of 5xx
// responses are logged and never sent to the client.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := describe(err)
		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).
				Str("request_id", middlewarepkg.RequestIDFromContext(c)).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("failed to write error response")
		}
	}
}

func describe(err error) (int, ErrorResponse) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		if he.Code == http.StatusNotFound {
			return he.Code, ErrorResponse{Error: labelNotFound}
		}
		if he.Code >= http.StatusInternalServerError {
			return he.Code, ErrorResponse{Error: http.StatusText(he.Code)}
		}
		return he.Code, ErrorResponse{Error: http.StatusText(he.Code), Message: httpErrorMessage(he)}
	case errors.Is(err, repository.ErrEmailDuplicate):
		return http.StatusConflict, ErrorResponse{Error: labelConflict, Message: "Email already exists"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: labelInternal}
	}
}

func httpErrorMessage(he *echo.HTTPError) string {
	switch m := he.Message.(type) {
	case string:
		return m
	case nil:
		return ""
	default:
		return fmt.Sprint(m)
	}
}
