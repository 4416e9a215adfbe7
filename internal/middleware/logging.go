package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logging writes a concise structured line for each HTTP request.
func Logging(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			latency := time.Since(start)

			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			event := logger.Info()
			if status := c.Response().Status; status >= 500 {
				event = logger.Error()
			}
			event = event.
				Str("request_id", RequestIDFromContext(c)).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", latency)
			if identity, ok := IdentityFromContext(c); ok {
				event = event.Int64("caller_id", identity.UserID)
			}
			event.Msg("request")

			return err
		}
	}
}
