package router

import (
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/octobees/usersapi/internal/config"
	"github.com/octobees/usersapi/internal/handler"
	middlewarepkg "github.com/octobees/usersapi/internal/middleware"
	"github.com/octobees/usersapi/internal/observability"
)

// New builds the echo instance with the middleware chain and all routes.
// prom may be nil, in which case HTTP metrics are not collected.
func New(cfg *config.Config, logger zerolog.Logger, verifier middlewarepkg.Verifier, prom *observability.Prom, handlers Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// The API is exposed directly; forwarding headers are client-controlled.
	e.IPExtractor = echo.ExtractIPDirect()
	e.HTTPErrorHandler = handler.ErrorHandler(logger)

	e.Use(echoMiddleware.Recover())
	e.Use(middlewarepkg.RequestID())
	if prom != nil {
		e.Use(prom.EchoMiddleware())
	}
	e.Use(middlewarepkg.Identify(verifier, cfg.CookieName))
	e.Use(middlewarepkg.Logging(logger))

	Register(e, cfg, handlers)
	return e
}
