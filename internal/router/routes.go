package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/usersapi/internal/config"
	"github.com/octobees/usersapi/internal/handler"
	middlewarepkg "github.com/octobees/usersapi/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Health  *handler.HealthHandler
	Auth    *handler.AuthHandler
	Users   *handler.UsersHandler
	Metrics http.Handler
}

// Register wires all HTTP routes for the API.
func Register(e *echo.Echo, cfg *config.Config, handlers Handlers) {
	e.GET("/health", handlers.Health.Health)
	e.GET("/api", handlers.Health.Root)
	if handlers.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(handlers.Metrics))
	}

	authGroup := e.Group("/api/auth")
	authGroup.POST("/sign-in", handlers.Auth.SignIn)
	authGroup.POST("/sign-out", handlers.Auth.SignOut)

	writeLimit := middlewarepkg.WriteRateLimiter(cfg.RateLimitWrites)

	users := e.Group("/api/users")
	users.GET("", handlers.Users.List)
	users.GET("/:id", handlers.Users.Get)
	users.PUT("/:id", handlers.Users.Update, writeLimit)
	users.DELETE("/:id", handlers.Users.Delete, writeLimit)
}
