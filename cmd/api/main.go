package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/octobees/usersapi/internal/auth"
	"github.com/octobees/usersapi/internal/cache"
	"github.com/octobees/usersapi/internal/config"
	"github.com/octobees/usersapi/internal/database"
	"github.com/octobees/usersapi/internal/handler"
	"github.com/octobees/usersapi/internal/logger"
	"github.com/octobees/usersapi/internal/observability"
	"github.com/octobees/usersapi/internal/repository"
	"github.com/octobees/usersapi/internal/router"
	"github.com/octobees/usersapi/internal/service"
	"github.com/octobees/usersapi/internal/validation"
)

const serviceName = "usersapi"

func main() {
	started := time.Now()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(os.Getenv("APP_ENV"))
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownTracer, err := observability.InitTracer(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init tracer")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL, database.WithMaxConns(cfg.DBMaxConns))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	hasher := auth.NewBcryptHasher()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}
	if seeded, err := database.EnsureAdmin(ctx, pool, hasher, cfg.Admin); err != nil {
		log.Fatal().Err(err).Msg("failed to seed admin")
	} else if seeded {
		log.Info().Str("email", cfg.Admin.Email).Msg("seeded admin user")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	var usersRepo repository.UsersRepository = repository.NewInstrumentedUsersRepository(
		repository.NewPGXUsersRepository(pool), prom,
	)

	var redisCache *cache.RedisCache
	if cfg.RedisURL != "" {
		redisCache, err = cache.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, user cache will fall back to the database")
		}
		usersRepo = repository.NewCachedUsersRepository(usersRepo, redisCache, cfg.UserCacheTTL, log)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	userService := service.NewUserService(usersRepo, hasher, log)
	authService := service.NewAuthService(usersRepo, hasher, jwtManager)

	handlers := router.Handlers{
		Health: handler.NewHealthHandler(started),
		Auth: handler.NewAuthHandler(authService, handler.CookieConfig{
			Name:   cfg.CookieName,
			Secure: cfg.CookieSecure,
			TTL:    jwtManager.TTL(),
		}, log),
		Users:   handler.NewUsersHandler(userService, jwtManager, validation.New(), cfg.CookieName, log),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}

	e := router.New(cfg, log, jwtManager, prom, handlers)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		serverErr <- e.Start(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	closeQuietly(log, "tracer", func() error { return shutdownTracer(shutdownCtx) })
	if redisCache != nil {
		closeQuietly(log, "redis", redisCache.Close)
	}
}

func closeQuietly(log zerolog.Logger, name string, fn func() error) {
	if err := fn(); err != nil {
		log.Warn().Err(err).Str("component", name).Msg("close failed")
	}
}
