package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// AdminSeed describes the optional bootstrap administrator.
type AdminSeed struct {
	Email    string
	Password string
	Name     string
}

// Config aggregates application-wide configuration values.
type Config struct {
	Env             string
	Port            string
	DatabaseURL     string
	DBMaxConns      int32
	JWTSecret       string
	TokenTTL        time.Duration
	CookieName      string
	CookieSecure    bool
	RateLimitWrites RateLimitConfig
	RedisURL        string
	UserCacheTTL    time.Duration
	OTLPEndpoint    string
	Admin           AdminSeed
}

// defaultJWTSecret is only accepted when APP_ENV is development.
const defaultJWTSecret = "dev-secret"

// Development reports whether the service runs with developer defaults.
func (c *Config) Development() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables and applies sane defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "production")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("AUTH_COOKIE_NAME", "token")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("RATE_LIMIT_WRITES", "60/min")
	v.SetDefault("USER_CACHE_TTL", "30s")
	v.SetDefault("ADMIN_NAME", "Administrator")

	cfg := &Config{
		Env:          strings.ToLower(v.GetString("APP_ENV")),
		Port:         v.GetString("PORT"),
		DatabaseURL:  v.GetString("DATABASE_URL"),
		DBMaxConns:   v.GetInt32("DB_MAX_CONNS"),
		JWTSecret:    v.GetString("JWT_SECRET"),
		TokenTTL:     parseDuration(v.GetString("JWT_TTL"), 24*time.Hour),
		CookieName:   v.GetString("AUTH_COOKIE_NAME"),
		CookieSecure: v.GetBool("COOKIE_SECURE"),
		RedisURL:     v.GetString("REDIS_URL"),
		UserCacheTTL: parseDuration(v.GetString("USER_CACHE_TTL"), 30*time.Second),
		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Admin: AdminSeed{
			Email:    strings.TrimSpace(v.GetString("ADMIN_EMAIL")),
			Password: v.GetString("ADMIN_PASSWORD"),
			Name:     v.GetString("ADMIN_NAME"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL must be set")
	}
	if !cfg.Development() && cfg.JWTSecret == defaultJWTSecret {
		return nil, errors.New("JWT_SECRET must be set outside development")
	}

	rl, err := parseRateLimit(v.GetString("RATE_LIMIT_WRITES"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WRITES value: %w", err)
	}
	cfg.RateLimitWrites = rl

	return cfg, nil
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	if strings.EqualFold(strings.TrimSpace(value), "off") {
		return RateLimitConfig{}, nil
	}

	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

func parseDuration(input string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(input)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
