package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string

	// Hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often PgBouncer/pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	// JWTSecret verifies bearer tokens issued by the identity service.
	JWTSecret string

	// AdminSecret guards operator endpoints (dispute resolution).
	AdminSecret string

	// PaymentWebhookSecret verifies payment provider webhook signatures.
	PaymentWebhookSecret string

	// RedisAddr enables the blocked-dates cache when set (host:port).
	RedisAddr       string
	RedisPassword   string
	BlockedCacheTTL time.Duration

	// AllowedOrigins is a comma-separated allowlist of origins for the web
	// frontend. Example: https://app.gearshare.example,http://localhost:5173
	AllowedOrigins []string

	Scheduler SchedulerConfig
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

type SchedulerConfig struct {
	SweepInterval time.Duration

	PendingResponse time.Duration
	PickupGrace     time.Duration
	ReturnOpens     time.Duration
	ReturnGrace     time.Duration
	ConfirmWindow   time.Duration
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "gearshare"),
			User:     env("DB_USER", "gearshare"),
			Password: env("DB_PASSWORD", "gearshare"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		JWTSecret:            os.Getenv("JWT_SECRET"),
		AdminSecret:          os.Getenv("ADMIN_SECRET"),
		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		BlockedCacheTTL:      envDuration("BLOCKED_CACHE_TTL", time.Minute),

		AllowedOrigins: envList("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4173"),

		Scheduler: SchedulerConfig{
			SweepInterval:   envDuration("SCHEDULER_SWEEP_INTERVAL", time.Hour),
			PendingResponse: envDuration("SCHEDULER_PENDING_RESPONSE", 48*time.Hour),
			PickupGrace:     envDuration("SCHEDULER_PICKUP_GRACE", 24*time.Hour),
			ReturnOpens:     envDuration("SCHEDULER_RETURN_OPENS", 48*time.Hour),
			ReturnGrace:     envDuration("SCHEDULER_RETURN_GRACE", 24*time.Hour),
			ConfirmWindow:   envDuration("SCHEDULER_CONFIRM_WINDOW", 72*time.Hour),
		},
	}
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
