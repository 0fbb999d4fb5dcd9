package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string
	LogLevel       string

	// StoreDriver selects the persistence backend: "postgres" (default) or
	// "memory" for local development without a database.
	StoreDriver string

	// Hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often a pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	Auth AuthConfig

	Booking BookingConfig

	RateLimit RateLimitConfig

	// AllowedOrigins is a comma-separated allowlist of browser origins allowed to
	// call the API. Example:
	//   https://campus.example.edu,http://localhost:5173
	AllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string

	// MaxConns caps the runtime pool; 0 keeps the pgxpool default.
	MaxConns int
	// LockTimeoutMS bounds how long a statement waits on a slot or row lock
	// before Postgres aborts it. 0 leaves the server setting alone.
	LockTimeoutMS int
}

type AuthConfig struct {
	// JWTSecret signs and verifies HS256 session tokens issued by the identity provider.
	JWTSecret string
	// JWTIssuer, when set, must match the token's iss claim.
	JWTIssuer string
}

type BookingConfig struct {
	// AdminPolicy decides what happens when an ADMIN creates a booking:
	// "deny", "pending" or "approved".
	AdminPolicy string
}

type RateLimitConfig struct {
	PerMinute int
	Burst     int
}

func (c Config) IsProd() bool {
	return c.AppEnv == "prod"
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
			httpAddr = ":8080"
		}
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		LogLevel:       env("LOG_LEVEL", "info"),
		StoreDriver:    strings.ToLower(env("STORE_DRIVER", "postgres")),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "campus"),
			User:     env("DB_USER", "campus"),
			Password: env("DB_PASSWORD", "campus"),
			SSLMode:  env("DB_SSLMODE", "disable"),

			MaxConns:      envInt("DB_MAX_CONNS", 0),
			LockTimeoutMS: envInt("DB_LOCK_TIMEOUT_MS", 5000),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			JWTIssuer: os.Getenv("JWT_ISSUER"),
		},
		Booking: BookingConfig{
			AdminPolicy: strings.ToLower(env("ADMIN_BOOKING_POLICY", "pending")),
		},
		RateLimit: RateLimitConfig{
			PerMinute: envInt("RATE_LIMIT_PER_MINUTE", 120),
			Burst:     envInt("RATE_LIMIT_BURST", 20),
		},

		AllowedOrigins: envList("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4173"),
	}
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
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
