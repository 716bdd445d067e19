package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Storage string `env:"STORAGE" envDefault:"postgres"`
	DBConn  string `env:"DB_CONN" envDefault:"host=localhost port=5432 user=komix password=komix dbname=komix sslmode=disable"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SessionSecret string        `env:"SESSION_SECRET" envDefault:"secret"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"336h"`
	CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"false"`
	BcryptCost    int           `env:"BCRYPT_COST" envDefault:"10"`

	ResetTTL        time.Duration `env:"RESET_TTL" envDefault:"10m"`
	ResetRetention  time.Duration `env:"RESET_RETENTION" envDefault:"24h"`
	ResetBaseURL    string        `env:"RESET_BASE_URL" envDefault:"http://localhost:3000/"`
	JanitorSchedule string        `env:"JANITOR_SCHEDULE" envDefault:"@hourly"`

	SMTPHost     string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SenderEmail  string `env:"SENDER_EMAIL" envDefault:"no-reply@komix.local"`
}

// NewConfig loads configuration from environment variables, after
// preloading a .env file from the working directory when one exists
func NewConfig() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads configuration from the process environment only
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	switch cfg.Storage {
	case StoragePostgres:
		if cfg.DBConn == "" {
			return nil, fmt.Errorf("DB_CONN is required")
		}
	case StorageMemory:
	default:
		return nil, fmt.Errorf("STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, cfg.Storage)
	}
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}
	if cfg.ResetTTL <= 0 {
		return nil, fmt.Errorf("RESET_TTL must be positive")
	}
	if cfg.ResetBaseURL == "" {
		return nil, fmt.Errorf("RESET_BASE_URL is required")
	}

	return cfg, nil
}
