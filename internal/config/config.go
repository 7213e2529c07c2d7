// Package config loads client settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	ServerURL      string        `env:"LOTERIA_SERVER_URL" envDefault:"http://localhost:3000"`
	Email          string        `env:"LOTERIA_EMAIL"`
	Password       string        `env:"LOTERIA_PASSWORD"`
	PollInterval   time.Duration `env:"LOTERIA_POLL_INTERVAL" envDefault:"2s"`
	NotifyTTL      time.Duration `env:"LOTERIA_NOTIFY_TTL" envDefault:"8s"`
	RequestTimeout time.Duration `env:"LOTERIA_REQUEST_TIMEOUT" envDefault:"10s"`

	StoreDriver string `env:"LOTERIA_STORE" envDefault:"sqlite"`
	SQLitePath  string `env:"LOTERIA_SQLITE_PATH" envDefault:"loteria.db"`
	PostgresDSN string `env:"LOTERIA_POSTGRES_DSN"`
	Profile     string `env:"LOTERIA_PROFILE" envDefault:"default"`

	ListenAddr string `env:"LOTERIA_LISTEN_ADDR" envDefault:"127.0.0.1:8088"`
	LogLevel   string `env:"LOTERIA_LOG_LEVEL" envDefault:"info"`
	LogDev     bool   `env:"LOTERIA_LOG_DEV" envDefault:"false"`
	Console    bool   `env:"LOTERIA_CONSOLE" envDefault:"true"`
}

// ParseEnv parses environment variables into target using env tags.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the given .env files (a missing file is not an error), then the
// environment, and validates the result.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("LOTERIA_SERVER_URL is required")
	}
	if c.PollInterval <= 0 {
		return errors.New("LOTERIA_POLL_INTERVAL must be positive")
	}
	if c.NotifyTTL <= 0 {
		return errors.New("LOTERIA_NOTIFY_TTL must be positive")
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("LOTERIA_SQLITE_PATH is required for the sqlite store")
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("LOTERIA_POSTGRES_DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store %q", c.StoreDriver)
	}
	return nil
}

// Exitf prints an error to stderr and exits.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
