package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const Production = "production"

type DatabaseOptions struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name     string `env:"DB_NAME" envDefault:"catalog"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	TimeZone string `env:"DB_TIMEZONE" envDefault:"UTC"`
	// Connection attempts before giving up at startup.
	ConnectAttempts int `env:"DB_CONNECT_ATTEMPTS" envDefault:"10"`
}

func (d DatabaseOptions) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode, d.TimeZone,
	)
}

type ImportOptions struct {
	BatchSize    int    `env:"IMPORT_BATCH_SIZE" envDefault:"100"`
	RootSlug     string `env:"ROOT_CATEGORY_SLUG" envDefault:"root"`
	RootName     string `env:"ROOT_CATEGORY_NAME" envDefault:"Root"`
	RootID       uint   `env:"CHANNEL_ROOT_CATEGORY_ID"`
	Locale       string `env:"APP_LOCALE" envDefault:"en"`
	MaxFileBytes int64  `env:"IMPORT_MAX_FILE_BYTES" envDefault:"10485760"`
}

type Config struct {
	Env         string   `env:"APP_ENV" envDefault:"development"`
	Port        string   `env:"PORT" envDefault:"8080"`
	RedisURL    string   `env:"REDIS_URL"`
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	Database DatabaseOptions
	Import   ImportOptions
}

// Load reads .env files when present and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env", ".env.local"}
	}
	var existing []string
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Import.BatchSize <= 0 {
		return fmt.Errorf("IMPORT_BATCH_SIZE must be positive, got %d", c.Import.BatchSize)
	}
	if strings.TrimSpace(c.Import.RootSlug) == "" && c.Import.RootID == 0 {
		return fmt.Errorf("either ROOT_CATEGORY_SLUG or CHANNEL_ROOT_CATEGORY_ID is required")
	}
	if c.Import.Locale == "" {
		return fmt.Errorf("APP_LOCALE must not be empty")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == Production
}
