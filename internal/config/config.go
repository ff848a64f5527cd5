package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const envPrefix = "PHANTOM_"

// Configuration runtime settings of the service.
type Configuration struct {
	Address      string        `env:"ADDRESS" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	MaxBodyBytes int64         `env:"MAX_BODY_BYTES" envDefault:"33554432"`

	Log Log

	PreviewDriver string `env:"PREVIEW_DRIVER" envDefault:"sqlite3"`
	PreviewDSN    string `env:"PREVIEW_DSN" envDefault:":memory:"`
}

// Log logger settings.
type Log struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Format     string `env:"LOG_FORMAT" envDefault:"json"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`
}

// Load reads optional env files then PHANTOM_* variables.
// Missing env files are skipped, variables already set win over files.
func Load(files ...string) (*Configuration, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	cfg := &Configuration{}
	if err := env.Parse(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}
