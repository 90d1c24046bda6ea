// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const AppName = "breakdown"

const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverMemory = "memory"

	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	HTTP      HTTPConfig
	Storage   StorageConfig
	Provider  ProviderConfig
	Breakdown BreakdownConfig
	Tracing   TracingConfig
}

type HTTPConfig struct {
	Addr            string        `env:"HTTP_ADDR" env-default:":8080"`
	Timeout         time.Duration `env:"HTTP_TIMEOUT" env-default:"90s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" env-default:"*" env-separator:","`
}

type StorageConfig struct {
	Driver  string `env:"STORAGE_DRIVER" env-default:"sqlite"`
	DataDir string `env:"DATA_DIR"`
}

type ProviderConfig struct {
	BaseURL string        `env:"PROVIDER_BASE_URL" env-default:"https://api.siliconflow.cn/v1"`
	Model   string        `env:"PROVIDER_MODEL" env-default:"Qwen/Qwen2.5-7B-Instruct"`
	Timeout time.Duration `env:"PROVIDER_TIMEOUT" env-default:"60s"`
	Retries int           `env:"PROVIDER_RETRIES" env-default:"2"`
}

type BreakdownConfig struct {
	MaxTasks int     `env:"BREAKDOWN_MAX_TASKS" env-default:"8"`
	RPS      float64 `env:"BREAKDOWN_RPS" env-default:"0"`
	Burst    int     `env:"BREAKDOWN_BURST" env-default:"1"`
}

type TracingConfig struct {
	Exporter string `env:"TRACING_EXPORTER" env-default:"none"`
}

// Read loads the config from the environment, fills derived defaults and
// validates it.
func Read() (*Config, error) {
	cfg := new(Config)
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = DefaultDataDir()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverFile, DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	switch c.Tracing.Exporter {
	case ExporterNone, ExporterStdout, ExporterOTLP:
	default:
		return fmt.Errorf("unknown TRACING_EXPORTER %q", c.Tracing.Exporter)
	}
	if c.Breakdown.MaxTasks <= 0 {
		return fmt.Errorf("BREAKDOWN_MAX_TASKS must be positive, got %d", c.Breakdown.MaxTasks)
	}
	if c.Provider.Retries < 0 {
		return fmt.Errorf("PROVIDER_RETRIES must not be negative, got %d", c.Provider.Retries)
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DBPath is the sqlite database location inside the data dir.
func (c *Config) DBPath() string {
	return filepath.Join(c.Storage.DataDir, "breakdown.db")
}

// DefaultDataDir returns $XDG_DATA_HOME/breakdown, falling back to
// $HOME/.local/share/breakdown.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".local", "share", AppName)
}
