package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_Defaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")

	cfg, err := Read()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 90*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, filepath.Join("/tmp/xdg", AppName), cfg.Storage.DataDir)
	assert.Equal(t, "https://api.siliconflow.cn/v1", cfg.Provider.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 2, cfg.Provider.Retries)
	assert.Equal(t, 8, cfg.Breakdown.MaxTasks)
	assert.Zero(t, cfg.Breakdown.RPS)
	assert.Equal(t, ExporterNone, cfg.Tracing.Exporter)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestRead_Overrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("STORAGE_DRIVER", "file")
	t.Setenv("DATA_DIR", "/srv/breakdown")
	t.Setenv("BREAKDOWN_MAX_TASKS", "5")
	t.Setenv("BREAKDOWN_RPS", "0.5")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("PROVIDER_TIMEOUT", "15s")

	cfg, err := Read()
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, "/srv/breakdown", cfg.Storage.DataDir)
	assert.Equal(t, "/srv/breakdown/breakdown.db", cfg.DBPath())
	assert.Equal(t, 5, cfg.Breakdown.MaxTasks)
	assert.Equal(t, 0.5, cfg.Breakdown.RPS)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 15*time.Second, cfg.Provider.Timeout)
}

func TestRead_Invalid(t *testing.T) {
	cases := map[string]string{
		"STORAGE_DRIVER":      "postgres",
		"TRACING_EXPORTER":    "jaeger",
		"BREAKDOWN_MAX_TASKS": "0",
		"PROVIDER_RETRIES":    "-1",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Read()
			assert.Error(t, err)
		})
	}
}

func TestDefaultDataDir_FallsBackToHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", "/home/someone")

	assert.Equal(t, filepath.Join("/home/someone", ".local", "share", AppName), DefaultDataDir())
}
