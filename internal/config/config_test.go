package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// unsetEnv clears key for the test and restores it afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()

	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, "PHANTOM_ADDRESS", "PHANTOM_READ_TIMEOUT", "PHANTOM_PREVIEW_DRIVER", "PHANTOM_LOG_LEVEL", "PHANTOM_LOG_FILE")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	require.Equal(t, &Configuration{
		Address:      ":8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		MaxBodyBytes: 32 << 20,
		Log: Log{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		PreviewDriver: "sqlite3",
		PreviewDSN:    ":memory:",
	}, cfg)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PHANTOM_ADDRESS", ":9090")
	t.Setenv("PHANTOM_READ_TIMEOUT", "5s")
	t.Setenv("PHANTOM_LOG_LEVEL", "debug")
	t.Setenv("PHANTOM_LOG_FILE", "/var/log/phantom.log")
	t.Setenv("ADDRESS", ":1111")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.Address)
	require.Equal(t, 5*time.Second, cfg.ReadTimeout)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "/var/log/phantom.log", cfg.Log.File)
}

func TestLoad_EnvFile(t *testing.T) {
	unsetEnv(t, "PHANTOM_PREVIEW_DRIVER", "PHANTOM_PREVIEW_DSN")
	t.Setenv("PHANTOM_ADDRESS", ":9090")

	file := filepath.Join(t.TempDir(), "test.env")
	content := "PHANTOM_ADDRESS=:7070\n" +
		"PHANTOM_PREVIEW_DRIVER=clickhouse\n" +
		"PHANTOM_PREVIEW_DSN=tcp://localhost:9000?debug=false\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	cfg, err := Load(file)
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.Address)
	require.Equal(t, "clickhouse", cfg.PreviewDriver)
	require.Equal(t, "tcp://localhost:9000?debug=false", cfg.PreviewDSN)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("PHANTOM_READ_TIMEOUT", "soon")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)

	t.Setenv("PHANTOM_READ_TIMEOUT", "1s")

	_, err = Load(t.TempDir())
	require.Error(t, err)
}
