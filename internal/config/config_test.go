package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.ServerURL)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.True(t, cfg.Console)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOTERIA_POLL_INTERVAL=500ms\nLOTERIA_STORE=memory\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("LOTERIA_POLL_INTERVAL")
		os.Unsetenv("LOTERIA_STORE")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
}

func TestEnvironmentWinsOverDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOTERIA_LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("LOTERIA_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"bad duration", "LOTERIA_POLL_INTERVAL", "soon", "parse env:"},
		{"zero interval", "LOTERIA_POLL_INTERVAL", "0s", "LOTERIA_POLL_INTERVAL"},
		{"unknown store", "LOTERIA_STORE", "redis", "unknown store"},
		{"postgres without dsn", "LOTERIA_STORE", "postgres", "LOTERIA_POSTGRES_DSN"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
