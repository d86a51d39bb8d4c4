package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	// Terminal config
	assert.Equal(t, 80, cfg.Terminal.Cols)
	assert.Equal(t, 24, cfg.Terminal.Rows)
	assert.Equal(t, []string{"native-pty", "emulated-pty", "plain-pipe"}, cfg.Terminal.Backends)
	assert.Equal(t, 2*time.Second, cfg.Terminal.KillGrace)
	assert.Equal(t, 32768, cfg.Terminal.ReadChunk)
	assert.Equal(t, 256, cfg.Terminal.InputQueue)
	assert.Equal(t, 256*1024, cfg.Terminal.OutputLimit)
	assert.Equal(t, 5*time.Minute, cfg.Terminal.OutputRetention)
	assert.False(t, cfg.Terminal.TierBreaker)

	// Exec config
	assert.Equal(t, 30*time.Second, cfg.Exec.Timeout)
	assert.Equal(t, 1048576, cfg.Exec.MaxOutputBytes)
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                      "9000",
		"HOST":                      "0.0.0.0",
		"LOG_LEVEL":                 "debug",
		"LOG_DEV":                   "true",
		"RATE_LIMIT_RPS":            "500",
		"RATE_LIMIT_BURST":          "1000",
		"RATE_LIMIT_ENABLED":        "false",
		"TERMINAL_SHELL":            "/bin/zsh",
		"TERMINAL_COLS":             "132",
		"TERMINAL_ROWS":             "50",
		"TERMINAL_BACKENDS":         "plain-pipe,native-pty",
		"TERMINAL_KILL_GRACE":       "500ms",
		"TERMINAL_TIER_BREAKER":     "true",
		"TERMINAL_OUTPUT_RETENTION": "30s",
		"EXEC_TIMEOUT":              "5s",
		"EXEC_MAX_OUTPUT":           "4096",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "/bin/zsh", cfg.Terminal.Shell)
	assert.Equal(t, 132, cfg.Terminal.Cols)
	assert.Equal(t, 50, cfg.Terminal.Rows)
	assert.Equal(t, []string{"plain-pipe", "native-pty"}, cfg.Terminal.Backends)
	assert.Equal(t, 500*time.Millisecond, cfg.Terminal.KillGrace)
	assert.True(t, cfg.Terminal.TierBreaker)
	assert.Equal(t, 30*time.Second, cfg.Terminal.OutputRetention)
	assert.Equal(t, 5*time.Second, cfg.Exec.Timeout)
	assert.Equal(t, 4096, cfg.Exec.MaxOutputBytes)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Verify overridden values
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Verify default values still apply
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 80, cfg.Terminal.Cols)
}

func TestLoadInvalidValue(t *testing.T) {
	t.Setenv("TERMINAL_COLS", "wide")

	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, 80, cfg.Terminal.Cols)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "termhost.yaml")
	content := `
server:
  port: "9100"
terminal:
  shell: /bin/sh
  rows: 40
  backends:
    - plain-pipe
  kill_grace: 750ms
exec:
  timeout: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "/bin/sh", cfg.Terminal.Shell)
	assert.Equal(t, 40, cfg.Terminal.Rows)
	assert.Equal(t, []string{"plain-pipe"}, cfg.Terminal.Backends)
	assert.Equal(t, 750*time.Millisecond, cfg.Terminal.KillGrace)
	assert.Equal(t, 10*time.Second, cfg.Exec.Timeout)

	// keys missing from the file keep their defaults
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 80, cfg.Terminal.Cols)
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "termhost.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9100\"\n  host: 0.0.0.0\n"), 0o600))

	t.Setenv(FileEnv, path)
	t.Setenv("PORT", "9200")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9200", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("terminal: [unterminated"), 0o600))
	_, err = LoadFile(path)
	assert.Error(t, err)
}
