package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// FileEnv names the optional YAML file applied before environment variables.
const FileEnv = "TERMHOST_CONFIG"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LogConfig       `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Terminal  TerminalConfig  `yaml:"terminal"`
	Exec      ExecConfig      `yaml:"exec"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" yaml:"port"`
	Host string `envconfig:"HOST" yaml:"host"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" yaml:"enabled"`
}

// TerminalConfig holds interactive session settings.
type TerminalConfig struct {
	Shell    string   `envconfig:"TERMINAL_SHELL" yaml:"shell"`
	Cols     int      `envconfig:"TERMINAL_COLS" yaml:"cols"`
	Rows     int      `envconfig:"TERMINAL_ROWS" yaml:"rows"`
	Backends []string `envconfig:"TERMINAL_BACKENDS" yaml:"backends"`
	// Emulator overrides the pty helper looked up on PATH.
	Emulator    string        `envconfig:"TERMINAL_EMULATOR" yaml:"emulator"`
	KillGrace   time.Duration `envconfig:"TERMINAL_KILL_GRACE" yaml:"kill_grace"`
	ReadChunk   int           `envconfig:"TERMINAL_READ_CHUNK" yaml:"read_chunk"`
	InputQueue  int           `envconfig:"TERMINAL_INPUT_QUEUE" yaml:"input_queue"`
	OutputLimit int           `envconfig:"TERMINAL_OUTPUT_BUFFER" yaml:"output_buffer"`
	// OutputRetention is how long output of an exited session waits to be
	// polled before it is dropped.
	OutputRetention time.Duration `envconfig:"TERMINAL_OUTPUT_RETENTION" yaml:"output_retention"`
	// TierBreaker skips a backend tier for a while after repeated failures.
	TierBreaker bool `envconfig:"TERMINAL_TIER_BREAKER" yaml:"tier_breaker"`
}

// ExecConfig holds one-shot command settings.
type ExecConfig struct {
	Timeout        time.Duration `envconfig:"EXEC_TIMEOUT" yaml:"timeout"`
	MaxOutputBytes int           `envconfig:"EXEC_MAX_OUTPUT" yaml:"max_output_bytes"`
}

// Load builds configuration from defaults, the optional YAML file named by
// TERMHOST_CONFIG, then environment variables, each layer overriding the last.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile applies a YAML file on top of the defaults. Keys missing from the
// file keep their default values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "127.0.0.1",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Terminal: TerminalConfig{
			Cols:        80,
			Rows:        24,
			Backends:    []string{"native-pty", "emulated-pty", "plain-pipe"},
			KillGrace:   2 * time.Second,
			ReadChunk:   32 * 1024,
			InputQueue:  256,
			OutputLimit:     256 * 1024,
			OutputRetention: 5 * time.Minute,
		},
		Exec: ExecConfig{
			Timeout:        30 * time.Second,
			MaxOutputBytes: 1 << 20,
		},
	}
}
