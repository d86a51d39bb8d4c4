// Package config provides 12-factor configuration management for termhost.
//
// Configuration starts from built-in defaults, is optionally overlaid by a
// YAML file named in TERMHOST_CONFIG, and is finally overridden by environment
// variables. CLI flags can override the result for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Terminal: Shell, default size, backend chain and I/O pump tuning
//   - Exec: One-shot command timeout and output cap
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - TERMINAL_SHELL, TERMINAL_COLS, TERMINAL_ROWS, TERMINAL_BACKENDS,
//     TERMINAL_EMULATOR, TERMINAL_KILL_GRACE, TERMINAL_READ_CHUNK,
//     TERMINAL_INPUT_QUEUE, TERMINAL_OUTPUT_BUFFER, TERMINAL_TIER_BREAKER
//   - EXEC_TIMEOUT, EXEC_MAX_OUTPUT
package config
