// Package main is the entry point for the termhost server.
//
// termhost runs interactive shell sessions on the local machine and exposes
// them over HTTP and WebSocket. Each session is backed by the strongest
// terminal backend that starts: a native pseudo-terminal, a pty emulated
// through script(1), or plain pipes.
//
// Configuration:
//   - Defaults for local use
//   - Optional YAML file named by TERMHOST_CONFIG
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Listen on 127.0.0.1:8000
//	./server
//
//	# Development mode (colored logs, debug level)
//	./server -dev -port 9000
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown, every session is killed
package main
