// Package server assembles termhost: configuration, logging, metrics, the
// terminal manager and the gin router with its middleware chain.
//
// Routes:
//   - REST: /terminals, /exec, /health, /metrics/json (see api/http)
//   - WebSocket: /stream (see api/ws)
//   - Prometheus: /metrics
//
// Close shuts the HTTP listener down first, then kills every session.
package server
