// Package middleware provides the HTTP middleware stack of the termhost API.
//
// Middleware stack:
//   - Recovery: Panic recovery with a JSON error body
//   - RequestID: X-Request-ID propagation, ULID generated when absent
//   - Logger: Structured access log via zap
//   - CORS: Local origins only by default
//   - RateLimit: Per-IP token bucket with idle-client eviction
//
// Example Usage:
//
//	router.Use(middleware.Recovery(logger), middleware.RequestID(), middleware.Logger(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
