/*
Package monitoring provides Prometheus metrics for termhost.

# Overview

Metrics implements the observer interfaces of the terminal manager and the
one-shot executor, so the domain packages report lifecycle events without
importing Prometheus. HTTP and WebSocket traffic are recorded by the API
layer.

# Features

- HTTP request metrics (count, latency) by route template
- Session lifecycle metrics (active, created by backend, exits by reason)
- Spawn failures per backend tier
- Bytes moved through sessions in each direction
- One-shot command outcomes and durations
- WebSocket connection and message metrics

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	manager := terminal.NewManager(cfg, prober).WithObserver(metrics)
*/
package monitoring
