// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Domain packages accept a plain *zap.Logger; this package builds it and
// hands out named child loggers per subsystem and per session.
//
// Example Usage:
//
//	logger := logging.NewFromSettings(cfg.Logging.Level, cfg.Logging.Development)
//	defer logger.Close()
//	manager := terminal.NewManager(tcfg, prober).WithLogger(logger.Component("manager"))
package logging
