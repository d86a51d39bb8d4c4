package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	httpapi "github.com/GriffinCanCode/termhost/internal/api/http"
	"github.com/GriffinCanCode/termhost/internal/api/middleware"
	"github.com/GriffinCanCode/termhost/internal/api/ws"
	"github.com/GriffinCanCode/termhost/internal/domain/executor"
	"github.com/GriffinCanCode/termhost/internal/domain/terminal"
	"github.com/GriffinCanCode/termhost/internal/infrastructure/config"
	"github.com/GriffinCanCode/termhost/internal/infrastructure/logging"
	"github.com/GriffinCanCode/termhost/internal/infrastructure/monitoring"
)

const (
	breakerFailures = 3
	breakerCooldown = 30 * time.Second
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	manager *terminal.Manager
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger := logging.NewFromSettings(cfg.Logging.Level, cfg.Logging.Development)

	logger.Info("Initializing termhost",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.Strings("backends", cfg.Terminal.Backends),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	manager, err := newManager(cfg, logger, metrics)
	if err != nil {
		logger.Close()
		return nil, err
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.Recovery(logger.Component("http")))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.Component("http")))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	outputs := terminal.NewBufferedSink(cfg.Terminal.OutputLimit).
		WithRetention(cfg.Terminal.OutputRetention, terminal.DefaultMaxExited)
	handlers := httpapi.NewHandlers(manager, outputs, metrics, logger.Component("http"))
	wsHandler := ws.NewHandler(manager, metrics, logger.Component("ws"))

	handlers.Register(router)
	router.GET("/stream", wsHandler.HandleConnection)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully",
		zap.Strings("available_backends", kindNames(manager.Backends())),
	)

	return &Server{
		router:  router,
		manager: manager,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func newManager(cfg *config.Config, logger *logging.Logger, metrics *monitoring.Metrics) (*terminal.Manager, error) {
	kinds, err := terminal.ParseKinds(cfg.Terminal.Backends)
	if err != nil {
		return nil, fmt.Errorf("invalid terminal backends: %w", err)
	}
	tiers, err := terminal.TiersFor(kinds, cfg.Terminal.Emulator)
	if err != nil {
		return nil, fmt.Errorf("invalid terminal backends: %w", err)
	}

	prober := terminal.NewProber(tiers).
		WithLogger(logger.Component("probe")).
		WithObserver(metrics)
	if cfg.Terminal.TierBreaker {
		prober = prober.WithBreakers(breakerFailures, breakerCooldown)
	}

	shell, err := terminal.ResolveShell(cfg.Terminal.Shell)
	if err != nil {
		return nil, err
	}
	exec := executor.New(executor.Config{
		Shell:          shell,
		Timeout:        cfg.Exec.Timeout,
		MaxOutputBytes: cfg.Exec.MaxOutputBytes,
	}).
		WithLogger(logger.Component("exec")).
		WithObserver(metrics)

	return terminal.NewManager(terminal.Config{
		Shell:      cfg.Terminal.Shell,
		Cols:       cfg.Terminal.Cols,
		Rows:       cfg.Terminal.Rows,
		KillGrace:  cfg.Terminal.KillGrace,
		ReadChunk:  cfg.Terminal.ReadChunk,
		InputQueue: cfg.Terminal.InputQueue,
	}, prober).
		WithLogger(logger.Component("terminal")).
		WithObserver(metrics).
		WithExecutor(exec), nil
}

func kindNames(kinds []terminal.Kind) []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Manager returns the terminal manager backing the server.
func (s *Server) Manager() *terminal.Manager {
	return s.manager
}

// Run starts the HTTP server and blocks until it stops. A server stopped by
// Close returns nil.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Close stops accepting requests, kills every session and flushes the log.
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
		errs = append(errs, fmt.Errorf("failed to shut down http server: %w", err))
	}
	if err := s.manager.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shut down terminal sessions", zap.Error(err))
		errs = append(errs, err)
	}
	s.logger.Info("Server stopped")

	// Sync logger before exit
	if err := s.logger.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush logs: %w", err))
	}
	return errors.Join(errs...)
}
