package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/termhost/internal/domain/terminal"
	"github.com/GriffinCanCode/termhost/internal/infrastructure/monitoring"
)

// Version is reported by the root route.
const Version = "0.1.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	manager *terminal.Manager
	outputs *terminal.BufferedSink
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandlers creates a new handler set. outputs receives the events of
// sessions created over HTTP; metrics may be nil.
func NewHandlers(manager *terminal.Manager, outputs *terminal.BufferedSink, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		manager: manager,
		outputs: outputs,
		metrics: metrics,
		logger:  logger,
	}
}

// Register mounts every route of this package on r.
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/metrics/json", h.MetricsJSON)

	r.POST("/terminals", h.CreateTerminal)
	r.GET("/terminals", h.ListTerminals)
	r.GET("/terminals/:id", h.GetTerminal)
	r.POST("/terminals/:id/input", h.WriteTerminal)
	r.POST("/terminals/:id/resize", h.ResizeTerminal)
	r.GET("/terminals/:id/output", h.ReadTerminalOutput)
	r.DELETE("/terminals/:id", h.KillTerminal)

	r.POST("/exec", h.Exec)
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "termhost",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": h.manager.Count(),
		"backends": h.manager.Backends(),
	})
}

// MetricsJSON returns the current metric values for dashboards that do not
// speak the Prometheus format.
func (h *Handlers) MetricsJSON(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "metrics are disabled",
			"code":    "not_found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"metrics": h.metrics.Snapshot(),
	})
}
