package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/termhost/internal/domain/executor"
)

// ExecRequest is the body of POST /exec.
type ExecRequest struct {
	Command   string `json:"command"`
	Cwd       string `json:"cwd"`
	TimeoutMs int64  `json:"timeout_ms"`
}

// Exec runs one command to completion. Command failures are reported in the
// result body with a 200; only malformed requests, such as an empty command or an out of range
// timeout, are rejected.
func (h *Handlers) Exec(c *gin.Context) {
	var req ExecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Command == "" {
		badRequest(c, executor.ErrEmptyCommand)
		return
	}
	timeout, err := executor.TimeoutFromMillis(req.TimeoutMs)
	if err != nil {
		badRequest(c, err)
		return
	}

	result := h.manager.RunOnce(c.Request.Context(), executor.Request{
		Command: req.Command,
		Dir:     req.Cwd,
		Timeout: timeout,
	})
	c.JSON(http.StatusOK, result)
}
