package http

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/termhost/internal/domain/terminal"
	"github.com/GriffinCanCode/termhost/internal/shared/id"
)

// CreateTerminalRequest is the body of POST /terminals.
type CreateTerminalRequest struct {
	ID   string `json:"id"`
	Cwd  string `json:"cwd"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
}

// WriteTerminalRequest is the body of POST /terminals/:id/input. Binary input
// goes in DataBase64; when both are set DataBase64 wins.
type WriteTerminalRequest struct {
	Data       string `json:"data"`
	DataBase64 string `json:"data_base64"`
}

// ResizeTerminalRequest is the body of POST /terminals/:id/resize.
type ResizeTerminalRequest struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// CreateTerminal spawns a session that buffers its output for polling.
func (h *Handlers) CreateTerminal(c *gin.Context) {
	var req CreateTerminalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.ID == "" {
		req.ID = id.NewSessionID()
	}

	// leftovers of an exited session with the same id must not leak into
	// the new one
	h.outputs.ForgetExited(req.ID)

	info, err := h.manager.Create(c.Request.Context(), terminal.CreateRequest{
		ID:   req.ID,
		Dir:  req.Cwd,
		Cols: req.Cols,
		Rows: req.Rows,
		Sink: h.outputs,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":       true,
		"id":            info.ID,
		"backend_kind":  info.Kind,
		"backend_label": info.Label,
		"shell_path":    info.Shell,
		"session":       info,
	})
}

// ListTerminals lists live sessions.
func (h *Handlers) ListTerminals(c *gin.Context) {
	sessions := h.manager.List()
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetTerminal returns one session snapshot.
func (h *Handlers) GetTerminal(c *gin.Context) {
	info, err := h.manager.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": info,
	})
}

// WriteTerminal queues input for a session.
func (h *Handlers) WriteTerminal(c *gin.Context) {
	var req WriteTerminalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	data := []byte(req.Data)
	if req.DataBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.DataBase64)
		if err != nil {
			badRequest(c, fmt.Errorf("invalid data_base64: %w", err))
			return
		}
		data = decoded
	}

	if err := h.manager.Write(c.Param("id"), data); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ResizeTerminal changes the terminal size.
func (h *Handlers) ResizeTerminal(c *gin.Context) {
	var req ResizeTerminalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.manager.Resize(c.Param("id"), req.Cols, req.Rows); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ReadTerminalOutput drains what a session produced since the last call. Once
// the session exited, the final drain reports the exit code and the id
// becomes unknown.
func (h *Handlers) ReadTerminalOutput(c *gin.Context) {
	sessionID := c.Param("id")

	out, ok := h.outputs.Drain(sessionID)
	if !ok {
		// live but silent so far
		if _, err := h.manager.Get(sessionID); err != nil {
			respondError(c, err)
			return
		}
	}

	resp := gin.H{
		"success":       true,
		"output":        string(out.Data),
		"output_base64": base64.StdEncoding.EncodeToString(out.Data),
		"exited":        out.Exited,
	}
	if out.Exited {
		resp["exit_code"] = out.ExitCode
	}
	c.JSON(http.StatusOK, resp)
}

// KillTerminal terminates a session.
func (h *Handlers) KillTerminal(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.manager.Kill(sessionID); err != nil {
		respondError(c, err)
		return
	}
	h.logger.Info("Session killed over HTTP", zap.String("session_id", sessionID))
	c.JSON(http.StatusOK, gin.H{"success": true})
}
