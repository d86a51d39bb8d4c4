package ws

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/termhost/internal/domain/executor"
	"github.com/GriffinCanCode/termhost/internal/domain/terminal"
	"github.com/GriffinCanCode/termhost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termhost/internal/shared/id"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     checkOrigin,
}

// checkOrigin accepts clients without an Origin header, same-host pages and
// pages served from the local machine.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == r.Host {
		return true
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// Handler manages WebSocket connections
type Handler struct {
	manager *terminal.Manager
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandler creates a new WebSocket handler. metrics may be nil.
func NewHandler(manager *terminal.Manager, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		manager: manager,
		metrics: metrics,
		logger:  logger,
	}
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	connID := id.NewConnectionID()
	logger := h.logger.With(zap.String("connection_id", connID))
	conn := newConnection(connID, ws, logger)
	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
		conn.onSend = func(msgType string) { h.metrics.RecordWSMessage("out", msgType) }
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go conn.writePump()
	logger.Info("WebSocket connected", zap.String("remote", c.ClientIP()))

	welcome := reply(TypeConnected, "")
	welcome.ID = connID
	conn.enqueue(welcome)

	h.readLoop(ctx, conn)

	cancel()
	conn.close()
	h.release(conn)
	logger.Info("WebSocket disconnected")
}

func (h *Handler) readLoop(ctx context.Context, conn *connection) {
	conn.conn.SetReadLimit(maxMessageSize)
	conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := conn.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				conn.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		conn.conn.SetReadDeadline(time.Now().Add(pongWait))
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", msg.Type)
		}

		switch msg.Type {
		case TypeCreate:
			h.handleCreate(ctx, conn, msg)
		case TypeWrite:
			h.handleWrite(conn, msg)
		case TypeResize:
			h.ack(conn, msg, h.manager.Resize(msg.ID, msg.Cols, msg.Rows))
		case TypeKill:
			h.handleKill(conn, msg)
		case TypeRun:
			go h.handleRun(ctx, conn, msg)
		case TypePing:
			conn.enqueue(reply(TypePong, msg.RequestID))
		default:
			h.sendError(conn, msg.RequestID, "invalid_argument", fmt.Sprintf("unknown message type %q", msg.Type))
		}
	}
}

func (h *Handler) handleCreate(ctx context.Context, conn *connection, msg ClientMessage) {
	sessionID := msg.ID
	if sessionID == "" {
		sessionID = id.NewSessionID()
	}

	sink := &sessionSink{conn: conn, ready: make(chan struct{})}
	info, err := h.manager.Create(ctx, terminal.CreateRequest{
		ID:   sessionID,
		Dir:  msg.Cwd,
		Cols: msg.Cols,
		Rows: msg.Rows,
		Sink: sink,
	})
	if err != nil {
		h.sendFailure(conn, msg.RequestID, err)
		return
	}

	conn.own(info.ID)
	created := reply(TypeCreated, msg.RequestID)
	created.ID = info.ID
	created.Session = &info
	conn.enqueue(created)
	close(sink.ready)
}

func (h *Handler) handleWrite(conn *connection, msg ClientMessage) {
	data := []byte(msg.Data)
	if msg.DataBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(msg.DataBase64)
		if err != nil {
			h.sendError(conn, msg.RequestID, "invalid_argument", "invalid data_base64: "+err.Error())
			return
		}
		data = decoded
	}
	h.ack(conn, msg, h.manager.Write(msg.ID, data))
}

// handleKill detaches the session before the next message is read and
// acknowledges once the process is gone.
func (h *Handler) handleKill(conn *connection, msg ClientMessage) {
	done, err := h.manager.KillAsync(msg.ID)
	if err != nil {
		h.sendFailure(conn, msg.RequestID, err)
		return
	}
	conn.disown(msg.ID)
	go func() {
		<-done
		h.ack(conn, msg, nil)
	}()
}

func (h *Handler) handleRun(ctx context.Context, conn *connection, msg ClientMessage) {
	if msg.Command == "" {
		h.sendError(conn, msg.RequestID, "invalid_argument", executor.ErrEmptyCommand.Error())
		return
	}
	timeout, err := executor.TimeoutFromMillis(msg.TimeoutMs)
	if err != nil {
		h.sendError(conn, msg.RequestID, "invalid_argument", err.Error())
		return
	}
	result := h.manager.RunOnce(ctx, executor.Request{
		Command: msg.Command,
		Dir:     msg.Cwd,
		Timeout: timeout,
	})
	out := reply(TypeResult, msg.RequestID)
	out.Result = &result
	conn.enqueue(out)
}

// release kills the sessions the connection still owns.
func (h *Handler) release(conn *connection) {
	var g errgroup.Group
	for _, sessionID := range conn.owned() {
		g.Go(func() error {
			if err := h.manager.Kill(sessionID); err != nil && !errors.Is(err, terminal.ErrUnknownSession) {
				conn.logger.Warn("Failed to kill session on disconnect",
					zap.String("session_id", sessionID),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	g.Wait()
}

func (h *Handler) ack(conn *connection, msg ClientMessage, err error) {
	if err != nil {
		h.sendFailure(conn, msg.RequestID, err)
		return
	}
	ok := reply(TypeOK, msg.RequestID)
	ok.ID = msg.ID
	conn.enqueue(ok)
}

func (h *Handler) sendFailure(conn *connection, requestID string, err error) {
	h.sendError(conn, requestID, errorCode(err), err.Error())
}

func (h *Handler) sendError(conn *connection, requestID, code, message string) {
	msg := reply(TypeError, requestID)
	msg.Code = code
	msg.Message = message
	conn.enqueue(msg)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, terminal.ErrUnknownSession):
		return "not_found"
	case errors.Is(err, terminal.ErrDuplicateSession):
		return "duplicate"
	case errors.Is(err, terminal.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, terminal.ErrWriteFailure):
		return "write_failed"
	case errors.Is(err, terminal.ErrManagerClosed):
		return "shutting_down"
	case errors.Is(err, terminal.ErrSpawnFailure):
		return "spawn_failed"
	default:
		return "internal"
	}
}
