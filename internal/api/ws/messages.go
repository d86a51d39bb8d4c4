package ws

import (
	"time"

	"github.com/GriffinCanCode/termhost/internal/domain/executor"
	"github.com/GriffinCanCode/termhost/internal/domain/terminal"
)

// Client message types.
const (
	TypeCreate = "create"
	TypeWrite  = "write"
	TypeResize = "resize"
	TypeKill   = "kill"
	TypeRun    = "run"
	TypePing   = "ping"
)

// Server message types.
const (
	TypeConnected = "connected"
	TypeCreated   = "created"
	TypeData      = "data"
	TypeExit      = "exit"
	TypeResult    = "result"
	TypeOK        = "ok"
	TypeError     = "error"
	TypePong      = "pong"
)

// ClientMessage is any message a client sends. Fields apply per type.
type ClientMessage struct {
	Type       string `json:"type"`
	RequestID  string `json:"request_id,omitempty"`
	ID         string `json:"id,omitempty"`
	Cwd        string `json:"cwd,omitempty"`
	Cols       int    `json:"cols,omitempty"`
	Rows       int    `json:"rows,omitempty"`
	Data       string `json:"data,omitempty"`
	DataBase64 string `json:"data_base64,omitempty"`
	Command    string `json:"command,omitempty"`
	TimeoutMs  int64  `json:"timeout_ms,omitempty"`
}

// ServerMessage is any message the server sends.
type ServerMessage struct {
	Type      string           `json:"type"`
	RequestID string           `json:"request_id,omitempty"`
	ID        string           `json:"id,omitempty"`
	Data      string           `json:"data,omitempty"`
	ExitCode  *int             `json:"exit_code,omitempty"`
	Session   *terminal.Info   `json:"session,omitempty"`
	Result    *executor.Result `json:"result,omitempty"`
	Message   string           `json:"message,omitempty"`
	Code      string           `json:"code,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

func reply(msgType, requestID string) ServerMessage {
	return ServerMessage{
		Type:      msgType,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}
