package ws

import (
	"encoding/base64"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 256
)

// connection owns one upgraded socket. Only writePump writes to it.
type connection struct {
	id     string
	conn   *websocket.Conn
	send   chan ServerMessage
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger

	// onSend observes every message that made it onto the wire
	onSend func(msgType string)

	mu       sync.Mutex
	sessions map[string]struct{}
}

func newConnection(id string, conn *websocket.Conn, logger *zap.Logger) *connection {
	return &connection{
		id:       id,
		conn:     conn,
		send:     make(chan ServerMessage, sendBuffer),
		done:     make(chan struct{}),
		logger:   logger,
		onSend:   func(string) {},
		sessions: make(map[string]struct{}),
	}
}

// enqueue hands msg to the write pump, waiting while the buffer is full.
// It reports false once the connection is closed.
func (c *connection) enqueue(msg ServerMessage) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	}
}

func (c *connection) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("WebSocket write failed", zap.Error(err))
				return
			}
			c.onSend(msg.Type)
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *connection) own(id string) {
	c.mu.Lock()
	c.sessions[id] = struct{}{}
	c.mu.Unlock()
}

func (c *connection) disown(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sessions[id]; !ok {
		return false
	}
	delete(c.sessions, id)
	return true
}

func (c *connection) owned() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	return ids
}

// sessionSink forwards one session's events to the connection. Events wait
// for ready, which closes once the session is owned and "created" is queued.
type sessionSink struct {
	conn  *connection
	ready chan struct{}
}

func (s *sessionSink) wait() bool {
	select {
	case <-s.ready:
		return true
	case <-s.conn.done:
		return false
	}
}

func (s *sessionSink) OnData(id string, data []byte) {
	if !s.wait() {
		return
	}
	msg := reply(TypeData, "")
	msg.ID = id
	msg.Data = base64.StdEncoding.EncodeToString(data)
	s.conn.enqueue(msg)
}

func (s *sessionSink) OnExit(id string, code int) {
	ok := s.wait()
	s.conn.disown(id)
	if !ok {
		return
	}
	msg := reply(TypeExit, "")
	msg.ID = id
	msg.ExitCode = &code
	s.conn.enqueue(msg)
}
