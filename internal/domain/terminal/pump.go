package terminal

import (
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
)

// startPump launches the reader, writer and exit watcher of a running session.
func (m *Manager) startPump(s *Session, b Backend) {
	m.wg.Add(3)
	go m.readLoop(s, b)
	go m.writeLoop(s, b)
	go m.watch(s, b)
}

// readLoop drains backend output in arrival order. Each chunk is a fresh copy
// handed to the sink. EOF, EIO after a pty hangup and a closed descriptor all
// end the loop.
func (m *Manager) readLoop(s *Session, b Backend) {
	defer m.wg.Done()
	defer close(s.readerDone)

	buf := make([]byte, m.cfg.ReadChunk)
	out := b.Output()
	for {
		n, err := out.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			m.observer.BytesTransferred("out", n)
			s.emitData(chunk)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				m.logger.Debug("Session output closed",
					zap.String("session_id", s.id),
					zap.Error(err),
				)
			}
			return
		}
	}
}

// writeLoop forwards queued input to the backend one chunk at a time, so
// concurrent writers never interleave.
func (m *Manager) writeLoop(s *Session, b Backend) {
	defer m.wg.Done()

	for {
		select {
		case chunk := <-s.input:
			if _, err := b.Write(chunk); err != nil {
				m.logger.Warn("Failed to write session input",
					zap.String("session_id", s.id),
					zap.Int("bytes", len(chunk)),
					zap.Error(err),
				)
				continue
			}
			m.observer.BytesTransferred("in", len(chunk))
		case <-s.done:
			return
		}
	}
}

// watch waits for the process to exit, lets the reader drain and reports the
// exit. Background children can keep a pty open after the shell died, so the
// drain is bounded and then forced by closing the backend.
func (m *Manager) watch(s *Session, b Backend) {
	defer m.wg.Done()

	code := b.Wait()

	select {
	case <-s.readerDone:
	case <-time.After(m.cfg.DrainTimeout):
	}
	m.release(s, b)

	m.finish(s, code, ReasonExited)
}

// release closes the backend and waits, bounded, for the reader to stop.
func (m *Manager) release(s *Session, b Backend) {
	if err := b.Close(); err != nil {
		m.logger.Debug("Failed to close session backend",
			zap.String("session_id", s.id),
			zap.Error(err),
		)
	}
	select {
	case <-s.readerDone:
	case <-time.After(m.cfg.DrainTimeout):
		m.logger.Warn("Session reader did not stop after close",
			zap.String("session_id", s.id),
		)
	}
}
