package terminal

import (
	"sync"
	"time"
)

// RingBuffer keeps the most recent size bytes written to it. Memory grows
// with the data up to size.
type RingBuffer struct {
	size int
	data []byte
	head int
	n    int
}

// NewRingBuffer creates a buffer holding at most size bytes.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 1
	}
	return &RingBuffer{size: size}
}

// Write appends p, overwriting the oldest bytes once full.
func (b *RingBuffer) Write(p []byte) (int, error) {
	written := len(p)
	if len(p) > b.size {
		p = p[len(p)-b.size:]
	}

	// head only moves once the buffer is full size, so a zero head means the
	// bytes are stored linearly
	if b.head == 0 && b.n+len(p) <= b.size {
		b.data = append(b.data[:b.n], p...)
		b.n += len(p)
		return written, nil
	}

	if cap(b.data) < b.size {
		full := make([]byte, b.size)
		copy(full, b.data[:b.n])
		b.data = full
	} else {
		b.data = b.data[:b.size]
	}
	for _, c := range p {
		tail := (b.head + b.n) % b.size
		b.data[tail] = c
		if b.n == b.size {
			b.head = (b.head + 1) % b.size
		} else {
			b.n++
		}
	}
	return written, nil
}

// Len reports the number of buffered bytes.
func (b *RingBuffer) Len() int { return b.n }

// ReadAll returns the buffered bytes in order and empties the buffer.
func (b *RingBuffer) ReadAll() []byte {
	out := make([]byte, b.n)
	first := copy(out, b.data[b.head:min(b.head+b.n, len(b.data))])
	copy(out[first:], b.data[:b.n-first])
	b.head, b.n = 0, 0
	return out
}

// Output is what a BufferedSink has collected for one session.
type Output struct {
	Data     []byte
	Exited   bool
	ExitCode int
}

type bufferedOutput struct {
	buf      *RingBuffer
	exited   bool
	exitCode int
	exitedAt time.Time
}

// Retention defaults for output of exited sessions nobody drained.
const (
	DefaultOutputRetention = 5 * time.Minute
	DefaultMaxExited       = 64
)

// BufferedSink collects session output for pull-style consumers. Each session
// keeps the latest size bytes until drained; an exited session is forgotten
// once its final output has been drained, after the retention period, or
// when more than maxExited exited sessions wait, oldest first.
type BufferedSink struct {
	mu        sync.Mutex
	size      int
	retention time.Duration
	maxExited int
	now       func() time.Time
	outputs   map[string]*bufferedOutput
}

// NewBufferedSink creates a sink retaining up to size bytes per session.
func NewBufferedSink(size int) *BufferedSink {
	return &BufferedSink{
		size:      size,
		retention: DefaultOutputRetention,
		maxExited: DefaultMaxExited,
		now:       time.Now,
		outputs:   make(map[string]*bufferedOutput),
	}
}

// WithRetention bounds how long and how many undrained exited sessions are
// kept. Non-positive values keep the defaults.
func (b *BufferedSink) WithRetention(retention time.Duration, maxExited int) *BufferedSink {
	b.mu.Lock()
	defer b.mu.Unlock()

	if retention > 0 {
		b.retention = retention
	}
	if maxExited > 0 {
		b.maxExited = maxExited
	}
	return b
}

func (b *BufferedSink) entry(id string) *bufferedOutput {
	o, ok := b.outputs[id]
	if !ok {
		o = &bufferedOutput{buf: NewRingBuffer(b.size)}
		b.outputs[id] = o
	}
	return o
}

func (b *BufferedSink) OnData(id string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entry(id).buf.Write(data)
}

func (b *BufferedSink) OnExit(id string, code int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o := b.entry(id)
	o.exited = true
	o.exitCode = code
	o.exitedAt = b.now()
	b.evict()
}

// Drain returns and clears what was collected for id.
func (b *BufferedSink) Drain(id string) (Output, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evict()

	o, ok := b.outputs[id]
	if !ok {
		return Output{}, false
	}
	if o.exited {
		delete(b.outputs, id)
	}
	return Output{Data: o.buf.ReadAll(), Exited: o.exited, ExitCode: o.exitCode}, true
}

// ForgetExited drops leftovers of an exited session so a new session may
// reuse the id.
func (b *BufferedSink) ForgetExited(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if o, ok := b.outputs[id]; ok && o.exited {
		delete(b.outputs, id)
	}
}

// Len reports how many sessions have output or an exit waiting.
func (b *BufferedSink) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evict()
	return len(b.outputs)
}

// evict drops expired exited entries, then the oldest ones beyond maxExited.
// Callers hold mu.
func (b *BufferedSink) evict() {
	cutoff := b.now().Add(-b.retention)
	exited := 0
	for id, o := range b.outputs {
		if !o.exited {
			continue
		}
		if !o.exitedAt.After(cutoff) {
			delete(b.outputs, id)
			continue
		}
		exited++
	}

	for ; exited > b.maxExited; exited-- {
		var oldestID string
		var oldest time.Time
		for id, o := range b.outputs {
			if o.exited && (oldestID == "" || o.exitedAt.Before(oldest)) {
				oldestID, oldest = id, o.exitedAt
			}
		}
		delete(b.outputs, oldestID)
	}
}
