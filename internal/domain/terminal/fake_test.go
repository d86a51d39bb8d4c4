package terminal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

// fakeBackend is an in-memory Backend. Output is fed by echoing input when
// echo is set; the process "exits" through exit, Terminate or Kill.
type fakeBackend struct {
	kind            Kind
	echo            bool
	ignoreTerminate bool

	out *io.PipeReader
	pw  *io.PipeWriter

	mu      sync.Mutex
	written bytes.Buffer
	sizes   []Dimensions

	exited   chan struct{}
	exitOnce sync.Once
	code     int
}

func newFakeBackend(kind Kind) *fakeBackend {
	r, w := io.Pipe()
	return &fakeBackend{kind: kind, echo: true, out: r, pw: w, exited: make(chan struct{})}
}

func (f *fakeBackend) exit(code int) {
	f.exitOnce.Do(func() {
		f.code = code
		close(f.exited)
		f.pw.Close()
	})
}

func (f *fakeBackend) emit(data string) {
	f.pw.Write([]byte(data))
}

func (f *fakeBackend) Kind() Kind        { return f.kind }
func (f *fakeBackend) Label() string     { return "fake " + string(f.kind) }
func (f *fakeBackend) Pid() int          { return 4242 }
func (f *fakeBackend) Output() io.Reader { return f.out }

func (f *fakeBackend) Write(p []byte) (int, error) {
	select {
	case <-f.exited:
		return 0, io.ErrClosedPipe
	default:
	}
	f.mu.Lock()
	f.written.Write(p)
	f.mu.Unlock()
	if f.echo {
		return f.pw.Write(p)
	}
	return len(p), nil
}

func (f *fakeBackend) Resize(cols, rows int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sizes = append(f.sizes, Dimensions{Cols: cols, Rows: rows})
	return nil
}

func (f *fakeBackend) Terminate() error {
	if !f.ignoreTerminate {
		f.exit(143)
	}
	return nil
}

func (f *fakeBackend) Kill() error {
	f.exit(AbnormalExitCode)
	return nil
}

func (f *fakeBackend) Wait() int {
	<-f.exited
	return f.code
}

func (f *fakeBackend) Close() error {
	f.pw.Close()
	return f.out.Close()
}

func (f *fakeBackend) writtenString() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written.String()
}

// fakeTier hands out backends from newBackend and remembers them.
type fakeTier struct {
	kind       Kind
	err        error
	calls      atomic.Int32
	newBackend func() *fakeBackend

	mu       sync.Mutex
	backends []*fakeBackend
}

func (t *fakeTier) tier() Tier {
	return Tier{Kind: t.kind, Spawn: t.spawn}
}

func (t *fakeTier) spawn(ctx context.Context, spec SpawnSpec) (Backend, error) {
	t.calls.Add(1)
	if t.err != nil {
		return nil, t.err
	}
	var b *fakeBackend
	if t.newBackend != nil {
		b = t.newBackend()
	} else {
		b = newFakeBackend(t.kind)
	}
	t.mu.Lock()
	t.backends = append(t.backends, b)
	t.mu.Unlock()
	return b, nil
}

func (t *fakeTier) last() *fakeBackend {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.backends) == 0 {
		return nil
	}
	return t.backends[len(t.backends)-1]
}

// recordingSink captures events per session and flags data that arrives after
// the exit event.
type recordingSink struct {
	mu            sync.Mutex
	data          map[string]*bytes.Buffer
	exits         map[string][]int
	dataAfterExit bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		data:  make(map[string]*bytes.Buffer),
		exits: make(map[string][]int),
	}
}

func (r *recordingSink) OnData(id string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.exits[id]) > 0 {
		r.dataAfterExit = true
	}
	if r.data[id] == nil {
		r.data[id] = &bytes.Buffer{}
	}
	r.data[id].Write(data)
}

func (r *recordingSink) OnExit(id string, code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exits[id] = append(r.exits[id], code)
}

func (r *recordingSink) output(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data[id] == nil {
		return ""
	}
	return r.data[id].String()
}

func (r *recordingSink) exitCodes(id string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.exits[id]...)
}

func (r *recordingSink) sawDataAfterExit() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dataAfterExit
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	exited   []string
	failures []string
	bytesIn  int
	bytesOut int
}

func (o *recordingObserver) SessionStarted(backend string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, backend)
}

func (o *recordingObserver) SessionExited(backend, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.exited = append(o.exited, reason)
}

func (o *recordingObserver) SpawnFailed(backend string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, backend)
}

func (o *recordingObserver) BytesTransferred(direction string, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if direction == "in" {
		o.bytesIn += n
	} else {
		o.bytesOut += n
	}
}

type observerCounts struct {
	started  []string
	exited   []string
	failures []string
	bytesIn  int
	bytesOut int
}

func (o *recordingObserver) snapshot() observerCounts {
	o.mu.Lock()
	defer o.mu.Unlock()
	return observerCounts{
		started:  append([]string(nil), o.started...),
		exited:   append([]string(nil), o.exited...),
		failures: append([]string(nil), o.failures...),
		bytesIn:  o.bytesIn,
		bytesOut: o.bytesOut,
	}
}

var errSpawn = errors.New("spawn failed")
