//go:build unix

package terminal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GriffinCanCode/termhost/internal/domain/executor"
)

const eventually = 2 * time.Second

func newFakeManager(t *testing.T, cfg Config, tiers ...*fakeTier) (*Manager, *recordingObserver) {
	t.Helper()
	if cfg.Shell == "" {
		cfg.Shell = "/bin/sh"
	}
	chain := make([]Tier, len(tiers))
	for i, ft := range tiers {
		chain[i] = ft.tier()
	}
	obs := &recordingObserver{}
	m := NewManager(cfg, NewProber(chain).WithObserver(obs)).
		WithLogger(zaptest.NewLogger(t)).
		WithObserver(obs)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		m.Shutdown(ctx)
	})
	return m, obs
}

func TestManagerCreate(t *testing.T) {
	tier := &fakeTier{kind: KindNativePTY}
	m, obs := newFakeManager(t, Config{}, tier)
	sink := newRecordingSink()
	dir := t.TempDir()

	info, err := m.Create(context.Background(), CreateRequest{ID: "t1", Dir: dir, Sink: sink})
	require.NoError(t, err)

	assert.Equal(t, "t1", info.ID)
	assert.Equal(t, KindNativePTY, info.Kind)
	assert.Equal(t, "fake native-pty", info.Label)
	assert.Equal(t, StatusRunning, info.Status)
	assert.Equal(t, Dimensions{Cols: 80, Rows: 24}, info.Dimensions())
	assert.Equal(t, 4242, info.PID)
	assert.Equal(t, "/bin/sh", info.Shell)
	assert.Nil(t, info.ExitCode)
	assert.NotEmpty(t, info.WorkingDir)

	got, err := m.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, info.ID, got.ID)
	assert.Len(t, m.List(), 1)
	assert.Equal(t, 1, m.Count())
	assert.Equal(t, []string{"native-pty"}, obs.snapshot().started)
}

func TestManagerCreateValidation(t *testing.T) {
	tier := &fakeTier{kind: KindPlainPipe}
	m, _ := newFakeManager(t, Config{}, tier)

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{name: "missing id", req: CreateRequest{}},
		{name: "negative cols", req: CreateRequest{ID: "a", Cols: -1}},
		{name: "negative rows", req: CreateRequest{ID: "a", Rows: -5}},
		{name: "cols beyond window size", req: CreateRequest{ID: "a", Cols: MaxDimension + 1}},
		{name: "rows beyond window size", req: CreateRequest{ID: "a", Rows: 70000}},
		{name: "missing working directory", req: CreateRequest{ID: "a", Dir: "/definitely/not/here"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Create(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
	assert.Zero(t, tier.calls.Load())
	assert.Zero(t, m.Count())
}

func TestManagerCreateCustomDimensions(t *testing.T) {
	m, _ := newFakeManager(t, Config{Cols: 120, Rows: 30}, &fakeTier{kind: KindPlainPipe})

	info, err := m.Create(context.Background(), CreateRequest{ID: "defaults"})
	require.NoError(t, err)
	assert.Equal(t, Dimensions{Cols: 120, Rows: 30}, info.Dimensions())

	info, err = m.Create(context.Background(), CreateRequest{ID: "explicit", Cols: 132, Rows: 50})
	require.NoError(t, err)
	assert.Equal(t, Dimensions{Cols: 132, Rows: 50}, info.Dimensions())
}

func TestManagerDuplicateCreate(t *testing.T) {
	tier := &fakeTier{kind: KindNativePTY}
	m, _ := newFakeManager(t, Config{}, tier)

	_, err := m.Create(context.Background(), CreateRequest{ID: "dup"})
	require.NoError(t, err)

	_, err = m.Create(context.Background(), CreateRequest{ID: "dup"})
	assert.ErrorIs(t, err, ErrDuplicateSession)
	assert.EqualValues(t, 1, tier.calls.Load())
	assert.Equal(t, 1, m.Count())
}

func TestManagerConcurrentCreateSameID(t *testing.T) {
	tier := &fakeTier{kind: KindNativePTY}
	m, _ := newFakeManager(t, Config{}, tier)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Create(context.Background(), CreateRequest{ID: "race"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateSession)
	}
	assert.Equal(t, 1, succeeded)
	assert.EqualValues(t, 1, tier.calls.Load())
}

func TestManagerWriteStreamsOutput(t *testing.T) {
	tier := &fakeTier{kind: KindNativePTY}
	m, obs := newFakeManager(t, Config{}, tier)
	sink := newRecordingSink()

	_, err := m.Create(context.Background(), CreateRequest{ID: "io", Sink: sink})
	require.NoError(t, err)

	require.NoError(t, m.Write("io", []byte("echo ping\n")))
	require.Eventually(t, func() bool {
		return sink.output("io") == "echo ping\n"
	}, eventually, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		counts := obs.snapshot()
		return counts.bytesIn == 10 && counts.bytesOut == 10
	}, eventually, 5*time.Millisecond)
}

func TestManagerWritePreservesOrder(t *testing.T) {
	tier := &fakeTier{kind: KindPlainPipe}
	m, _ := newFakeManager(t, Config{InputQueue: 512}, tier)
	sink := newRecordingSink()

	_, err := m.Create(context.Background(), CreateRequest{ID: "order", Sink: sink})
	require.NoError(t, err)

	var want strings.Builder
	for i := range 200 {
		chunk := fmt.Sprintf("w%d;", i)
		want.WriteString(chunk)
		require.NoError(t, m.Write("order", []byte(chunk)))
	}

	require.Eventually(t, func() bool {
		return sink.output("order") == want.String()
	}, eventually, 5*time.Millisecond)
	assert.Equal(t, want.String(), tier.last().writtenString())
}

func TestManagerWriteCopiesInput(t *testing.T) {
	tier := &fakeTier{kind: KindPlainPipe}
	m, _ := newFakeManager(t, Config{}, tier)
	sink := newRecordingSink()

	_, err := m.Create(context.Background(), CreateRequest{ID: "copy", Sink: sink})
	require.NoError(t, err)

	buf := []byte("abc")
	require.NoError(t, m.Write("copy", buf))
	copy(buf, "xyz")

	require.Eventually(t, func() bool {
		return sink.output("copy") == "abc"
	}, eventually, 5*time.Millisecond)
}

func TestManagerWriteErrors(t *testing.T) {
	tier := &fakeTier{kind: KindPlainPipe}
	m, _ := newFakeManager(t, Config{}, tier)

	assert.ErrorIs(t, m.Write("missing", []byte("x")), ErrUnknownSession)

	_, err := m.Create(context.Background(), CreateRequest{ID: "w"})
	require.NoError(t, err)
	assert.NoError(t, m.Write("w", nil))
}

func TestSessionEnqueue(t *testing.T) {
	s := newSession("q", nil, "/bin/sh", "/", 80, 24, 1)

	require.NoError(t, s.enqueue([]byte("a")))
	assert.ErrorIs(t, s.enqueue([]byte("b")), ErrWriteFailure)

	<-s.input
	s.markExited(0)
	assert.ErrorIs(t, s.enqueue([]byte("c")), ErrWriteFailure)
}

func TestManagerNaturalExit(t *testing.T) {
	tier := &fakeTier{kind: KindNativePTY}
	m, obs := newFakeManager(t, Config{}, tier)
	sink := newRecordingSink()

	_, err := m.Create(context.Background(), CreateRequest{ID: "done", Sink: sink})
	require.NoError(t, err)

	tier.last().emit("bye\n")
	tier.last().exit(3)

	require.Eventually(t, func() bool {
		return len(sink.exitCodes("done")) == 1
	}, eventually, 5*time.Millisecond)
	assert.Equal(t, []int{3}, sink.exitCodes("done"))
	assert.Equal(t, "bye\n", sink.output("done"))

	_, err = m.Get("done")
	assert.ErrorIs(t, err, ErrUnknownSession)
	assert.ErrorIs(t, m.Write("done", []byte("x")), ErrUnknownSession)
	assert.ErrorIs(t, m.Kill("done"), ErrUnknownSession)
	assert.Equal(t, []string{ReasonExited}, obs.snapshot().exited)

	// the id is free again
	_, err = m.Create(context.Background(), CreateRequest{ID: "done", Sink: sink})
	require.NoError(t, err)
}

func TestManagerKillGraceful(t *testing.T) {
	tier := &fakeTier{kind: KindNativePTY}
	m, _ := newFakeManager(t, Config{KillGrace: time.Second}, tier)
	sink := newRecordingSink()

	_, err := m.Create(context.Background(), CreateRequest{ID: "k", Sink: sink})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, m.Kill("k"))
	assert.Less(t, time.Since(start), time.Second)

	require.Eventually(t, func() bool {
		return len(sink.exitCodes("k")) == 1
	}, eventually, 5*time.Millisecond)
	assert.Equal(t, []int{143}, sink.exitCodes("k"))

	_, err = m.Get("k")
	assert.ErrorIs(t, err, ErrUnknownSession)
	assert.ErrorIs(t, m.Kill("k"), ErrUnknownSession)

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, sink.exitCodes("k"), 1)
}

func TestManagerKillForcesAfterGrace(t *testing.T) {
	tier := &fakeTier{kind: KindNativePTY, newBackend: func() *fakeBackend {
		b := newFakeBackend(KindNativePTY)
		b.ignoreTerminate = true
		return b
	}}
	m, obs := newFakeManager(t, Config{KillGrace: 100 * time.Millisecond}, tier)
	sink := newRecordingSink()

	_, err := m.Create(context.Background(), CreateRequest{ID: "stubborn", Sink: sink})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, m.Kill("stubborn"))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(sink.exitCodes("stubborn")) == 1
	}, eventually, 5*time.Millisecond)
	assert.Equal(t, []int{AbnormalExitCode}, sink.exitCodes("stubborn"))
	assert.Contains(t, obs.snapshot().exited, ReasonKilled)
}

func TestManagerKillAsyncDetachesImmediately(t *testing.T) {
	tier := &fakeTier{kind: KindNativePTY, newBackend: func() *fakeBackend {
		b := newFakeBackend(KindNativePTY)
		b.ignoreTerminate = true
		return b
	}}
	m, _ := newFakeManager(t, Config{KillGrace: 200 * time.Millisecond}, tier)
	sink := newRecordingSink()

	_, err := m.Create(context.Background(), CreateRequest{ID: "detach", Sink: sink})
	require.NoError(t, err)

	done, err := m.KillAsync("detach")
	require.NoError(t, err)

	// the process is still in its grace period, but the id is already gone
	assert.ErrorIs(t, m.Write("detach", []byte("late")), ErrUnknownSession)
	assert.ErrorIs(t, m.Resize("detach", 10, 10), ErrUnknownSession)
	_, err = m.KillAsync("detach")
	assert.ErrorIs(t, err, ErrUnknownSession)
	assert.Empty(t, sink.exitCodes("detach"))

	select {
	case <-done:
	case <-time.After(eventually):
		t.Fatal("kill did not finish")
	}
	require.Eventually(t, func() bool {
		return len(sink.exitCodes("detach")) == 1
	}, eventually, 5*time.Millisecond)
	assert.Equal(t, []int{AbnormalExitCode}, sink.exitCodes("detach"))
}

func TestManagerNoDataAfterExit(t *testing.T) {
	tier := &fakeTier{kind: KindPlainPipe}
	m, _ := newFakeManager(t, Config{KillGrace: 0}, tier)
	sink := newRecordingSink()

	_, err := m.Create(context.Background(), CreateRequest{ID: "noisy", Sink: sink})
	require.NoError(t, err)

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				m.Write("noisy", []byte("x"))
			}
		}
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, m.Kill("noisy"))
	close(stop)

	require.Eventually(t, func() bool {
		return len(sink.exitCodes("noisy")) == 1
	}, eventually, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.False(t, sink.sawDataAfterExit())
	assert.Len(t, sink.exitCodes("noisy"), 1)
}

func TestManagerResize(t *testing.T) {
	tier := &fakeTier{kind: KindNativePTY}
	m, _ := newFakeManager(t, Config{}, tier)

	_, err := m.Create(context.Background(), CreateRequest{ID: "r"})
	require.NoError(t, err)

	require.NoError(t, m.Resize("r", 100, 40))
	info, err := m.Get("r")
	require.NoError(t, err)
	assert.Equal(t, Dimensions{Cols: 100, Rows: 40}, info.Dimensions())
	assert.Equal(t, []Dimensions{{Cols: 100, Rows: 40}}, tier.last().sizes)

	assert.ErrorIs(t, m.Resize("r", 0, 10), ErrInvalidArgument)
	assert.ErrorIs(t, m.Resize("r", 10, -1), ErrInvalidArgument)
	assert.ErrorIs(t, m.Resize("r", MaxDimension+1, 40), ErrInvalidArgument)
	assert.ErrorIs(t, m.Resize("r", 100, 70000), ErrInvalidArgument)
	require.NoError(t, m.Resize("r", MaxDimension, MaxDimension))

	// rejected sizes leave the recorded and applied size untouched
	info, err = m.Get("r")
	require.NoError(t, err)
	assert.Equal(t, Dimensions{Cols: MaxDimension, Rows: MaxDimension}, info.Dimensions())
	assert.Equal(t, []Dimensions{{Cols: 100, Rows: 40}, {Cols: MaxDimension, Rows: MaxDimension}}, tier.last().sizes)
	assert.ErrorIs(t, m.Resize("missing", 10, 10), ErrUnknownSession)
}

func TestManagerSessionIsolation(t *testing.T) {
	tier := &fakeTier{kind: KindNativePTY}
	m, _ := newFakeManager(t, Config{KillGrace: 0}, tier)
	sinkA, sinkB := newRecordingSink(), newRecordingSink()

	_, err := m.Create(context.Background(), CreateRequest{ID: "a", Sink: sinkA})
	require.NoError(t, err)
	_, err = m.Create(context.Background(), CreateRequest{ID: "b", Sink: sinkB})
	require.NoError(t, err)

	require.NoError(t, m.Write("a", []byte("only-a")))
	require.Eventually(t, func() bool {
		return sinkA.output("a") == "only-a"
	}, eventually, 5*time.Millisecond)

	require.NoError(t, m.Kill("a"))
	require.Eventually(t, func() bool {
		return len(sinkA.exitCodes("a")) == 1
	}, eventually, 5*time.Millisecond)

	assert.Empty(t, sinkB.output("b"))
	assert.Empty(t, sinkB.exitCodes("b"))
	info, err := m.Get("b")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, info.Status)
}

func TestManagerSpawnFailureFreesID(t *testing.T) {
	failing := &fakeTier{kind: KindNativePTY, err: errSpawn}
	m, obs := newFakeManager(t, Config{}, failing)

	_, err := m.Create(context.Background(), CreateRequest{ID: "x"})
	assert.ErrorIs(t, err, ErrSpawnFailure)
	assert.ErrorIs(t, err, errSpawn)
	assert.Zero(t, m.Count())
	assert.Equal(t, []string{"native-pty"}, obs.snapshot().failures)

	failing.err = nil
	_, err = m.Create(context.Background(), CreateRequest{ID: "x"})
	assert.NoError(t, err)
}

func TestManagerShutdown(t *testing.T) {
	tier := &fakeTier{kind: KindNativePTY, newBackend: func() *fakeBackend {
		b := newFakeBackend(KindNativePTY)
		b.ignoreTerminate = true
		return b
	}}
	m, obs := newFakeManager(t, Config{KillGrace: time.Minute}, tier)
	sink := newRecordingSink()

	ids := []string{"s1", "s2", "s3", "s4", "s5"}
	for _, id := range ids {
		_, err := m.Create(context.Background(), CreateRequest{ID: id, Sink: sink})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, m.Shutdown(ctx))
	assert.Less(t, time.Since(start), 5*time.Second)

	for _, id := range ids {
		assert.Equal(t, []int{AbnormalExitCode}, sink.exitCodes(id), id)
	}
	assert.Zero(t, m.Count())
	assert.Len(t, obs.snapshot().exited, len(ids))

	_, err := m.Create(context.Background(), CreateRequest{ID: "late"})
	assert.ErrorIs(t, err, ErrManagerClosed)
	assert.NoError(t, m.Shutdown(ctx))
}

func TestManagerRunOnce(t *testing.T) {
	m, _ := newFakeManager(t, Config{}, &fakeTier{kind: KindPlainPipe})

	res := m.RunOnce(context.Background(), executor.Request{Command: "echo hi"})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)

	m.WithExecutor(executor.New(executor.DefaultConfig()))
	res = m.RunOnce(context.Background(), executor.Request{Command: "echo hi"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "hi\n", res.Stdout)
}

func TestManagerBackends(t *testing.T) {
	m, _ := newFakeManager(t, Config{}, &fakeTier{kind: KindNativePTY}, &fakeTier{kind: KindPlainPipe})
	assert.Equal(t, []Kind{KindNativePTY, KindPlainPipe}, m.Backends())
}

// countingSink counts exits delivered to the wrapped BufferedSink.
type countingSink struct {
	*BufferedSink
	exits atomic.Int32
}

func (c *countingSink) OnExit(id string, code int) {
	c.BufferedSink.OnExit(id, code)
	c.exits.Add(1)
}

func TestManagerKilledSessionsLeaveNoBufferedOutput(t *testing.T) {
	m, _ := newFakeManager(t, Config{KillGrace: 10 * time.Millisecond}, &fakeTier{kind: KindNativePTY})
	buffered := NewBufferedSink(256*1024).WithRetention(time.Minute, 4)
	now, advance := fakeClock()
	buffered.now = now
	sink := &countingSink{BufferedSink: buffered}

	for i := range 50 {
		id := fmt.Sprintf("k%d", i)
		_, err := m.Create(context.Background(), CreateRequest{ID: id, Sink: sink})
		require.NoError(t, err)
		require.NoError(t, m.Kill(id))
	}
	assert.Zero(t, m.Count())

	require.Eventually(t, func() bool { return sink.exits.Load() == 50 }, eventually, 5*time.Millisecond)
	assert.Equal(t, 4, sink.Len())

	advance(2 * time.Minute)
	assert.Zero(t, sink.Len())
}
