package peer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/toolgen/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(Options{
		StartupGrace:    100 * time.Millisecond,
		ShutdownTimeout: 2 * time.Second,
	})
	t.Cleanup(m.ShutdownAll)
	return m
}

func exchange(t *testing.T, h *Handle, frame string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	line, err := h.Exchange(ctx, []byte(frame), nil)
	require.NoError(t, err)
	return string(line)
}

func TestAcquire_ReusesLiveHandle(t *testing.T) {
	m := newTestManager(t)
	cfg := helperServer("echo")

	h1, err := m.Acquire(context.Background(), "echo", cfg)
	require.NoError(t, err)
	h2, err := m.Acquire(context.Background(), "echo", cfg)
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Equal(t, h1.PID(), h2.PID())
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, []string{"echo"}, m.Servers())
	assert.Equal(t, "ack hello", exchange(t, h1, "hello"))
}

func TestAcquire_CachedHandleWithoutConfig(t *testing.T) {
	m := newTestManager(t)
	h1, err := m.Acquire(context.Background(), "echo", helperServer("echo"))
	require.NoError(t, err)

	h2, err := m.Acquire(context.Background(), "echo", nil)
	require.NoError(t, err)
	assert.Same(t, h1, h2)
}

func TestAcquire_ConcurrentCallsShareOneStart(t *testing.T) {
	m := newTestManager(t)
	cfg := helperServer("echo")

	const n = 8
	handles := make([]*Handle, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := m.Acquire(context.Background(), "echo", cfg)
			if err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			handles[i] = h
		}()
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Same(t, handles[0], handles[i])
	}
	assert.Equal(t, 1, m.Len())
}

func TestAcquire_CanceledWaiterDoesNotFailOthers(t *testing.T) {
	m := NewManager(Options{StartupGrace: 500 * time.Millisecond, ShutdownTimeout: 2 * time.Second})
	defer m.ShutdownAll()
	cfg := helperServer("echo")

	impatient, cancel := context.WithCancel(context.Background())
	impatientErr := make(chan error, 1)
	go func() {
		_, err := m.Acquire(impatient, "echo", cfg)
		impatientErr <- err
	}()

	patient := make(chan *Handle, 1)
	go func() {
		h, err := m.Acquire(context.Background(), "echo", cfg)
		if err != nil {
			t.Errorf("Acquire() error = %v", err)
		}
		patient <- h
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-impatientErr, context.Canceled)

	h := <-patient
	require.NotNil(t, h)
	assert.True(t, h.Alive())
	assert.Equal(t, 1, m.Len())
}

func TestAcquire_NilConfig(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Acquire(context.Background(), "missing", nil)
	if !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("Acquire() error = %v, want ErrConfiguration", err)
	}
	assert.Equal(t, 0, m.Len())
}

func TestAcquire_EmptyCommand(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Acquire(context.Background(), "x", &config.Server{Name: "x"})
	if !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("Acquire() error = %v, want ErrConfiguration", err)
	}
}

func TestAcquire_CommandNotFound(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Acquire(context.Background(), "ghost", &config.Server{
		Name:    "ghost",
		Command: "/nonexistent/toolgen-peer",
	})
	if !errors.Is(err, ErrProcessStart) {
		t.Fatalf("Acquire() error = %v, want ErrProcessStart", err)
	}
	var startErr *StartError
	require.ErrorAs(t, err, &startErr)
	assert.Equal(t, "ghost", startErr.Server)
	assert.Equal(t, 0, m.Len())
}

func TestAcquire_ExitDuringGrace(t *testing.T) {
	m := NewManager(Options{StartupGrace: 10 * time.Second})
	defer m.ShutdownAll()

	start := time.Now()
	_, err := m.Acquire(context.Background(), "exit", helperServer("exit"))
	if !errors.Is(err, ErrProcessStart) {
		t.Fatalf("Acquire() error = %v, want ErrProcessStart", err)
	}
	var startErr *StartError
	require.ErrorAs(t, err, &startErr)
	assert.Contains(t, startErr.Stderr, "boom: missing credentials")
	assert.Less(t, time.Since(start), 10*time.Second, "exit should end the grace wait early")
	assert.Equal(t, 0, m.Len())
}

func TestAcquire_ContextCanceledDuringGrace(t *testing.T) {
	m := NewManager(Options{StartupGrace: 10 * time.Second, ShutdownTimeout: time.Second})
	defer m.ShutdownAll()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := m.Acquire(ctx, "echo", helperServer("echo"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire() error = %v, want DeadlineExceeded", err)
	}
	assert.Equal(t, 0, m.Len())
}

func TestAcquire_ResolvesEnvPlaceholders(t *testing.T) {
	m := NewManager(Options{
		StartupGrace: 100 * time.Millisecond,
		LookupEnv: func(name string) (string, bool) {
			if name == "SECRET" {
				return "s3cr3t", true
			}
			return "", false
		},
	})
	defer m.ShutdownAll()

	cfg := helperServer("env")
	cfg.Env["TOKEN"] = "${SECRET}"
	h, err := m.Acquire(context.Background(), "env", cfg)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", exchange(t, h, "token?"))
}

func TestAcquire_RestartsExitedProcess(t *testing.T) {
	m := newTestManager(t)
	cfg := helperServer("once")

	h1, err := m.Acquire(context.Background(), "once", cfg)
	require.NoError(t, err)
	assert.Equal(t, "ack first", exchange(t, h1, "first"))

	select {
	case <-h1.Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("helper did not exit")
	}

	h2, err := m.Acquire(context.Background(), "once", cfg)
	require.NoError(t, err)
	assert.NotSame(t, h1, h2)
	assert.True(t, h2.Alive())
	assert.Equal(t, 1, m.Len())
}

func TestExchange_SequentialRepliesStayPaired(t *testing.T) {
	m := newTestManager(t)
	h, err := m.Acquire(context.Background(), "echo", helperServer("echo"))
	require.NoError(t, err)

	for i := range 5 {
		frame := fmt.Sprintf("req-%d", i)
		assert.Equal(t, "ack "+frame, exchange(t, h, frame))
	}
}

func TestExchange_ConcurrentCallersAreSerialized(t *testing.T) {
	m := newTestManager(t)
	h, err := m.Acquire(context.Background(), "echo", helperServer("echo"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			frame := fmt.Sprintf("req-%d", i)
			line, err := h.Exchange(context.Background(), []byte(frame), nil)
			if err != nil {
				t.Errorf("Exchange(%s) error = %v", frame, err)
				return
			}
			if string(line) != "ack "+frame {
				t.Errorf("Exchange(%s) = %q", frame, line)
			}
		}()
	}
	wg.Wait()
}

func TestExchange_DropsRejectedLines(t *testing.T) {
	m := newTestManager(t)
	h, err := m.Acquire(context.Background(), "noisy", helperServer("noisy"))
	require.NoError(t, err)

	isAck := func(line []byte) bool { return bytes.HasPrefix(line, []byte("ack ")) }
	for _, frame := range []string{"a", "b"} {
		line, err := h.Exchange(context.Background(), []byte(frame), isAck)
		require.NoError(t, err)
		assert.Equal(t, "ack "+frame, string(line))
	}
}

func TestExchange_ContextDeadline(t *testing.T) {
	m := newTestManager(t)
	h, err := m.Acquire(context.Background(), "silent", helperServer("silent"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = h.Exchange(ctx, []byte("anyone?"), nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, h.Alive(), "abandoning a call must not stop the peer")
}

func TestExchange_StalledWriteDiscardsHandle(t *testing.T) {
	m := newTestManager(t)
	cfg := helperServer("nonreader")
	h, err := m.Acquire(context.Background(), "nonreader", cfg)
	require.NoError(t, err)

	frame := bytes.Repeat([]byte("x"), 1<<20)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = h.Exchange(ctx, frame, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 3*time.Second, "write must give up at the deadline")
	assert.True(t, h.Discarded())

	_, err = h.Exchange(context.Background(), []byte("again"), nil)
	assert.ErrorIs(t, err, ErrPeerExited)

	h2, err := m.Acquire(context.Background(), "nonreader", cfg)
	require.NoError(t, err)
	assert.NotSame(t, h, h2)
	assert.False(t, h2.Discarded())
	assert.Equal(t, 1, m.Len())
}

func TestExchange_WaitForTurnHonorsContext(t *testing.T) {
	m := newTestManager(t)
	h, err := m.Acquire(context.Background(), "silent", helperServer("silent"))
	require.NoError(t, err)

	first, cancelFirst := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.Exchange(first, []byte("hold"), nil)
		done <- err
	}()
	// Let the first exchange take the turn.
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = h.Exchange(ctx, []byte("queued"), nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 3*time.Second)

	cancelFirst()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.True(t, h.Alive())
	assert.False(t, h.Discarded())
}

func TestExchange_AfterShutdown(t *testing.T) {
	m := newTestManager(t)
	h, err := m.Acquire(context.Background(), "echo", helperServer("echo"))
	require.NoError(t, err)

	m.ShutdownAll()
	_, err = h.Exchange(context.Background(), []byte("late"), nil)
	assert.ErrorIs(t, err, ErrPeerExited)
}

func TestShutdownAll_Empty(t *testing.T) {
	m := NewManager(Options{})
	m.ShutdownAll()
	m.ShutdownAll()
	assert.Equal(t, 0, m.Len())
	assert.NoError(t, m.Close())
}

func TestShutdownAll_StopsEveryProcess(t *testing.T) {
	m := newTestManager(t)
	var handles []*Handle
	for _, mode := range []string{"echo", "silent", "noisy"} {
		h, err := m.Acquire(context.Background(), mode, helperServer(mode))
		require.NoError(t, err)
		handles = append(handles, h)
	}
	require.Equal(t, 3, m.Len())

	m.ShutdownAll()
	assert.Equal(t, 0, m.Len())
	for _, h := range handles {
		assert.False(t, h.Alive(), "%s still alive", h.Name())
	}
	m.ShutdownAll()
}

func TestShutdownAll_KillsAfterTimeout(t *testing.T) {
	m := NewManager(Options{
		StartupGrace:    100 * time.Millisecond,
		ShutdownTimeout: 200 * time.Millisecond,
	})
	h, err := m.Acquire(context.Background(), "stubborn", helperServer("stubborn"))
	require.NoError(t, err)

	start := time.Now()
	m.ShutdownAll()
	assert.False(t, h.Alive())
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 0, m.Len())
}

func TestStartError_Message(t *testing.T) {
	err := &StartError{Server: "s", Command: "cmd", Stderr: "bad", Err: errors.New("exit status 1")}
	assert.True(t, errors.Is(err, ErrProcessStart))
	assert.True(t, strings.Contains(err.Error(), "stderr: bad"))
}
