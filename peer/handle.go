package peer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	// stderrTailLines is the number of stderr lines kept per handle.
	stderrTailLines = 20

	drainTimeout = 500 * time.Millisecond
)

// Handle is one live server process.
//
// Contract:
// - Concurrency: safe for concurrent use; Exchange calls are serialized.
// - Context: Exchange honors cancellation while waiting for its turn, while
// writing the request and while waiting for a reply.
// - Errors: a dead or discarded process yields ErrPeerExited.
type Handle struct {
	name   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File
	stderr *os.File
	logger *zap.Logger

	lines   chan []byte
	exited  chan struct{}
	quit    chan struct{}
	exitErr error

	// calls holds one token per exchange in flight.
	calls     chan struct{}
	discarded atomic.Bool
	readers   sync.WaitGroup
	stopOnce  sync.Once

	tailMu sync.Mutex
	tail   []string
}

// startHandle launches cmd with a stdin pipe and OS pipes for stdout and
// stderr, then starts the reader and waiter goroutines.
func startHandle(name string, cmd *exec.Cmd, logger *zap.Logger) (*Handle, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		_ = outR.Close()
		_ = outW.Close()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	startErr := cmd.Start()
	// The child holds its own copies of the write ends.
	_ = outW.Close()
	_ = errW.Close()
	if startErr != nil {
		_ = stdin.Close()
		_ = outR.Close()
		_ = errR.Close()
		return nil, startErr
	}

	h := &Handle{
		name:   name,
		cmd:    cmd,
		stdin:  stdin,
		stdout: outR,
		stderr: errR,
		logger: logger,
		lines:  make(chan []byte, 64),
		exited: make(chan struct{}),
		quit:   make(chan struct{}),
		calls:  make(chan struct{}, 1),
	}

	h.readers.Add(2)
	go h.readStdout()
	go h.drainStderr()
	go func() {
		h.exitErr = cmd.Wait()
		close(h.exited)
	}()
	return h, nil
}

// Name returns the server name the handle was started for.
func (h *Handle) Name() string { return h.name }

// PID returns the process id.
func (h *Handle) PID() int { return h.cmd.Process.Pid }

// Discarded reports whether the handle was given up after a request write
// could not complete. A discarded handle is never reused.
func (h *Handle) Discarded() bool { return h.discarded.Load() }

// Alive reports whether the process is still running.
func (h *Handle) Alive() bool {
	select {
	case <-h.exited:
		return false
	default:
		return true
	}
}

// Exited returns a channel that is closed when the process exits.
func (h *Handle) Exited() <-chan struct{} { return h.exited }

// ExitErr returns the error from waiting on the process. It is only
// meaningful after Exited is closed.
func (h *Handle) ExitErr() error {
	select {
	case <-h.exited:
		return h.exitErr
	default:
		return nil
	}
}

// StderrTail returns the last lines the process wrote to stderr.
func (h *Handle) StderrTail() string {
	h.tailMu.Lock()
	defer h.tailMu.Unlock()
	return strings.Join(h.tail, "\n")
}

// Exchange writes frame followed by a newline and then reads stdout lines
// until accept returns true for one, which is returned. Rejected lines are
// dropped. Only one exchange runs at a time per handle.
//
// A nil accept takes the first line. If ctx ends while the request is
// still being written, the process is killed and the handle discarded, as
// the peer's input stream is left holding a partial frame. If ctx ends
// while waiting for the reply, the handle stays usable and the late reply
// is dropped by the next caller's accept.
func (h *Handle) Exchange(ctx context.Context, frame []byte, accept func([]byte) bool) ([]byte, error) {
	select {
	case h.calls <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.exited:
		return nil, h.exitError()
	}
	defer func() { <-h.calls }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if h.Discarded() {
		return nil, fmt.Errorf("%w: %s: discarded after an abandoned write", ErrPeerExited, h.name)
	}
	if !h.Alive() {
		return nil, h.exitError()
	}

	if err := h.write(ctx, frame); err != nil {
		return nil, err
	}

	for {
		select {
		case line, ok := <-h.lines:
			if !ok {
				return nil, h.exitError()
			}
			if accept == nil || accept(line) {
				return line, nil
			}
			h.logger.Debug("dropping unmatched line",
				zap.String("server", h.name),
				zap.ByteString("line", truncate(line, 256)))
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// write sends frame and a newline to the process. A peer that stops
// reading blocks the write once the pipe is full, so the write runs in its
// own goroutine and is abandoned when ctx ends.
func (h *Handle) write(ctx context.Context, frame []byte) error {
	msg := make([]byte, 0, len(frame)+1)
	msg = append(msg, frame...)
	msg = append(msg, '\n')

	done := make(chan error, 1)
	go func() {
		_, err := h.stdin.Write(msg)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: write to %q: %v", ErrPeerExited, h.name, err)
		}
		return nil
	case <-h.exited:
		return h.exitError()
	case <-ctx.Done():
		h.discard()
		return ctx.Err()
	}
}

// discard marks the handle unusable and kills the process, which also
// unblocks the pending write.
func (h *Handle) discard() {
	if !h.discarded.CompareAndSwap(false, true) {
		return
	}
	h.logger.Warn("peer stopped reading its input, killing it",
		zap.String("server", h.name), zap.Int("pid", h.PID()))
	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		h.logger.Debug("kill failed", zap.String("server", h.name), zap.Error(err))
	}
}

func (h *Handle) exitError() error {
	msg := h.name
	if err := h.ExitErr(); err != nil {
		msg += ": " + err.Error()
	} else if h.Alive() {
		msg += ": stdout closed"
	}
	if tail := h.StderrTail(); tail != "" {
		msg += ": stderr: " + tail
	}
	return fmt.Errorf("%w: %s", ErrPeerExited, msg)
}

// stop terminates the process and releases the handle. It closes stdin,
// sends SIGTERM, waits up to timeout and then kills. It reports whether a
// kill was needed. Safe to call more than once.
func (h *Handle) stop(timeout time.Duration) (killed bool) {
	h.stopOnce.Do(func() {
		_ = h.stdin.Close()
		if h.Alive() {
			if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
				h.logger.Debug("sigterm failed", zap.String("server", h.name), zap.Error(err))
			}
			timer := time.NewTimer(timeout)
			select {
			case <-h.exited:
			case <-timer.C:
				killed = true
				_ = h.cmd.Process.Kill()
				<-h.exited
			}
			timer.Stop()
		}
		close(h.quit)

		// Let the readers reach EOF so the stderr tail is complete, but do
		// not wait on descendants that inherited the pipes.
		drained := make(chan struct{})
		go func() {
			h.readers.Wait()
			close(drained)
		}()
		timer := time.NewTimer(drainTimeout)
		select {
		case <-drained:
		case <-timer.C:
		}
		timer.Stop()
		_ = h.stdout.Close()
		_ = h.stderr.Close()
		<-drained
	})
	return killed
}

func (h *Handle) readStdout() {
	defer h.readers.Done()
	defer close(h.lines)

	br := bufio.NewReader(h.stdout)
	for {
		line, err := br.ReadBytes('\n')
		line = bytes.TrimRight(line, "\r\n")
		if len(bytes.TrimSpace(line)) > 0 {
			select {
			case h.lines <- line:
			case <-h.quit:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (h *Handle) drainStderr() {
	defer h.readers.Done()

	br := bufio.NewReader(h.stderr)
	for {
		line, err := br.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			h.logger.Debug("peer stderr", zap.String("server", h.name), zap.String("line", line))
			h.tailMu.Lock()
			h.tail = append(h.tail, line)
			if len(h.tail) > stderrTailLines {
				h.tail = h.tail[len(h.tail)-stderrTailLines:]
			}
			h.tailMu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
