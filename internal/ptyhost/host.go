// Package ptyhost runs session shells inside pseudo terminals and forwards
// their output to the classification pipeline.
package ptyhost

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"

	"pkt.systems/hybridterm/internal/logx"
	"pkt.systems/hybridterm/schema"
	"pkt.systems/pslog"
)

const readBufferSize = 32 << 10

// Sink receives PTY output and exit notifications. core.Service satisfies it.
type Sink interface {
	OnData(id schema.SessionID, chunk []byte)
	OnExit(id schema.SessionID, code int)
}

// Command describes the process started inside a PTY.
type Command struct {
	Path string
	Args []string
	// Env is appended to the current process environment.
	Env []string
	Dir string
}

// Host owns the PTY-backed processes of all sessions.
type Host struct {
	logger pslog.Logger

	mu     sync.Mutex
	procs  map[schema.SessionID]*process
	closed bool
	wg     sync.WaitGroup
}

type process struct {
	id   schema.SessionID
	cmd  *exec.Cmd
	ptmx *os.File
	done chan struct{}

	writeMu sync.Mutex
}

// New constructs an empty host.
func New(logger pslog.Logger) *Host {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Host{
		logger: logger,
		procs:  make(map[schema.SessionID]*process),
	}
}

// Start spawns cmd in a PTY of the given size and streams its output to sink
// until the process exits. Output chunks and the exit arrive on one goroutine
// in order.
func (h *Host) Start(ctx context.Context, id schema.SessionID, command Command, size schema.Viewport, sink Sink) error {
	if sink == nil {
		return errors.New("ptyhost: sink is required")
	}
	if command.Path == "" {
		return errors.New("ptyhost: command path is required")
	}
	if !size.Valid() {
		return schema.ErrInvalidViewport
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return errors.New("ptyhost: host closed")
	}
	if _, exists := h.procs[id]; exists {
		h.mu.Unlock()
		return schema.ErrSessionExists
	}
	h.mu.Unlock()

	cmd := exec.Command(command.Path, command.Args...)
	cmd.Env = append(os.Environ(), command.Env...)
	cmd.Dir = command.Dir
	ptmx, err := pty.StartWithSize(cmd, winsize(size.Cols, size.Rows))
	if err != nil {
		return fmt.Errorf("start %s: %w", command.Path, err)
	}
	proc := &process{id: id, cmd: cmd, ptmx: ptmx, done: make(chan struct{})}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		hangup(proc)
		_ = ptmx.Close()
		_ = cmd.Wait()
		return errors.New("ptyhost: host closed")
	}
	if _, exists := h.procs[id]; exists {
		h.mu.Unlock()
		hangup(proc)
		_ = ptmx.Close()
		_ = cmd.Wait()
		return schema.ErrSessionExists
	}
	h.procs[id] = proc
	h.wg.Add(1)
	h.mu.Unlock()

	log := logx.WithSession(ctx, id)
	if _, ok := logx.SessionFromContext(ctx); !ok {
		log = h.logger.With("session", id)
	}
	log.Info("pty started", "path", command.Path, "pid", cmd.Process.Pid, "cols", size.Cols, "rows", size.Rows)
	go h.pump(log, proc, sink)
	return nil
}

func (h *Host) pump(log pslog.Logger, proc *process, sink Sink) {
	defer h.wg.Done()
	defer close(proc.done)
	buf := make([]byte, readBufferSize)
	for {
		n, err := proc.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			sink.OnData(proc.id, chunk)
		}
		if err != nil {
			// Linux reports EIO once the child side is gone.
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				log.Trace("pty read ended", "err", err)
			}
			break
		}
	}
	code := exitCode(proc.cmd.Wait())
	_ = proc.ptmx.Close()

	h.mu.Lock()
	if h.procs[proc.id] == proc {
		delete(h.procs, proc.id)
	}
	h.mu.Unlock()

	log.Info("pty exited", "code", code)
	sink.OnExit(proc.id, code)
}

// Write sends raw input to the session's PTY.
func (h *Host) Write(id schema.SessionID, p []byte) error {
	proc, err := h.lookup(id)
	if err != nil {
		return err
	}
	proc.writeMu.Lock()
	defer proc.writeMu.Unlock()
	if _, err := proc.ptmx.Write(p); err != nil {
		return fmt.Errorf("write pty: %w", err)
	}
	return nil
}

// Submit writes a command line followed by a carriage return.
func (h *Host) Submit(id schema.SessionID, text string) error {
	return h.Write(id, []byte(text+"\r"))
}

// ResizePTY implements core.PTYSizer.
func (h *Host) ResizePTY(ctx context.Context, id schema.SessionID, cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return schema.ErrInvalidViewport
	}
	proc, err := h.lookup(id)
	if err != nil {
		return err
	}
	if err := pty.Setsize(proc.ptmx, winsize(cols, rows)); err != nil {
		return fmt.Errorf("resize pty: %w", err)
	}
	return nil
}

// Running reports whether the session still has a live process.
func (h *Host) Running(id schema.SessionID) bool {
	_, err := h.lookup(id)
	return err == nil
}

// Stop hangs up the session's process and waits for its exit to be delivered.
func (h *Host) Stop(ctx context.Context, id schema.SessionID) error {
	proc, err := h.lookup(id)
	if err != nil {
		return err
	}
	hangup(proc)
	_ = proc.ptmx.Close()
	select {
	case <-proc.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops every process and waits for the read loops to finish.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	procs := make([]*process, 0, len(h.procs))
	for _, proc := range h.procs {
		procs = append(procs, proc)
	}
	h.mu.Unlock()
	for _, proc := range procs {
		hangup(proc)
		_ = proc.ptmx.Close()
	}
	h.wg.Wait()
	return nil
}

func (h *Host) lookup(id schema.SessionID) (*process, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	proc := h.procs[id]
	if proc == nil {
		return nil, schema.ErrSessionNotFound
	}
	return proc, nil
}

func winsize(cols, rows int) *pty.Winsize {
	return &pty.Winsize{Cols: clampUint16(cols), Rows: clampUint16(rows)}
}

func clampUint16(v int) uint16 {
	switch {
	case v <= 0:
		return 0
	case v > 0xffff:
		return 0xffff
	default:
		return uint16(v)
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
		return signalExitCode(exitErr)
	}
	return -1
}
