// Package emulator provides the default byte-exact terminal surface attached
// to a session. It retains the raw PTY stream, bounded to a byte budget, so a
// revealed terminal can be repainted by whatever renders it.
package emulator

import (
	"errors"
	"sync"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("emulator closed")

// Screen keeps the most recent PTY bytes together with the size and focus of
// the surface.
type Screen struct {
	mu       sync.Mutex
	cols     int
	rows     int
	focused  bool
	closed   bool
	maxBytes int
	buf      []byte
	dropped  int64
}

// New returns a Screen of the given size retaining at most maxBytes. A
// non-positive maxBytes keeps everything.
func New(cols, rows, maxBytes int) *Screen {
	return &Screen{cols: cols, rows: rows, maxBytes: maxBytes}
}

// Write appends p. The oldest bytes are discarded once the budget is exceeded.
func (s *Screen) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	s.buf = append(s.buf, p...)
	if s.maxBytes > 0 && len(s.buf) > s.maxBytes {
		over := len(s.buf) - s.maxBytes
		s.dropped += int64(over)
		s.buf = append(s.buf[:0], s.buf[over:]...)
	}
	return len(p), nil
}

// Resize sets the surface size.
func (s *Screen) Resize(cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return errors.New("invalid emulator size")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.cols = cols
	s.rows = rows
	return nil
}

// Focus marks the surface as receiving keyboard input.
func (s *Screen) Focus() {
	s.mu.Lock()
	s.focused = true
	s.mu.Unlock()
}

// Blur returns keyboard input to the block view.
func (s *Screen) Blur() {
	s.mu.Lock()
	s.focused = false
	s.mu.Unlock()
}

// Close releases the retained bytes. Further writes fail.
func (s *Screen) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.focused = false
	s.buf = nil
	return nil
}

// Snapshot returns a copy of the retained stream.
func (s *Screen) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf...)
}

// Size returns the current surface size.
func (s *Screen) Size() (cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

// Focused reports whether the surface has keyboard focus.
func (s *Screen) Focused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

// Dropped reports how many bytes fell out of the retention budget.
func (s *Screen) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
