package emulator

import (
	"errors"
	"testing"
)

func TestScreenKeepsBytesInOrder(t *testing.T) {
	s := New(80, 24, 0)
	for _, chunk := range []string{"\x1b[31mred", "\x1b[0m\r\n", "$ "} {
		if n, err := s.Write([]byte(chunk)); err != nil || n != len(chunk) {
			t.Fatalf("write %q: n=%d err=%v", chunk, n, err)
		}
	}
	if got := string(s.Snapshot()); got != "\x1b[31mred\x1b[0m\r\n$ " {
		t.Fatalf("unexpected bytes %q", got)
	}
}

func TestScreenTrimsToBudget(t *testing.T) {
	s := New(80, 24, 4)
	_, _ = s.Write([]byte("abc"))
	_, _ = s.Write([]byte("defg"))
	if got := string(s.Snapshot()); got != "defg" {
		t.Fatalf("expected tail of stream, got %q", got)
	}
	if s.Dropped() != 3 {
		t.Fatalf("expected 3 dropped bytes, got %d", s.Dropped())
	}
}

func TestScreenResizeAndFocus(t *testing.T) {
	s := New(1, 1, 0)
	if err := s.Resize(120, 40); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if cols, rows := s.Size(); cols != 120 || rows != 40 {
		t.Fatalf("unexpected size %dx%d", cols, rows)
	}
	if err := s.Resize(0, 10); err == nil {
		t.Fatalf("expected invalid size error")
	}
	s.Focus()
	if !s.Focused() {
		t.Fatalf("expected focus")
	}
	s.Blur()
	if s.Focused() {
		t.Fatalf("expected blur")
	}
}

func TestScreenClosed(t *testing.T) {
	s := New(80, 24, 0)
	s.Focus()
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := s.Write([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if s.Focused() {
		t.Fatalf("closed screen should not keep focus")
	}
}
