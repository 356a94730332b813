package core

import (
	"context"
	"time"

	"pkt.systems/hybridterm/internal/clock"
	"pkt.systems/hybridterm/internal/patterns"
	"pkt.systems/hybridterm/schema"
	"pkt.systems/pslog"
)

// ServiceDeps captures optional dependencies for the core service.
type ServiceDeps struct {
	EventSink         EventSink
	Emulators         EmulatorFactory
	PTYSizer          PTYSizer
	ConversationStore ConversationStore
	InfoStore         InfoStore
	Patterns          *patterns.Library
	Clock             clock.Clock
	// Dispatch runs store side effects off the session lock. Nil starts a
	// single background worker owned by the service.
	Dispatch func(func())
	Logger   pslog.Logger
}

// Emulator is the byte-exact terminal emulator attached to a session.
// Calls happen with the session lock held and must not block on I/O.
type Emulator interface {
	Write(p []byte) (int, error)
	Resize(cols, rows int) error
	// Snapshot returns the retained stream for repainting a revealed surface.
	Snapshot() []byte
	Focus()
	Blur()
	Close() error
}

// EmulatorFactory creates the emulator for a new session.
type EmulatorFactory func(id schema.SessionID, size schema.Viewport) (Emulator, error)

// PTYSizer synchronizes the window size reported by a session's PTY.
type PTYSizer interface {
	ResizePTY(ctx context.Context, id schema.SessionID, cols, rows int) error
}

// ConversationStore records conversations and their messages.
type ConversationStore interface {
	CreateConversation(ctx context.Context, id schema.SessionID, conv schema.ConversationID, createdAt time.Time) error
	AppendMessage(ctx context.Context, id schema.SessionID, conv schema.ConversationID, msg schema.Message) error
}

// InfoStore receives merged session info.
type InfoStore interface {
	MergeSessionInfo(ctx context.Context, id schema.SessionID, info schema.SessionInfo) error
}
