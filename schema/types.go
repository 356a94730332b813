package schema

import (
	"fmt"
	"strings"
	"time"
)

// SessionID identifies a terminal session (one tab, one PTY).
type SessionID string

// BlockID identifies a block within a session.
type BlockID string

// ConversationID identifies a conversation record in the history store.
type ConversationID string

// BlockType classifies a block.
type BlockType string

const (
	// BlockCommand is a command submitted from the input bar.
	BlockCommand BlockType = "command"
	// BlockOutput is plain shell output.
	BlockOutput BlockType = "output"
	// BlockAgent is output produced during an agent turn.
	BlockAgent BlockType = "agent"
	// BlockSystem is a message generated by the shell wrapper itself.
	BlockSystem BlockType = "system"
	// BlockTeammate is a message attributed to a named teammate agent.
	BlockTeammate BlockType = "teammate"
)

// Block is an ordered, renderable segment of terminal activity.
// Blocks are handed out as values; a finalized block never changes again.
type Block struct {
	ID           BlockID   `json:"id"`
	Type         BlockType `json:"type"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	IsStreaming  bool      `json:"is_streaming"`
	TeammateName string    `json:"teammate_name,omitempty"`
}

// SessionStatus is the tab-level activity indicator.
type SessionStatus string

const (
	// StatusIdle means no agent turn has been observed yet.
	StatusIdle SessionStatus = "idle"
	// StatusRunning means the agent is mid-turn and streaming.
	StatusRunning SessionStatus = "running"
	// StatusLoading means the agent is mid-turn but has been silent for a while.
	StatusLoading SessionStatus = "loading"
	// StatusCompleted means the last agent turn ended.
	StatusCompleted SessionStatus = "completed"
)

// RenderMode selects which parts of the classification pipeline are active.
type RenderMode string

const (
	// RenderTerminal passes bytes to the emulator only.
	RenderTerminal RenderMode = "terminal"
	// RenderHybrid adds activity tracking and status on top of the raw terminal.
	RenderHybrid RenderMode = "hybrid"
	// RenderRendered adds block accumulation with silence-based turn ends.
	RenderRendered RenderMode = "rendered"
	// RenderAbstracted enables blocks, prompt-based turn ends and the reveal controller.
	RenderAbstracted RenderMode = "abstracted"
)

// ParseRenderMode parses a render mode name. An empty value yields RenderAbstracted.
func ParseRenderMode(value string) (RenderMode, error) {
	switch RenderMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", RenderAbstracted:
		return RenderAbstracted, nil
	case RenderTerminal:
		return RenderTerminal, nil
	case RenderHybrid:
		return RenderHybrid, nil
	case RenderRendered:
		return RenderRendered, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRenderMode, value)
	}
}

// Classifies reports whether the mode runs the activity state machine.
func (m RenderMode) Classifies() bool {
	return m == RenderHybrid || m == RenderRendered || m == RenderAbstracted
}

// AccumulatesBlocks reports whether the mode runs the block accumulator.
func (m RenderMode) AccumulatesBlocks() bool {
	return m == RenderRendered || m == RenderAbstracted
}

// Reveals reports whether the mode runs the full-screen reveal controller.
func (m RenderMode) Reveals() bool {
	return m == RenderAbstracted
}

// PromptEndsTurn reports whether prompt detection (rather than trailing silence)
// is the authoritative end-of-turn signal for the mode.
func (m RenderMode) PromptEndsTurn() bool {
	return m == RenderAbstracted
}

// Viewport is a terminal size in character cells.
type Viewport struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// Valid reports whether both dimensions are positive.
func (v Viewport) Valid() bool {
	return v.Cols > 0 && v.Rows > 0
}

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	// RoleUser marks a message submitted from the input bar.
	RoleUser MessageRole = "user"
	// RoleAssistant marks the text of a completed agent turn.
	RoleAssistant MessageRole = "assistant"
)

// Message is one conversation history entry.
type Message struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// SessionSnapshot is a transport-friendly view of a session.
type SessionSnapshot struct {
	ID           SessionID      `json:"id"`
	Mode         RenderMode     `json:"mode"`
	Status       SessionStatus  `json:"status"`
	Revealed     bool           `json:"revealed"`
	Viewport     Viewport       `json:"viewport"`
	Conversation ConversationID `json:"conversation,omitempty"`
	Exited       bool           `json:"exited"`
	ExitCode     int            `json:"exit_code,omitempty"`
	// BlocksTrimmed counts finalized blocks dropped from the front of the
	// history once it exceeded the block limit.
	BlocksTrimmed int `json:"blocks_trimmed,omitempty"`
}

// TerminalSnapshot is the retained raw stream of a session's terminal
// emulator. End is the stream offset just past Data; output events with a
// lower offset are already contained in Data.
type TerminalSnapshot struct {
	SessionID SessionID `json:"session_id"`
	Revealed  bool      `json:"revealed"`
	Viewport  Viewport  `json:"viewport"`
	Data      []byte    `json:"data"`
	End       int64     `json:"end"`
}
