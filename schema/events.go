package schema

import "time"

// BlockEvent reports a new or updated block.
// Streaming snapshots share the block id of the block they update.
// Dropped marks a streaming block that finalized with only whitespace; the
// renderer should remove it.
type BlockEvent struct {
	SessionID SessionID `json:"session_id"`
	Block     Block     `json:"block"`
	Dropped   bool      `json:"dropped,omitempty"`
}

// StatusEvent reports a tab status transition.
type StatusEvent struct {
	SessionID SessionID     `json:"session_id"`
	Status    SessionStatus `json:"status"`
	At        time.Time     `json:"at"`
}

// RevealEvent reports that the raw terminal was revealed or hidden.
// Revealed true means the raw terminal should take focus.
type RevealEvent struct {
	SessionID SessionID    `json:"session_id"`
	Revealed  bool         `json:"revealed"`
	Reason    RevealReason `json:"reason"`
	Viewport  Viewport     `json:"viewport"`
}

// RevealReason explains a reveal transition.
type RevealReason string

const (
	// RevealAgentActive is an agent turn starting.
	RevealAgentActive RevealReason = "agent_active"
	// RevealAgentLaunch is the user submitting a command that launches the agent.
	RevealAgentLaunch RevealReason = "agent_launch"
	// RevealAltScreen is a program switching to the alternate screen.
	RevealAltScreen RevealReason = "alt_screen"
	// RevealPrompt is the shell prompt returning.
	RevealPrompt RevealReason = "prompt"
	// RevealExit is the PTY process exiting.
	RevealExit RevealReason = "exit"
	// RevealModeChange is the render mode switching away from abstracted.
	RevealModeChange RevealReason = "mode_change"
)

// OutputEvent carries raw PTY bytes while the terminal emulator is the
// visible surface. Offset is the position of Data in the session's output
// stream, comparable with TerminalSnapshot.End.
type OutputEvent struct {
	SessionID SessionID `json:"session_id"`
	Offset    int64     `json:"offset"`
	Data      []byte    `json:"data"`
}

// InfoEvent carries merged session info after throttling.
type InfoEvent struct {
	SessionID SessionID   `json:"session_id"`
	Info      SessionInfo `json:"info"`
}

// SessionEventType identifies a session lifecycle event.
type SessionEventType string

const (
	// SessionOpened indicates a session was opened.
	SessionOpened SessionEventType = "opened"
	// SessionExited indicates the session's process exited.
	SessionExited SessionEventType = "exited"
	// SessionClosed indicates the session was torn down.
	SessionClosed SessionEventType = "closed"
	// SessionModeChanged indicates the render mode changed.
	SessionModeChanged SessionEventType = "mode_changed"
)

// SessionEvent reports a session lifecycle change.
type SessionEvent struct {
	Type    SessionEventType `json:"type"`
	Session SessionSnapshot  `json:"session"`
}
