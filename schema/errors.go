package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidSession indicates an empty or malformed session identifier.
	ErrInvalidSession = errors.New("invalid session")
	// ErrSessionNotFound indicates a requested session could not be found.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists indicates a session with the same id is already open.
	ErrSessionExists = errors.New("session already exists")
	// ErrEmptyCommand indicates the submitted command was empty.
	ErrEmptyCommand = errors.New("empty command")
	// ErrComposing indicates a submit arrived while an input method composition is active.
	ErrComposing = errors.New("input composition in progress")
	// ErrInvalidRenderMode indicates an unknown render mode.
	ErrInvalidRenderMode = errors.New("invalid render mode")
	// ErrInvalidViewport indicates a non-positive terminal size.
	ErrInvalidViewport = errors.New("invalid viewport")
	// ErrInvalidPattern indicates a pattern library entry could not be registered.
	ErrInvalidPattern = errors.New("invalid pattern")
)
