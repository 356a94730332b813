package core

import (
	"context"

	"pkt.systems/hybridterm/schema"
)

// Service is the transport-agnostic API of the classification pipeline.
//
// OnData and OnExit sit on the PTY hot path: they never return errors and
// ignore unknown sessions. Submit only records the command; writing it to the
// PTY is the caller's job.
type Service interface {
	OpenSession(ctx context.Context, req schema.OpenSessionRequest) (schema.OpenSessionResponse, error)
	CloseSession(ctx context.Context, id schema.SessionID) error
	OnData(id schema.SessionID, chunk []byte)
	OnExit(id schema.SessionID, code int)
	Submit(ctx context.Context, id schema.SessionID, text string) (schema.SubmitResult, error)
	SetRenderMode(ctx context.Context, id schema.SessionID, mode schema.RenderMode) error
	SetViewport(ctx context.Context, id schema.SessionID, cols, rows int) error
	ComposeStart(id schema.SessionID) error
	ComposeEnd(id schema.SessionID) error
	PostTeammate(ctx context.Context, id schema.SessionID, name, text string) (schema.Block, error)

	Blocks(id schema.SessionID) ([]schema.Block, error)
	Status(id schema.SessionID) (schema.SessionStatus, error)
	SessionInfo(id schema.SessionID) (schema.SessionInfo, error)
	Revealed(id schema.SessionID) (bool, error)
	Session(id schema.SessionID) (schema.SessionSnapshot, error)
	Terminal(id schema.SessionID) (schema.TerminalSnapshot, error)
	ListSessions() []schema.SessionSnapshot

	// Close tears down every session and stops the background dispatcher.
	Close(ctx context.Context) error
}
