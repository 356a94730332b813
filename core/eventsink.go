package core

import "pkt.systems/hybridterm/schema"

// EventSink receives block, output, status, reveal, info and lifecycle events
// from the core service. Events of one session arrive in order and never while the
// session lock is held.
type EventSink interface {
	OnBlock(event schema.BlockEvent)
	OnOutput(event schema.OutputEvent)
	OnStatus(event schema.StatusEvent)
	OnReveal(event schema.RevealEvent)
	OnSessionInfo(event schema.InfoEvent)
	OnSession(event schema.SessionEvent)
}
