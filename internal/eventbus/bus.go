package eventbus

import (
	"context"
	"sync"
	"sync/atomic"

	"pkt.systems/hybridterm/schema"
	"pkt.systems/pslog"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventBlock carries a block snapshot or finalized block.
	EventBlock EventType = "block"
	// EventOutput carries raw PTY bytes for a visible terminal.
	EventOutput EventType = "output"
	// EventStatus carries a session status transition.
	EventStatus EventType = "status"
	// EventReveal carries a terminal reveal or hide.
	EventReveal EventType = "reveal"
	// EventInfo carries merged session info.
	EventInfo EventType = "info"
	// EventSession carries session lifecycle updates.
	EventSession EventType = "session"
)

// AllSessions subscribes to every session.
const AllSessions schema.SessionID = ""

// Event represents a UI-facing event emitted by the core service.
type Event struct {
	Type    EventType
	Session schema.SessionID
	Block   schema.BlockEvent
	Output  schema.OutputEvent
	Status  schema.StatusEvent
	Reveal  schema.RevealEvent
	Info    schema.InfoEvent
	Life    schema.SessionEvent
}

// Bus fans out events to per-session and wildcard subscribers. Publishing never
// blocks; events for a full subscriber are dropped and counted.
type Bus struct {
	mu      sync.Mutex
	subs    map[schema.SessionID]map[chan Event]struct{}
	log     pslog.Logger
	depth   int
	dropped atomic.Int64
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.SessionID]map[chan Event]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for the session, or for every session when
// id is AllSessions, and returns a channel + cancel.
func (b *Bus) Subscribe(id schema.SessionID) (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	sessionSubs := b.subs[id]
	if sessionSubs == nil {
		sessionSubs = make(map[chan Event]struct{})
		b.subs[id] = sessionSubs
	}
	sessionSubs[ch] = struct{}{}
	count := len(sessionSubs)
	b.mu.Unlock()
	b.log.With("session", id).Debug("eventbus subscribe", "subs", count)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[id]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, id)
				}
			}
			close(ch)
			b.mu.Unlock()
			b.log.With("session", id).Debug("eventbus unsubscribe")
		})
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// OnBlock publishes a block event.
func (b *Bus) OnBlock(event schema.BlockEvent) {
	b.publish(Event{Type: EventBlock, Session: event.SessionID, Block: event})
}

// OnOutput publishes raw terminal output.
func (b *Bus) OnOutput(event schema.OutputEvent) {
	b.publish(Event{Type: EventOutput, Session: event.SessionID, Output: event})
}

// OnStatus publishes a status event.
func (b *Bus) OnStatus(event schema.StatusEvent) {
	b.publish(Event{Type: EventStatus, Session: event.SessionID, Status: event})
}

// OnReveal publishes a reveal event.
func (b *Bus) OnReveal(event schema.RevealEvent) {
	b.publish(Event{Type: EventReveal, Session: event.SessionID, Reveal: event})
}

// OnSessionInfo publishes a session info event.
func (b *Bus) OnSessionInfo(event schema.InfoEvent) {
	b.publish(Event{Type: EventInfo, Session: event.SessionID, Info: event})
}

// OnSession publishes a session lifecycle event.
func (b *Bus) OnSession(event schema.SessionEvent) {
	b.publish(Event{Type: EventSession, Session: event.Session.ID, Life: event})
}

// publish delivers under the lock so a concurrent cancel never closes a
// channel that is being sent to. Sends are non-blocking.
func (b *Bus) publish(event Event) {
	if b == nil {
		return
	}
	dropped := 0
	b.mu.Lock()
	for _, key := range []schema.SessionID{event.Session, AllSessions} {
		for sub := range b.subs[key] {
			select {
			case sub <- event:
			default:
				dropped++
			}
		}
		if event.Session == AllSessions {
			break
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.dropped.Add(int64(dropped))
		b.log.With("session", event.Session).Trace("eventbus dropped", "count", dropped, "type", event.Type)
	}
}
