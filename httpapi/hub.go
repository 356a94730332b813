package httpapi

import (
	"context"
	"sync"
	"time"

	"pkt.systems/hybridterm/schema"
	"pkt.systems/pslog"
)

// Stream event types.
const (
	StreamSnapshot = "snapshot"
	StreamBlock    = "block"
	StreamOutput   = "output"
	StreamStatus   = "status"
	StreamReveal   = "reveal"
	StreamInfo     = "info"
	StreamSession  = "session"
)

// StreamEvent is sent to SSE clients.
type StreamEvent struct {
	Seq       uint64               `json:"seq"`
	Type      string               `json:"type"`
	SessionID schema.SessionID     `json:"session_id,omitempty"`
	Block     *schema.BlockEvent   `json:"block,omitempty"`
	Output    *schema.OutputEvent  `json:"output,omitempty"`
	Status    *schema.StatusEvent  `json:"status,omitempty"`
	Reveal    *schema.RevealEvent  `json:"reveal,omitempty"`
	Info      *schema.InfoEvent    `json:"info,omitempty"`
	Session   *schema.SessionEvent `json:"session,omitempty"`
	Snapshot  *SnapshotPayload     `json:"snapshot,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// SnapshotPayload seeds client state on connect.
type SnapshotPayload struct {
	Sessions []schema.SessionSnapshot                `json:"sessions"`
	Blocks   map[schema.SessionID][]schema.Block     `json:"blocks,omitempty"`
	Info     map[schema.SessionID]schema.SessionInfo `json:"info,omitempty"`
}

// Hub fans service events out to stream subscribers and keeps a bounded,
// globally sequenced history for Last-Event-ID replay.
type Hub struct {
	mu          sync.Mutex
	seq         uint64
	history     []StreamEvent
	historySize int
	subs        map[chan StreamEvent]schema.SessionID
	now         func() time.Time
	logger      pslog.Logger
}

// NewHub constructs a hub with the given history size.
func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = 1000
	}
	return &Hub{
		historySize: historySize,
		subs:        make(map[chan StreamEvent]schema.SessionID),
		now:         time.Now,
		logger:      pslog.Ctx(context.Background()),
	}
}

// SetLogger replaces the hub logger.
func (h *Hub) SetLogger(logger pslog.Logger) {
	if logger == nil {
		return
	}
	h.mu.Lock()
	h.logger = logger
	h.mu.Unlock()
}

// OnBlock implements core.EventSink.
func (h *Hub) OnBlock(event schema.BlockEvent) {
	h.publish(StreamEvent{Type: StreamBlock, SessionID: event.SessionID, Block: &event})
}

// OnOutput implements core.EventSink.
func (h *Hub) OnOutput(event schema.OutputEvent) {
	h.publish(StreamEvent{Type: StreamOutput, SessionID: event.SessionID, Output: &event})
}

// OnStatus implements core.EventSink.
func (h *Hub) OnStatus(event schema.StatusEvent) {
	h.publish(StreamEvent{Type: StreamStatus, SessionID: event.SessionID, Status: &event})
}

// OnReveal implements core.EventSink.
func (h *Hub) OnReveal(event schema.RevealEvent) {
	h.publish(StreamEvent{Type: StreamReveal, SessionID: event.SessionID, Reveal: &event})
}

// OnSessionInfo implements core.EventSink.
func (h *Hub) OnSessionInfo(event schema.InfoEvent) {
	h.publish(StreamEvent{Type: StreamInfo, SessionID: event.SessionID, Info: &event})
}

// OnSession implements core.EventSink.
func (h *Hub) OnSession(event schema.SessionEvent) {
	h.publish(StreamEvent{Type: StreamSession, SessionID: event.Session.ID, Session: &event})
}

// Subscribe registers a subscriber for one session, or for every session when
// id is empty. It returns the sequence number of the last event already
// published; every later event reaches the channel unless it overflows.
func (h *Hub) Subscribe(id schema.SessionID) (<-chan StreamEvent, func(), uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan StreamEvent, 256)
	h.subs[ch] = id
	seq := h.seq
	log := h.logger.With("session", id)
	log.Debug("hub subscribe", "subs", len(h.subs), "seq", seq)
	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			remaining := len(h.subs)
			h.mu.Unlock()
			log.Debug("hub unsubscribe", "subs", remaining)
		})
	}
	return ch, unsub, seq
}

// Replay returns retained events with after < seq <= upto for the session,
// or for every session when id is empty.
func (h *Hub) Replay(id schema.SessionID, after, upto uint64) []StreamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	events := make([]StreamEvent, 0, len(h.history))
	for _, event := range h.history {
		if event.Seq <= after || event.Seq > upto {
			continue
		}
		if id != "" && event.SessionID != id {
			continue
		}
		events = append(events, event)
	}
	h.logger.Debug("hub replay", "session", id, "after", after, "count", len(events))
	return events
}

func (h *Hub) publish(event StreamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	event.Seq = h.seq
	event.Timestamp = h.now()
	h.history = append(h.history, event)
	if len(h.history) > h.historySize {
		h.history = h.history[len(h.history)-h.historySize:]
	}
	dropped := 0
	for sub, id := range h.subs {
		if id != "" && id != event.SessionID {
			continue
		}
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("hub event dropped", "session", event.SessionID, "type", event.Type, "dropped", dropped)
	}
}
