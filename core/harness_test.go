package core

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"pkt.systems/hybridterm/internal/clock"
	"pkt.systems/hybridterm/schema"
)

type recordingSink struct {
	mu       sync.Mutex
	blocks   []schema.BlockEvent
	outputs  []schema.OutputEvent
	statuses []schema.StatusEvent
	reveals  []schema.RevealEvent
	infos    []schema.InfoEvent
	sessions []schema.SessionEvent
}

func (s *recordingSink) OnBlock(event schema.BlockEvent) {
	s.mu.Lock()
	s.blocks = append(s.blocks, event)
	s.mu.Unlock()
}

func (s *recordingSink) OnOutput(event schema.OutputEvent) {
	s.mu.Lock()
	s.outputs = append(s.outputs, event)
	s.mu.Unlock()
}

func (s *recordingSink) OnStatus(event schema.StatusEvent) {
	s.mu.Lock()
	s.statuses = append(s.statuses, event)
	s.mu.Unlock()
}

func (s *recordingSink) OnReveal(event schema.RevealEvent) {
	s.mu.Lock()
	s.reveals = append(s.reveals, event)
	s.mu.Unlock()
}

func (s *recordingSink) OnSessionInfo(event schema.InfoEvent) {
	s.mu.Lock()
	s.infos = append(s.infos, event)
	s.mu.Unlock()
}

func (s *recordingSink) OnSession(event schema.SessionEvent) {
	s.mu.Lock()
	s.sessions = append(s.sessions, event)
	s.mu.Unlock()
}

func (s *recordingSink) statusSequence() []schema.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.SessionStatus, 0, len(s.statuses))
	for _, event := range s.statuses {
		out = append(out, event.Status)
	}
	return out
}

func (s *recordingSink) blockEvents() []schema.BlockEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.BlockEvent(nil), s.blocks...)
}

func (s *recordingSink) outputEvents() []schema.OutputEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.OutputEvent(nil), s.outputs...)
}

func (s *recordingSink) revealEvents() []schema.RevealEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.RevealEvent(nil), s.reveals...)
}

func (s *recordingSink) infoEvents() []schema.InfoEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.InfoEvent(nil), s.infos...)
}

func (s *recordingSink) eventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocks) + len(s.statuses) + len(s.reveals) + len(s.infos)
}

type fakeEmulator struct {
	mu      sync.Mutex
	written strings.Builder
	sizes   []schema.Viewport
	focused bool
	closed  bool
}

func (e *fakeEmulator) Write(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.written.Write(p)
	return len(p), nil
}

func (e *fakeEmulator) Resize(cols, rows int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sizes = append(e.sizes, schema.Viewport{Cols: cols, Rows: rows})
	return nil
}

func (e *fakeEmulator) Snapshot() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return []byte(e.written.String())
}

func (e *fakeEmulator) Focus() {
	e.mu.Lock()
	e.focused = true
	e.mu.Unlock()
}

func (e *fakeEmulator) Blur() {
	e.mu.Lock()
	e.focused = false
	e.mu.Unlock()
}

func (e *fakeEmulator) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return nil
}

func (e *fakeEmulator) lastSize() schema.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.sizes) == 0 {
		return schema.Viewport{}
	}
	return e.sizes[len(e.sizes)-1]
}

type fakePTY struct {
	mu    sync.Mutex
	sizes []schema.Viewport
}

func (p *fakePTY) ResizePTY(_ context.Context, _ schema.SessionID, cols, rows int) error {
	p.mu.Lock()
	p.sizes = append(p.sizes, schema.Viewport{Cols: cols, Rows: rows})
	p.mu.Unlock()
	return nil
}

func (p *fakePTY) lastSize() schema.Viewport {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sizes) == 0 {
		return schema.Viewport{}
	}
	return p.sizes[len(p.sizes)-1]
}

type memoryStore struct {
	mu       sync.Mutex
	created  []schema.ConversationID
	messages []schema.Message
	info     schema.SessionInfo
	merges   int
}

func (m *memoryStore) CreateConversation(_ context.Context, _ schema.SessionID, conv schema.ConversationID, _ time.Time) error {
	m.mu.Lock()
	m.created = append(m.created, conv)
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) AppendMessage(_ context.Context, _ schema.SessionID, _ schema.ConversationID, msg schema.Message) error {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) MergeSessionInfo(_ context.Context, _ schema.SessionID, info schema.SessionInfo) error {
	m.mu.Lock()
	m.info = m.info.Merge(info)
	m.merges++
	m.mu.Unlock()
	return nil
}

type harness struct {
	t     *testing.T
	svc   Service
	clock *clock.Fake
	sink  *recordingSink
	emu   *fakeEmulator
	pty   *fakePTY
	store *memoryStore
	id    schema.SessionID
}

var testViewport = schema.Viewport{Cols: 120, Rows: 40}

func newHarness(t *testing.T, mode schema.RenderMode) *harness {
	t.Helper()
	return newHarnessWithConfig(t, mode, schema.DefaultClassifierConfig())
}

func newHarnessWithConfig(t *testing.T, mode schema.RenderMode, cfg schema.ClassifierConfig) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		clock: clock.NewFake(time.Time{}),
		sink:  &recordingSink{},
		emu:   &fakeEmulator{},
		pty:   &fakePTY{},
		store: &memoryStore{},
		id:    "s1",
	}
	svc, err := NewService(cfg, ServiceDeps{
		EventSink:         h.sink,
		Emulators:         func(schema.SessionID, schema.Viewport) (Emulator, error) { return h.emu, nil },
		PTYSizer:          h.pty,
		ConversationStore: h.store,
		InfoStore:         h.store,
		Clock:             h.clock,
		Dispatch:          func(fn func()) { fn() },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	h.svc = svc
	if _, err := svc.OpenSession(context.Background(), schema.OpenSessionRequest{ID: h.id, Mode: mode, Viewport: testViewport}); err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return h
}

func (h *harness) feed(chunks ...string) {
	for _, chunk := range chunks {
		h.svc.OnData(h.id, []byte(chunk))
	}
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
}

func (h *harness) submit(text string) schema.SubmitResult {
	h.t.Helper()
	result, err := h.svc.Submit(context.Background(), h.id, text)
	if err != nil {
		h.t.Fatalf("submit %q: %v", text, err)
	}
	return result
}

func (h *harness) blocks() []schema.Block {
	h.t.Helper()
	blocks, err := h.svc.Blocks(h.id)
	if err != nil {
		h.t.Fatalf("blocks: %v", err)
	}
	return blocks
}

func (h *harness) status() schema.SessionStatus {
	h.t.Helper()
	status, err := h.svc.Status(h.id)
	if err != nil {
		h.t.Fatalf("status: %v", err)
	}
	return status
}

func (h *harness) revealed() bool {
	h.t.Helper()
	revealed, err := h.svc.Revealed(h.id)
	if err != nil {
		h.t.Fatalf("revealed: %v", err)
	}
	return revealed
}

func equalStatuses(got []schema.SessionStatus, want ...schema.SessionStatus) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
