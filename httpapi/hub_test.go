package httpapi

import (
	"testing"

	"pkt.systems/hybridterm/schema"
)

func TestHubSequencesAndFilters(t *testing.T) {
	hub := NewHub(10)
	all, unsubAll, seq := hub.Subscribe("")
	defer unsubAll()
	one, unsubOne, _ := hub.Subscribe("a")
	defer unsubOne()
	if seq != 0 {
		t.Fatalf("expected empty hub, got seq %d", seq)
	}

	hub.OnStatus(schema.StatusEvent{SessionID: "a", Status: schema.StatusRunning})
	hub.OnStatus(schema.StatusEvent{SessionID: "b", Status: schema.StatusRunning})
	hub.OnBlock(schema.BlockEvent{SessionID: "a", Block: schema.Block{ID: "blk"}})

	if got := len(all); got != 3 {
		t.Fatalf("expected wildcard subscriber to see 3 events, got %d", got)
	}
	if got := len(one); got != 2 {
		t.Fatalf("expected session subscriber to see 2 events, got %d", got)
	}
	first := <-one
	second := <-one
	if first.Seq != 1 || second.Seq != 3 || second.Type != StreamBlock || second.Block.Block.ID != "blk" {
		t.Fatalf("unexpected events %+v %+v", first, second)
	}
}

func TestHubReplayWindow(t *testing.T) {
	hub := NewHub(3)
	for i := 0; i < 5; i++ {
		hub.OnStatus(schema.StatusEvent{SessionID: "a", Status: schema.StatusRunning})
	}
	events := hub.Replay("a", 0, 5)
	if len(events) != 3 || events[0].Seq != 3 {
		t.Fatalf("expected trimmed history starting at 3, got %+v", events)
	}
	events = hub.Replay("a", 3, 4)
	if len(events) != 1 || events[0].Seq != 4 {
		t.Fatalf("expected only seq 4, got %+v", events)
	}
	if events := hub.Replay("b", 0, 5); len(events) != 0 {
		t.Fatalf("expected no events for other session, got %d", len(events))
	}
}

func TestHubUnsubscribeIsIdempotent(t *testing.T) {
	hub := NewHub(1)
	ch, unsub, _ := hub.Subscribe("a")
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	hub.OnSession(schema.SessionEvent{Type: schema.SessionClosed, Session: schema.SessionSnapshot{ID: "a"}})
}
