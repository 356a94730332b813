package core

import (
	"testing"

	"pkt.systems/hybridterm/schema"
)

func TestBlockHistoryRespectsMaxBlocks(t *testing.T) {
	h := newBlockHistory(3)
	for _, id := range []schema.BlockID{"one", "two", "three", "four", "five"} {
		h.Append(schema.Block{ID: id})
	}
	if got := len(h.Snapshot(0)); got != 3 {
		t.Fatalf("expected 3 blocks, got %d", got)
	}
	if h.Trimmed() != 2 {
		t.Fatalf("expected 2 trimmed, got %d", h.Trimmed())
	}
	view := h.Snapshot(0)
	if view[0].ID != "three" || view[2].ID != "five" {
		t.Fatalf("unexpected blocks: %+v", view)
	}
}

func TestBlockHistorySnapshotLimit(t *testing.T) {
	h := newBlockHistory(10)
	h.Append(schema.Block{ID: "a"}, schema.Block{ID: "b"}, schema.Block{ID: "c"})
	view := h.Snapshot(2)
	if len(view) != 2 || view[0].ID != "b" || view[1].ID != "c" {
		t.Fatalf("unexpected snapshot: %+v", view)
	}
	view[0].Content = "mutated"
	if again := h.Snapshot(0); again[1].Content != "" {
		t.Fatalf("snapshot aliases history")
	}
}

func TestBlockHistoryDefaultLimit(t *testing.T) {
	h := newBlockHistory(0)
	if h.maxBlocks != defaultMaxBlocks {
		t.Fatalf("expected default max blocks, got %d", h.maxBlocks)
	}
	if got := h.Snapshot(5); len(got) != 0 {
		t.Fatalf("expected empty history, got %+v", got)
	}
}
