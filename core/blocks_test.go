package core

import (
	"strings"
	"testing"
	"time"

	"pkt.systems/hybridterm/schema"
)

func TestBlockEchoSuppressedOnce(t *testing.T) {
	b := newBlockAccumulator(0)
	b.submit(epoch, "ls")
	if _, _, ok := b.ingest(epoch, "ls\r\n", "ls\n", schema.BlockOutput); ok {
		t.Fatalf("expected echo to be suppressed")
	}
	if _, snap, ok := b.ingest(epoch, "ls\r\n", "ls\n", schema.BlockOutput); !ok || snap.Content != "ls\r\n" {
		t.Fatalf("expected second occurrence to be kept, got %+v ok=%v", snap, ok)
	}
}

func TestBlockEchoClearedByBlankChunk(t *testing.T) {
	b := newBlockAccumulator(0)
	b.submit(epoch, "make build\nsecond line")
	if b.echo != "make build" {
		t.Fatalf("expected first line as echo token, got %q", b.echo)
	}
	if _, _, ok := b.ingest(epoch, "\r\n", "\n", schema.BlockOutput); !ok {
		t.Fatalf("blank chunk is regular output")
	}
	if b.echo != "" {
		t.Fatalf("expected blank chunk to clear the echo token")
	}
	if _, _, ok := b.ingest(epoch, "make build", "make build", schema.BlockOutput); !ok {
		t.Fatalf("expected chunk after blank to be kept")
	}
}

func TestBlockStreamingIsMonotonic(t *testing.T) {
	b := newBlockAccumulator(0)
	var prev schema.Block
	for i, chunk := range []string{"a", "\x1b[1mb", "c\r\n"} {
		_, snap, ok := b.ingest(epoch, chunk, chunk, schema.BlockOutput)
		if !ok || !snap.IsStreaming {
			t.Fatalf("chunk %d: expected streaming snapshot", i)
		}
		if i > 0 && (snap.ID != prev.ID || !strings.HasPrefix(snap.Content, prev.Content)) {
			t.Fatalf("chunk %d: snapshot %q does not extend %q", i, snap.Content, prev.Content)
		}
		prev = snap
	}
}

func TestBlockTypeFlipFinalizes(t *testing.T) {
	b := newBlockAccumulator(0)
	b.ingest(epoch, "$ ", "$ ", schema.BlockOutput)
	finalized, snap, ok := b.ingest(epoch, "╭─ Reading\n", "╭─ Reading\n", schema.BlockAgent)
	if !ok || len(finalized) != 1 {
		t.Fatalf("expected one finalized block, got %+v", finalized)
	}
	if finalized[0].Block.Type != schema.BlockOutput || finalized[0].Block.IsStreaming {
		t.Fatalf("unexpected finalized block %+v", finalized[0].Block)
	}
	if snap.Type != schema.BlockAgent || snap.Content != "╭─ Reading\n" {
		t.Fatalf("unexpected agent snapshot %+v", snap)
	}
	streaming := 0
	for _, block := range b.blocks() {
		if block.IsStreaming {
			streaming++
		}
	}
	if streaming != 1 {
		t.Fatalf("expected a single streaming block, got %d", streaming)
	}
}

func TestBlockWhitespaceDroppedAtFinalize(t *testing.T) {
	b := newBlockAccumulator(0)
	_, snap, ok := b.ingest(epoch, "\x1b[0m  \r\n", "  \n", schema.BlockOutput)
	if !ok || !snap.IsStreaming {
		t.Fatalf("whitespace still streams")
	}
	update, done := b.finalize()
	if !done || !update.Dropped {
		t.Fatalf("expected dropped block, got %+v", update)
	}
	if len(b.blocks()) != 0 {
		t.Fatalf("dropped block must not enter history")
	}
}

func TestBlockSubmitAndExit(t *testing.T) {
	b := newBlockAccumulator(0)
	b.ingest(epoch, "out\n", "out\n", schema.BlockOutput)
	updates := b.submit(epoch.Add(time.Second), "git status")
	if len(updates) != 2 || updates[1].Block.Type != schema.BlockCommand || updates[1].Block.Content != "git status" {
		t.Fatalf("unexpected submit updates %+v", updates)
	}
	updates = b.exit(epoch.Add(2*time.Second), 3)
	last := updates[len(updates)-1].Block
	if last.Type != schema.BlockSystem || last.Content != "Process exited with code 3" || last.IsStreaming {
		t.Fatalf("unexpected exit block %+v", last)
	}
	if b.streaming() {
		t.Fatalf("no block should stream after exit")
	}
	if got := len(b.blocks()); got != 3 {
		t.Fatalf("expected 3 blocks, got %d", got)
	}
}

func TestBlockTeammate(t *testing.T) {
	b := newBlockAccumulator(0)
	updates := b.teammate(epoch, "reviewer", "looks good")
	block := updates[len(updates)-1].Block
	if block.Type != schema.BlockTeammate || block.TeammateName != "reviewer" || block.Content != "looks good" {
		t.Fatalf("unexpected teammate block %+v", block)
	}
}

func TestEchoToken(t *testing.T) {
	cases := map[string]string{
		"ls":             "ls",
		"  git status  ": "git status",
		"\n\necho hi\nx": "echo hi",
		"   ":            "",
	}
	for in, want := range cases {
		if got := echoToken(in); got != want {
			t.Fatalf("echoToken(%q) = %q, want %q", in, got, want)
		}
	}
}
