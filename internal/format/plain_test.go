package format

import (
	"strings"
	"testing"

	"pkt.systems/hybridterm/schema"
)

func TestFormatBlockSkipsStreamingAndDropped(t *testing.T) {
	p := NewPlainRenderer(80, nil)
	block := schema.Block{Type: schema.BlockOutput, Content: "hello\n", IsStreaming: true}
	if lines := p.FormatBlock(schema.BlockEvent{Block: block}); lines != nil {
		t.Fatalf("expected streaming snapshot to be skipped, got %v", lines)
	}
	block.IsStreaming = false
	if lines := p.FormatBlock(schema.BlockEvent{Block: block, Dropped: true}); lines != nil {
		t.Fatalf("expected dropped block to be skipped, got %v", lines)
	}
}

func TestFormatBlockStripsOutput(t *testing.T) {
	p := NewPlainRenderer(80, nil)
	lines := p.FormatBlock(schema.BlockEvent{Block: schema.Block{Type: schema.BlockOutput, Content: "\x1b[32mok\x1b[0m\r\nnext\r\n"}})
	if len(lines) != 2 || lines[0] != "ok" || lines[1] != "next" {
		t.Fatalf("unexpected lines %q", lines)
	}
}

func TestFormatCommandAndSystem(t *testing.T) {
	p := NewPlainRenderer(80, nil)
	lines := p.FormatBlock(schema.BlockEvent{Block: schema.Block{Type: schema.BlockCommand, Content: "ls -la"}})
	if len(lines) != 1 || lines[0] != "$ ls -la" {
		t.Fatalf("unexpected command lines %q", lines)
	}
	lines = p.FormatBlock(schema.BlockEvent{Block: schema.Block{Type: schema.BlockSystem, Content: "Process exited with code 0"}})
	if len(lines) != 1 || lines[0] != "[system] Process exited with code 0" {
		t.Fatalf("unexpected system lines %q", lines)
	}
	lines = p.FormatBlock(schema.BlockEvent{Block: schema.Block{Type: schema.BlockTeammate, TeammateName: "reviewer", Content: "lgtm"}})
	if len(lines) != 1 || lines[0] != "[reviewer] lgtm" {
		t.Fatalf("unexpected teammate lines %q", lines)
	}
}

func TestFormatAgentAddsToolLabels(t *testing.T) {
	p := NewPlainRenderer(30, nil)
	content := "⏺ Read(internal/some/really/long/path/to/file.go)\n"
	lines := p.FormatBlock(schema.BlockEvent{Block: schema.Block{Type: schema.BlockAgent, Content: content}})
	if len(lines) != 2 {
		t.Fatalf("expected agent line and tool label, got %q", lines)
	}
	if !strings.HasPrefix(lines[0], agentPrefix) {
		t.Fatalf("expected agent prefix, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], toolPrefix+"Read ") || !strings.HasSuffix(lines[1], "…") {
		t.Fatalf("expected truncated tool label, got %q", lines[1])
	}
}

func TestFormatInfo(t *testing.T) {
	p := NewPlainRenderer(80, nil)
	if lines := p.FormatInfo(schema.InfoEvent{}); lines != nil {
		t.Fatalf("expected no lines for empty info, got %q", lines)
	}
	model := "opus"
	in := int64(1200)
	lines := p.FormatInfo(schema.InfoEvent{Info: schema.SessionInfo{Model: &model, InputTokens: &in}})
	if len(lines) != 1 || lines[0] != "info: model opus · in 1200" {
		t.Fatalf("unexpected info lines %q", lines)
	}
	if got := p.FormatStatus(schema.StatusEvent{Status: schema.StatusLoading}); got[0] != "status: loading" {
		t.Fatalf("unexpected status line %q", got)
	}
	if got := p.FormatReveal(schema.RevealEvent{Revealed: true, Reason: schema.RevealAltScreen}); got[0] != "terminal revealed (alt_screen)" {
		t.Fatalf("unexpected reveal line %q", got)
	}
}
