package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/hybridterm/internal/appconfig"
	"pkt.systems/hybridterm/internal/format"
	"pkt.systems/hybridterm/schema"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"run": false, "serve": false, "replay": false, "config": false, "version": false}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("expected root command to include %s", name)
		}
	}
}

func TestEnvList(t *testing.T) {
	got := envList(map[string]string{"B": "2", "A": "1"})
	if len(got) != 2 || got[0] != "A=1" || got[1] != "B=2" {
		t.Fatalf("unexpected env list %v", got)
	}
	if envList(nil) != nil {
		t.Fatalf("expected nil for empty env")
	}
}

func TestResolveMode(t *testing.T) {
	cfg := appconfig.Config{Render: appconfig.RenderConfig{Mode: "hybrid"}}
	if mode, err := resolveMode("", cfg); err != nil || mode != schema.RenderHybrid {
		t.Fatalf("expected configured mode, got %s %v", mode, err)
	}
	if mode, err := resolveMode("terminal", cfg); err != nil || mode != schema.RenderTerminal {
		t.Fatalf("expected flag mode, got %s %v", mode, err)
	}
	if _, err := resolveMode("fancy", cfg); err == nil {
		t.Fatalf("expected invalid mode error")
	}
}

func TestReplayCommandWithFakeClock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "turn.yaml")
	scenario := `
mode: rendered
steps:
  - submit: ls
  - data: "ls\r\n"
  - data: "file.txt\r\n"
  - after: 100ms
    data: "╭─ Reading file.txt\n"
`
	if err := os.WriteFile(path, []byte(scenario), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"replay", "--fake-clock", path})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("replay: %v", err)
	}
	text := out.String()
	for _, want := range []string{"$ ls", "file.txt", "status: running", "status: completed", "replay finished"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
}

func TestReplayCommandRejectsMissingFile(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"replay", "--fake-clock", filepath.Join(t.TempDir(), "missing.yaml")})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected error for missing scenario")
	}
}

func TestConfigInitWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"config", "init", "--config", path})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if strings.TrimSpace(out.String()) != path {
		t.Fatalf("expected written path, got %q", out.String())
	}
	if _, err := appconfig.Load(path); err != nil {
		t.Fatalf("expected written config to load: %v", err)
	}
	root = newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"config", "init", "--config", path})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected existing config to be kept without --force")
	}
}

func TestEventPrinterPrefixesSessions(t *testing.T) {
	var out bytes.Buffer
	printer := newEventPrinter(&out, format.NewPlainRenderer(80, nil))
	printer.prefix = true
	printer.OnStatus(schema.StatusEvent{SessionID: "s1", Status: schema.StatusRunning})
	if got := out.String(); got != "[s1] status: running\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEventPrinterCopiesRawOutput(t *testing.T) {
	var out bytes.Buffer
	printer := newEventPrinter(&out, format.NewPlainRenderer(80, nil))
	event := schema.OutputEvent{SessionID: "s1", Data: []byte("\x1b[2Jtop\r\n")}
	printer.OnOutput(event)
	if out.Len() != 0 {
		t.Fatalf("expected raw output skipped by default, got %q", out.String())
	}
	printer.raw = true
	printer.OnOutput(event)
	if got := out.String(); got != "\x1b[2Jtop\r\n" {
		t.Fatalf("expected bytes copied unchanged, got %q", got)
	}
}
