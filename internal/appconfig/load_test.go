package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pkt.systems/hybridterm/schema"
)

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 7
shell:
  path: /bin/sh
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRequiresConfigVersion(t *testing.T) {
	path := writeConfig(t, `
shell:
  path: /bin/sh
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config_version is required") {
		t.Fatalf("expected missing config_version error, got %v", err)
	}
}

func TestLoadRejectsUnknownRenderMode(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
render:
  mode: fancy
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "render.mode") {
		t.Fatalf("expected render.mode error, got %v", err)
	}
}

func TestLoadRejectsNegativeTiming(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
classifier:
  cooldown_ms: -5
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "classifier") {
		t.Fatalf("expected classifier error, got %v", err)
	}
}

func TestLoadRejectsInvalidHTTPBasePath(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
http:
  base_path: https://example.com/term
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "http.base_path") {
		t.Fatalf("expected base_path error, got %v", err)
	}
}

func TestLoadAppliesClassifierOverrides(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
state_dir: $HT_TEST_STATE/state
shell:
  path: /bin/bash
  args: ["-l"]
render:
  mode: rendered
  cols: 132
  rows: 50
classifier:
  cooldown_ms: 1500
  prompt_gate_chars: 300
`)
	t.Setenv("HT_TEST_STATE", "/tmp/ht")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StateDir != "/tmp/ht/state" {
		t.Fatalf("expected expanded state dir, got %q", cfg.StateDir)
	}
	mode, err := cfg.RenderMode()
	if err != nil || mode != schema.RenderRendered {
		t.Fatalf("unexpected render mode %q err=%v", mode, err)
	}
	svc, err := cfg.ServiceConfig()
	if err != nil {
		t.Fatalf("service config: %v", err)
	}
	if svc.Cooldown != 1500*time.Millisecond || svc.PromptGateChars != 300 {
		t.Fatalf("unexpected overrides %+v", svc)
	}
	if svc.LoadingDebounce != schema.DefaultLoadingDebounce || svc.EndDebounce != schema.DefaultEndDebounce {
		t.Fatalf("expected defaults for unset timings, got %+v", svc)
	}
	if svc.DefaultViewport != (schema.Viewport{Cols: 132, Rows: 50}) {
		t.Fatalf("unexpected viewport %+v", svc.DefaultViewport)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ConfigVersion != CurrentConfigVersion || cfg.Render.Mode != string(schema.RenderAbstracted) {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$UID/$GID/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if strings.Contains(value, "$UID") || strings.Contains(value, "$GID") {
		t.Fatalf("expected UID/GID expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("expected written default to load: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
