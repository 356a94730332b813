package patterns

import (
	"errors"
	"sync"
	"testing"

	"pkt.systems/hybridterm/schema"
)

func TestIsPromptRecognizesShells(t *testing.T) {
	lib := Default()
	cases := []struct {
		name string
		text string
	}{
		{"bash", "user@host:~/src$ "},
		{"root", "root@box:/# "},
		{"zsh", "host%"},
		{"cmd", `C:\Users\dev>`},
		{"powershell", `PS C:\Users\dev> `},
		{"arrow", "➜  myproj git:(main) ✗ "},
		{"chevron", "❯ "},
		{"lambda", "λ ~/code"},
		{"braille", "⣿ ~/src/hybridterm ❯"},
		{"after-output", "total 0\ndrwxr-xr-x 2 u u 40 .\n\nuser@host:~$ \n\n"},
	}
	for _, tc := range cases {
		if !lib.IsPrompt(tc.text) {
			t.Fatalf("%s: expected prompt match for %q", tc.name, tc.text)
		}
	}
}

func TestIsPromptIgnoresEarlierLines(t *testing.T) {
	lib := Default()
	cases := []string{
		"user@host:~$ \nstill running output",
		"price is $\nand more text here",
		"Downloading 100%",
		"",
		"\n\n  \n",
		"→ Next, I will update the configuration loader to read the new section",
	}
	for _, text := range cases {
		if lib.IsPrompt(text) {
			t.Fatalf("unexpected prompt match for %q", text)
		}
	}
}

func TestMatchAgent(t *testing.T) {
	lib := Default()
	cases := []struct {
		text string
		want string
	}{
		{"╭──────────────╮\n│ > hello      │", "box_corner"},
		{"⏺ Read(internal/ansi/strip.go)", "tool_call"},
		{"  ⎿  Read 42 lines", "tool_result"},
		{"(esc to interrupt)", "interrupt_hint"},
		{"✻ Thinking…", "spinner"},
		{"Welcome to Claude Code!", "product"},
		{"Powered by Anthropic", "vendor"},
	}
	for _, tc := range cases {
		got, ok := lib.MatchAgent(tc.text)
		if !ok || got != tc.want {
			t.Fatalf("MatchAgent(%q) = %q, %v; want %q", tc.text, got, ok, tc.want)
		}
	}
	if lib.IsAgent("ls -la\nREADME.md go.mod\n") {
		t.Fatalf("plain shell output should not match agent patterns")
	}
	if lib.IsAgent("") {
		t.Fatalf("empty text should not match")
	}
}

func TestTools(t *testing.T) {
	lib := Default()
	text := "⏺ Read(main.go)\n  ⎿  Read 10 lines\n⏺ Bash(go test ./...)\n⏺ Update(core/session.go)\nCreated file notes.txt"
	got := lib.Tools(text)
	want := []struct {
		kind   ToolKind
		target string
	}{
		{ToolRead, "main.go"},
		{ToolExecute, "go test ./..."},
		{ToolEdit, "core/session.go"},
		{ToolCreate, "notes.txt"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d tools, got %+v", len(want), got)
	}
	for i, w := range want {
		if got[i].Kind != w.kind || got[i].Target != w.target {
			t.Fatalf("tool %d = %+v, want %v %q", i, got[i], w.kind, w.target)
		}
	}
}

func TestToolActivityLabel(t *testing.T) {
	a := ToolActivity{Kind: ToolRead, Target: "internal/patterns/library.go"}
	if got := a.Label(0); got != "Read internal/patterns/library.go" {
		t.Fatalf("unexpected label: %q", got)
	}
	got := a.Label(12)
	if got != "Read intern…" {
		t.Fatalf("unexpected truncated label: %q", got)
	}
}

func TestIsAgentLaunch(t *testing.T) {
	lib := Default()
	yes := []string{"claude", "  claude --resume ", "/usr/local/bin/claude", "npx @anthropic-ai/claude-code", "npx -y @anthropic-ai/claude-code@latest", "DEBUG=1 claude"}
	no := []string{"", "ls", "claudette", "echo claude", "cat claude.md"}
	for _, cmd := range yes {
		if !lib.IsAgentLaunch(cmd) {
			t.Fatalf("expected launch for %q", cmd)
		}
	}
	for _, cmd := range no {
		if lib.IsAgentLaunch(cmd) {
			t.Fatalf("unexpected launch for %q", cmd)
		}
	}
}

func TestRegisterRejectsInvalid(t *testing.T) {
	lib := Default()
	cases := []Pattern{
		{Name: "posix", Kind: KindPrompt, Expr: `\$$`},
		{Name: "", Kind: KindPrompt, Expr: `x`},
		{Name: "empty", Kind: KindAgent, Expr: "  "},
		{Name: "bad", Kind: KindAgent, Expr: `(`},
		{Name: "kindless", Kind: "nope", Expr: `x`},
		{Name: "tool-no-group", Kind: KindTool, Tool: ToolRead, Expr: `Read`},
	}
	for _, p := range cases {
		if err := lib.Register(p); !errors.Is(err, schema.ErrInvalidPattern) {
			t.Fatalf("Register(%+v) expected ErrInvalidPattern, got %v", p, err)
		}
	}
}

func TestRegisterExtendsLibrary(t *testing.T) {
	lib := New()
	if lib.IsAgent("aider> working") {
		t.Fatalf("empty library should not match")
	}
	lib.MustRegister(Pattern{Name: "aider", Kind: KindAgent, Expr: `^aider>`})
	if name, ok := lib.MatchAgent("aider> working"); !ok || name != "aider" {
		t.Fatalf("expected custom pattern match, got %q %v", name, ok)
	}
	if len(lib.Patterns()) != 1 {
		t.Fatalf("expected one pattern")
	}
}

func TestLibraryConcurrentReads(t *testing.T) {
	lib := Default()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = lib.IsAgent("╭─╮")
				_ = lib.IsPrompt("user@host:~$ ")
			}
		}()
	}
	wg.Wait()
}

func TestLastNonEmptyLine(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"one":              "one",
		"one\ntwo\n\n  \n": "two",
		"a\n  b  \t":       "  b",
	}
	for in, want := range cases {
		if got := LastNonEmptyLine(in); got != want {
			t.Fatalf("LastNonEmptyLine(%q) = %q, want %q", in, got, want)
		}
	}
}
