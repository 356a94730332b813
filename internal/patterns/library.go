// Package patterns holds the ordered detector table used to classify clean
// terminal text: shell prompts, agent activity, tool invocations and agent
// launch commands.
package patterns

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"pkt.systems/hybridterm/schema"
)

// Kind identifies what a pattern detects.
type Kind string

const (
	// KindPrompt patterns match a shell prompt on the last non-empty line.
	KindPrompt Kind = "prompt"
	// KindAgent patterns match agent activity anywhere in the text.
	KindAgent Kind = "agent"
	// KindTool patterns label tool invocations. They never drive classification.
	KindTool Kind = "tool"
	// KindLaunch patterns match a submitted command that starts the agent CLI.
	KindLaunch Kind = "launch"
)

// Pattern is one named detector.
type Pattern struct {
	Name string
	Kind Kind
	Expr string
	// Tool is the activity kind reported by KindTool patterns. The first
	// capture group of Expr is the tool target.
	Tool ToolKind
}

type compiled struct {
	Pattern
	re *regexp.Regexp
}

// Library is an ordered, extensible pattern table. It is safe for concurrent use.
type Library struct {
	mu     sync.RWMutex
	byName map[string]*compiled
	order  []*compiled
}

// New returns an empty library.
func New() *Library {
	return &Library{byName: map[string]*compiled{}}
}

// Default returns a library loaded with the built-in patterns.
func Default() *Library {
	lib := New()
	for _, p := range builtins() {
		lib.MustRegister(p)
	}
	return lib
}

// Register appends a pattern. Names must be unique and expressions must compile.
func (l *Library) Register(p Pattern) error {
	if l == nil {
		return fmt.Errorf("%w: library is nil", schema.ErrInvalidPattern)
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", schema.ErrInvalidPattern)
	}
	if strings.TrimSpace(p.Expr) == "" {
		return fmt.Errorf("%w: %q has an empty expression", schema.ErrInvalidPattern, name)
	}
	switch p.Kind {
	case KindPrompt, KindAgent, KindLaunch:
	case KindTool:
		if p.Tool == "" {
			return fmt.Errorf("%w: tool pattern %q needs a tool kind", schema.ErrInvalidPattern, name)
		}
	default:
		return fmt.Errorf("%w: %q has unknown kind %q", schema.ErrInvalidPattern, name, p.Kind)
	}
	re, err := regexp.Compile(p.Expr)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", schema.ErrInvalidPattern, name, err)
	}
	if p.Kind == KindTool && re.NumSubexp() < 1 {
		return fmt.Errorf("%w: tool pattern %q needs a capture group", schema.ErrInvalidPattern, name)
	}
	p.Name = name

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.byName[name]; exists {
		return fmt.Errorf("%w: %q already registered", schema.ErrInvalidPattern, name)
	}
	c := &compiled{Pattern: p, re: re}
	l.byName[name] = c
	l.order = append(l.order, c)
	return nil
}

// MustRegister registers p and panics on error.
func (l *Library) MustRegister(p Pattern) {
	if err := l.Register(p); err != nil {
		panic(err)
	}
}

// Patterns returns the registered patterns in order.
func (l *Library) Patterns() []Pattern {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Pattern, 0, len(l.order))
	for _, c := range l.order {
		out = append(out, c.Pattern)
	}
	return out
}

// IsPrompt reports whether the last non-empty line of clean looks like a shell prompt.
func (l *Library) IsPrompt(clean string) bool {
	_, ok := l.MatchPrompt(clean)
	return ok
}

// MatchPrompt returns the name of the first prompt pattern matching the last
// non-empty line of clean. Earlier lines are never considered.
func (l *Library) MatchPrompt(clean string) (string, bool) {
	line := LastNonEmptyLine(clean)
	if line == "" {
		return "", false
	}
	return l.first(KindPrompt, line)
}

// IsAgent reports whether clean contains agent activity anywhere.
func (l *Library) IsAgent(clean string) bool {
	_, ok := l.MatchAgent(clean)
	return ok
}

// MatchAgent returns the name of the first agent pattern found in clean.
func (l *Library) MatchAgent(clean string) (string, bool) {
	if clean == "" {
		return "", false
	}
	return l.first(KindAgent, clean)
}

// IsAgentLaunch reports whether a submitted command starts the agent CLI.
func (l *Library) IsAgentLaunch(command string) bool {
	command = strings.TrimSpace(command)
	if command == "" {
		return false
	}
	_, ok := l.first(KindLaunch, command)
	return ok
}

// Tools returns the tool invocations found in clean, in text order.
func (l *Library) Tools(clean string) []ToolActivity {
	if clean == "" {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []ToolActivity
	for _, line := range strings.Split(clean, "\n") {
		for _, c := range l.order {
			if c.Kind != KindTool {
				continue
			}
			m := c.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			target := ""
			for _, group := range m[1:] {
				if group != "" {
					target = strings.TrimSpace(group)
					break
				}
			}
			out = append(out, ToolActivity{
				Kind:    c.Tool,
				Target:  target,
				Pattern: c.Name,
			})
			break
		}
	}
	return out
}

func (l *Library) first(kind Kind, text string) (string, bool) {
	if l == nil {
		return "", false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, c := range l.order {
		if c.Kind == kind && c.re.MatchString(text) {
			return c.Name, true
		}
	}
	return "", false
}

// LastNonEmptyLine returns the last line of clean that is not blank, with
// trailing spaces and tabs removed.
func LastNonEmptyLine(clean string) string {
	for clean != "" {
		idx := strings.LastIndexByte(clean, '\n')
		line := clean[idx+1:]
		if strings.TrimSpace(line) != "" {
			return strings.TrimRight(line, " \t")
		}
		if idx < 0 {
			break
		}
		clean = clean[:idx]
	}
	return ""
}
