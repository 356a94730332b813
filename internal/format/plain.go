package format

import (
	"fmt"
	"strconv"
	"strings"

	xansi "github.com/charmbracelet/x/ansi"

	"pkt.systems/hybridterm/internal/ansi"
	"pkt.systems/hybridterm/internal/patterns"
	"pkt.systems/hybridterm/schema"
)

const (
	agentPrefix    = "│ "
	toolPrefix     = "  ↳ "
	defaultWidth   = 80
	minLabelWidth  = 16
	commandPrefix  = "$ "
	systemTemplate = "[%s]"
)

// PlainRenderer formats finalized blocks and session events as plain text lines.
// Streaming snapshots are skipped; the final block carries the complete content.
type PlainRenderer struct {
	width int
	lib   *patterns.Library
}

// NewPlainRenderer returns a plain-text renderer wrapping tool labels at width
// columns. A nil library uses the built-in patterns.
func NewPlainRenderer(width int, lib *patterns.Library) *PlainRenderer {
	if width <= 0 {
		width = defaultWidth
	}
	if lib == nil {
		lib = patterns.Default()
	}
	return &PlainRenderer{width: width, lib: lib}
}

// FormatBlock converts a block event into user-facing lines.
func (p *PlainRenderer) FormatBlock(event schema.BlockEvent) []string {
	block := event.Block
	if event.Dropped || block.IsStreaming {
		return nil
	}
	switch block.Type {
	case schema.BlockCommand:
		return markLines(commandPrefix, splitLines(block.Content))
	case schema.BlockOutput:
		return splitLines(ansi.Strip(block.Content))
	case schema.BlockAgent:
		clean := ansi.Strip(block.Content)
		lines := markLines(agentPrefix, splitLines(clean))
		return append(lines, p.toolLines(clean)...)
	case schema.BlockSystem:
		return markLines(fmt.Sprintf(systemTemplate, "system")+" ", splitLines(block.Content))
	case schema.BlockTeammate:
		name := strings.TrimSpace(block.TeammateName)
		if name == "" {
			name = "teammate"
		}
		return markLines(fmt.Sprintf(systemTemplate, name)+" ", splitLines(block.Content))
	default:
		return splitLines(ansi.Strip(block.Content))
	}
}

// FormatStatus renders a status transition.
func (p *PlainRenderer) FormatStatus(event schema.StatusEvent) []string {
	return []string{fmt.Sprintf("status: %s", event.Status)}
}

// FormatReveal renders a surface switch.
func (p *PlainRenderer) FormatReveal(event schema.RevealEvent) []string {
	if event.Revealed {
		return []string{fmt.Sprintf("terminal revealed (%s)", event.Reason)}
	}
	return []string{fmt.Sprintf("terminal hidden (%s)", event.Reason)}
}

// FormatInfo renders the merged session info as one summary line.
func (p *PlainRenderer) FormatInfo(event schema.InfoEvent) []string {
	info := event.Info
	if info.IsEmpty() {
		return nil
	}
	var parts []string
	if info.Model != nil {
		parts = append(parts, "model "+*info.Model)
	}
	if info.InputTokens != nil {
		parts = append(parts, "in "+strconv.FormatInt(*info.InputTokens, 10))
	}
	if info.OutputTokens != nil {
		parts = append(parts, "out "+strconv.FormatInt(*info.OutputTokens, 10))
	}
	if info.TotalCost != nil {
		parts = append(parts, fmt.Sprintf("cost $%.4f", *info.TotalCost))
	}
	if info.ContextUsed != nil && info.ContextMax != nil {
		parts = append(parts, fmt.Sprintf("context %d/%d", *info.ContextUsed, *info.ContextMax))
	}
	if info.DailyUsed != nil && info.DailyMax != nil {
		parts = append(parts, fmt.Sprintf("daily %d/%d", *info.DailyUsed, *info.DailyMax))
	}
	if info.WeeklyUsed != nil && info.WeeklyMax != nil {
		parts = append(parts, fmt.Sprintf("weekly %d/%d", *info.WeeklyUsed, *info.WeeklyMax))
	}
	if len(parts) == 0 {
		return nil
	}
	return []string{"info: " + strings.Join(parts, " · ")}
}

func (p *PlainRenderer) toolLines(clean string) []string {
	tools := p.lib.Tools(clean)
	if len(tools) == 0 {
		return nil
	}
	width := p.width - xansi.StringWidth(toolPrefix)
	if width < minLabelWidth {
		width = minLabelWidth
	}
	lines := make([]string, 0, len(tools))
	for _, tool := range tools {
		lines = append(lines, toolPrefix+tool.Label(width))
	}
	return lines
}

func splitLines(text string) []string {
	text = strings.TrimRight(text, "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func markLines(marker string, lines []string) []string {
	if marker == "" || len(lines) == 0 {
		return lines
	}
	marked := make([]string, 0, len(lines))
	for _, line := range lines {
		marked = append(marked, marker+line)
	}
	return marked
}
