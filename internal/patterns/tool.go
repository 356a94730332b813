package patterns

import (
	xansi "github.com/charmbracelet/x/ansi"
)

// ToolKind is the verb of a tool invocation.
type ToolKind string

const (
	ToolRead    ToolKind = "read"
	ToolWrite   ToolKind = "write"
	ToolEdit    ToolKind = "edit"
	ToolSearch  ToolKind = "search"
	ToolExecute ToolKind = "execute"
	ToolCreate  ToolKind = "create"
)

// ToolActivity is one labeled tool invocation.
type ToolActivity struct {
	Kind    ToolKind
	Target  string
	Pattern string
}

var toolVerbs = map[ToolKind]string{
	ToolRead:    "Read",
	ToolWrite:   "Write",
	ToolEdit:    "Edit",
	ToolSearch:  "Search",
	ToolExecute: "Run",
	ToolCreate:  "Create",
}

// Label renders the activity for a status line no wider than width cells.
// A non-positive width disables truncation.
func (a ToolActivity) Label(width int) string {
	verb := toolVerbs[a.Kind]
	if verb == "" {
		verb = string(a.Kind)
	}
	label := verb
	if a.Target != "" {
		label += " " + a.Target
	}
	if width <= 0 || xansi.StringWidth(label) <= width {
		return label
	}
	return xansi.Truncate(label, width, "…")
}
