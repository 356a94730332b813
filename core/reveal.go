package core

import "pkt.systems/hybridterm/schema"

// revealState tracks whether the raw terminal is shown in place of blocks.
type revealState struct {
	revealed bool
	reason   schema.RevealReason
}

// shouldHideOnAltExit reports whether leaving the alternate screen hides the
// terminal: only a reveal caused by the alternate screen, and only while no
// agent turn is running.
func (r revealState) shouldHideOnAltExit(agentActive bool) bool {
	return r.revealed && r.reason == schema.RevealAltScreen && !agentActive
}

// reveal switches to the raw terminal. It reports false when already revealed.
func (r *revealState) reveal(reason schema.RevealReason) bool {
	if r.revealed {
		return false
	}
	r.revealed = true
	r.reason = reason
	return true
}

// hide switches back to blocks. It reports false when already hidden.
func (r *revealState) hide() bool {
	if !r.revealed {
		return false
	}
	r.revealed = false
	r.reason = ""
	return true
}
