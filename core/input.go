package core

import (
	"time"

	"pkt.systems/hybridterm/schema"
)

type inputMode int

const (
	inputNormal inputMode = iota
	inputComposing
	inputGuard
)

func (m inputMode) String() string {
	switch m {
	case inputComposing:
		return "composing"
	case inputGuard:
		return "post_compose_guard"
	default:
		return "normal"
	}
}

// inputState tracks input method composition so the keystroke that commits a
// composition is not also taken as a submit.
type inputState struct {
	mode       inputMode
	guard      time.Duration
	guardUntil time.Time
}

func (s *inputState) composeStart() {
	s.mode = inputComposing
}

func (s *inputState) composeEnd(now time.Time) {
	if s.mode != inputComposing {
		return
	}
	s.mode = inputGuard
	s.guardUntil = now.Add(s.guard)
}

// admit decides whether a submit at now proceeds. ignored is true for the one
// submit swallowed inside the guard window.
func (s *inputState) admit(now time.Time) (ignored bool, err error) {
	switch s.mode {
	case inputComposing:
		return false, schema.ErrComposing
	case inputGuard:
		s.mode = inputNormal
		if now.Before(s.guardUntil) {
			return true, nil
		}
	}
	return false, nil
}
