package core

import (
	"time"

	"pkt.systems/hybridterm/internal/clock"
)

// timerSlot holds at most one pending timer of a kind. Arming cancels the
// previous instance first. The generation counter turns callbacks of cancelled
// timers that already started into no-ops. Callers guard slots with the
// session lock.
type timerSlot struct {
	timer clock.Timer
	gen   uint64
}

func (t *timerSlot) arm(c clock.Clock, d time.Duration, fire func(gen uint64)) {
	t.stop()
	gen := t.gen
	t.timer = c.AfterFunc(d, func() { fire(gen) })
}

func (t *timerSlot) stop() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
}

// claim reports whether gen is the live timer and marks the slot idle.
func (t *timerSlot) claim(gen uint64) bool {
	if t.timer == nil || gen != t.gen {
		return false
	}
	t.timer = nil
	return true
}

func (t *timerSlot) pending() bool {
	return t.timer != nil
}
