package core

import (
	"time"
	"unicode/utf8"

	"pkt.systems/hybridterm/schema"
)

// activityTracker is the Idle/Active state machine. It does not own timers;
// observe reports which timers the session must arm or cancel.
type activityTracker struct {
	cooldown        time.Duration
	promptGate      int
	active          bool
	status          schema.SessionStatus
	lastDeactivated time.Time
}

// activityStep is the outcome of one observed chunk.
type activityStep struct {
	Activated bool
	// Suppressed is an agent match ignored because of the cooldown.
	Suppressed  bool
	Deactivated bool
	// Resumed is a chunk that moved the status from loading back to running.
	Resumed bool
	// Prompt is the name of the prompt pattern that ended the turn.
	Prompt string
}

// chunkFacts carries the pattern results for one chunk.
type chunkFacts struct {
	Clean  string
	Agent  bool
	Prompt string
}

func newActivityTracker(cfg schema.ClassifierConfig) activityTracker {
	return activityTracker{
		cooldown:   cfg.Cooldown,
		promptGate: cfg.PromptGateChars,
		status:     schema.StatusIdle,
	}
}

// observe applies one chunk. promptEnds selects prompt detection as the end of
// turn signal; otherwise the caller ends turns via the silence timer.
func (a *activityTracker) observe(now time.Time, facts chunkFacts, promptEnds bool) activityStep {
	var step activityStep
	if !a.active && facts.Agent {
		if a.cooldownElapsed(now) {
			a.active = true
			a.status = schema.StatusRunning
			step.Activated = true
		} else {
			step.Suppressed = true
		}
	}
	if !a.active {
		return step
	}
	if !step.Activated && a.status == schema.StatusLoading {
		a.status = schema.StatusRunning
		step.Resumed = true
	}
	if promptEnds && facts.Prompt != "" && utf8.RuneCountInString(facts.Clean) < a.promptGate {
		a.deactivate(now)
		step.Deactivated = true
		step.Resumed = false
		step.Prompt = facts.Prompt
	}
	return step
}

func (a *activityTracker) cooldownElapsed(now time.Time) bool {
	return a.lastDeactivated.IsZero() || now.Sub(a.lastDeactivated) >= a.cooldown
}

// loadingTimeout marks a silent active turn as loading. It reports whether the
// status changed.
func (a *activityTracker) loadingTimeout() bool {
	if !a.active || a.status != schema.StatusRunning {
		return false
	}
	a.status = schema.StatusLoading
	return true
}

// deactivate ends the active turn.
func (a *activityTracker) deactivate(now time.Time) {
	a.active = false
	a.status = schema.StatusCompleted
	a.lastDeactivated = now
}
