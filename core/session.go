package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"pkt.systems/hybridterm/internal/ansi"
	"pkt.systems/hybridterm/internal/clock"
	"pkt.systems/hybridterm/internal/patterns"
	"pkt.systems/hybridterm/internal/sessioninfo"
	"pkt.systems/hybridterm/schema"
	"pkt.systems/pslog"
)

// sessionEnv holds the collaborators shared by every session of a service.
type sessionEnv struct {
	cfg      schema.ClassifierConfig
	clock    clock.Clock
	lib      *patterns.Library
	sink     EventSink
	pty      PTYSizer
	convs    ConversationStore
	infos    InfoStore
	dispatch func(func())
}

// session owns all classification state of one PTY. Every entry point takes
// mu; sink events and PTY calls are queued on the outbox and run in order
// after mu is released.
type session struct {
	env *sessionEnv
	id  schema.SessionID
	log pslog.Logger
	ctx context.Context

	mu       sync.Mutex
	mode     schema.RenderMode
	viewport schema.Viewport
	emulator Emulator
	activity activityTracker
	blocks   *blockAccumulator
	frames   frameThrottle
	reveal   revealState
	input    inputState
	info     infoThrottle
	conv     *conversationLog
	loading  timerSlot
	ending   timerSlot
	exited   bool
	exitCode int
	closed   bool
	// written is the length of the output stream seen so far.
	written int64

	outbox   []func()
	draining bool
}

func newSession(ctx context.Context, env *sessionEnv, id schema.SessionID, mode schema.RenderMode, viewport schema.Viewport, conv schema.ConversationID, emulator Emulator) *session {
	log := pslog.Ctx(ctx)
	return &session{
		env:      env,
		id:       id,
		log:      log,
		ctx:      ctx,
		mode:     mode,
		viewport: viewport,
		emulator: emulator,
		activity: newActivityTracker(env.cfg),
		blocks:   newBlockAccumulator(env.cfg.MaxBlocks),
		frames:   frameThrottle{interval: env.cfg.FrameInterval},
		input:    inputState{guard: env.cfg.ComposeGuard},
		info:     newInfoThrottle(env.cfg.InfoThrottle),
		conv:     newConversationLog(conv, env.cfg.TurnTranscriptMax),
	}
}

// run executes fn under the session lock and flushes the outbox afterwards.
// It reports false when the session is already closed.
func (s *session) run(fn func(now time.Time)) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	fn(s.env.clock.Now())
	s.mu.Unlock()
	s.drain()
	return true
}

// drain runs queued effects in order. Only one goroutine drains at a time;
// effects queued meanwhile are picked up by the active drainer.
func (s *session) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.outbox) > 0 {
		effects := s.outbox
		s.outbox = nil
		s.mu.Unlock()
		for _, effect := range effects {
			effect()
		}
		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}

func (s *session) enqueue(effect func()) {
	s.outbox = append(s.outbox, effect)
}

// offBand queues a store side effect on the dispatcher.
func (s *session) offBand(fn func(ctx context.Context)) {
	ctx := s.ctx
	dispatch := s.env.dispatch
	s.enqueue(func() { dispatch(func() { fn(ctx) }) })
}

func (s *session) arm(slot *timerSlot, d time.Duration, fn func(now time.Time)) {
	slot.arm(s.env.clock, d, func(gen uint64) { s.fire(slot, gen, fn) })
}

// fire runs a timer callback unless the session closed or the timer was
// re-armed or cancelled after it started.
func (s *session) fire(slot *timerSlot, gen uint64, fn func(now time.Time)) {
	s.mu.Lock()
	if s.closed || !slot.claim(gen) {
		s.mu.Unlock()
		return
	}
	fn(s.env.clock.Now())
	s.mu.Unlock()
	s.drain()
}

func (s *session) stopTimers() {
	s.loading.stop()
	s.ending.stop()
	s.frames.timer.stop()
	s.info.timer.stop()
}

// ingest runs one PTY chunk through the pipeline. The chunk is forwarded as
// raw output when the emulator is the visible surface after classification,
// so the chunk that triggers a reveal reaches the terminal view too.
func (s *session) ingest(now time.Time, chunk []byte) {
	if s.emulator != nil {
		if _, err := s.emulator.Write(chunk); err != nil {
			s.log.Warn("emulator write failed", "err", err)
		}
	}
	offset := s.written
	s.written += int64(len(chunk))
	if s.exited {
		s.log.Trace("chunk after exit not classified", "bytes", len(chunk))
	} else {
		s.classify(now, chunk)
	}
	if s.emulatorVisible() {
		s.emitOutput(offset, chunk)
	}
}

func (s *session) classify(now time.Time, chunk []byte) {
	raw := string(chunk)
	clean := ansi.Strip(raw)
	s.log.Trace("chunk ingested", "bytes", len(chunk), "clean_bytes", len(clean))
	s.observeInfo(now, clean)
	if !s.mode.Classifies() {
		return
	}

	promptEnds := s.mode.PromptEndsTurn()
	agentPattern, agent := s.env.lib.MatchAgent(clean)
	facts := chunkFacts{Clean: clean, Agent: agent}
	if promptEnds && (agent || s.activity.active) {
		facts.Prompt, _ = s.env.lib.MatchPrompt(clean)
	}
	step := s.activity.observe(now, facts, promptEnds)
	switch {
	case step.Suppressed:
		s.log.Trace("activity match within cooldown", "pattern", agentPattern)
	case step.Activated:
		s.log.Debug("activity started", "pattern", agentPattern)
		s.onActivated(now)
	}
	if step.Resumed {
		s.emitStatus(now)
	}
	if s.activity.active {
		s.conv.record(clean)
		s.arm(&s.loading, s.env.cfg.LoadingDebounce, s.onLoadingTimeout)
		if !promptEnds {
			s.arm(&s.ending, s.env.cfg.EndDebounce, s.onEndTimeout)
		}
	}
	if step.Deactivated {
		s.conv.record(withoutLastLine(clean))
		s.log.Debug("activity completed", "prompt", step.Prompt)
		s.onDeactivated(now, true)
	}

	if s.mode.Reveals() {
		switch ansi.AltScreen(raw) {
		case ansi.AltScreenEnter:
			s.revealTerminal(schema.RevealAltScreen)
		case ansi.AltScreenExit:
			if s.reveal.shouldHideOnAltExit(s.activity.active) {
				s.hideTerminal(schema.RevealAltScreen)
			}
		}
	}

	if !s.mode.AccumulatesBlocks() || s.reveal.revealed {
		return
	}
	typ := schema.BlockOutput
	if s.activity.active {
		typ = schema.BlockAgent
	}
	finalized, snapshot, ok := s.blocks.ingest(now, raw, clean, typ)
	for _, update := range finalized {
		s.finishBlock(update)
	}
	if !ok {
		s.log.Trace("command echo suppressed")
		return
	}
	s.offerSnapshot(now, snapshot)
}

func (s *session) onActivated(now time.Time) {
	s.emitStatus(now)
	if s.conv.id == "" {
		conv := newConversationID()
		s.conv.id = conv
		pending := s.conv.takePending()
		if store := s.env.convs; store != nil {
			id := s.id
			log := s.log
			s.offBand(func(ctx context.Context) {
				if err := store.CreateConversation(ctx, id, conv, now); err != nil {
					log.Warn("conversation create failed", "conversation", conv, "err", err)
					return
				}
				for _, msg := range pending {
					if err := store.AppendMessage(ctx, id, conv, msg); err != nil {
						log.Warn("conversation append failed", "conversation", conv, "err", err)
					}
				}
			})
		}
		s.log.Debug("conversation created", "conversation", conv)
	}
	if s.mode.Reveals() {
		s.revealTerminal(schema.RevealAgentActive)
	}
}

// onDeactivated applies the end of an agent turn. viaPrompt hides the raw
// terminal; a silence timeout leaves the reveal state alone.
func (s *session) onDeactivated(now time.Time, viaPrompt bool) {
	s.loading.stop()
	s.ending.stop()
	s.finalizeBlock()
	s.emitStatus(now)
	if msg, ok := s.conv.finishTurn(now); ok {
		s.appendMessage(msg)
	}
	if viaPrompt && s.mode.Reveals() {
		s.hideTerminal(schema.RevealPrompt)
	}
}

func (s *session) onLoadingTimeout(now time.Time) {
	if s.activity.loadingTimeout() {
		s.log.Debug("activity loading")
		s.emitStatus(now)
	}
}

func (s *session) onEndTimeout(now time.Time) {
	if !s.activity.active {
		return
	}
	s.activity.deactivate(now)
	s.log.Debug("activity completed", "reason", "silence")
	s.onDeactivated(now, false)
}

func (s *session) appendMessage(msg schema.Message) {
	store := s.env.convs
	if store == nil || s.conv.id == "" {
		return
	}
	id, conv, log := s.id, s.conv.id, s.log
	s.offBand(func(ctx context.Context) {
		if err := store.AppendMessage(ctx, id, conv, msg); err != nil {
			log.Warn("conversation append failed", "conversation", conv, "err", err)
		}
	})
}

func (s *session) finalizeBlock() {
	if update, ok := s.blocks.finalize(); ok {
		s.finishBlock(update)
	}
}

// finishBlock emits a finalized block. A dropped block is only announced when
// a streaming snapshot of it reached the sink.
func (s *session) finishBlock(update blockUpdate) {
	announced := s.frames.discard(update.Block.ID)
	if update.Dropped {
		if announced {
			s.emitBlock(update.Block, true)
		}
		return
	}
	s.emitBlock(update.Block, false)
}

func (s *session) offerSnapshot(now time.Time, snapshot schema.Block) {
	block, ok, needTimer := s.frames.offer(now, snapshot)
	if ok {
		s.emitBlock(block, false)
	}
	if needTimer {
		s.arm(&s.frames.timer, s.frames.wait(now), s.onFrame)
	}
}

func (s *session) onFrame(now time.Time) {
	if block, ok := s.frames.flush(now); ok {
		s.emitBlock(block, false)
	}
}

func (s *session) observeInfo(now time.Time, clean string) {
	partial, ok := sessioninfo.Extract(clean)
	if !ok {
		return
	}
	s.info.merge(partial)
	s.propagateInfo(now)
}

func (s *session) propagateInfo(now time.Time) {
	info, ok, delay := s.info.take(now)
	if ok {
		s.publishInfo(info)
		return
	}
	if delay > 0 && !s.info.timer.pending() {
		s.arm(&s.info.timer, delay, s.propagateInfo)
	}
}

func (s *session) flushInfo() {
	if info, ok := s.info.drain(); ok {
		s.publishInfo(info)
	}
}

func (s *session) publishInfo(info schema.SessionInfo) {
	s.emitInfo(info)
	if store := s.env.infos; store != nil {
		id, log := s.id, s.log
		s.offBand(func(ctx context.Context) {
			if err := store.MergeSessionInfo(ctx, id, info); err != nil {
				log.Warn("session info store failed", "err", err)
			}
		})
	}
}

// emulatorVisible reports whether the raw terminal is the surface on screen.
func (s *session) emulatorVisible() bool {
	return !s.mode.AccumulatesBlocks() || s.reveal.revealed
}

func (s *session) resizeEmulator(size schema.Viewport) {
	if s.emulator == nil {
		return
	}
	if err := s.emulator.Resize(size.Cols, size.Rows); err != nil {
		s.log.Warn("emulator resize failed", "cols", size.Cols, "rows", size.Rows, "err", err)
	}
}

func (s *session) resizePTY(size schema.Viewport) {
	sizer := s.env.pty
	if sizer == nil {
		return
	}
	ctx, id, log := s.ctx, s.id, s.log
	s.enqueue(func() {
		if err := sizer.ResizePTY(ctx, id, size.Cols, size.Rows); err != nil {
			log.Warn("pty resize failed", "cols", size.Cols, "rows", size.Rows, "err", err)
		}
	})
}

func (s *session) revealTerminal(reason schema.RevealReason) {
	if !s.reveal.reveal(reason) {
		return
	}
	s.finalizeBlock()
	s.resizeEmulator(s.viewport)
	s.resizePTY(s.viewport)
	if s.emulator != nil {
		s.emulator.Focus()
	}
	s.log.Debug("terminal revealed", "reason", reason)
	s.emitReveal(true, reason)
}

func (s *session) hideTerminal(reason schema.RevealReason) {
	if !s.reveal.hide() {
		return
	}
	if s.emulator != nil {
		s.emulator.Blur()
	}
	s.resizeEmulator(s.env.cfg.HiddenViewport)
	s.log.Debug("terminal hidden", "reason", reason)
	s.emitReveal(false, reason)
}

func (s *session) submit(now time.Time, text string) (schema.SubmitResult, error) {
	if strings.TrimSpace(text) == "" {
		return schema.SubmitResult{}, schema.ErrEmptyCommand
	}
	ignored, err := s.input.admit(now)
	if err != nil {
		return schema.SubmitResult{}, err
	}
	if ignored {
		s.log.Debug("submit ignored after composition")
		return schema.SubmitResult{Ignored: true}, nil
	}
	result := schema.SubmitResult{Launch: s.env.lib.IsAgentLaunch(text)}
	// The revealed terminal owns the surface; the text only goes to the PTY.
	if s.mode.AccumulatesBlocks() && !s.reveal.revealed {
		updates := s.blocks.submit(now, text)
		for _, update := range updates {
			s.finishBlock(update)
		}
		result.Block = updates[len(updates)-1].Block
	}
	msg := schema.Message{Role: schema.RoleUser, Content: text, Timestamp: now}
	if s.conv.id == "" {
		s.conv.queueUser(text, now)
	} else {
		s.appendMessage(msg)
	}
	if result.Launch && s.mode.Reveals() {
		s.revealTerminal(schema.RevealAgentLaunch)
	}
	s.log.Debug("command submitted", "launch", result.Launch, "bytes", len(text))
	return result, nil
}

func (s *session) exit(now time.Time, code int) {
	if s.exited {
		return
	}
	s.exited = true
	s.exitCode = code
	s.loading.stop()
	s.ending.stop()
	if s.activity.active {
		s.activity.deactivate(now)
		s.emitStatus(now)
		if msg, ok := s.conv.finishTurn(now); ok {
			s.appendMessage(msg)
		}
	}
	s.hideTerminal(schema.RevealExit)
	if s.mode.AccumulatesBlocks() {
		for _, update := range s.blocks.exit(now, code) {
			s.finishBlock(update)
		}
	}
	s.flushInfo()
	s.log.Info("session process exited", "code", code)
	s.emitSession(schema.SessionExited)
}

func (s *session) setMode(now time.Time, mode schema.RenderMode) {
	if mode == s.mode {
		return
	}
	prev := s.mode
	s.mode = mode
	if !mode.AccumulatesBlocks() {
		s.finalizeBlock()
	}
	if s.activity.active {
		switch {
		case !mode.Classifies():
			s.activity.deactivate(now)
			s.onDeactivated(now, false)
		case mode.PromptEndsTurn():
			s.ending.stop()
		default:
			s.arm(&s.ending, s.env.cfg.EndDebounce, s.onEndTimeout)
		}
	}
	if s.reveal.revealed && !mode.Reveals() {
		s.hideTerminal(schema.RevealModeChange)
	}
	if mode.Reveals() && s.activity.active {
		s.revealTerminal(schema.RevealAgentActive)
	}
	if s.emulatorVisible() {
		s.resizeEmulator(s.viewport)
	} else {
		s.resizeEmulator(s.env.cfg.HiddenViewport)
	}
	s.log.Info("session mode changed", "from", prev, "to", mode)
	s.emitSession(schema.SessionModeChanged)
}

func (s *session) setViewport(size schema.Viewport) {
	s.viewport = size
	s.resizePTY(size)
	if s.emulatorVisible() {
		s.resizeEmulator(size)
	}
}

func (s *session) teammate(now time.Time, name, text string) schema.Block {
	updates := s.blocks.teammate(now, name, text)
	for _, update := range updates {
		s.finishBlock(update)
	}
	return updates[len(updates)-1].Block
}

// close tears the session down. Pending info is still delivered.
func (s *session) close() {
	s.closed = true
	s.stopTimers()
	s.flushInfo()
	if s.emulator != nil {
		if err := s.emulator.Close(); err != nil {
			s.log.Warn("emulator close failed", "err", err)
		}
	}
	s.emitSession(schema.SessionClosed)
}

func (s *session) snapshot() schema.SessionSnapshot {
	return schema.SessionSnapshot{
		ID:            s.id,
		Mode:          s.mode,
		Status:        s.activity.status,
		Revealed:      s.reveal.revealed,
		Viewport:      s.viewport,
		Conversation:  s.conv.id,
		Exited:        s.exited,
		ExitCode:      s.exitCode,
		BlocksTrimmed: s.blocks.trimmed(),
	}
}

func (s *session) terminal() schema.TerminalSnapshot {
	snapshot := schema.TerminalSnapshot{
		SessionID: s.id,
		Revealed:  s.reveal.revealed,
		Viewport:  s.viewport,
		End:       s.written,
	}
	if s.emulator != nil {
		snapshot.Data = s.emulator.Snapshot()
	}
	return snapshot
}

func (s *session) emitBlock(block schema.Block, dropped bool) {
	if sink := s.env.sink; sink != nil {
		event := schema.BlockEvent{SessionID: s.id, Block: block, Dropped: dropped}
		s.enqueue(func() { sink.OnBlock(event) })
	}
}

func (s *session) emitOutput(offset int64, chunk []byte) {
	if sink := s.env.sink; sink != nil {
		event := schema.OutputEvent{SessionID: s.id, Offset: offset, Data: append([]byte(nil), chunk...)}
		s.enqueue(func() { sink.OnOutput(event) })
	}
}

func (s *session) emitStatus(now time.Time) {
	if sink := s.env.sink; sink != nil {
		event := schema.StatusEvent{SessionID: s.id, Status: s.activity.status, At: now}
		s.enqueue(func() { sink.OnStatus(event) })
	}
}

func (s *session) emitReveal(revealed bool, reason schema.RevealReason) {
	if sink := s.env.sink; sink != nil {
		event := schema.RevealEvent{SessionID: s.id, Revealed: revealed, Reason: reason, Viewport: s.viewport}
		s.enqueue(func() { sink.OnReveal(event) })
	}
}

func (s *session) emitInfo(info schema.SessionInfo) {
	if sink := s.env.sink; sink != nil {
		event := schema.InfoEvent{SessionID: s.id, Info: info}
		s.enqueue(func() { sink.OnSessionInfo(event) })
	}
}

func (s *session) emitSession(kind schema.SessionEventType) {
	if sink := s.env.sink; sink != nil {
		event := schema.SessionEvent{Type: kind, Session: s.snapshot()}
		s.enqueue(func() { sink.OnSession(event) })
	}
}

// withoutLastLine drops the last non-empty line, the prompt that ended a turn.
func withoutLastLine(clean string) string {
	line := patterns.LastNonEmptyLine(clean)
	if line == "" {
		return clean
	}
	if idx := strings.LastIndex(clean, line); idx >= 0 {
		return clean[:idx]
	}
	return clean
}
