package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pkt.systems/hybridterm/internal/clock"
	"pkt.systems/hybridterm/internal/emulator"
	"pkt.systems/hybridterm/internal/logx"
	"pkt.systems/hybridterm/internal/patterns"
	"pkt.systems/hybridterm/schema"
	"pkt.systems/pslog"
)

// service implements the core service behavior.
type service struct {
	env       *sessionEnv
	emulators EmulatorFactory
	worker    *dispatcher
	logger    pslog.Logger

	mu       sync.Mutex
	sessions map[schema.SessionID]*session
	order    []schema.SessionID
	closed   bool
}

// NewService constructs the core service implementation.
func NewService(cfg schema.ClassifierConfig, deps ServiceDeps) (Service, error) {
	normalized, err := schema.NormalizeClassifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg = normalized
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if deps.Patterns == nil {
		deps.Patterns = patterns.Default()
	}
	if deps.Clock == nil {
		deps.Clock = clock.System()
	}
	if deps.Emulators == nil {
		maxBytes := cfg.EmulatorScrollbackBytes
		deps.Emulators = func(_ schema.SessionID, size schema.Viewport) (Emulator, error) {
			return emulator.New(size.Cols, size.Rows, maxBytes), nil
		}
	}
	var worker *dispatcher
	if deps.Dispatch == nil {
		worker = newDispatcher()
		deps.Dispatch = worker.Dispatch
	}
	return &service{
		env: &sessionEnv{
			cfg:      cfg,
			clock:    deps.Clock,
			lib:      deps.Patterns,
			sink:     deps.EventSink,
			pty:      deps.PTYSizer,
			convs:    deps.ConversationStore,
			infos:    deps.InfoStore,
			dispatch: deps.Dispatch,
		},
		emulators: deps.Emulators,
		worker:    worker,
		logger:    logger,
		sessions:  make(map[schema.SessionID]*session),
	}, nil
}

func (s *service) OpenSession(ctx context.Context, req schema.OpenSessionRequest) (schema.OpenSessionResponse, error) {
	if ctx == nil {
		return schema.OpenSessionResponse{}, errors.New("missing context")
	}
	id := req.ID
	if id == "" {
		id = newSessionID()
	}
	if err := schema.ValidateSessionID(id); err != nil {
		return schema.OpenSessionResponse{}, err
	}
	mode, err := schema.ParseRenderMode(string(req.Mode))
	if err != nil {
		return schema.OpenSessionResponse{}, err
	}
	viewport := req.Viewport
	if viewport == (schema.Viewport{}) {
		viewport = s.env.cfg.DefaultViewport
	}
	if !viewport.Valid() {
		return schema.OpenSessionResponse{}, schema.ErrInvalidViewport
	}
	log := s.sessionLogger(ctx, id)
	sessCtx := logx.ContextWithSessionLogger(context.WithoutCancel(ctx), log, id)

	size := viewport
	if mode.AccumulatesBlocks() {
		size = s.env.cfg.HiddenViewport
	}
	emu, err := s.emulators(id, size)
	if err != nil {
		log.Warn("session open failed", "err", err)
		return schema.OpenSessionResponse{}, fmt.Errorf("create emulator: %w", err)
	}
	sess := newSession(sessCtx, s.env, id, mode, viewport, req.Conversation, emu)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = emu.Close()
		return schema.OpenSessionResponse{}, errors.New("service closed")
	}
	if _, exists := s.sessions[id]; exists {
		s.mu.Unlock()
		_ = emu.Close()
		log.Warn("session open failed", "err", schema.ErrSessionExists)
		return schema.OpenSessionResponse{}, schema.ErrSessionExists
	}
	s.sessions[id] = sess
	s.order = append(s.order, id)
	s.mu.Unlock()

	var snapshot schema.SessionSnapshot
	sess.run(func(_ time.Time) {
		snapshot = sess.snapshot()
		sess.emitSession(schema.SessionOpened)
	})
	log.Info("session opened", "mode", mode, "cols", viewport.Cols, "rows", viewport.Rows)
	return schema.OpenSessionResponse{Session: snapshot}, nil
}

func (s *service) CloseSession(ctx context.Context, id schema.SessionID) error {
	if err := schema.ValidateSessionID(id); err != nil {
		return err
	}
	log := s.sessionLogger(ctx, id)
	s.mu.Lock()
	sess := s.sessions[id]
	if sess == nil {
		s.mu.Unlock()
		log.Warn("session close failed", "err", schema.ErrSessionNotFound)
		return schema.ErrSessionNotFound
	}
	delete(s.sessions, id)
	s.order = removeSessionID(s.order, id)
	s.mu.Unlock()

	sess.mu.Lock()
	sess.close()
	sess.mu.Unlock()
	sess.drain()
	log.Info("session closed")
	return nil
}

func (s *service) OnData(id schema.SessionID, chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	sess := s.hotLookup(id)
	if sess == nil {
		return
	}
	sess.run(func(now time.Time) { sess.ingest(now, chunk) })
}

func (s *service) OnExit(id schema.SessionID, code int) {
	sess := s.hotLookup(id)
	if sess == nil {
		return
	}
	sess.run(func(now time.Time) { sess.exit(now, code) })
}

func (s *service) Submit(ctx context.Context, id schema.SessionID, text string) (schema.SubmitResult, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return schema.SubmitResult{}, err
	}
	var result schema.SubmitResult
	if !sess.run(func(now time.Time) { result, err = sess.submit(now, text) }) {
		return schema.SubmitResult{}, schema.ErrSessionNotFound
	}
	if err != nil {
		s.sessionLogger(ctx, id).Debug("submit rejected", "err", err)
	}
	return result, err
}

func (s *service) SetRenderMode(ctx context.Context, id schema.SessionID, mode schema.RenderMode) error {
	parsed, err := schema.ParseRenderMode(string(mode))
	if err != nil || mode == "" {
		return fmt.Errorf("%w: %q", schema.ErrInvalidRenderMode, mode)
	}
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	if !sess.run(func(now time.Time) { sess.setMode(now, parsed) }) {
		return schema.ErrSessionNotFound
	}
	return nil
}

func (s *service) SetViewport(ctx context.Context, id schema.SessionID, cols, rows int) error {
	size, err := schema.NormalizeViewport(cols, rows)
	if err != nil {
		return err
	}
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	if !sess.run(func(time.Time) { sess.setViewport(size) }) {
		return schema.ErrSessionNotFound
	}
	s.sessionLogger(ctx, id).Trace("viewport updated", "cols", cols, "rows", rows)
	return nil
}

func (s *service) ComposeStart(id schema.SessionID) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	if !sess.run(func(time.Time) { sess.input.composeStart() }) {
		return schema.ErrSessionNotFound
	}
	return nil
}

func (s *service) ComposeEnd(id schema.SessionID) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	if !sess.run(func(now time.Time) { sess.input.composeEnd(now) }) {
		return schema.ErrSessionNotFound
	}
	return nil
}

func (s *service) PostTeammate(ctx context.Context, id schema.SessionID, name, text string) (schema.Block, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(text) == "" {
		return schema.Block{}, schema.ErrInvalidRequest
	}
	sess, err := s.lookup(id)
	if err != nil {
		return schema.Block{}, err
	}
	var block schema.Block
	if !sess.run(func(now time.Time) { block = sess.teammate(now, name, text) }) {
		return schema.Block{}, schema.ErrSessionNotFound
	}
	s.sessionLogger(ctx, id).Debug("teammate message posted", "teammate", name)
	return block, nil
}

func (s *service) Blocks(id schema.SessionID) ([]schema.Block, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.blocks.blocks(), nil
}

func (s *service) Status(id schema.SessionID) (schema.SessionStatus, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return "", err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.activity.status, nil
}

func (s *service) SessionInfo(id schema.SessionID) (schema.SessionInfo, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return schema.SessionInfo{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.info.merged.Clone(), nil
}

func (s *service) Revealed(id schema.SessionID) (bool, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.reveal.revealed, nil
}

func (s *service) Session(id schema.SessionID) (schema.SessionSnapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return schema.SessionSnapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot(), nil
}

func (s *service) Terminal(id schema.SessionID) (schema.TerminalSnapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return schema.TerminalSnapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.terminal(), nil
}

func (s *service) ListSessions() []schema.SessionSnapshot {
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.order))
	for _, id := range s.order {
		if sess := s.sessions[id]; sess != nil {
			sessions = append(sessions, sess)
		}
	}
	s.mu.Unlock()
	out := make([]schema.SessionSnapshot, 0, len(sessions))
	for _, sess := range sessions {
		sess.mu.Lock()
		out = append(out, sess.snapshot())
		sess.mu.Unlock()
	}
	return out
}

func (s *service) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ids := append([]schema.SessionID(nil), s.order...)
	s.mu.Unlock()
	for _, id := range ids {
		if err := s.CloseSession(ctx, id); err != nil && !errors.Is(err, schema.ErrSessionNotFound) {
			return err
		}
	}
	if s.worker != nil {
		s.worker.Close()
	}
	s.contextLogger(ctx).Debug("service closed", "sessions", len(ids))
	return nil
}

func (s *service) lookup(id schema.SessionID) (*session, error) {
	if err := schema.ValidateSessionID(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[id]
	if sess == nil {
		return nil, schema.ErrSessionNotFound
	}
	return sess, nil
}

// hotLookup resolves a session for PTY callbacks, which never fail.
func (s *service) hotLookup(id schema.SessionID) *session {
	s.mu.Lock()
	sess := s.sessions[id]
	s.mu.Unlock()
	if sess == nil {
		s.logger.Debug("pty event for unknown session ignored", "session", id)
	}
	return sess
}

// contextLogger uses the logger bound to a session-scoped context and the
// service logger otherwise.
func (s *service) contextLogger(ctx context.Context) pslog.Logger {
	if _, ok := logx.SessionFromContext(ctx); ok {
		return pslog.Ctx(ctx)
	}
	return s.logger
}

func (s *service) sessionLogger(ctx context.Context, id schema.SessionID) pslog.Logger {
	if _, ok := logx.SessionFromContext(ctx); ok {
		return logx.WithSession(ctx, id)
	}
	return s.logger.With("session", id)
}

func removeSessionID(order []schema.SessionID, id schema.SessionID) []schema.SessionID {
	out := order[:0]
	for _, existing := range order {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
