// Package hybridterm composes the classification service with PTY-backed
// shells, persistence and the HTTP event stream.
package hybridterm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pkt.systems/hybridterm/core"
	"pkt.systems/hybridterm/httpapi"
	"pkt.systems/hybridterm/internal/eventbus"
	"pkt.systems/hybridterm/internal/persist"
	"pkt.systems/hybridterm/internal/ptyhost"
	"pkt.systems/hybridterm/schema"
	"pkt.systems/pslog"
)

// Server composes the classification service, the PTY host and the optional
// HTTP API.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error

	// Open creates a session and spawns its shell.
	Open(ctx context.Context, req schema.OpenSessionRequest) (schema.SessionSnapshot, error)
	// Close hangs up the shell and tears the session down.
	Close(ctx context.Context, id schema.SessionID) error
	// Submit records a command and writes it to the shell.
	Submit(ctx context.Context, id schema.SessionID, text string) (schema.SubmitResult, error)
	// Input writes raw keystrokes to the shell without classifying them.
	Input(ctx context.Context, id schema.SessionID, data []byte) error

	Service() core.Service
	Bus() *eventbus.Bus
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Service schema.ClassifierConfig
	HTTP    httpapi.Config
	Shell   ShellConfig
	// StateDir enables the JSON session store when set.
	StateDir string
}

// ShellConfig describes the process spawned for every session.
type ShellConfig struct {
	Path string
	Args []string
	Env  []string
	Dir  string
}

// PTYHost runs session shells. *ptyhost.Host satisfies it.
type PTYHost interface {
	Start(ctx context.Context, id schema.SessionID, command ptyhost.Command, size schema.Viewport, sink ptyhost.Sink) error
	Submit(id schema.SessionID, text string) error
	Write(id schema.SessionID, p []byte) error
	ResizePTY(ctx context.Context, id schema.SessionID, cols, rows int) error
	Stop(ctx context.Context, id schema.SessionID) error
	Close() error
}

// ServerDeps captures dependencies required to build the server.
type ServerDeps struct {
	ServiceDeps core.ServiceDeps
	// PTY defaults to a ptyhost.Host.
	PTY PTYHost
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP bool
}

// WithHTTP enables the HTTP API server.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// New constructs a composable hybridterm server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if cfg.Shell.Path == "" {
		return nil, errors.New("shell path is required")
	}
	normalized, err := schema.NormalizeClassifierConfig(cfg.Service)
	if err != nil {
		return nil, err
	}
	cfg.Service = normalized

	serviceDeps := deps.ServiceDeps
	logger := serviceDeps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
		serviceDeps.Logger = logger
	}

	pty := deps.PTY
	if pty == nil {
		pty = ptyhost.New(logger)
	}
	if serviceDeps.PTYSizer == nil {
		serviceDeps.PTYSizer = pty
	}

	if cfg.StateDir != "" && (serviceDeps.ConversationStore == nil || serviceDeps.InfoStore == nil) {
		store, err := persist.NewStoreWithLogger(cfg.StateDir, logger)
		if err != nil {
			return nil, err
		}
		if serviceDeps.ConversationStore == nil {
			serviceDeps.ConversationStore = store
		}
		if serviceDeps.InfoStore == nil {
			serviceDeps.InfoStore = store
		}
	}

	bus := eventbus.New(logger)
	var hub *httpapi.Hub
	if options.enableHTTP {
		hub = httpapi.NewHub(cfg.HTTP.HubHistory)
		hub.SetLogger(logger)
	}
	var hubSink core.EventSink
	if hub != nil {
		hubSink = hub
	}
	serviceDeps.EventSink = newEventFanout(serviceDeps.EventSink, bus, hubSink)

	service, err := core.NewService(cfg.Service, serviceDeps)
	if err != nil {
		return nil, err
	}

	srv := &compositeServer{
		cfg:     cfg,
		options: options,
		service: service,
		bus:     bus,
		pty:     pty,
		logger:  logger,
	}
	if options.enableHTTP {
		srv.httpSrv = httpapi.NewServer(cfg.HTTP, service, srv, hub)
	}
	return srv, nil
}

type compositeServer struct {
	cfg     ServerConfig
	options serverOptions
	service core.Service
	bus     *eventbus.Bus
	pty     PTYHost
	httpSrv *httpapi.Server
	logger  pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
	stopped bool
}

func (s *compositeServer) Service() core.Service {
	return s.service
}

func (s *compositeServer) Bus() *eventbus.Bus {
	return s.bus
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 1)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"http", s.options.enableHTTP,
		"http_addr", s.cfg.HTTP.Addr,
		"http_base_path", s.cfg.HTTP.BasePath,
		"shell", s.cfg.Shell.Path,
		"state_dir", s.cfg.StateDir,
	)
	if s.options.enableHTTP && s.httpSrv != nil {
		go func() {
			if err := httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpSrv.Handler()); err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	cancel := s.cancel
	log := s.logger
	s.mu.Unlock()
	log.Info("server stop requested")

	if err := s.pty.Close(); err != nil {
		log.Warn("server pty close failed", "err", err)
	}
	if err := s.service.Close(ctx); err != nil {
		log.Warn("server service close failed", "err", err)
	}
	if cancel != nil {
		cancel()
	}
	log.Info("server stopped", "dropped_events", s.bus.Dropped())
	return nil
}

func (s *compositeServer) Open(ctx context.Context, req schema.OpenSessionRequest) (schema.SessionSnapshot, error) {
	resp, err := s.service.OpenSession(ctx, req)
	if err != nil {
		return schema.SessionSnapshot{}, err
	}
	snapshot := resp.Session
	cmd := ptyhost.Command{
		Path: s.cfg.Shell.Path,
		Args: s.cfg.Shell.Args,
		Env:  s.cfg.Shell.Env,
		Dir:  s.cfg.Shell.Dir,
	}
	if err := s.pty.Start(ctx, snapshot.ID, cmd, snapshot.Viewport, s.service); err != nil {
		s.logger.Warn("session shell start failed", "session", snapshot.ID, "err", err)
		_ = s.service.CloseSession(context.WithoutCancel(ctx), snapshot.ID)
		return schema.SessionSnapshot{}, fmt.Errorf("start shell: %w", err)
	}
	return snapshot, nil
}

func (s *compositeServer) Close(ctx context.Context, id schema.SessionID) error {
	if err := s.pty.Stop(ctx, id); err != nil && !errors.Is(err, schema.ErrSessionNotFound) {
		s.logger.Warn("session shell stop failed", "session", id, "err", err)
	}
	return s.service.CloseSession(ctx, id)
}

func (s *compositeServer) Submit(ctx context.Context, id schema.SessionID, text string) (schema.SubmitResult, error) {
	result, err := s.service.Submit(ctx, id, text)
	if err != nil || result.Ignored {
		return result, err
	}
	if err := s.pty.Submit(id, text); err != nil {
		return result, fmt.Errorf("write command: %w", err)
	}
	return result, nil
}

func (s *compositeServer) Input(_ context.Context, id schema.SessionID, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty input", schema.ErrInvalidRequest)
	}
	if _, err := s.service.Session(id); err != nil {
		return err
	}
	if err := s.pty.Write(id, data); err != nil {
		return fmt.Errorf("write input: %w", err)
	}
	s.logger.Trace("input forwarded", "session", id, "bytes", len(data))
	return nil
}
