package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/hybridterm"
	"pkt.systems/hybridterm/core"
	"pkt.systems/hybridterm/internal/appconfig"
	"pkt.systems/hybridterm/internal/eventbus"
	"pkt.systems/hybridterm/internal/format"
	"pkt.systems/hybridterm/schema"
	"pkt.systems/pslog"
)

func newRunCmd() *cobra.Command {
	var cfgPath string
	var mode string
	var noState bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured shell and print classified blocks",
		Long: "Run spawns the configured shell in a PTY. Every line read from stdin is\n" +
			"submitted as a command; blocks and status changes are printed as they settle.\n" +
			"While the raw terminal is visible its output is copied to stdout unchanged\n" +
			"and an empty line sends Enter to the shell.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			renderMode, err := resolveMode(mode, cfg)
			if err != nil {
				return err
			}
			serverCfg, err := toServerConfig(cfg)
			if err != nil {
				return err
			}
			if noState {
				serverCfg.StateDir = ""
			}
			viewport := terminalViewport(serverCfg.Service.DefaultViewport)
			printer := newEventPrinter(cmd.OutOrStdout(), format.NewPlainRenderer(viewport.Cols, nil))
			printer.raw = true

			server, err := hybridterm.New(serverCfg, hybridterm.ServerDeps{
				ServiceDeps: core.ServiceDeps{EventSink: printer, Logger: logger},
			})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := server.Start(ctx); err != nil {
				return err
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Stop(stopCtx)
			}()

			snapshot, err := server.Open(ctx, schema.OpenSessionRequest{Mode: renderMode, Viewport: viewport})
			if err != nil {
				return err
			}
			id := snapshot.ID
			logger.Info("run session ready", "session", id, "mode", snapshot.Mode, "shell", serverCfg.Shell.Path)

			events, unsubscribe := server.Bus().Subscribe(id)
			defer unsubscribe()
			go submitLines(ctx, server, id, cmd.InOrStdin(), logger)
			return waitForExit(ctx, events)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "render mode (terminal, hybrid, rendered, abstracted)")
	cmd.Flags().BoolVar(&noState, "no-state", false, "do not persist conversations")
	return cmd
}

// submitLines submits each stdin line until EOF or cancellation. An empty
// line reaches a visible terminal as a bare Enter.
func submitLines(ctx context.Context, server hybridterm.Server, id schema.SessionID, in io.Reader, logger pslog.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		_, err := server.Submit(ctx, id, scanner.Text())
		if errors.Is(err, schema.ErrEmptyCommand) {
			if snap, serr := server.Service().Session(id); serr == nil && (snap.Revealed || !snap.Mode.AccumulatesBlocks()) {
				err = server.Input(ctx, id, []byte("\r"))
			} else {
				err = nil
			}
		}
		switch {
		case err == nil:
		case errors.Is(err, schema.ErrSessionNotFound):
			return
		default:
			logger.Warn("run submit failed", "session", id, "err", err)
		}
	}
}

// waitForExit blocks until the session's shell exits or ctx ends.
func waitForExit(ctx context.Context, events <-chan eventbus.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Type != eventbus.EventSession {
				continue
			}
			switch event.Life.Type {
			case schema.SessionExited, schema.SessionClosed:
				if code := event.Life.Session.ExitCode; code != 0 {
					return &exitError{code: code}
				}
				return nil
			}
		}
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("shell exited with code %d", e.code)
}
