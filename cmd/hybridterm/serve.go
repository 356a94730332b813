package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/hybridterm"
	"pkt.systems/hybridterm/core"
	"pkt.systems/hybridterm/internal/appconfig"
	"pkt.systems/hybridterm/internal/format"
	"pkt.systems/pslog"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var addr string
	var echo bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve PTY-backed sessions over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			serverCfg, err := toServerConfig(cfg)
			if err != nil {
				return err
			}
			if addr != "" {
				serverCfg.HTTP.Addr = addr
			}
			deps := hybridterm.ServerDeps{ServiceDeps: core.ServiceDeps{Logger: logger}}
			if echo {
				printer := newEventPrinter(cmd.OutOrStdout(), format.NewPlainRenderer(cfg.Render.Cols, nil))
				printer.prefix = true
				deps.ServiceDeps.EventSink = printer
			}
			server, err := hybridterm.New(serverCfg, deps, hybridterm.WithHTTP())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	cmd.Flags().BoolVar(&echo, "echo", false, "print settled blocks of every session to stdout")
	return cmd
}
