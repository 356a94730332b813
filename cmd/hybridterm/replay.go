package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/hybridterm/core"
	"pkt.systems/hybridterm/internal/appconfig"
	"pkt.systems/hybridterm/internal/clock"
	"pkt.systems/hybridterm/internal/format"
	"pkt.systems/hybridterm/internal/replay"
	"pkt.systems/hybridterm/schema"
	"pkt.systems/pslog"
)

func newReplayCmd() *cobra.Command {
	var cfgPath string
	var mode string
	var fakeClock bool
	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Feed a recorded scenario through the classifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			sc, err := replay.Load(args[0])
			if err != nil {
				return err
			}
			serviceCfg := schema.DefaultClassifierConfig()
			if cfgPath != "" {
				cfg, err := appconfig.Load(cfgPath)
				if err != nil {
					return err
				}
				if serviceCfg, err = cfg.ServiceConfig(); err != nil {
					return err
				}
			}
			if mode != "" {
				if sc.Mode, err = schema.ParseRenderMode(mode); err != nil {
					return err
				}
			}

			var clk clock.Clock = clock.System()
			deps := core.ServiceDeps{Logger: logger}
			if fakeClock {
				clk = clock.NewFake(clock.System().Now())
			}
			deps.Clock = clk
			deps.EventSink = newEventPrinter(cmd.OutOrStdout(), format.NewPlainRenderer(sc.Cols, nil))

			svc, err := core.NewService(serviceCfg, deps)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close(cmd.Context()) }()

			res, err := replay.Runner{Service: svc, Clock: clk, Logger: logger}.Run(cmd.Context(), sc)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "replay finished: %d blocks, status %s, %s elapsed\n", len(res.Blocks), res.Session.Status, res.Elapsed)
			return err
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file for classifier tuning")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "override the scenario render mode")
	cmd.Flags().BoolVar(&fakeClock, "fake-clock", false, "advance a deterministic clock instead of waiting in real time")
	return cmd
}
