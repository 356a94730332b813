package main

import (
	"os"
	"sort"

	"golang.org/x/term"

	"pkt.systems/hybridterm"
	"pkt.systems/hybridterm/httpapi"
	"pkt.systems/hybridterm/internal/appconfig"
	"pkt.systems/hybridterm/schema"
)

func toServerConfig(cfg appconfig.Config) (hybridterm.ServerConfig, error) {
	serviceCfg, err := cfg.ServiceConfig()
	if err != nil {
		return hybridterm.ServerConfig{}, err
	}
	return hybridterm.ServerConfig{
		Service: serviceCfg,
		HTTP: httpapi.Config{
			Addr:       cfg.HTTP.Addr,
			BasePath:   cfg.HTTP.BasePath,
			HubHistory: cfg.HTTP.HubHistory,
		},
		Shell: hybridterm.ShellConfig{
			Path: cfg.Shell.Path,
			Args: cfg.Shell.Args,
			Env:  envList(cfg.Shell.Env),
		},
		StateDir: cfg.StateDir,
	}, nil
}

func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, key+"="+env[key])
	}
	return out
}

// resolveMode prefers the flag value over the configured default.
func resolveMode(flag string, cfg appconfig.Config) (schema.RenderMode, error) {
	if flag != "" {
		return schema.ParseRenderMode(flag)
	}
	return cfg.RenderMode()
}

// terminalViewport reports the size of stdout when it is a terminal.
func terminalViewport(fallback schema.Viewport) schema.Viewport {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return fallback
	}
	cols, rows, err := term.GetSize(fd)
	if err != nil || cols <= 0 || rows <= 0 {
		return fallback
	}
	return schema.Viewport{Cols: cols, Rows: rows}
}
