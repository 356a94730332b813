package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/hybridterm/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int              `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string           `mapstructure:"state_dir" yaml:"state_dir"`
	Shell         ShellConfig      `mapstructure:"shell" yaml:"shell"`
	Render        RenderConfig     `mapstructure:"render" yaml:"render"`
	Classifier    ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	HTTP          HTTPConfig       `mapstructure:"http" yaml:"http"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// ShellConfig selects the program spawned in each PTY.
type ShellConfig struct {
	Path string            `mapstructure:"path" yaml:"path"`
	Args []string          `mapstructure:"args" yaml:"args"`
	Env  map[string]string `mapstructure:"env" yaml:"env"`
}

// RenderConfig controls the default render mode and initial viewport.
type RenderConfig struct {
	Mode string `mapstructure:"mode" yaml:"mode"`
	Cols int    `mapstructure:"cols" yaml:"cols"`
	Rows int    `mapstructure:"rows" yaml:"rows"`
}

// ClassifierConfig holds the classifier tuning values in config units.
type ClassifierConfig struct {
	CooldownMS              int `mapstructure:"cooldown_ms" yaml:"cooldown_ms"`
	LoadingDebounceMS       int `mapstructure:"loading_debounce_ms" yaml:"loading_debounce_ms"`
	EndDebounceMS           int `mapstructure:"end_debounce_ms" yaml:"end_debounce_ms"`
	PromptGateChars         int `mapstructure:"prompt_gate_chars" yaml:"prompt_gate_chars"`
	FrameIntervalMS         int `mapstructure:"frame_interval_ms" yaml:"frame_interval_ms"`
	InfoThrottleMS          int `mapstructure:"info_throttle_ms" yaml:"info_throttle_ms"`
	ComposeGuardMS          int `mapstructure:"compose_guard_ms" yaml:"compose_guard_ms"`
	MaxBlocks               int `mapstructure:"max_blocks" yaml:"max_blocks"`
	EmulatorScrollbackBytes int `mapstructure:"emulator_scrollback_bytes" yaml:"emulator_scrollback_bytes"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr       string `mapstructure:"addr" yaml:"addr"`
	BasePath   string `mapstructure:"base_path" yaml:"base_path"`
	HubHistory int    `mapstructure:"hub_history" yaml:"hub_history"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	defaults := schema.DefaultClassifierConfig()
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".hybridterm", "state"),
		Shell: ShellConfig{
			Path: shell,
			Args: []string{},
			Env:  map[string]string{},
		},
		Render: RenderConfig{
			Mode: string(schema.RenderAbstracted),
			Cols: defaults.DefaultViewport.Cols,
			Rows: defaults.DefaultViewport.Rows,
		},
		Classifier: ClassifierConfig{
			CooldownMS:              millis(defaults.Cooldown),
			LoadingDebounceMS:       millis(defaults.LoadingDebounce),
			EndDebounceMS:           millis(defaults.EndDebounce),
			PromptGateChars:         defaults.PromptGateChars,
			FrameIntervalMS:         millis(defaults.FrameInterval),
			InfoThrottleMS:          millis(defaults.InfoThrottle),
			ComposeGuardMS:          millis(defaults.ComposeGuard),
			MaxBlocks:               defaults.MaxBlocks,
			EmulatorScrollbackBytes: defaults.EmulatorScrollbackBytes,
		},
		HTTP: HTTPConfig{
			Addr:       "127.0.0.1:27490",
			BasePath:   "",
			HubHistory: 512,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".hybridterm", "config.yaml"), nil
}

// ServiceConfig converts the classifier section into normalized core tuning.
func (c Config) ServiceConfig() (schema.ClassifierConfig, error) {
	cl := c.Classifier
	return schema.NormalizeClassifierConfig(schema.ClassifierConfig{
		Cooldown:                duration(cl.CooldownMS),
		LoadingDebounce:         duration(cl.LoadingDebounceMS),
		EndDebounce:             duration(cl.EndDebounceMS),
		PromptGateChars:         cl.PromptGateChars,
		FrameInterval:           duration(cl.FrameIntervalMS),
		InfoThrottle:            duration(cl.InfoThrottleMS),
		ComposeGuard:            duration(cl.ComposeGuardMS),
		MaxBlocks:               cl.MaxBlocks,
		EmulatorScrollbackBytes: cl.EmulatorScrollbackBytes,
		DefaultViewport:         schema.Viewport{Cols: c.Render.Cols, Rows: c.Render.Rows},
	})
}

// RenderMode returns the parsed default render mode.
func (c Config) RenderMode() (schema.RenderMode, error) {
	return schema.ParseRenderMode(c.Render.Mode)
}

func millis(d time.Duration) int {
	return int(d / time.Millisecond)
}

func duration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
