package schema

import (
	"errors"
	"time"
)

// ClassifierConfig holds the heuristic tuning values of the classification pipeline.
type ClassifierConfig struct {
	// Cooldown suppresses re-activation right after a turn ended.
	Cooldown time.Duration
	// LoadingDebounce is the silence after which an active turn shows as loading.
	LoadingDebounce time.Duration
	// EndDebounce is the silence after which an active turn ends in silence-model modes.
	EndDebounce time.Duration
	// PromptGateChars is the chunk size at or above which a trailing prompt is ignored.
	PromptGateChars int
	// FrameInterval is the minimum spacing between streaming block updates.
	FrameInterval time.Duration
	// InfoThrottle is the minimum spacing between session info propagations.
	InfoThrottle time.Duration
	// ComposeGuard is how long a submit is swallowed after input composition ends.
	ComposeGuard time.Duration
	// MaxBlocks bounds the per-session block history.
	MaxBlocks int
	// EmulatorScrollbackBytes bounds the raw bytes kept by the terminal emulator.
	EmulatorScrollbackBytes int
	// HiddenViewport is the size the emulator is parked at while the block view is visible.
	HiddenViewport Viewport
	// DefaultViewport is used until the UI reports a container size.
	DefaultViewport Viewport
	// TurnTranscriptMax bounds the clean text recorded per agent turn.
	TurnTranscriptMax int
}

const (
	// DefaultCooldown is the re-activation cooldown.
	DefaultCooldown = 3 * time.Second
	// DefaultLoadingDebounce is the running to loading debounce.
	DefaultLoadingDebounce = 2 * time.Second
	// DefaultEndDebounce is the silence-model end of turn debounce.
	DefaultEndDebounce = time.Second
	// DefaultPromptGateChars is the prompt detection chunk size gate.
	DefaultPromptGateChars = 500
	// DefaultFrameInterval is one animation frame.
	DefaultFrameInterval = 16 * time.Millisecond
	// DefaultInfoThrottle is the session info propagation interval.
	DefaultInfoThrottle = 2 * time.Second
	// DefaultComposeGuard is the post-composition submit guard.
	DefaultComposeGuard = 50 * time.Millisecond
	// DefaultMaxBlocks is the per-session block history limit.
	DefaultMaxBlocks = 2000
	// DefaultEmulatorScrollbackBytes is the per-session emulator byte limit.
	DefaultEmulatorScrollbackBytes = 1 << 20
	// DefaultTurnTranscriptMax is the per-turn transcript limit in bytes.
	DefaultTurnTranscriptMax = 256 << 10
)

// DefaultClassifierConfig returns the default tuning values.
func DefaultClassifierConfig() ClassifierConfig {
	cfg, _ := NormalizeClassifierConfig(ClassifierConfig{})
	return cfg
}

// NormalizeClassifierConfig applies defaults and validates the config.
func NormalizeClassifierConfig(cfg ClassifierConfig) (ClassifierConfig, error) {
	if cfg.Cooldown < 0 || cfg.LoadingDebounce < 0 || cfg.EndDebounce < 0 ||
		cfg.FrameInterval < 0 || cfg.InfoThrottle < 0 || cfg.ComposeGuard < 0 {
		return ClassifierConfig{}, errors.New("classifier durations must not be negative")
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.LoadingDebounce == 0 {
		cfg.LoadingDebounce = DefaultLoadingDebounce
	}
	if cfg.EndDebounce == 0 {
		cfg.EndDebounce = DefaultEndDebounce
	}
	if cfg.PromptGateChars <= 0 {
		cfg.PromptGateChars = DefaultPromptGateChars
	}
	if cfg.FrameInterval == 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.InfoThrottle == 0 {
		cfg.InfoThrottle = DefaultInfoThrottle
	}
	if cfg.ComposeGuard == 0 {
		cfg.ComposeGuard = DefaultComposeGuard
	}
	if cfg.MaxBlocks <= 0 {
		cfg.MaxBlocks = DefaultMaxBlocks
	}
	if cfg.EmulatorScrollbackBytes <= 0 {
		cfg.EmulatorScrollbackBytes = DefaultEmulatorScrollbackBytes
	}
	if cfg.TurnTranscriptMax <= 0 {
		cfg.TurnTranscriptMax = DefaultTurnTranscriptMax
	}
	if !cfg.HiddenViewport.Valid() {
		cfg.HiddenViewport = Viewport{Cols: 1, Rows: 1}
	}
	if !cfg.DefaultViewport.Valid() {
		cfg.DefaultViewport = Viewport{Cols: 80, Rows: 24}
	}
	return cfg, nil
}
