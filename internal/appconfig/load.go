package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("HYBRIDTERM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("shell.path", cfg.Shell.Path)
	v.SetDefault("shell.args", cfg.Shell.Args)
	v.SetDefault("shell.env", cfg.Shell.Env)
	v.SetDefault("render.mode", cfg.Render.Mode)
	v.SetDefault("render.cols", cfg.Render.Cols)
	v.SetDefault("render.rows", cfg.Render.Rows)
	v.SetDefault("classifier.cooldown_ms", cfg.Classifier.CooldownMS)
	v.SetDefault("classifier.loading_debounce_ms", cfg.Classifier.LoadingDebounceMS)
	v.SetDefault("classifier.end_debounce_ms", cfg.Classifier.EndDebounceMS)
	v.SetDefault("classifier.prompt_gate_chars", cfg.Classifier.PromptGateChars)
	v.SetDefault("classifier.frame_interval_ms", cfg.Classifier.FrameIntervalMS)
	v.SetDefault("classifier.info_throttle_ms", cfg.Classifier.InfoThrottleMS)
	v.SetDefault("classifier.compose_guard_ms", cfg.Classifier.ComposeGuardMS)
	v.SetDefault("classifier.max_blocks", cfg.Classifier.MaxBlocks)
	v.SetDefault("classifier.emulator_scrollback_bytes", cfg.Classifier.EmulatorScrollbackBytes)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.base_path", cfg.HTTP.BasePath)
	v.SetDefault("http.hub_history", cfg.HTTP.HubHistory)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.Shell.Path) == "" {
		return fmt.Errorf("shell.path is required")
	}
	if _, err := cfg.RenderMode(); err != nil {
		return fmt.Errorf("render.mode: %w", err)
	}
	if cfg.Render.Cols <= 0 || cfg.Render.Rows <= 0 {
		return fmt.Errorf("render.cols and render.rows must be positive")
	}
	if _, err := cfg.ServiceConfig(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if cfg.HTTP.HubHistory < 0 {
		return fmt.Errorf("http.hub_history must not be negative")
	}
	return validateHTTPConfig(cfg.HTTP)
}

func validateHTTPConfig(cfg HTTPConfig) error {
	basePath := strings.TrimSpace(cfg.BasePath)
	if basePath != "" {
		if strings.Contains(basePath, "://") {
			return fmt.Errorf("http.base_path must be a path prefix, not a URL")
		}
		if strings.ContainsAny(basePath, "?#") {
			return fmt.Errorf("http.base_path must not include query or fragment")
		}
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.Shell.Path = expandEnv(cfg.Shell.Path)
	for i, arg := range cfg.Shell.Args {
		cfg.Shell.Args[i] = expandEnv(arg)
	}
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	if strings.HasPrefix(value, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			value = filepath.Join(home, value[2:])
		}
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
