package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// DefaultModel matches the model the hosted API recommends for tool calling.
const DefaultModel = "anthropic::2024-10-22::claude-sonnet-4-latest"

// DefaultRequestedWith identifies this client to the API.
const DefaultRequestedWith = "cody-cli"

// Config is the resolved settings handed to the core components. Values are
// resolved from the .env file, then the TOML config file, then the process
// environment, each layer overriding the previous one. The .env file is read
// into a map rather than exported, so it never mutates the process
// environment.
type Config struct {
	URL                string `toml:"url"`
	Token              string `toml:"token"`
	RequestedWith      string `toml:"requested_with"`
	Model              string `toml:"model"`
	MaxTurns           int    `toml:"max_turns"`
	RequestTimeoutSecs int    `toml:"request_timeout"`
	ResponsesDir       string `toml:"responses_dir"`
	Source             string `toml:"-"`
}

func Default() Config {
	return Config{
		RequestedWith:      DefaultRequestedWith,
		Model:              DefaultModel,
		MaxTurns:           5,
		RequestTimeoutSecs: 120,
		ResponsesDir:       "responses",
	}
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cody-cli", "config.toml")
}

// Load resolves configuration. dotenvPath is the .env file (skipped when
// missing) applied first; path is the TOML config file (DefaultPath when
// empty, missing file tolerated) applied over it; the process environment
// wins over both.
func Load(path, dotenvPath string) (Config, error) {
	cfg := Default()

	if dotenvPath == "" {
		dotenvPath = ".env"
	}
	if _, err := os.Stat(dotenvPath); err == nil {
		vars, err := godotenv.Read(dotenvPath)
		if err != nil {
			return cfg, err
		}
		applyVars(&cfg, func(key string) string { return vars[key] })
	}

	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, errors.New("config path is empty and $HOME is not set")
	}
	cfg.Source = path

	content, err := os.ReadFile(path)
	if err == nil {
		if err := toml.Unmarshal(content, &cfg); err != nil {
			return cfg, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}

	applyVars(&cfg, os.Getenv)
	if cfg.RequestedWith == "" {
		cfg.RequestedWith = DefaultRequestedWith
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 5
	}
	if cfg.ResponsesDir == "" {
		cfg.ResponsesDir = "responses"
	}
	return cfg, nil
}

// Validate reports whether the config can reach the API at all.
func (c Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("missing endpoint URL: set SOURCEGRAPH_URL in .env or url in " + c.Source)
	}
	if strings.TrimSpace(c.Token) == "" {
		return errors.New("missing access token: set SOURCEGRAPH_ACCESS_TOKEN in .env or token in " + c.Source)
	}
	return nil
}

// applyVars overlays the SOURCEGRAPH_* variables from one source onto cfg.
// Empty or unset values leave the previous layer in place.
func applyVars(cfg *Config, lookup func(string) string) {
	if v := strings.TrimSpace(lookup("SOURCEGRAPH_URL")); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(lookup("SOURCEGRAPH_ACCESS_TOKEN")); v != "" {
		cfg.Token = v
	}
	if v := strings.TrimSpace(lookup("SOURCEGRAPH_X_REQUESTED_WITH")); v != "" {
		cfg.RequestedWith = v
	}
	if v := strings.TrimSpace(lookup("SOURCEGRAPH_MODEL")); v != "" {
		cfg.Model = v
	}
}
