// Package config loads jarstrings settings from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"jarstrings/internal/classfmt"
	"jarstrings/internal/strtable"
)

// EnvPath names the environment variable consulted when no --config flag
// is given.
const EnvPath = "JARSTRINGS_CONFIG"

// Save error policies.
const (
	OnErrorFail = "fail"
	OnErrorSkip = "skip"
)

// Config is the on-disk configuration.
type Config struct {
	Scan   Scan   `yaml:"scan"`
	Filter Filter `yaml:"filter"`
	Save   Save   `yaml:"save"`
	Log    Log    `yaml:"log"`
}

type Scan struct {
	// Include and Exclude are doublestar patterns over entry names.
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
	// Mode is "strict" or "best_effort" bytecode decoding.
	Mode string `yaml:"mode,omitempty"`
}

type Filter struct {
	HideEmpty     bool `yaml:"hide_empty"`
	CaseSensitive bool `yaml:"case_sensitive"`
}

type Save struct {
	Workers int    `yaml:"workers"`
	OnError string `yaml:"on_error"` // fail|skip
}

type Log struct {
	Level string `yaml:"level"` // debug|info|warn|error
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Scan:   Scan{Include: []string{"**/*.class"}, Mode: "strict"},
		Filter: Filter{HideEmpty: true},
		Save:   Save{Workers: 4, OnError: OnErrorFail},
		Log:    Log{Level: "info"},
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	if c.Save.Workers < 1 {
		return fmt.Errorf("save.workers must be positive, got %d", c.Save.Workers)
	}
	switch c.Save.OnError {
	case OnErrorFail, OnErrorSkip:
	default:
		return fmt.Errorf("save.on_error must be %q or %q, got %q", OnErrorFail, OnErrorSkip, c.Save.OnError)
	}
	if _, err := ParseMode(c.Scan.Mode); err != nil {
		return err
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Resolve loads path, or the file named by $JARSTRINGS_CONFIG, or returns
// the defaults when neither is set.
func Resolve(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Query builds a filter query from the filter settings.
func (c *Config) Query(text string) strtable.Query {
	return strtable.Query{Text: text, HideEmpty: c.Filter.HideEmpty, CaseSensitive: c.Filter.CaseSensitive}
}

// ParseMode maps a scan mode name to a decoding mode. Empty means strict.
func ParseMode(s string) (classfmt.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return classfmt.ModeStrict, nil
	case "best_effort", "best-effort":
		return classfmt.ModeBestEffort, nil
	}
	return 0, fmt.Errorf("scan.mode must be strict or best_effort, got %q", s)
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
}
