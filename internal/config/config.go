// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	// ContextLimit is the assumed size of the assistant's context window,
	// in tokens.
	ContextLimit uint64 `json:"context_limit" yaml:"context_limit"`

	// CompressThreshold is the fill fraction at which the context meter
	// turns to its warning color.
	CompressThreshold float64 `json:"compress_threshold" yaml:"compress_threshold"`

	// UsagePollSeconds is the interval between usage provider polls.
	UsagePollSeconds int `json:"usage_poll_seconds" yaml:"usage_poll_seconds"`

	// SnapshotQuietMs is the output quiescence window that marks a turn
	// boundary, in milliseconds.
	SnapshotQuietMs int `json:"snapshot_quiet_ms" yaml:"snapshot_quiet_ms"`

	// Providers configures the usage panel sources.
	Providers []ProviderConfig `json:"providers" yaml:"providers"`
}

// ProviderConfig configures one usage provider.
type ProviderConfig struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"` // local, manual, httpjson

	// local and manual
	Limit uint64 `json:"limit,omitempty" yaml:"limit,omitempty"`
	Used  uint64 `json:"used,omitempty" yaml:"used,omitempty"`

	// httpjson
	URL          string            `json:"url,omitempty" yaml:"url,omitempty"`
	Method       string            `json:"method,omitempty" yaml:"method,omitempty"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body         string            `json:"body,omitempty" yaml:"body,omitempty"`
	UsedPointer  string            `json:"used_pointer,omitempty" yaml:"used_pointer,omitempty"`
	LimitPointer string            `json:"limit_pointer,omitempty" yaml:"limit_pointer,omitempty"`
}

// Default returns a Config with default values, including one local
// provider tracking the session transcript.
func Default() *Config {
	return &Config{
		ContextLimit:      200000,
		CompressThreshold: 0.85,
		UsagePollSeconds:  30,
		SnapshotQuietMs:   2000,
		Providers: []ProviderConfig{
			{Name: "session", Type: "local"},
		},
	}
}

// Load loads configuration for the given workspace, falling back to
// defaults. The home config is applied first and the workspace config on
// top, so per-project settings win.
func Load(workspaceDataDir string) (*Config, error) {
	cfg := Default()

	if home, err := os.UserHomeDir(); err == nil {
		if err := loadDir(cfg, filepath.Join(home, ".cc-workbench")); err != nil {
			return nil, err
		}
	}
	if err := loadDir(cfg, workspaceDataDir); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDir merges config.json and config.yaml from dir into cfg, if present.
func loadDir(cfg *Config, dir string) error {
	for _, name := range []string{"config.json", "config.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}

		var fileCfg Config
		if filepath.Ext(name) == ".json" {
			err = json.Unmarshal(data, &fileCfg)
		} else {
			err = yaml.Unmarshal(data, &fileCfg)
		}
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}

		mergeConfig(cfg, &fileCfg)
	}
	return nil
}

// mergeConfig merges file configuration into the base configuration.
// Only non-zero values from the file are applied; a providers list replaces
// the base list wholesale.
func mergeConfig(dst, src *Config) {
	if src.ContextLimit != 0 {
		dst.ContextLimit = src.ContextLimit
	}
	if src.CompressThreshold != 0 {
		dst.CompressThreshold = src.CompressThreshold
	}
	if src.UsagePollSeconds != 0 {
		dst.UsagePollSeconds = src.UsagePollSeconds
	}
	if src.SnapshotQuietMs != 0 {
		dst.SnapshotQuietMs = src.SnapshotQuietMs
	}
	if src.Providers != nil {
		dst.Providers = src.Providers
	}
}
