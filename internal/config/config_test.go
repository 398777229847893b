package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.ContextLimit != 200000 {
		t.Errorf("ContextLimit = %d, want 200000", cfg.ContextLimit)
	}
	if cfg.CompressThreshold != 0.85 {
		t.Errorf("CompressThreshold = %v, want 0.85", cfg.CompressThreshold)
	}
	if cfg.SnapshotQuietMs != 2000 {
		t.Errorf("SnapshotQuietMs = %d, want 2000", cfg.SnapshotQuietMs)
	}
	if len(cfg.Providers) != 1 || cfg.Providers[0].Type != "local" {
		t.Errorf("default providers = %+v, want one local provider", cfg.Providers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadJSONOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	raw := `{"context_limit": 100000, "snapshot_quiet_ms": 500}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := loadDir(cfg, dir); err != nil {
		t.Fatalf("loadDir failed: %v", err)
	}
	if cfg.ContextLimit != 100000 {
		t.Errorf("ContextLimit = %d, want 100000", cfg.ContextLimit)
	}
	if cfg.SnapshotQuietMs != 500 {
		t.Errorf("SnapshotQuietMs = %d, want 500", cfg.SnapshotQuietMs)
	}
	// Untouched fields keep their defaults.
	if cfg.CompressThreshold != 0.85 {
		t.Errorf("CompressThreshold = %v, want default 0.85", cfg.CompressThreshold)
	}
}

func TestLoadYAMLProviders(t *testing.T) {
	dir := t.TempDir()
	raw := `
providers:
  - name: api
    type: httpjson
    url: https://example.test/usage
    used_pointer: /data/used
    limit_pointer: /data/limit
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := loadDir(cfg, dir); err != nil {
		t.Fatalf("loadDir failed: %v", err)
	}
	if len(cfg.Providers) != 1 {
		t.Fatalf("providers = %+v, want replacement by file list", cfg.Providers)
	}
	p := cfg.Providers[0]
	if p.Type != "httpjson" || p.UsedPointer != "/data/used" {
		t.Errorf("provider = %+v", p)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config invalid: %v", err)
	}
}

func TestWorkspaceOverridesHome(t *testing.T) {
	homeDir := t.TempDir()
	workDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(homeDir, "config.json"),
		[]byte(`{"context_limit": 50000, "usage_poll_seconds": 60}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "config.json"),
		[]byte(`{"context_limit": 75000}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := loadDir(cfg, homeDir); err != nil {
		t.Fatal(err)
	}
	if err := loadDir(cfg, workDir); err != nil {
		t.Fatal(err)
	}

	if cfg.ContextLimit != 75000 {
		t.Errorf("ContextLimit = %d, want workspace value 75000", cfg.ContextLimit)
	}
	if cfg.UsagePollSeconds != 60 {
		t.Errorf("UsagePollSeconds = %d, want home value 60", cfg.UsagePollSeconds)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero context limit", func(c *Config) { c.ContextLimit = 0 }},
		{"threshold above one", func(c *Config) { c.CompressThreshold = 1.5 }},
		{"unknown provider type", func(c *Config) {
			c.Providers = []ProviderConfig{{Name: "x", Type: "mystery"}}
		}},
		{"nameless provider", func(c *Config) {
			c.Providers = []ProviderConfig{{Type: "local"}}
		}},
		{"duplicate provider names", func(c *Config) {
			c.Providers = []ProviderConfig{
				{Name: "a", Type: "local"},
				{Name: "a", Type: "manual", Limit: 10},
			}
		}},
		{"httpjson without url", func(c *Config) {
			c.Providers = []ProviderConfig{{Name: "x", Type: "httpjson", UsedPointer: "/u"}}
		}},
		{"manual without limit", func(c *Config) {
			c.Providers = []ProviderConfig{{Name: "x", Type: "manual"}}
		}},
	}
	for _, tt := range tests {
		cfg := Default()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: Validate accepted invalid config", tt.name)
		}
	}
}
