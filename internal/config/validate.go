package config

import "fmt"

// Validate checks the configuration for values the workbench cannot run
// with.
func (c *Config) Validate() error {
	if c.ContextLimit == 0 {
		return fmt.Errorf("context_limit must be positive")
	}
	if c.CompressThreshold <= 0 || c.CompressThreshold > 1 {
		return fmt.Errorf("compress_threshold must be in (0, 1], got %v", c.CompressThreshold)
	}
	if c.UsagePollSeconds < 0 {
		return fmt.Errorf("usage_poll_seconds must be positive, got %d", c.UsagePollSeconds)
	}
	if c.SnapshotQuietMs <= 0 {
		return fmt.Errorf("snapshot_quiet_ms must be positive, got %d", c.SnapshotQuietMs)
	}

	seen := make(map[string]bool)
	for i, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("providers[%d]: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("providers[%d]: duplicate name %q", i, p.Name)
		}
		seen[p.Name] = true

		switch p.Type {
		case "local":
		case "manual":
			if p.Limit == 0 {
				return fmt.Errorf("provider %q: manual providers need a limit", p.Name)
			}
		case "httpjson":
			if p.URL == "" {
				return fmt.Errorf("provider %q: httpjson providers need a url", p.Name)
			}
			if p.UsedPointer == "" {
				return fmt.Errorf("provider %q: httpjson providers need a used_pointer", p.Name)
			}
		default:
			return fmt.Errorf("provider %q: unknown type %q", p.Name, p.Type)
		}
	}
	return nil
}
