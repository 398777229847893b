// Package usage polls token-usage providers and keeps the latest reading
// per provider for the workbench panel.
package usage

import (
	"context"
	"time"
)

// Sample is one usage reading from a provider.
type Sample struct {
	Provider string
	Used     uint64
	Limit    uint64
	// OK is false when the last poll failed; Used and Limit then carry the
	// previous successful values so the panel stays populated.
	OK   bool
	Time time.Time
}

// Provider supplies usage readings. Implementations must be safe to poll
// from their own goroutine.
type Provider interface {
	Name() string
	Poll(ctx context.Context) (Sample, error)
}

// Local estimates usage from the local transcript.
type Local struct {
	name   string
	limit  uint64
	tokens func() uint64
}

// NewLocal creates a provider reading from the given token estimator.
func NewLocal(name string, limit uint64, tokens func() uint64) *Local {
	return &Local{name: name, limit: limit, tokens: tokens}
}

// Name returns the provider's display name.
func (l *Local) Name() string { return l.name }

// Poll returns the current transcript-based estimate.
func (l *Local) Poll(ctx context.Context) (Sample, error) {
	return Sample{
		Provider: l.name,
		Used:     l.tokens(),
		Limit:    l.limit,
		OK:       true,
		Time:     time.Now(),
	}, nil
}

// Manual reports fixed values from configuration.
type Manual struct {
	name        string
	used, limit uint64
}

// NewManual creates a provider with static values.
func NewManual(name string, used, limit uint64) *Manual {
	return &Manual{name: name, used: used, limit: limit}
}

// Name returns the provider's display name.
func (m *Manual) Name() string { return m.name }

// Poll returns the configured values.
func (m *Manual) Poll(ctx context.Context) (Sample, error) {
	return Sample{
		Provider: m.name,
		Used:     m.used,
		Limit:    m.limit,
		OK:       true,
		Time:     time.Now(),
	}, nil
}
