package usage

import (
	"context"
	"sync"
	"time"
)

// minInterval is the floor on poll intervals; providers never hammer their
// source faster than this.
const minInterval = 5 * time.Second

// Tracker runs one polling goroutine per provider and retains the latest
// reading for each. Failed polls keep the previous values visible with OK
// cleared.
type Tracker struct {
	providers []Provider
	interval  time.Duration
	onSample  func(Sample)

	mu      sync.RWMutex
	latest  map[string]Sample
	started bool
}

// NewTracker creates a tracker over the given providers. onSample fires on
// every poll result and may be nil.
func NewTracker(providers []Provider, interval time.Duration, onSample func(Sample)) *Tracker {
	if interval < minInterval {
		interval = minInterval
	}
	return &Tracker{
		providers: providers,
		interval:  interval,
		onSample:  onSample,
		latest:    make(map[string]Sample),
	}
}

// Start launches the provider goroutines. They poll immediately, then on
// the interval, and stop when ctx is cancelled.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()

	for _, p := range t.providers {
		go t.pollLoop(ctx, p)
	}
}

// Samples returns the latest reading per provider, in provider order.
func (t *Tracker) Samples() []Sample {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Sample, 0, len(t.providers))
	for _, p := range t.providers {
		if s, ok := t.latest[p.Name()]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (t *Tracker) pollLoop(ctx context.Context, p Provider) {
	t.pollOnce(ctx, p)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.pollOnce(ctx, p)
		}
	}
}

func (t *Tracker) pollOnce(ctx context.Context, p Provider) {
	sample, err := p.Poll(ctx)
	if err != nil {
		// Stale values stay on screen; only the OK flag drops.
		t.mu.Lock()
		prev, had := t.latest[p.Name()]
		sample = Sample{Provider: p.Name(), OK: false, Time: time.Now()}
		if had {
			sample.Used = prev.Used
			sample.Limit = prev.Limit
		}
		t.latest[p.Name()] = sample
		t.mu.Unlock()
	} else {
		t.mu.Lock()
		t.latest[p.Name()] = sample
		t.mu.Unlock()
	}
	if t.onSample != nil {
		t.onSample(sample)
	}
}
