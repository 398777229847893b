// Package history turns child output activity into workspace snapshots. A
// turn boundary is inferred from quiescence: output arrived, then the child
// went quiet for the configured window.
package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abdullathedruid/ccwb/internal/snapshot"
)

// tickInterval is how often the correlator checks for a lapsed window. It
// only bounds boundary detection latency, not the window itself.
const tickInterval = 250 * time.Millisecond

// Correlator watches output timing and captures a snapshot at each inferred
// turn boundary. At most one capture runs at a time; boundaries that fire
// while one is in flight coalesce into the next check.
type Correlator struct {
	store     *snapshot.Store
	quiet     time.Duration
	mutations *sync.Mutex // shared workspace-mutation lock
	watcher   *Watcher    // nil when watching is unavailable

	onEntry  func(snapshot.Entry)
	onNotice func(string)

	done chan struct{} // closed when Run returns

	mu         sync.Mutex
	lastOutput time.Time
	offset     int64
	dirty      bool // output seen since the last capture attempt
	capturing  bool
}

// NewCorrelator creates a correlator over the given store. onEntry receives
// each new history entry; onNotice receives user-visible warnings. watcher
// may be nil, in which case every boundary diffs the workspace.
func NewCorrelator(store *snapshot.Store, quiet time.Duration, mutations *sync.Mutex,
	watcher *Watcher, onEntry func(snapshot.Entry), onNotice func(string)) *Correlator {
	return &Correlator{
		store:     store,
		quiet:     quiet,
		mutations: mutations,
		watcher:   watcher,
		onEntry:   onEntry,
		onNotice:  onNotice,
		done:      make(chan struct{}),
	}
}

// OutputObserved records that child output reached the given transcript
// offset. Called from the output reader for every chunk.
func (c *Correlator) OutputObserved(offset int64) {
	c.mu.Lock()
	c.lastOutput = time.Now()
	c.offset = offset
	c.dirty = true
	c.mu.Unlock()
}

// Run drives boundary detection until ctx is cancelled. Captures run on
// this goroutine, so a cancellation arriving mid-capture takes effect only
// after the patch write finishes.
func (c *Correlator) Run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if offset, ok := c.takeBoundary(); ok {
				c.capture(offset)
			}
		}
	}
}

// Wait blocks until Run has returned, including any capture it was in the
// middle of, or until the timeout lapses. It reports whether Run finished.
func (c *Correlator) Wait(timeout time.Duration) bool {
	select {
	case <-c.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// takeBoundary reports whether a turn boundary has lapsed, and claims it.
func (c *Correlator) takeBoundary() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty || c.capturing {
		return 0, false
	}
	if time.Since(c.lastOutput) < c.quiet {
		return 0, false
	}
	c.dirty = false
	c.capturing = true
	return c.offset, true
}

func (c *Correlator) capture(offset int64) {
	defer func() {
		c.mu.Lock()
		c.capturing = false
		c.mu.Unlock()
	}()

	if c.watcher != nil && !c.watcher.ActivitySince() {
		return
	}

	c.mutations.Lock()
	entry, err := c.store.WritePatch(offset, false)
	c.mutations.Unlock()

	if err != nil {
		if errors.Is(err, snapshot.ErrNoChanges) {
			return
		}
		if c.onNotice != nil {
			c.onNotice(fmt.Sprintf("snapshot failed: %v", err))
		}
		return
	}
	if c.onEntry != nil {
		c.onEntry(*entry)
	}
}
