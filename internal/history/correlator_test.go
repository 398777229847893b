package history

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/abdullathedruid/ccwb/internal/snapshot"
)

func newTestCorrelator(t *testing.T, quiet time.Duration) (*Correlator, string, chan snapshot.Entry) {
	t.Helper()
	workspace := t.TempDir()
	store, err := snapshot.Open(workspace, filepath.Join(workspace, ".cc-workbench"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	entryCh := make(chan snapshot.Entry, 16)
	var mutations sync.Mutex
	c := NewCorrelator(store, quiet, &mutations, nil,
		func(e snapshot.Entry) { entryCh <- e },
		func(msg string) { t.Logf("notice: %s", msg) })
	return c, workspace, entryCh
}

func waitForEntry(t *testing.T, ch chan snapshot.Entry) snapshot.Entry {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for history entry")
		return snapshot.Entry{}
	}
}

func TestBoundaryCapturesAfterQuiescence(t *testing.T) {
	c, workspace, entryCh := newTestCorrelator(t, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	if err := os.WriteFile(filepath.Join(workspace, "a.txt"), []byte("1"), 0644); err != nil {
		t.Fatal(err)
	}
	c.OutputObserved(42)

	e := waitForEntry(t, entryCh)
	if e.Seq != 1 {
		t.Errorf("seq = %d, want 1", e.Seq)
	}
	if e.TranscriptOffset != 42 {
		t.Errorf("transcript offset = %d, want 42", e.TranscriptOffset)
	}
}

func TestRapidOutputCoalescesIntoOneEntry(t *testing.T) {
	c, workspace, entryCh := newTestCorrelator(t, 150*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	if err := os.WriteFile(filepath.Join(workspace, "a.txt"), []byte("1"), 0644); err != nil {
		t.Fatal(err)
	}
	// Bursts inside the quiet window keep pushing the boundary out.
	for i := 0; i < 5; i++ {
		c.OutputObserved(int64(i + 1))
		time.Sleep(20 * time.Millisecond)
	}

	e := waitForEntry(t, entryCh)
	if e.TranscriptOffset != 5 {
		t.Errorf("transcript offset = %d, want 5 (latest observation)", e.TranscriptOffset)
	}

	select {
	case extra := <-entryCh:
		t.Errorf("unexpected second entry seq=%d", extra.Seq)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestEmptyDiffProducesNoEntry(t *testing.T) {
	c, _, entryCh := newTestCorrelator(t, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	// Output with no workspace changes behind it.
	c.OutputObserved(10)

	select {
	case e := <-entryCh:
		t.Errorf("unexpected entry seq=%d for empty diff", e.Seq)
	case <-time.After(700 * time.Millisecond):
	}
}

// TestWaitCoversInFlightCapture stalls a capture at the workspace-mutation
// lock, cancels the run context, and checks that Wait only returns once the
// capture has finished and its entry landed.
func TestWaitCoversInFlightCapture(t *testing.T) {
	workspace := t.TempDir()
	store, err := snapshot.Open(workspace, filepath.Join(workspace, ".cc-workbench"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	entryCh := make(chan snapshot.Entry, 16)
	var mutations sync.Mutex
	c := NewCorrelator(store, 20*time.Millisecond, &mutations, nil,
		func(e snapshot.Entry) { entryCh <- e }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)

	if err := os.WriteFile(filepath.Join(workspace, "a.txt"), []byte("1"), 0644); err != nil {
		t.Fatal(err)
	}
	mutations.Lock()
	c.OutputObserved(7)

	// Wait for the boundary to be claimed; the capture is now blocked on
	// the mutation lock.
	deadline := time.Now().Add(5 * time.Second)
	for {
		c.mu.Lock()
		capturing := c.capturing
		c.mu.Unlock()
		if capturing {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("capture never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if c.Wait(100 * time.Millisecond) {
		t.Fatal("Wait returned while a capture was still in flight")
	}

	mutations.Unlock()
	if !c.Wait(5 * time.Second) {
		t.Fatal("Wait timed out after the capture was released")
	}

	e := waitForEntry(t, entryCh)
	if e.TranscriptOffset != 7 {
		t.Errorf("transcript offset = %d, want 7", e.TranscriptOffset)
	}
}

func TestNoBoundaryWithoutOutput(t *testing.T) {
	c, workspace, entryCh := newTestCorrelator(t, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	if err := os.WriteFile(filepath.Join(workspace, "a.txt"), []byte("1"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-entryCh:
		t.Errorf("entry seq=%d captured without any child output", e.Seq)
	case <-time.After(700 * time.Millisecond):
	}
}
