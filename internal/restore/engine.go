// Package restore drives the diff-preview and restore flow over the
// snapshot store. The engine is a small state machine; nothing touches the
// workspace until a restore is explicitly confirmed.
package restore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/abdullathedruid/ccwb/internal/snapshot"
)

// State is the engine's position in the preview/restore flow.
type State int

const (
	// StateIdle means no preview or restore is in progress.
	StateIdle State = iota
	// StatePreviewRequested means a preview is being computed.
	StatePreviewRequested
	// StatePreviewShown means a preview is on screen.
	StatePreviewShown
	// StateRestoreConfirm means the confirmation prompt is on screen.
	StateRestoreConfirm
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreviewRequested:
		return "preview-requested"
	case StatePreviewShown:
		return "preview-shown"
	case StateRestoreConfirm:
		return "restore-confirm"
	default:
		return "unknown"
	}
}

// ErrBadTransition is returned when an operation is invalid in the current
// state.
var ErrBadTransition = errors.New("invalid restore state transition")

// Engine owns the preview/restore flow for one workspace.
type Engine struct {
	store     *snapshot.Store
	workspace string
	mutations *sync.Mutex // shared workspace-mutation lock
	offsetFn  func() int64

	mu      sync.Mutex
	state   State
	preview *Preview
}

// NewEngine creates an engine over the store. offsetFn supplies the current
// transcript offset for backup entries.
func NewEngine(store *snapshot.Store, workspace string, mutations *sync.Mutex, offsetFn func() int64) *Engine {
	return &Engine{
		store:     store,
		workspace: workspace,
		mutations: mutations,
		offsetFn:  offsetFn,
	}
}

// State returns the engine's current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Preview returns the currently shown preview, or nil.
func (e *Engine) Preview() *Preview {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.preview
}

// RequestPreview computes and shows a preview of restoring the given entry.
// Valid from idle; any failure returns the engine to idle.
func (e *Engine) RequestPreview(entry snapshot.Entry) (*Preview, error) {
	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: preview from %s", ErrBadTransition, e.state)
	}
	e.state = StatePreviewRequested
	e.mu.Unlock()

	p, err := e.buildPreview(entry)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.state = StateIdle
		e.preview = nil
		return nil, err
	}
	e.state = StatePreviewShown
	e.preview = p
	return p, nil
}

// ConfirmPrompt advances from the shown preview to the confirmation prompt.
func (e *Engine) ConfirmPrompt() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePreviewShown {
		return fmt.Errorf("%w: confirm from %s", ErrBadTransition, e.state)
	}
	e.state = StateRestoreConfirm
	return nil
}

// Cancel aborts the flow from any state with no side effects.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateIdle
	e.preview = nil
}

// Restore applies the previewed snapshot to the workspace. Valid only from
// the confirmation state. The current state is backed up first; the
// workspace is only mutated after the snapshot tree has been fully staged.
func (e *Engine) Restore() error {
	e.mu.Lock()
	if e.state != StateRestoreConfirm || e.preview == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: restore from %s", ErrBadTransition, e.state)
	}
	p := e.preview
	e.mu.Unlock()

	e.mutations.Lock()
	err := e.apply(p)
	e.mutations.Unlock()

	e.mu.Lock()
	e.state = StateIdle
	e.preview = nil
	e.mu.Unlock()
	return err
}

func (e *Engine) apply(p *Preview) error {
	// Back up the current state as its own history entry so nothing is lost.
	if _, err := e.store.WritePatch(e.offsetFn(), true); err != nil && !errors.Is(err, snapshot.ErrNoChanges) {
		return fmt.Errorf("backing up current state: %w", err)
	}

	// The workspace may have moved since the preview was built; restore what
	// differs now, not what differed at preview time.
	changes, err := e.store.DiffNameStatus(p.Entry.Commit)
	if err != nil {
		return fmt.Errorf("diffing workspace: %w", err)
	}

	// Copy every file the restore will touch into the backup directory.
	stamp := time.Now().UTC().Format("20060102-150405")
	backupRoot := filepath.Join(e.store.BackupDir(), stamp)
	for _, f := range changes {
		src := filepath.Join(e.workspace, f.Path)
		if _, err := os.Stat(src); err != nil {
			continue // deleted since the snapshot; nothing to back up
		}
		if err := copyFile(src, filepath.Join(backupRoot, f.Path)); err != nil {
			return fmt.Errorf("backing up %s: %w", f.Path, err)
		}
	}

	// Stage the full snapshot tree before touching the workspace. A failure
	// here leaves the workspace exactly as it was.
	staging, err := os.MkdirTemp(e.store.BackupDir(), ".staging-")
	if err != nil {
		return fmt.Errorf("creating staging dir: %w", err)
	}
	defer os.RemoveAll(staging)
	if err := e.store.CheckoutTree(p.Entry.Commit, staging); err != nil {
		return fmt.Errorf("staging snapshot: %w", err)
	}

	for _, f := range changes {
		dst := filepath.Join(e.workspace, f.Path)
		if f.Status == 'A' {
			// Created after the snapshot; remove it.
			if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("removing %s: %w", f.Path, err)
			}
			continue
		}
		if err := copyFile(filepath.Join(staging, f.Path), dst); err != nil {
			return fmt.Errorf("restoring %s: %w", f.Path, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
