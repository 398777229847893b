package restore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/abdullathedruid/ccwb/internal/snapshot"
)

func newTestEngine(t *testing.T) (*Engine, *snapshot.Store, string) {
	t.Helper()
	workspace := t.TempDir()
	store, err := snapshot.Open(workspace, filepath.Join(workspace, ".cc-workbench"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	var mutations sync.Mutex
	engine := NewEngine(store, workspace, &mutations, func() int64 { return 999 })
	return engine, store, workspace
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestPreviewShowsModifiedFile(t *testing.T) {
	engine, store, workspace := newTestEngine(t)

	writeFile(t, workspace, "a.txt", "1\n")
	entry, err := store.WritePatch(1, false)
	if err != nil {
		t.Fatalf("WritePatch failed: %v", err)
	}
	writeFile(t, workspace, "a.txt", "2\n")

	p, err := engine.RequestPreview(*entry)
	if err != nil {
		t.Fatalf("RequestPreview failed: %v", err)
	}
	if engine.State() != StatePreviewShown {
		t.Errorf("state = %s, want preview-shown", engine.State())
	}
	if len(p.Files) != 1 || p.Files[0].Path != "a.txt" || p.Files[0].Status != 'M' {
		t.Fatalf("preview files = %+v, want one modified a.txt", p.Files)
	}
	if !strings.Contains(p.Files[0].Diff, "-2") || !strings.Contains(p.Files[0].Diff, "+1") {
		t.Errorf("diff does not show restore direction:\n%s", p.Files[0].Diff)
	}
}

func TestCancelLeavesWorkspaceUntouched(t *testing.T) {
	engine, store, workspace := newTestEngine(t)

	writeFile(t, workspace, "a.txt", "1\n")
	entry, err := store.WritePatch(1, false)
	if err != nil {
		t.Fatalf("WritePatch failed: %v", err)
	}
	writeFile(t, workspace, "a.txt", "2\n")

	if _, err := engine.RequestPreview(*entry); err != nil {
		t.Fatalf("RequestPreview failed: %v", err)
	}
	if err := engine.ConfirmPrompt(); err != nil {
		t.Fatalf("ConfirmPrompt failed: %v", err)
	}
	engine.Cancel()

	if engine.State() != StateIdle {
		t.Errorf("state after cancel = %s, want idle", engine.State())
	}
	if got := readFile(t, workspace, "a.txt"); got != "2\n" {
		t.Errorf("workspace mutated by cancel: a.txt = %q", got)
	}
	entries, _ := store.ListEntries()
	if len(entries) != 1 {
		t.Errorf("cancel created entries: %d, want 1", len(entries))
	}
}

func TestConfirmedRestore(t *testing.T) {
	engine, store, workspace := newTestEngine(t)

	writeFile(t, workspace, "a.txt", "1\n")
	entry, err := store.WritePatch(1, false)
	if err != nil {
		t.Fatalf("WritePatch failed: %v", err)
	}

	writeFile(t, workspace, "a.txt", "2\n")
	writeFile(t, workspace, "new.txt", "created later\n")

	if _, err := engine.RequestPreview(*entry); err != nil {
		t.Fatalf("RequestPreview failed: %v", err)
	}
	if err := engine.ConfirmPrompt(); err != nil {
		t.Fatalf("ConfirmPrompt failed: %v", err)
	}
	if err := engine.Restore(); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if got := readFile(t, workspace, "a.txt"); got != "1\n" {
		t.Errorf("a.txt = %q after restore, want snapshot content", got)
	}
	if _, err := os.Stat(filepath.Join(workspace, "new.txt")); !os.IsNotExist(err) {
		t.Error("file created after the snapshot survived the restore")
	}
	if engine.State() != StateIdle {
		t.Errorf("state after restore = %s, want idle", engine.State())
	}
}

func TestRestoreWritesBackupEntryAndCopies(t *testing.T) {
	engine, store, workspace := newTestEngine(t)

	writeFile(t, workspace, "a.txt", "1\n")
	entry, err := store.WritePatch(1, false)
	if err != nil {
		t.Fatalf("WritePatch failed: %v", err)
	}
	writeFile(t, workspace, "a.txt", "2\n")

	if _, err := engine.RequestPreview(*entry); err != nil {
		t.Fatal(err)
	}
	if err := engine.ConfirmPrompt(); err != nil {
		t.Fatal(err)
	}
	if err := engine.Restore(); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	entries, err := store.ListEntries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries after restore, want 2 (snapshot + backup)", len(entries))
	}
	backup := entries[1]
	if !backup.Backup {
		t.Error("second entry not marked as backup")
	}
	if backup.TranscriptOffset != 999 {
		t.Errorf("backup transcript offset = %d, want 999", backup.TranscriptOffset)
	}

	// The overwritten content must also exist as a plain file copy.
	found := false
	filepath.Walk(store.BackupDir(), func(path string, info os.FileInfo, err error) error {
		if err == nil && info != nil && !info.IsDir() && filepath.Base(path) == "a.txt" {
			if data, err := os.ReadFile(path); err == nil && string(data) == "2\n" {
				found = true
			}
		}
		return nil
	})
	if !found {
		t.Error("pre-restore copy of a.txt not found under the backup dir")
	}
}

func TestInvalidTransitions(t *testing.T) {
	engine, store, workspace := newTestEngine(t)

	if err := engine.ConfirmPrompt(); !errors.Is(err, ErrBadTransition) {
		t.Errorf("ConfirmPrompt from idle: err = %v, want ErrBadTransition", err)
	}
	if err := engine.Restore(); !errors.Is(err, ErrBadTransition) {
		t.Errorf("Restore from idle: err = %v, want ErrBadTransition", err)
	}

	writeFile(t, workspace, "a.txt", "1\n")
	entry, err := store.WritePatch(1, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.RequestPreview(*entry); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.RequestPreview(*entry); !errors.Is(err, ErrBadTransition) {
		t.Errorf("second RequestPreview: err = %v, want ErrBadTransition", err)
	}
	if err := engine.Restore(); !errors.Is(err, ErrBadTransition) {
		t.Errorf("Restore without confirm: err = %v, want ErrBadTransition", err)
	}
}

// TestRestoreCoversEditsAfterPreview mutates the workspace between the
// preview and the confirmed restore. The restore must revert the workspace
// as it stands at apply time, not as it stood when the preview was built.
func TestRestoreCoversEditsAfterPreview(t *testing.T) {
	engine, store, workspace := newTestEngine(t)

	writeFile(t, workspace, "a.txt", "1\n")
	writeFile(t, workspace, "b.txt", "keep\n")
	entry, err := store.WritePatch(1, false)
	if err != nil {
		t.Fatalf("WritePatch failed: %v", err)
	}
	writeFile(t, workspace, "a.txt", "2\n")

	if _, err := engine.RequestPreview(*entry); err != nil {
		t.Fatal(err)
	}
	if err := engine.ConfirmPrompt(); err != nil {
		t.Fatal(err)
	}

	// Late edits the preview never saw.
	writeFile(t, workspace, "b.txt", "changed after preview\n")
	writeFile(t, workspace, "late.txt", "created after preview\n")

	if err := engine.Restore(); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if got := readFile(t, workspace, "a.txt"); got != "1\n" {
		t.Errorf("a.txt = %q after restore, want snapshot content", got)
	}
	if got := readFile(t, workspace, "b.txt"); got != "keep\n" {
		t.Errorf("b.txt = %q after restore, want snapshot content", got)
	}
	if _, err := os.Stat(filepath.Join(workspace, "late.txt")); !os.IsNotExist(err) {
		t.Error("file created after the preview survived the restore")
	}
}

func TestDeletedFileComesBack(t *testing.T) {
	engine, store, workspace := newTestEngine(t)

	writeFile(t, workspace, "gone.txt", "precious\n")
	entry, err := store.WritePatch(1, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(workspace, "gone.txt")); err != nil {
		t.Fatal(err)
	}

	if _, err := engine.RequestPreview(*entry); err != nil {
		t.Fatal(err)
	}
	if err := engine.ConfirmPrompt(); err != nil {
		t.Fatal(err)
	}
	if err := engine.Restore(); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if got := readFile(t, workspace, "gone.txt"); got != "precious\n" {
		t.Errorf("gone.txt = %q after restore, want original content", got)
	}
}
