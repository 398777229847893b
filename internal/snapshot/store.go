// Package snapshot persists workspace patches in a dedicated bare git
// history under the data directory, with session metadata in a JSON table
// alongside it. The store is independent of any version control the user
// runs in the workspace.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoChanges is returned by WritePatch when the workspace is identical to
// the last captured state.
var ErrNoChanges = errors.New("no changes since last snapshot")

// FileChange is one entry of a name-status diff.
type FileChange struct {
	Status byte // 'A' added, 'M' modified, 'D' deleted
	Path   string
}

// Store owns the patch history and metadata table for one workspace.
type Store struct {
	workspace string
	dataDir   string
	gitDir    string
	backupDir string
	meta      *metaTable

	// excludeSpec is the pathspec keeping the data directory out of
	// snapshots; empty when the data dir lives outside the workspace.
	excludeSpec string
}

// Open initializes the store under dataDir, creating the bare patch
// repository and backup directory if needed.
func Open(workspace, dataDir string) (*Store, error) {
	gitDir := filepath.Join(dataDir, "snapshots.git")
	backupDir := filepath.Join(dataDir, "backup")

	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return nil, fmt.Errorf("creating backup dir: %w", err)
	}

	s := &Store{
		workspace: workspace,
		dataDir:   dataDir,
		gitDir:    gitDir,
		backupDir: backupDir,
		meta:      newMetaTable(filepath.Join(dataDir, "entries.json")),
	}

	if rel, err := filepath.Rel(workspace, dataDir); err == nil && !strings.HasPrefix(rel, "..") {
		s.excludeSpec = ":(exclude)" + rel
	}

	if _, err := os.Stat(gitDir); os.IsNotExist(err) {
		if _, err := s.gitBare("init", "--bare"); err != nil {
			return nil, fmt.Errorf("initializing patch store: %w", err)
		}
	}

	return s, nil
}

// BackupDir returns the directory holding pre-restore workspace copies.
func (s *Store) BackupDir() string {
	return s.backupDir
}

// ListEntries returns all valid history entries ordered by sequence number.
// Rows whose patch is missing from the store (a crash between the patch and
// metadata writes, or vice versa) are treated as absent.
func (s *Store) ListEntries() ([]Entry, error) {
	entries, err := s.meta.load()
	if err != nil {
		return nil, err
	}
	valid := entries[:0]
	for _, e := range entries {
		if !s.commitExists(e.Commit) {
			break // last valid entry wins; drop the invalid tail
		}
		valid = append(valid, e)
	}
	return valid, nil
}

// WritePatch captures the current workspace state as a new history entry.
// The patch is committed to the bare repository first and the metadata row
// appended after, so an interrupted write is recoverable as "entry absent".
func (s *Store) WritePatch(transcriptOffset int64, backup bool) (*Entry, error) {
	if err := s.stageAll(); err != nil {
		return nil, err
	}

	// Untracked files were staged by add -A above; anything still untracked
	// is the excluded data dir, so -uno keeps it out of the emptiness check.
	status, err := s.git("status", "--porcelain", "-uno")
	if err != nil {
		return nil, fmt.Errorf("checking staged changes: %w", err)
	}
	if strings.TrimSpace(status) == "" {
		return nil, ErrNoChanges
	}

	entries, err := s.meta.load()
	if err != nil {
		return nil, err
	}
	seq := int64(1)
	if len(entries) > 0 {
		seq = entries[len(entries)-1].Seq + 1
	}

	msg := fmt.Sprintf("snapshot %d", seq)
	if backup {
		msg = fmt.Sprintf("backup %d", seq)
	}
	if _, err := s.git("-c", "user.name=ccwb", "-c", "user.email=ccwb@local",
		"commit", "-m", msg); err != nil {
		return nil, fmt.Errorf("committing snapshot: %w", err)
	}

	commit, err := s.git("rev-parse", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("resolving snapshot commit: %w", err)
	}

	entry := Entry{
		Seq:              seq,
		Timestamp:        time.Now().UTC(),
		TranscriptOffset: transcriptOffset,
		Commit:           strings.TrimSpace(commit),
		Backup:           backup,
	}
	if err := s.meta.append(entry); err != nil {
		return nil, fmt.Errorf("writing metadata: %w", err)
	}
	return &entry, nil
}

// ReadPatch returns the unified diff between the given snapshot and the
// current workspace tree.
func (s *Store) ReadPatch(commit string) (string, error) {
	if err := s.stageAll(); err != nil {
		return "", err
	}
	diff, err := s.git("diff", commit, "--")
	if err != nil {
		return "", fmt.Errorf("reading patch %s: %w", shortCommit(commit), err)
	}
	return diff, nil
}

// DiffNameStatus lists the files differing between the snapshot and the
// current workspace.
func (s *Store) DiffNameStatus(commit string) ([]FileChange, error) {
	if err := s.stageAll(); err != nil {
		return nil, err
	}
	out, err := s.git("diff", "--name-status", commit, "--")
	if err != nil {
		return nil, fmt.Errorf("diffing against %s: %w", shortCommit(commit), err)
	}
	return parseNameStatus(out), nil
}

// stageAll refreshes the index from the workspace so diffs see files
// created since the last snapshot. The data dir stays excluded.
func (s *Store) stageAll() error {
	addArgs := []string{"add", "-A", "--", "."}
	if s.excludeSpec != "" {
		addArgs = append(addArgs, s.excludeSpec)
	}
	if _, err := s.git(addArgs...); err != nil {
		return fmt.Errorf("staging workspace: %w", err)
	}
	return nil
}

// ShowFile returns a file's content at the given snapshot. The second
// return is false when the file did not exist there.
func (s *Store) ShowFile(commit, path string) ([]byte, bool, error) {
	out, err := s.gitRaw("show", commit+":"+path)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") ||
			strings.Contains(err.Error(), "exists on disk, but not in") {
			return nil, false, nil
		}
		return nil, false, err
	}
	return out, true, nil
}

// CheckoutTree materializes the snapshot's full tree into destDir without
// touching the workspace.
func (s *Store) CheckoutTree(commit, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	cmd := exec.Command("git", "--work-tree="+destDir, "--git-dir="+s.gitDir,
		"checkout", "-f", commit, "--", ".")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("checkout of %s: %w: %s", shortCommit(commit), err, strings.TrimSpace(stderr.String()))
	}
	// Checkout moves HEAD's index expectations around; reset the index so
	// the next capture stages against the real workspace again.
	if _, err := s.git("reset", "--mixed", commit); err != nil {
		return fmt.Errorf("resetting index: %w", err)
	}
	return nil
}

// commitExists reports whether the commit resolves in the patch store.
func (s *Store) commitExists(commit string) bool {
	if commit == "" {
		return false
	}
	_, err := s.gitBare("cat-file", "-e", commit+"^{commit}")
	return err == nil
}

// git runs a git command against the workspace and the store's bare repo.
func (s *Store) git(args ...string) (string, error) {
	out, err := s.gitRaw(args...)
	return string(out), err
}

func (s *Store) gitRaw(args ...string) ([]byte, error) {
	full := append([]string{"--work-tree=" + s.workspace, "--git-dir=" + s.gitDir}, args...)
	cmd := exec.Command("git", full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// gitBare runs a git command against the bare repo only.
func (s *Store) gitBare(args ...string) (string, error) {
	full := append([]string{"--git-dir=" + s.gitDir}, args...)
	cmd := exec.Command("git", full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// parseNameStatus parses "git diff --name-status" output.
func parseNameStatus(out string) []FileChange {
	var changes []FileChange
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 || parts[0] == "" {
			continue
		}
		changes = append(changes, FileChange{
			Status: parts[0][0],
			Path:   parts[1],
		})
	}
	return changes
}

func shortCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}
