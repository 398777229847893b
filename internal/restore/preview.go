package restore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"

	"github.com/abdullathedruid/ccwb/internal/snapshot"
)

// FilePreview is one file's part of a restore preview.
type FilePreview struct {
	Status byte   // 'A' created since the snapshot, 'M' modified, 'D' deleted
	Path   string
	Diff   string // unified hunks, current content -> snapshot content
}

// Preview describes what restoring an entry would change.
type Preview struct {
	Entry snapshot.Entry
	Files []FilePreview
}

// Empty reports whether the restore would be a no-op.
func (p *Preview) Empty() bool {
	return len(p.Files) == 0
}

func (e *Engine) buildPreview(entry snapshot.Entry) (*Preview, error) {
	changes, err := e.store.DiffNameStatus(entry.Commit)
	if err != nil {
		return nil, fmt.Errorf("computing file list: %w", err)
	}

	p := &Preview{Entry: entry}
	for _, c := range changes {
		current, err := os.ReadFile(filepath.Join(e.workspace, c.Path))
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", c.Path, err)
		}

		stored, _, err := e.store.ShowFile(entry.Commit, c.Path)
		if err != nil {
			return nil, fmt.Errorf("reading snapshot copy of %s: %w", c.Path, err)
		}

		p.Files = append(p.Files, FilePreview{
			Status: c.Status,
			Path:   c.Path,
			Diff:   unifiedDiff(c.Path, string(current), string(stored)),
		})
	}
	return p, nil
}

// unifiedDiff renders the hunks taking the current content to the snapshot
// content, which is the direction a restore moves in.
func unifiedDiff(path, current, stored string) string {
	edits := myers.ComputeEdits(span.URIFromPath(path), current, stored)
	return fmt.Sprint(gotextdiff.ToUnified("current/"+path, "snapshot/"+path, current, edits))
}
