package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one captured workspace snapshot: a metadata row pointing at a
// patch in the store. Immutable once written.
type Entry struct {
	Seq              int64     `json:"seq"`
	Timestamp        time.Time `json:"timestamp"`
	TranscriptOffset int64     `json:"transcript_offset"`
	Commit           string    `json:"commit"`
	// Backup marks entries created automatically before a restore.
	Backup bool `json:"backup,omitempty"`
}

// metaTable is the on-disk session metadata table, a JSON array keyed by
// sequence number. Writes replace the whole file via temp+rename so readers
// observe either the old or the new table, never a partial one.
type metaTable struct {
	path string
	mu   sync.Mutex
}

func newMetaTable(path string) *metaTable {
	return &metaTable{path: path}
}

func (m *metaTable) load() ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked()
}

func (m *metaTable) loadLocked() ([]Entry, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading metadata table: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing metadata table: %w", err)
	}
	return entries, nil
}

func (m *metaTable) append(entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.loadLocked()
	if err != nil {
		return err
	}
	entries = append(entries, entry)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".entries-*")
	if err != nil {
		return fmt.Errorf("creating temp metadata file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, m.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing metadata table: %w", err)
	}
	return nil
}
