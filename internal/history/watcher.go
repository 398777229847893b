package history

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher tracks whether anything under the workspace changed since the
// last capture. It exists to let the correlator skip the git staging work
// on quiet boundaries; when watching fails the correlator falls back to
// always diffing, so the watcher never has to be perfect.
type Watcher struct {
	root    string
	skipDir string // data directory, never watched

	watcher *fsnotify.Watcher
	stopCh  chan struct{}

	mu       sync.Mutex
	activity bool
}

// NewWatcher watches the workspace tree rooted at root, ignoring skipDir.
func NewWatcher(root, skipDir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:    root,
		skipDir: skipDir,
		watcher: fsw,
		stopCh:  make(chan struct{}),
		// Start with activity set so the first boundary always diffs.
		activity: true,
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.watchLoop()
	return w, nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
}

// ActivitySince reports whether any change was observed, and clears the
// flag so the next call reflects only subsequent changes.
func (w *Watcher) ActivitySince() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	active := w.activity
	w.activity = false
	return active
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.ignored(event.Name) {
				continue
			}
			w.mu.Lock()
			w.activity = true
			w.mu.Unlock()

			// New directories need their own watch; fsnotify is not
			// recursive.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.addTree(event.Name)
				}
			}

		case <-w.watcher.Errors:
			// Continue on errors
		}
	}
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		w.watcher.Add(path)
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	if w.skipDir == "" {
		return false
	}
	rel, err := filepath.Rel(w.skipDir, path)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}
