// Package state manages the shared session state the panels render from.
package state

import (
	"sync"
	"time"

	"github.com/abdullathedruid/ccwb/internal/snapshot"
	"github.com/abdullathedruid/ccwb/internal/usage"
)

// noticeTTL is how long a transient notice stays visible.
const noticeTTL = 8 * time.Second

// Session holds everything the workbench panels display. Each field group
// has one designated writer; the UI only reads.
type Session struct {
	mu sync.RWMutex

	// History entries, most recent last. Written by the correlator and
	// restore flows.
	entries  []snapshot.Entry
	selected int // index into entries; -1 when empty

	// Latest usage sample per provider, in arrival order. Written by the
	// usage tracker.
	samples map[string]usage.Sample
	order   []string

	// Output scrollback. Written by the input router's scroll handlers.
	scrollOffset int
	follow       bool

	// Transient notice shown in the workbench panel.
	notice   string
	noticeAt time.Time
}

// New creates an empty session state.
func New() *Session {
	return &Session{
		selected: -1,
		samples:  make(map[string]usage.Sample),
		follow:   true,
	}
}

// AppendEntry adds a history entry and selects it.
func (s *Session) AppendEntry(e snapshot.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	s.selected = len(s.entries) - 1
}

// SetEntries replaces the entry list, preserving the selection by sequence
// number where possible.
func (s *Session) SetEntries(entries []snapshot.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var selectedSeq int64 = -1
	if s.selected >= 0 && s.selected < len(s.entries) {
		selectedSeq = s.entries[s.selected].Seq
	}

	s.entries = append([]snapshot.Entry(nil), entries...)
	s.selected = len(s.entries) - 1
	for i, e := range s.entries {
		if e.Seq == selectedSeq {
			s.selected = i
			break
		}
	}
}

// Entries returns a copy of the history entries, most recent last.
func (s *Session) Entries() []snapshot.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]snapshot.Entry(nil), s.entries...)
}

// SelectedEntry returns the selected entry, or false when history is empty.
func (s *Session) SelectedEntry() (snapshot.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected < 0 || s.selected >= len(s.entries) {
		return snapshot.Entry{}, false
	}
	return s.entries[s.selected], true
}

// SelectedIndex returns the selection index, -1 when history is empty.
func (s *Session) SelectedIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SelectPrev moves the selection toward older entries.
func (s *Session) SelectPrev() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected > 0 {
		s.selected--
	}
}

// SelectNext moves the selection toward newer entries.
func (s *Session) SelectNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected < len(s.entries)-1 {
		s.selected++
	}
}

// SetSample records a provider's latest reading.
func (s *Session) SetSample(sample usage.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.samples[sample.Provider]; !ok {
		s.order = append(s.order, sample.Provider)
	}
	s.samples[sample.Provider] = sample
}

// Samples returns the latest reading per provider in first-seen order.
func (s *Session) Samples() []usage.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]usage.Sample, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.samples[name])
	}
	return out
}

// Scroll adjusts the output scrollback by delta lines and disables follow.
// maxOffset bounds how far back the view can go.
func (s *Session) Scroll(delta, maxOffset int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollOffset += delta
	if s.scrollOffset < 0 {
		s.scrollOffset = 0
	}
	if s.scrollOffset > maxOffset {
		s.scrollOffset = maxOffset
	}
	s.follow = false
}

// ScrollTo jumps the scrollback to an absolute offset and disables follow.
func (s *Session) ScrollTo(offset, maxOffset int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offset < 0 {
		offset = 0
	}
	if offset > maxOffset {
		offset = maxOffset
	}
	s.scrollOffset = offset
	s.follow = false
}

// Follow re-enables following the live output.
func (s *Session) Follow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollOffset = 0
	s.follow = true
}

// ScrollState returns the scrollback offset and whether follow is active.
func (s *Session) ScrollState() (offset int, follow bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scrollOffset, s.follow
}

// SetNotice shows a transient notice in the workbench panel.
func (s *Session) SetNotice(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = msg
	s.noticeAt = time.Now()
}

// Notice returns the current notice, or empty once it has expired.
func (s *Session) Notice() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.notice == "" || time.Since(s.noticeAt) > noticeTTL {
		return ""
	}
	return s.notice
}
