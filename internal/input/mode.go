// Package input holds the focus and modal state machines that decide where
// keystrokes go.
package input

// Focus represents which pane receives navigation keys.
type Focus int

const (
	// FocusOutput forwards input to the wrapped child.
	FocusOutput Focus = iota
	// FocusHistory is for navigating the snapshot history panel.
	FocusHistory
)

// String returns the human-readable focus name.
func (f Focus) String() string {
	switch f {
	case FocusOutput:
		return "OUTPUT"
	case FocusHistory:
		return "HISTORY"
	default:
		return "UNKNOWN"
	}
}

// IsOutput returns true if the output pane has focus.
func (f Focus) IsOutput() bool {
	return f == FocusOutput
}

// IsHistory returns true if the history panel has focus.
func (f Focus) IsHistory() bool {
	return f == FocusHistory
}

// Modal represents the overlay currently shown, if any.
type Modal int

const (
	// ModalNone means no overlay is shown.
	ModalNone Modal = iota
	// ModalDiff shows a snapshot diff preview.
	ModalDiff
	// ModalConfirm shows the restore confirmation prompt.
	ModalConfirm
)

// String returns the human-readable modal name.
func (m Modal) String() string {
	switch m {
	case ModalNone:
		return "NONE"
	case ModalDiff:
		return "DIFF"
	case ModalConfirm:
		return "CONFIRM"
	default:
		return "UNKNOWN"
	}
}

// IsNone returns true if no modal is shown.
func (m Modal) IsNone() bool {
	return m == ModalNone
}
