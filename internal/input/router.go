package input

import "sync"

// Router tracks the focus and modal state machines.
type Router struct {
	mu    sync.RWMutex
	focus Focus
	modal Modal
}

// NewRouter creates a router with the output pane focused and no modal.
func NewRouter() *Router {
	return &Router{focus: FocusOutput}
}

// Focus returns the current focus.
func (r *Router) Focus() Focus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.focus
}

// Modal returns the current modal.
func (r *Router) Modal() Modal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.modal
}

// ToggleFocus switches between the output pane and the history panel.
// Ignored while a modal is shown.
func (r *Router) ToggleFocus() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.modal != ModalNone {
		return
	}
	if r.focus == FocusOutput {
		r.focus = FocusHistory
	} else {
		r.focus = FocusOutput
	}
}

// ShowDiff opens the diff preview modal. Only valid from the history panel
// with no modal shown.
func (r *Router) ShowDiff() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.focus != FocusHistory || r.modal != ModalNone {
		return false
	}
	r.modal = ModalDiff
	return true
}

// ShowConfirm opens the restore confirmation. Valid from the history panel
// directly or on top of a shown diff preview.
func (r *Router) ShowConfirm() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.focus != FocusHistory {
		return false
	}
	if r.modal != ModalNone && r.modal != ModalDiff {
		return false
	}
	r.modal = ModalConfirm
	return true
}

// CloseModal dismisses any shown modal.
func (r *Router) CloseModal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modal = ModalNone
}

// ForwardToChild reports whether keystrokes should go verbatim to the
// wrapped child's pty.
func (r *Router) ForwardToChild() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.focus == FocusOutput && r.modal == ModalNone
}
