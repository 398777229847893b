package app

import (
	"github.com/jesseduffield/gocui"

	"github.com/abdullathedruid/ccwb/internal/input"
)

// specialKeys maps gocui keys to the escape sequences the child expects.
// Tab and Ctrl-Q are absent: those belong to the workbench.
var specialKeys = map[gocui.Key][]byte{
	gocui.KeyEnter:      []byte("\r"),
	gocui.KeyBackspace:  []byte{0x7f},
	gocui.KeyBackspace2: []byte{0x7f},
	gocui.KeyDelete:     []byte("\x1b[3~"),
	gocui.KeySpace:      []byte(" "),
	gocui.KeyArrowUp:    []byte("\x1b[A"),
	gocui.KeyArrowDown:  []byte("\x1b[B"),
	gocui.KeyArrowRight: []byte("\x1b[C"),
	gocui.KeyArrowLeft:  []byte("\x1b[D"),
	gocui.KeyHome:       []byte("\x1b[H"),
	gocui.KeyEnd:        []byte("\x1b[F"),
	gocui.KeyPgup:       []byte("\x1b[5~"),
	gocui.KeyPgdn:       []byte("\x1b[6~"),
	gocui.KeyF1:         []byte("\x1bOP"),
	gocui.KeyF2:         []byte("\x1bOQ"),
	gocui.KeyF3:         []byte("\x1bOR"),
	gocui.KeyF4:         []byte("\x1bOS"),
}

// forwardedCtrlKeys are control keys passed through to the child verbatim.
// Ctrl-Q quits the workbench and is never forwarded.
var forwardedCtrlKeys = []gocui.Key{
	gocui.KeyCtrlA, gocui.KeyCtrlB, gocui.KeyCtrlC, gocui.KeyCtrlD,
	gocui.KeyCtrlE, gocui.KeyCtrlF, gocui.KeyCtrlG, gocui.KeyCtrlJ,
	gocui.KeyCtrlK, gocui.KeyCtrlL, gocui.KeyCtrlN, gocui.KeyCtrlO,
	gocui.KeyCtrlP, gocui.KeyCtrlR, gocui.KeyCtrlS, gocui.KeyCtrlT,
	gocui.KeyCtrlU, gocui.KeyCtrlV, gocui.KeyCtrlW, gocui.KeyCtrlX,
	gocui.KeyCtrlY, gocui.KeyCtrlZ,
}

// setupKeybindings configures all keyboard handlers.
func (a *App) setupKeybindings() error {
	g := a.gui

	// Ctrl-Q always quits; q itself must stay forwardable to the child.
	if err := g.SetKeybinding("", gocui.KeyCtrlQ, gocui.ModNone, quit); err != nil {
		return err
	}

	// Tab switches focus between the output pane and the history panel.
	if err := g.SetKeybinding("", gocui.KeyTab, gocui.ModNone, func(g *gocui.Gui, v *gocui.View) error {
		a.router.ToggleFocus()
		return nil
	}); err != nil {
		return err
	}

	// Special keys: forwarded verbatim with output focus, history/modal
	// actions otherwise.
	for key, seq := range specialKeys {
		key, seq := key, seq
		if err := g.SetKeybinding("", key, gocui.ModNone, func(g *gocui.Gui, v *gocui.View) error {
			if a.router.ForwardToChild() {
				return a.writeChild(seq)
			}
			return a.handleWorkbenchKey(key)
		}); err != nil {
			return err
		}
	}

	// Control keys pass straight through; the workbench has no use for them.
	for _, key := range forwardedCtrlKeys {
		key := key
		if err := g.SetKeybinding("", key, gocui.ModNone, func(g *gocui.Gui, v *gocui.View) error {
			if a.router.ForwardToChild() {
				return a.writeChild([]byte{byte(key)})
			}
			return nil
		}); err != nil {
			return err
		}
	}

	// Esc cancels modals; with output focus it belongs to the child.
	if err := g.SetKeybinding("", gocui.KeyEsc, gocui.ModNone, func(g *gocui.Gui, v *gocui.View) error {
		if a.router.ForwardToChild() {
			return a.writeChild([]byte{0x1b})
		}
		if !a.router.Modal().IsNone() {
			a.cancelModal()
		}
		return nil
	}); err != nil {
		return err
	}

	// Letter commands need rune bindings, with pass-through when typing.
	letters := map[rune]func() error{
		'd': a.previewSelected,
		'r': a.confirmSelected,
		'y': a.restoreConfirmed,
		'n': func() error { a.cancelModal(); return nil },
	}
	for ch, action := range letters {
		ch, action := ch, action
		if err := g.SetKeybinding("", ch, gocui.ModNone, func(g *gocui.Gui, v *gocui.View) error {
			if a.router.ForwardToChild() {
				return a.writeChild([]byte(string(ch)))
			}
			return action()
		}); err != nil {
			return err
		}
	}

	return nil
}

// outputEditor forwards printable characters to the child's pty.
func (a *App) outputEditor(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	if ch != 0 && mod == gocui.ModNone && a.router.ForwardToChild() {
		a.writeChild([]byte(string(ch)))
		return true
	}
	return false
}

func (a *App) writeChild(p []byte) error {
	if a.child == nil {
		return nil
	}
	if _, err := a.child.Write(p); err != nil {
		a.session.SetNotice("child write failed: " + err.Error())
	}
	return nil
}

// handleWorkbenchKey services special keys while the history panel or a
// modal has them. Keys with no meaning in the current state are ignored.
func (a *App) handleWorkbenchKey(key gocui.Key) error {
	if !a.router.Modal().IsNone() {
		// Modals only react to y/n/Esc (and r on a shown preview).
		return nil
	}

	switch key {
	case gocui.KeyArrowUp:
		// The list renders newest first, so up moves toward newer entries.
		a.session.SelectNext()
	case gocui.KeyArrowDown:
		a.session.SelectPrev()
	case gocui.KeyEnter:
		a.jumpToSelected()
	case gocui.KeyPgup:
		a.session.Scroll(a.lastRows, a.maxScroll())
	case gocui.KeyPgdn:
		a.session.Scroll(-a.lastRows, a.maxScroll())
	case gocui.KeyEnd:
		a.session.Follow()
	}
	return nil
}

func (a *App) maxScroll() int {
	m := a.trans.LineCount() - 1
	if m < 0 {
		m = 0
	}
	return m
}

// jumpToSelected scrolls the output view to the selected entry's place in
// the transcript.
func (a *App) jumpToSelected() {
	entry, ok := a.session.SelectedEntry()
	if !ok {
		return
	}
	line := a.trans.LineFor(entry.TranscriptOffset)
	offset := a.trans.LineCount() - 1 - line
	a.session.ScrollTo(offset, a.maxScroll())
}

// previewSelected opens the diff preview for the selected entry.
func (a *App) previewSelected() error {
	entry, ok := a.session.SelectedEntry()
	if !ok {
		return nil
	}
	if !a.router.ShowDiff() {
		return nil
	}
	if _, err := a.engine.RequestPreview(entry); err != nil {
		a.router.CloseModal()
		a.session.SetNotice("preview failed: " + err.Error())
	}
	return nil
}

// confirmSelected opens the restore confirmation, computing the preview
// first when the flow starts directly from the history panel.
func (a *App) confirmSelected() error {
	entry, ok := a.session.SelectedEntry()
	if !ok {
		return nil
	}
	if !a.router.ShowConfirm() {
		return nil
	}
	if a.engine.Preview() == nil {
		if _, err := a.engine.RequestPreview(entry); err != nil {
			a.router.CloseModal()
			a.session.SetNotice("preview failed: " + err.Error())
			return nil
		}
	}
	if err := a.engine.ConfirmPrompt(); err != nil {
		a.router.CloseModal()
		a.engine.Cancel()
	}
	return nil
}

// restoreConfirmed applies the restore from the confirmation modal.
func (a *App) restoreConfirmed() error {
	if a.router.Modal() != input.ModalConfirm {
		return nil
	}
	if err := a.engine.Restore(); err != nil {
		a.session.SetNotice("restore failed: " + err.Error())
	} else {
		a.session.SetNotice("workspace restored")
	}
	a.router.CloseModal()
	a.refreshEntries()
	return nil
}

// cancelModal dismisses any modal with no side effects.
func (a *App) cancelModal() {
	a.engine.Cancel()
	a.router.CloseModal()
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}
