package app

import (
	"errors"
	"fmt"

	"github.com/jesseduffield/gocui"

	"github.com/abdullathedruid/ccwb/internal/input"
	"github.com/abdullathedruid/ccwb/internal/ui"
)

// View names.
const (
	viewOutput  = "output"
	viewUsage   = "usage"
	viewContext = "context"
	viewHistory = "history"
	viewStatus  = "status"
	viewDiff    = "diff"
	viewConfirm = "confirm"
)

// outputWidthPercent is the share of the screen given to the output pane.
const outputWidthPercent = 68

func (a *App) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	split := maxX * outputWidthPercent / 100
	if split < 20 {
		split = maxX - 1
	}
	bottom := maxY - 2 // last row is the status bar

	if err := a.layoutOutput(g, split, bottom); err != nil {
		return err
	}
	if err := a.layoutWorkbench(g, split, maxX, bottom); err != nil {
		return err
	}
	if err := a.layoutStatus(g, maxX, maxY); err != nil {
		return err
	}
	return a.layoutModal(g, maxX, maxY)
}

func (a *App) layoutOutput(g *gocui.Gui, split, bottom int) error {
	v, err := g.SetView(viewOutput, 0, 0, split, bottom, 0)
	if err != nil && !errors.Is(err, gocui.ErrUnknownView) && err.Error() != "unknown view" {
		return err
	}
	v.Frame = true
	v.Wrap = false
	v.Editable = true
	v.Editor = gocui.EditorFunc(a.outputEditor)
	v.Title = " " + a.childTitle() + " "
	if a.router.Focus().IsOutput() {
		v.FrameColor = gocui.ColorGreen
	} else {
		v.FrameColor = gocui.ColorDefault
	}

	// Resize the emulator and pty to the inner pane size.
	cols, rows := split-1, bottom-1
	if rows > 0 && cols > 0 && (rows != a.lastRows || cols != a.lastCols) {
		a.term.Resize(rows, cols)
		if a.child != nil {
			a.child.Resize(rows, cols)
		}
		a.lastRows, a.lastCols = rows, cols
	}

	if a.firstCall {
		if _, err := g.SetCurrentView(viewOutput); err != nil {
			return err
		}
		a.firstCall = false
	}

	v.Clear()
	offset, follow := a.session.ScrollState()
	if follow {
		ui.RenderGrid(v, a.term.Snapshot())
		a.placeCursor(g, v)
	} else {
		a.renderScrollback(v, offset, rows)
		g.Cursor = false
	}
	return nil
}

// renderScrollback shows a window of completed transcript lines ending
// offset lines above the bottom.
func (a *App) renderScrollback(v *gocui.View, offset, rows int) {
	total := a.trans.LineCount()
	end := total - offset
	if end < rows {
		end = rows
	}
	for i, line := range a.trans.Lines(end-rows, end) {
		if i > 0 {
			fmt.Fprintln(v)
		}
		fmt.Fprint(v, line)
	}
}

func (a *App) placeCursor(g *gocui.Gui, v *gocui.View) {
	if a.router.Focus().IsOutput() && a.router.Modal().IsNone() && a.term.CursorVisible() {
		x, y := a.term.Cursor()
		v.SetCursor(x, y)
		g.Cursor = true
	} else {
		g.Cursor = false
	}
}

func (a *App) layoutWorkbench(g *gocui.Gui, split, maxX, bottom int) error {
	x0 := split + 1
	innerWidth := maxX - x0 - 3
	if innerWidth < 10 {
		return nil
	}

	samples := a.session.Samples()
	usageBottom := len(samples) + 1
	if usageBottom < 2 {
		usageBottom = 2
	}

	uv, err := g.SetView(viewUsage, x0, 0, maxX-1, usageBottom, 0)
	if err != nil && !errors.Is(err, gocui.ErrUnknownView) && err.Error() != "unknown view" {
		return err
	}
	uv.Frame = true
	uv.Title = " usage "
	uv.Clear()
	for _, line := range ui.UsagePanel(samples, innerWidth, a.config.CompressThreshold) {
		fmt.Fprintln(uv, line)
	}

	cv, err := g.SetView(viewContext, x0, usageBottom+1, maxX-1, usageBottom+3, 0)
	if err != nil && !errors.Is(err, gocui.ErrUnknownView) && err.Error() != "unknown view" {
		return err
	}
	cv.Frame = true
	cv.Title = " context "
	cv.Clear()
	fmt.Fprint(cv, ui.ContextMeter(a.trans.EstimateTokens(), a.config.ContextLimit,
		innerWidth, a.config.CompressThreshold))

	hv, err := g.SetView(viewHistory, x0, usageBottom+4, maxX-1, bottom, 0)
	if err != nil && !errors.Is(err, gocui.ErrUnknownView) && err.Error() != "unknown view" {
		return err
	}
	hv.Frame = true
	hv.Title = " history "
	if a.router.Focus().IsHistory() {
		hv.FrameColor = gocui.ColorGreen
	} else {
		hv.FrameColor = gocui.ColorDefault
	}
	hv.Clear()
	maxRows := bottom - usageBottom - 5
	if maxRows < 1 {
		maxRows = 1
	}
	for _, line := range ui.HistoryList(a.session.Entries(), a.session.SelectedIndex(), innerWidth, maxRows) {
		fmt.Fprintln(hv, line)
	}
	return nil
}

func (a *App) layoutStatus(g *gocui.Gui, maxX, maxY int) error {
	v, err := g.SetView(viewStatus, -1, maxY-2, maxX, maxY, 0)
	if err != nil && !errors.Is(err, gocui.ErrUnknownView) && err.Error() != "unknown view" {
		return err
	}
	v.Frame = false
	v.Clear()
	fmt.Fprint(v, ui.StatusBar(a.router.Focus().IsHistory(), a.session.Notice(), maxX))
	return nil
}

func (a *App) layoutModal(g *gocui.Gui, maxX, maxY int) error {
	modal := a.router.Modal()
	if modal != input.ModalDiff {
		g.DeleteView(viewDiff)
	}
	if modal != input.ModalConfirm {
		g.DeleteView(viewConfirm)
	}
	if modal.IsNone() {
		return nil
	}

	preview := a.engine.Preview()
	if preview == nil {
		return nil
	}

	switch modal {
	case input.ModalDiff:
		x0, y0, x1, y1 := maxX/10, 2, maxX*9/10, maxY-4
		v, err := g.SetView(viewDiff, x0, y0, x1, y1, 0)
		if err != nil && !errors.Is(err, gocui.ErrUnknownView) && err.Error() != "unknown view" {
			return err
		}
		v.Frame = true
		v.Wrap = false
		v.Title = " diff preview "
		v.Clear()
		for _, line := range ui.DiffModal(preview, x1-x0-2) {
			fmt.Fprintln(v, line)
		}
		g.SetViewOnTop(viewDiff)

	case input.ModalConfirm:
		w, h := 56, 6
		x0, y0 := (maxX-w)/2, (maxY-h)/2
		v, err := g.SetView(viewConfirm, x0, y0, x0+w, y0+h, 0)
		if err != nil && !errors.Is(err, gocui.ErrUnknownView) && err.Error() != "unknown view" {
			return err
		}
		v.Frame = true
		v.Title = " confirm restore "
		v.Clear()
		for _, line := range ui.ConfirmModal(preview, w-2) {
			fmt.Fprintln(v, line)
		}
		g.SetViewOnTop(viewConfirm)
	}
	return nil
}

func (a *App) childTitle() string {
	if t := a.term.Title(); t != "" {
		return t
	}
	return "claude"
}
