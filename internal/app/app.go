// Package app wires the child process, emulator, snapshot machinery and
// gocui frontend into the running workbench.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"

	"github.com/abdullathedruid/ccwb/internal/child"
	"github.com/abdullathedruid/ccwb/internal/config"
	"github.com/abdullathedruid/ccwb/internal/history"
	"github.com/abdullathedruid/ccwb/internal/input"
	"github.com/abdullathedruid/ccwb/internal/restore"
	"github.com/abdullathedruid/ccwb/internal/snapshot"
	"github.com/abdullathedruid/ccwb/internal/state"
	"github.com/abdullathedruid/ccwb/internal/transcript"
	"github.com/abdullathedruid/ccwb/internal/usage"
	"github.com/abdullathedruid/ccwb/internal/vte"
)

// initialRows and initialCols size the emulator before the first layout
// pass reports the real pane size.
const (
	initialRows = 24
	initialCols = 80
)

// App is the main application.
type App struct {
	gui     *gocui.Gui
	config  *config.Config
	session *state.Session
	router  *input.Router

	term    *vte.Terminal
	trans   *transcript.Buffer
	child   *child.Process
	store   *snapshot.Store
	engine  *restore.Engine
	tracker *usage.Tracker
	corr    *history.Correlator
	watcher *history.Watcher

	workspace string
	mutations sync.Mutex // serializes capture and restore

	cancel    context.CancelFunc
	lastRows  int
	lastCols  int
	firstCall bool
}

// New wires the application together. The child is not started yet.
func New(cfg *config.Config, workspace, dataDir string) (*App, error) {
	store, err := snapshot.Open(workspace, dataDir)
	if err != nil {
		return nil, goerrors.Errorf("opening snapshot store: %w", err)
	}

	a := &App{
		config:    cfg,
		session:   state.New(),
		router:    input.NewRouter(),
		term:      vte.New(initialRows, initialCols),
		trans:     transcript.New(),
		store:     store,
		workspace: workspace,
		firstCall: true,
	}
	a.engine = restore.NewEngine(store, workspace, &a.mutations, a.trans.Offset)

	// A failed watcher degrades to diffing on every boundary.
	if w, err := history.NewWatcher(workspace, dataDir); err == nil {
		a.watcher = w
	}
	a.corr = history.NewCorrelator(store,
		time.Duration(cfg.SnapshotQuietMs)*time.Millisecond,
		&a.mutations, a.watcher, a.onEntry, a.onNotice)

	a.tracker = usage.NewTracker(a.buildProviders(),
		time.Duration(cfg.UsagePollSeconds)*time.Second, a.onSample)

	// Seed the history panel from a previous session's entries.
	if entries, err := store.ListEntries(); err == nil {
		a.session.SetEntries(entries)
	}

	return a, nil
}

// buildProviders turns provider configs into pollable providers.
func (a *App) buildProviders() []usage.Provider {
	providers := make([]usage.Provider, 0, len(a.config.Providers))
	for _, p := range a.config.Providers {
		switch p.Type {
		case "local":
			limit := p.Limit
			if limit == 0 {
				limit = a.config.ContextLimit
			}
			providers = append(providers, usage.NewLocal(p.Name, limit, a.trans.EstimateTokens))
		case "manual":
			providers = append(providers, usage.NewManual(p.Name, p.Used, p.Limit))
		case "httpjson":
			providers = append(providers, usage.NewHTTPJSON(p.Name, p.URL, p.Method,
				p.Headers, p.Body, p.UsedPointer, p.LimitPointer))
		}
	}
	return providers
}

// Run starts the child and drives the UI until quit or child exit. It
// returns the child's exit code.
func (a *App) Run(command string, args []string) (int, error) {
	g, err := gocui.NewGui(gocui.NewGuiOpts{
		OutputMode: gocui.OutputTrue,
	})
	if err != nil {
		return 1, goerrors.Errorf("initializing gui: %w", err)
	}
	defer g.Close()
	a.gui = g

	proc, err := child.Start(command, args, initialRows, initialCols)
	if err != nil {
		return 1, goerrors.Errorf("starting child: %w", err)
	}
	a.child = proc
	defer proc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	defer cancel()

	g.SetManagerFunc(a.layout)
	if err := a.setupKeybindings(); err != nil {
		return 1, goerrors.Errorf("setting up keybindings: %w", err)
	}

	go a.readChild()
	go a.corr.Run(ctx)
	a.tracker.Start(ctx)

	// A render tick keeps relative timestamps and notice expiry moving even
	// when the child is silent.
	go a.renderTick(ctx)

	// Quit the UI once the child exits, after a final frame.
	go func() {
		<-proc.Done()
		g.Update(func(g *gocui.Gui) error { return nil })
		time.Sleep(50 * time.Millisecond)
		g.Update(func(g *gocui.Gui) error { return gocui.ErrQuit })
	}()

	err = g.MainLoop()
	cancel()
	// A snapshot write may be in flight; give it a bounded grace to land
	// before tearing down.
	a.corr.Wait(2 * time.Second)
	if a.watcher != nil {
		a.watcher.Stop()
	}

	if err != nil && !errors.Is(err, gocui.ErrQuit) && err.Error() != "quit" {
		return 1, err
	}

	// The user may have quit while the child was still running.
	proc.Terminate()
	select {
	case <-proc.Done():
	case <-time.After(2 * time.Second):
	}
	code := proc.ExitCode()
	if code < 0 {
		code = 0
	}
	return code, nil
}

// readChild pumps child output into the emulator, transcript and boundary
// detector.
func (a *App) readChild() {
	for data := range a.child.OutputChan() {
		a.term.Write(data)
		offset := a.trans.Append(data)
		a.corr.OutputObserved(offset)
		a.gui.Update(func(g *gocui.Gui) error { return nil })
	}
}

func (a *App) renderTick(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.gui.Update(func(g *gocui.Gui) error { return nil })
		}
	}
}

// onEntry receives new history entries from the correlator.
func (a *App) onEntry(e snapshot.Entry) {
	a.session.AppendEntry(e)
	a.gui.Update(func(g *gocui.Gui) error { return nil })
}

// onNotice surfaces background failures in the workbench panel.
func (a *App) onNotice(msg string) {
	a.session.SetNotice(msg)
	a.gui.Update(func(g *gocui.Gui) error { return nil })
}

// onSample receives usage tracker readings.
func (a *App) onSample(s usage.Sample) {
	a.session.SetSample(s)
	if a.gui != nil {
		a.gui.Update(func(g *gocui.Gui) error { return nil })
	}
}

// refreshEntries reloads the history panel from the store, used after a
// restore added backup entries outside the correlator path.
func (a *App) refreshEntries() {
	if entries, err := a.store.ListEntries(); err == nil {
		a.session.SetEntries(entries)
	}
}
