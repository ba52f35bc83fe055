package app

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"stepjourney/internal/config"
	"stepjourney/internal/editor"
	"stepjourney/internal/fixtures"
	"stepjourney/internal/logger"
	"stepjourney/internal/service"
	"stepjourney/internal/storage"
)

// ErrNoDocument is returned by editor bindings when no document is open.
var ErrNoDocument = errors.New("no document is open")

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx  context.Context
	cfg  config.Config
	log  *logger.Logger
	emit service.EventEmitter

	core     *Core
	fixtures *fixtures.Watcher
	changes  *changeWatcher
	// pollEvery is the change watcher interval.
	pollEvery time.Duration

	mu       sync.Mutex
	session  *editor.Session
	frontend *frontendSelection
}

// New creates a new App.
func New(cfg config.Config, log *logger.Logger) *App {
	if log == nil {
		log = logger.Nop()
	}
	return &App{cfg: cfg, log: log.With("component", "app"), pollEvery: 2 * time.Second}
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	if err := a.start(ctx, wailsEmitter{ctx: ctx}); err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to start: %v", err)
		return
	}
	if size, ok := a.core.Settings.WindowSize(); ok {
		wailsRuntime.WindowSetSize(ctx, size.Width, size.Height)
	}
}

// BeforeClose saves the window size. It never prevents closing.
func (a *App) BeforeClose(ctx context.Context) bool {
	if a.core == nil {
		return false
	}
	w, h := wailsRuntime.WindowGetSize(ctx)
	if err := a.core.Settings.SaveWindowSize(w, h); err != nil {
		a.log.Warn("save window size", "error", err)
	}
	return false
}

// start wires the core and background watchers. Split from Startup so it
// can run without a Wails runtime.
func (a *App) start(ctx context.Context, emitter service.EventEmitter) error {
	if a.cfg.Actor != "" {
		ctx = service.WithActor(ctx, a.cfg.Actor)
	}
	a.ctx = ctx
	a.emit = emitter

	core, err := OpenCore(a.cfg, a.log, emitter)
	if err != nil {
		return err
	}
	a.core = core
	core.StartPurge(ctx)

	if dir := core.Fixtures.Dir(); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			a.log.Warn("create fixtures dir", "dir", dir, "error", err)
		}
	}
	a.fixtures = fixtures.NewWatcher(core.Fixtures, func() { a.onFixturesReloaded(ctx) })
	if err := a.fixtures.Start(ctx); err != nil {
		a.log.Warn("fixture watcher not started", "dir", core.Fixtures.Dir(), "error", err)
	}

	a.changes = newChangeWatcher(ctx, a, a.pollEvery)
	a.changes.Start()
	return nil
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.changes != nil {
		a.changes.Stop()
	}
	if a.fixtures != nil {
		a.fixtures.Stop()
	}
	a.mu.Lock()
	if a.session != nil {
		a.session.Close()
		a.session = nil
	}
	a.mu.Unlock()
	if a.core != nil {
		a.core.Close(ctx)
	}
	a.log.Sync()
}

// onFixturesReloaded reloads the open journey and keeps its step index.
func (a *App) onFixturesReloaded(ctx context.Context) {
	a.emit.Emit(ctx, "fixtures:reloaded", map[string]string{"dir": a.core.Fixtures.Dir()})
	a.reloadJourney(ctx)
	a.refreshDocument(ctx)
}

func (a *App) reloadJourney(ctx context.Context) {
	root, ok := a.core.Journeys.Journey()
	if !ok {
		return
	}
	current := a.core.Journeys.CurrentIndex()
	if err := a.core.Journeys.Load(ctx, root.ID); err != nil {
		a.log.Warn("journey reload failed", "journey", root.ID, "error", err)
		return
	}
	a.core.Journeys.SetStep(ctx, current)
}

// ============================================================
// MCP approvals (answered for a standalone MCP process)
// ============================================================

func (a *App) ApproveMCPAction(id string) error {
	return a.resolveApproval(id, true)
}

func (a *App) RejectMCPAction(id string) error {
	return a.resolveApproval(id, false)
}

func (a *App) resolveApproval(id string, approved bool) error {
	status := storage.ApprovalRejected
	if approved {
		status = storage.ApprovalApproved
	}
	decide := func() error { return a.core.Approvals.Resolve(id, status) }
	var err error
	if a.changes != nil {
		err = a.changes.resolve(id, decide)
	} else {
		err = decide()
	}
	if err != nil {
		return err
	}
	a.emit.Emit(a.ctx, "mcp:approval-dismissed", map[string]string{"id": id})
	return nil
}
