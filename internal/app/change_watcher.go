package app

import (
	"context"
	"sync"
	"time"
)

// changeWatcher polls the database for block writes and for approval
// requests a standalone MCP process is waiting on, and turns them into
// frontend events. Writes from this process are observed too.
type changeWatcher struct {
	ctx   context.Context
	app   *App
	every time.Duration

	mu        sync.Mutex
	lastBlock string // count + max updated_at

	// apMu serializes approval polling with local decisions.
	apMu sync.Mutex
	// emitted tracks approval ids already announced to the frontend.
	emitted map[string]bool

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func newChangeWatcher(ctx context.Context, app *App, every time.Duration) *changeWatcher {
	if every <= 0 {
		every = 2 * time.Second
	}
	return &changeWatcher{
		ctx:     ctx,
		app:     app,
		every:   every,
		emitted: map[string]bool{},
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins the polling loop. The first check only records the
// current fingerprint.
func (w *changeWatcher) Start() {
	w.check()
	go w.pollLoop()
}

// Stop terminates the polling loop and waits for it to exit.
func (w *changeWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.done
}

func (w *changeWatcher) pollLoop() {
	defer close(w.done)
	ticker := time.NewTicker(w.every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-w.stopCh:
			return
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *changeWatcher) check() {
	w.checkBlocks()
	w.checkApprovals()
}

func (w *changeWatcher) checkBlocks() {
	fp, err := w.app.core.Store.Fingerprint()
	if err != nil {
		w.app.log.Debug("change watcher fingerprint", "error", err)
		return
	}

	w.mu.Lock()
	changed := w.lastBlock != "" && w.lastBlock != fp
	w.lastBlock = fp
	w.mu.Unlock()

	if !changed {
		return
	}
	w.app.refreshDocument(w.ctx)
	w.app.emit.Emit(w.ctx, "db:changed", map[string]string{"fingerprint": fp})
}

// resolve runs decide for an approval with polling held off, then stops
// tracking it.
func (w *changeWatcher) resolve(id string, decide func() error) error {
	w.apMu.Lock()
	defer w.apMu.Unlock()
	if err := decide(); err != nil {
		return err
	}
	delete(w.emitted, id)
	return nil
}

func (w *changeWatcher) checkApprovals() {
	w.apMu.Lock()
	defer w.apMu.Unlock()

	pending, err := w.app.core.Approvals.ListPending()
	if err != nil {
		w.app.log.Debug("change watcher approvals", "error", err)
		return
	}

	live := make(map[string]bool, len(pending))
	for _, p := range pending {
		live[p.ID] = true
		sent := w.emitted[p.ID]
		w.emitted[p.ID] = true
		if sent {
			continue
		}
		w.app.emit.Emit(w.ctx, "mcp:approval-required", map[string]string{
			"id":          p.ID,
			"tool":        p.Tool,
			"description": p.Description,
			"createdAt":   p.CreatedAt.Format(time.RFC3339),
			"metadata":    p.Metadata,
		})
	}

	// Rows resolved elsewhere or deleted by the MCP process after reading.
	for id := range w.emitted {
		if !live[id] {
			delete(w.emitted, id)
			w.app.emit.Emit(w.ctx, "mcp:approval-dismissed", map[string]string{"id": id})
		}
	}
}
