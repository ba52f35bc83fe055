package service

import (
	"context"
	"sync"
	"time"

	"stepjourney/internal/domain"
	"stepjourney/internal/logger"
)

// PropertyUpdater is the save target of an Autosaver.
type PropertyUpdater interface {
	UpdateProperties(ctx context.Context, id string, props domain.Properties) (*domain.Block, error)
}

// AutosaveFailed is the payload of EventAutosaveError.
type AutosaveFailed struct {
	BlockID string `json:"blockId"`
	Error   string `json:"error"`
}

type pendingSave struct {
	gen   uint64
	timer *time.Timer
	props domain.Properties
	actor string
}

// ─────────────────────────────────────────────────────────────
// Autosaver — debounced property persistence
// ─────────────────────────────────────────────────────────────

// Autosaver coalesces rapid property edits per block into one save after a
// quiet period. A new edit restarts that block's timer. Close cancels
// pending timers but never an in-flight save.
type Autosaver struct {
	target  PropertyUpdater
	delay   time.Duration
	emitter EventEmitter
	log     *logger.Logger

	mu       sync.Mutex
	gen      uint64
	pending  map[string]*pendingSave
	closed   bool
	inflight sync.WaitGroup
}

func NewAutosaver(target PropertyUpdater, delay time.Duration, emitter EventEmitter, log *logger.Logger) *Autosaver {
	if delay <= 0 {
		delay = 800 * time.Millisecond
	}
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Autosaver{
		target:  target,
		delay:   delay,
		emitter: emitter,
		log:     log,
		pending: make(map[string]*pendingSave),
	}
}

// Schedule records props as the latest edit of id and (re)starts its timer.
func (a *Autosaver) Schedule(ctx context.Context, id string, props domain.Properties) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if p, ok := a.pending[id]; ok {
		p.timer.Stop()
	}
	a.gen++
	gen := a.gen
	a.pending[id] = &pendingSave{
		gen:   gen,
		props: domain.CloneProperties(props),
		actor: ActorFrom(ctx),
		timer: time.AfterFunc(a.delay, func() { a.fire(id, gen) }),
	}
}

// Pending reports whether id has an unsaved edit waiting on its timer.
func (a *Autosaver) Pending(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.pending[id]
	return ok
}

// Flush saves every pending edit now.
func (a *Autosaver) Flush(ctx context.Context) {
	a.mu.Lock()
	batch := a.pending
	a.pending = make(map[string]*pendingSave)
	for _, p := range batch {
		p.timer.Stop()
	}
	a.inflight.Add(len(batch))
	a.mu.Unlock()

	for id, p := range batch {
		a.save(ctx, id, p)
	}
}

// Close drops pending edits and stops their timers. Saves already running
// finish on their own; Wait blocks for them.
func (a *Autosaver) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	for id, p := range a.pending {
		p.timer.Stop()
		delete(a.pending, id)
	}
}

// Wait blocks until in-flight saves complete.
func (a *Autosaver) Wait() {
	a.inflight.Wait()
}

func (a *Autosaver) fire(id string, gen uint64) {
	a.mu.Lock()
	p, ok := a.pending[id]
	if !ok || p.gen != gen || a.closed {
		a.mu.Unlock()
		return
	}
	delete(a.pending, id)
	a.inflight.Add(1)
	a.mu.Unlock()

	a.save(context.Background(), id, p)
}

func (a *Autosaver) save(ctx context.Context, id string, p *pendingSave) {
	defer a.inflight.Done()
	ctx = WithActor(ctx, p.actor)
	if _, err := a.target.UpdateProperties(ctx, id, p.props); err != nil {
		a.log.Warn("autosave failed", "block_id", id, "error", err)
		a.emitter.Emit(ctx, EventAutosaveError, AutosaveFailed{BlockID: id, Error: err.Error()})
		return
	}
	a.log.Debug("autosaved", "block_id", id)
}
