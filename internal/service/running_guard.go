package service

import (
	"context"
	"sync"
)

// ExportedMutationGuard is an exported alias so _test packages can test the guard.
type ExportedMutationGuard = mutationGuard

// ─────────────────────────────────────────────────────────────
// mutationGuard — prevents overlapping mutations on the same blocks
// ─────────────────────────────────────────────────────────────

// mutationGuard tracks block ids held by in-flight mutations. A mutation
// claims every id it touches up front and fails fast if any is taken.
type mutationGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
	// idle is closed when held drains; nil while nothing is held.
	idle chan struct{}
}

// TryLock attempts to claim id. Returns false if it is already held.
func (g *mutationGuard) TryLock(id string) bool {
	return g.TryLockAll(id)
}

// TryLockAll claims all ids or none of them.
func (g *mutationGuard) TryLockAll(ids ...string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held == nil {
		g.held = make(map[string]struct{})
	}
	for _, id := range ids {
		if _, ok := g.held[id]; ok {
			return false
		}
	}
	if len(g.held) == 0 && len(ids) > 0 {
		g.idle = make(chan struct{})
	}
	for _, id := range ids {
		g.held[id] = struct{}{}
	}
	return true
}

// Unlock releases id. Must be called after a successful TryLock.
func (g *mutationGuard) Unlock(id string) {
	g.UnlockAll(id)
}

// UnlockAll releases ids claimed by TryLockAll.
func (g *mutationGuard) UnlockAll(ids ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range ids {
		if _, ok := g.held[id]; !ok {
			continue
		}
		delete(g.held, id)
		if len(g.held) == 0 && g.idle != nil {
			close(g.idle)
			g.idle = nil
		}
	}
}

// WaitAll blocks until all in-flight mutations complete or ctx is cancelled.
func (g *mutationGuard) WaitAll(ctx context.Context) {
	g.mu.Lock()
	idle := g.idle
	g.mu.Unlock()
	if idle == nil {
		return
	}
	select {
	case <-idle:
	case <-ctx.Done():
	}
}
