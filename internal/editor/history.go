package editor

import (
	"sync"

	"stepjourney/internal/service"
)

// DefaultHistoryLimit bounds the undo history.
const DefaultHistoryLimit = 40

// History is a bounded in-memory undo stack of block snapshots. It lives
// for one editing session and is never persisted.
type History struct {
	mu      sync.Mutex
	limit   int
	entries []service.Snapshot
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Push records snap, dropping the oldest entry when full.
func (h *History) Push(snap service.Snapshot) {
	if len(snap.Blocks) == 0 && len(snap.Created) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, snap)
	if over := len(h.entries) - h.limit; over > 0 {
		h.entries = append([]service.Snapshot(nil), h.entries[over:]...)
	}
}

// Undo pops the most recent snapshot.
func (h *History) Undo() (service.Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return service.Snapshot{}, false
	}
	last := h.entries[len(h.entries)-1]
	h.entries = h.entries[:len(h.entries)-1]
	return last, true
}

// Labels lists entry labels from oldest to newest.
func (h *History) Labels() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.Label
	}
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func (h *History) Clear() {
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()
}
