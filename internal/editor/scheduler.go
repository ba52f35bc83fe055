package editor

import "sync"

type scheduled struct {
	key string
	fn  func()
}

// Scheduler runs one-shot callbacks after the next render commit. The
// frontend reports commits through RenderCommitted. Callbacks sharing a key
// replace each other, so only the latest caret placement survives.
type Scheduler struct {
	mu    sync.Mutex
	queue []scheduled
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// AfterRender queues fn for the next commit.
func (s *Scheduler) AfterRender(fn func()) {
	s.AfterRenderKey("", fn)
}

// AfterRenderKey queues fn under key, replacing any callback already
// queued under the same non-empty key.
func (s *Scheduler) AfterRenderKey(key string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key != "" {
		for i, q := range s.queue {
			if q.key == key {
				s.queue = append(s.queue[:i:i], s.queue[i+1:]...)
				break
			}
		}
	}
	s.queue = append(s.queue, scheduled{key: key, fn: fn})
}

// RenderCommitted runs the callbacks queued before this call and returns
// how many ran. Callbacks queued while running wait for the next commit.
func (s *Scheduler) RenderCommitted() int {
	s.mu.Lock()
	batch := s.queue
	s.queue = nil
	s.mu.Unlock()

	for _, q := range batch {
		q.fn()
	}
	return len(batch)
}

func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Reset drops every queued callback.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.queue = nil
	s.mu.Unlock()
}
