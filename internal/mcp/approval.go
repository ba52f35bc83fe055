package mcpserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stepjourney/internal/service"
	"stepjourney/internal/storage"

	"github.com/google/uuid"
)

// PendingAction represents a destructive operation awaiting user approval.
type PendingAction struct {
	ID          string `json:"id"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	Metadata    string `json:"metadata"` // JSON with extra context (e.g. block ids)
}

// actionResult is sent through the channel when user approves/rejects.
type actionResult struct {
	approved bool
}

// ApprovalStore is the cross-process approval table used by standalone mode.
type ApprovalStore interface {
	Create(a *storage.Approval) error
	Status(id string) (string, error)
	Delete(id string) error
}

// ApprovalQueue manages human-in-the-loop approval for destructive MCP tool calls.
// It supports two modes:
//   - In-process (desktop app running MCP): channels + frontend events
//   - Store-based (standalone MCP): writes to mcp_approvals, polls for the result
//
// With auto-approve on, every request passes.
type ApprovalQueue struct {
	mu          sync.Mutex
	pending     map[string]chan actionResult
	ctx         context.Context
	emitter     service.EventEmitter
	timeout     time.Duration
	pollEvery   time.Duration
	autoApprove bool
	store       ApprovalStore
}

func NewApprovalQueue(ctx context.Context, emitter service.EventEmitter) *ApprovalQueue {
	return &ApprovalQueue{
		pending:   make(map[string]chan actionResult),
		ctx:       ctx,
		emitter:   emitter,
		timeout:   120 * time.Second,
		pollEvery: 500 * time.Millisecond,
	}
}

// SetStore enables store-based approval for standalone MCP.
func (q *ApprovalQueue) SetStore(store ApprovalStore) {
	q.mu.Lock()
	q.store = store
	q.mu.Unlock()
}

// SetAutoApprove toggles unattended mode.
func (q *ApprovalQueue) SetAutoApprove(on bool) {
	q.mu.Lock()
	q.autoApprove = on
	q.mu.Unlock()
}

// SetTimeout changes how long a request waits for an answer and how often
// store mode polls.
func (q *ApprovalQueue) SetTimeout(timeout, pollEvery time.Duration) {
	q.mu.Lock()
	q.timeout = timeout
	if pollEvery > 0 {
		q.pollEvery = pollEvery
	}
	q.mu.Unlock()
}

// Pending returns the ids of requests still waiting for an answer.
func (q *ApprovalQueue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]string, 0, len(q.pending))
	for id := range q.pending {
		ids = append(ids, id)
	}
	return ids
}

// Request sends an approval request and blocks until approved/rejected.
// metadata is optional JSON with extra context (e.g. block ids for highlighting).
func (q *ApprovalQueue) Request(ctx context.Context, tool, description string, metadata ...string) (bool, error) {
	q.mu.Lock()
	auto, store := q.autoApprove, q.store
	q.mu.Unlock()
	if auto {
		return true, nil
	}

	id := uuid.New().String()
	meta := "{}"
	if len(metadata) > 0 && metadata[0] != "" {
		meta = metadata[0]
	}

	if store != nil {
		return q.requestViaStore(ctx, store, id, tool, description, meta)
	}
	return q.requestViaChannel(ctx, id, tool, description, meta)
}

// requestViaStore writes a pending approval and polls until it is resolved.
func (q *ApprovalQueue) requestViaStore(ctx context.Context, store ApprovalStore, id, tool, description, metadata string) (bool, error) {
	err := store.Create(&storage.Approval{
		ID:          id,
		Tool:        tool,
		Description: description,
		Metadata:    metadata,
	})
	if err != nil {
		return false, err
	}
	defer store.Delete(id)

	q.mu.Lock()
	timeout, every := q.timeout, q.pollEvery
	q.mu.Unlock()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status, err := store.Status(id)
			if err != nil {
				continue
			}
			switch status {
			case storage.ApprovalApproved:
				return true, nil
			case storage.ApprovalRejected:
				return false, fmt.Errorf("action rejected by user: %s", tool)
			}
		case <-deadline.C:
			return false, fmt.Errorf("action timed out after %s: %s", timeout, tool)
		case <-ctx.Done():
			return false, ctx.Err()
		case <-q.ctx.Done():
			return false, fmt.Errorf("approval queue closed")
		}
	}
}

// requestViaChannel is the in-process mode using frontend events.
func (q *ApprovalQueue) requestViaChannel(ctx context.Context, id, tool, description, metadata string) (bool, error) {
	ch := make(chan actionResult, 1)
	q.mu.Lock()
	q.pending[id] = ch
	timeout := q.timeout
	q.mu.Unlock()
	defer q.cleanup(id)

	q.emitter.Emit(q.ctx, "mcp:approval-required", PendingAction{
		ID:          id,
		Tool:        tool,
		Description: description,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Metadata:    metadata,
	})

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-ch:
		if !result.approved {
			return false, fmt.Errorf("action rejected by user: %s", tool)
		}
		return true, nil
	case <-timer.C:
		q.emitter.Emit(q.ctx, "mcp:approval-dismissed", map[string]string{"id": id})
		return false, fmt.Errorf("action timed out after %s: %s", timeout, tool)
	case <-ctx.Done():
		q.emitter.Emit(q.ctx, "mcp:approval-dismissed", map[string]string{"id": id})
		return false, ctx.Err()
	case <-q.ctx.Done():
		return false, fmt.Errorf("approval queue closed")
	}
}

// Approve marks a pending action as approved.
func (q *ApprovalQueue) Approve(actionID string) {
	q.resolve(actionID, true)
}

// Reject marks a pending action as rejected.
func (q *ApprovalQueue) Reject(actionID string) {
	q.resolve(actionID, false)
}

func (q *ApprovalQueue) resolve(actionID string, approved bool) {
	q.mu.Lock()
	ch, ok := q.pending[actionID]
	q.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- actionResult{approved: approved}:
	default:
	}
}

func (q *ApprovalQueue) cleanup(id string) {
	q.mu.Lock()
	delete(q.pending, id)
	q.mu.Unlock()
}
