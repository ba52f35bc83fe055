// Package editor holds the interactive state of one open document:
// selection, focus, clipboard, drag and drop, hotkeys and undo.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"stepjourney/internal/domain"
	"stepjourney/internal/logger"
	"stepjourney/internal/service"
	"stepjourney/internal/tree"
)

var (
	ErrSessionClosed  = errors.New("editor session is closed")
	ErrNothingFocused = errors.New("no block is focused")
)

// Direction is a keyboard navigation direction.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Blocks is the mutation surface a session drives. *service.BlockService
// satisfies it.
type Blocks interface {
	ListBlocks(ctx context.Context) ([]domain.Block, error)
	Capture(ctx context.Context, label string, ids ...string) service.Snapshot
	MoveBlock(ctx context.Context, id, newParentID string, index int) error
	DeleteBlocks(ctx context.Context, ids []string) error
	DuplicateBlock(ctx context.Context, id string) (*domain.Block, error)
	PasteBlocks(ctx context.Context, targetID string, snapshot []domain.Block) ([]domain.Block, error)
	Indent(ctx context.Context, id string) (bool, error)
	Outdent(ctx context.Context, id string) (bool, error)
	RestoreSnapshot(ctx context.Context, snap service.Snapshot) error
}

// Range is a text selection as seen by an external editor-state controller.
type Range struct {
	AnchorBlockID string `json:"anchorBlockId"`
	AnchorOffset  int    `json:"anchorOffset"`
	FocusBlockID  string `json:"focusBlockId"`
	FocusOffset   int    `json:"focusOffset"`
	Backward      bool   `json:"backward"`
}

func (r Range) Collapsed() bool {
	return r.AnchorBlockID == r.FocusBlockID && r.AnchorOffset == r.FocusOffset
}

// Controller is an externally owned selection model (the rich-text
// engine's). When present it is authoritative: a differing anchor block
// replaces the session's focus.
type Controller interface {
	Selection() (Range, bool)
	SetSelection(r Range)
	ClearSelection()
}

// CaretPlacer moves the text caret to the end of a rendered block.
type CaretPlacer interface {
	PlaceCaretAtEnd(blockID string)
}

type Options struct {
	RootID     string
	Blocks     Blocks
	Controller Controller
	Caret      CaretPlacer
	Scheduler  *Scheduler
	History    *History
	Log        *logger.Logger
	// OnDrop runs after each committed drop.
	OnDrop func()
}

// Session is the state container for one open document. Construct it with
// NewSession and release it with Close.
type Session struct {
	rootID     string
	blocks     Blocks
	controller Controller
	caret      CaretPlacer
	sched      *Scheduler
	history    *History
	log        *logger.Logger
	drag       *DragController

	mu        sync.Mutex
	sel       *Selection
	ix        *tree.Index
	collapsed map[string]bool
	closed    bool
}

func NewSession(ctx context.Context, opts Options) (*Session, error) {
	if opts.Blocks == nil {
		panic("editor: NewSession requires a block source")
	}
	s := &Session{
		rootID:     opts.RootID,
		blocks:     opts.Blocks,
		controller: opts.Controller,
		caret:      opts.Caret,
		sched:      opts.Scheduler,
		history:    opts.History,
		log:        opts.Log,
		sel:        NewSelection(),
		ix:         tree.NewIndex(nil),
		collapsed:  make(map[string]bool),
	}
	if s.sched == nil {
		s.sched = NewScheduler()
	}
	if s.history == nil {
		s.history = NewHistory(DefaultHistoryLimit)
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.drag = NewDragController(sessionMover{s}, s.snapshot, s.log)
	if opts.OnDrop != nil {
		s.drag.OnComplete(opts.OnDrop)
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close drops queued render callbacks, the undo history and all local
// state. Later calls fail with ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.sched.Reset()
	s.history.Clear()
	s.drag.CancelDrag()
	s.sel = NewSelection()
	if s.controller != nil {
		s.controller.ClearSelection()
	}
}

func (s *Session) RootID() string { return s.rootID }

func (s *Session) History() *History { return s.history }

func (s *Session) Scheduler() *Scheduler { return s.sched }

// Refresh reloads the block snapshot and drops selected ids that no longer exist.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	all, err := s.blocks.ListBlocks(ctx)
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	s.ix = tree.NewIndex(all)
	var gone []string
	for _, id := range s.sel.IDs() {
		if !s.ix.Has(id) {
			gone = append(gone, id)
		}
	}
	if f := s.sel.Focused(); f != "" && !s.ix.Has(f) {
		gone = append(gone, f)
	}
	s.sel.Forget(gone...)
	return nil
}

func (s *Session) snapshot() *tree.Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ix
}

// Rows lists the visible blocks under the root in render order.
func (s *Session) Rows() []tree.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rowsLocked()
}

func (s *Session) rowsLocked() []tree.Row {
	root, ok := s.ix.Get(s.rootID)
	if !ok {
		return nil
	}
	return tree.FlattenDocument(root, s.ix, s.collapsed)
}

// SetCollapsed hides or shows the children of id in navigation order.
func (s *Session) SetCollapsed(id string, collapsed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if collapsed {
		s.collapsed[id] = true
	} else {
		delete(s.collapsed, id)
	}
}

func (s *Session) IsCollapsed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collapsed[id]
}

// ── selection & focus ─────────────────────────────────────

func (s *Session) Select(id string, multi bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adoptLocked()
	s.sel.Select(id, multi)
	s.mirrorLocked()
}

// FocusBlock focuses id without changing the selection and places the caret
// at the end of its text after the next render commit.
func (s *Session) FocusBlock(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focusLocked(id)
}

func (s *Session) focusLocked(id string) {
	s.sel.Focus(id)
	s.mirrorLocked()
	if s.caret == nil || id == "" {
		return
	}
	caret := s.caret
	s.sched.AfterRenderKey("caret", func() { caret.PlaceCaretAtEnd(id) })
}

// Navigate moves focus to the neighbouring visible block and selects only
// it. Without focus, Down goes to the first block and Up to the last.
// Returns false at either boundary.
func (s *Session) Navigate(dir Direction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adoptLocked()

	order := tree.RowIDs(s.rowsLocked())
	if len(order) == 0 {
		return false
	}
	next, ok := neighbour(order, s.sel.Focused(), dir)
	if !ok {
		return false
	}
	s.sel.Select(next, false)
	s.focusLocked(next)
	return true
}

func neighbour(order []string, current string, dir Direction) (string, bool) {
	pos := -1
	for i, id := range order {
		if id == current {
			pos = i
			break
		}
	}
	switch {
	case pos < 0 && dir == Down:
		return order[0], true
	case pos < 0 && dir == Up:
		return order[len(order)-1], true
	case dir == Down && pos+1 < len(order):
		return order[pos+1], true
	case dir == Up && pos > 0:
		return order[pos-1], true
	default:
		return "", false
	}
}

// ClearSelection empties the selection and the controller's range. Focus is kept.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Clear()
	if s.controller != nil {
		s.controller.ClearSelection()
	}
}

// CopySelection snapshots the selected blocks and their descendants, in
// document order, into the clipboard and returns the snapshot.
func (s *Session) CopySelection() []domain.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.selectionSnapshotLocked()
	s.sel.SetClipboard(snap)
	return cloneBlocks(snap)
}

func (s *Session) selectionSnapshotLocked() []domain.Block {
	if s.sel.Len() == 0 {
		return nil
	}
	var out []domain.Block
	included := map[string]bool{}
	if root, ok := s.ix.Get(s.rootID); ok {
		for _, row := range tree.FlattenDocument(root, s.ix, nil) {
			b := row.Block
			if s.sel.Has(b.ID) || included[b.ParentID] {
				included[b.ID] = true
				out = append(out, b.Clone())
			}
		}
	}
	for _, id := range s.sel.IDs() {
		if included[id] {
			continue
		}
		for _, b := range tree.BlockWithChildren(id, s.ix) {
			if !included[b.ID] {
				included[b.ID] = true
				out = append(out, b.Clone())
			}
		}
	}
	return out
}

func (s *Session) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.IDs()
}

func (s *Session) Focused() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adoptLocked()
	return s.sel.Focused()
}

func (s *Session) SelectionState() SelectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.State()
}

func (s *Session) Clipboard() []domain.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.Clipboard()
}

// RenderCommitted runs callbacks deferred until after the frontend's render.
func (s *Session) RenderCommitted() int {
	return s.sched.RenderCommitted()
}

// adoptLocked takes the controller's anchor block as focus when it differs.
func (s *Session) adoptLocked() {
	if s.controller == nil {
		return
	}
	r, ok := s.controller.Selection()
	if !ok || r.AnchorBlockID == "" || r.AnchorBlockID == s.sel.Focused() {
		return
	}
	s.sel.Focus(r.AnchorBlockID)
}

// mirrorLocked pushes focus into the controller as a collapsed forward range
// at the start of the block.
func (s *Session) mirrorLocked() {
	if s.controller == nil {
		return
	}
	f := s.sel.Focused()
	if f == "" {
		s.controller.ClearSelection()
		return
	}
	s.controller.SetSelection(Range{AnchorBlockID: f, FocusBlockID: f})
}

// ── drag and drop ─────────────────────────────────────────

func (s *Session) StartDrag(id string) bool { return s.drag.StartDrag(id) }

func (s *Session) DragOver(targetID string, pos Position) bool { return s.drag.DragOver(targetID, pos) }

func (s *Session) Drop(ctx context.Context) bool { return s.drag.Drop(ctx) }

func (s *Session) CancelDrag() { s.drag.CancelDrag() }

func (s *Session) DragState() DragState { return s.drag.State() }

// sessionMover records undo history around drop commits.
type sessionMover struct{ s *Session }

func (m sessionMover) MoveBlock(ctx context.Context, id, newParentID string, index int) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	oldParent := ""
	if b, ok := s.ix.Get(id); ok {
		oldParent = b.ParentID
	}
	snap := s.blocks.Capture(ctx, "move", id, oldParent, newParentID)
	if err := s.blocks.MoveBlock(ctx, id, newParentID, index); err != nil {
		return err
	}
	s.history.Push(snap)
	return s.refreshLocked(ctx)
}
