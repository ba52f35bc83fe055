package app

import (
	"context"
	"fmt"
	"sync"

	"stepjourney/internal/domain"
	"stepjourney/internal/editor"
	"stepjourney/internal/service"
)

// frontendSelection is the webview's rich-text selection as last reported
// through ReportSelection. Writes from the session are pushed back as events.
type frontendSelection struct {
	ctx  context.Context
	emit service.EventEmitter

	mu  sync.Mutex
	r   editor.Range
	has bool
}

func (f *frontendSelection) Selection() (editor.Range, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.r, f.has
}

func (f *frontendSelection) SetSelection(r editor.Range) {
	f.mu.Lock()
	f.r, f.has = r, true
	f.mu.Unlock()
	f.emit.Emit(f.ctx, "editor:selection", r)
}

func (f *frontendSelection) ClearSelection() {
	f.mu.Lock()
	f.r, f.has = editor.Range{}, false
	f.mu.Unlock()
	f.emit.Emit(f.ctx, "editor:selection-cleared", nil)
}

func (f *frontendSelection) PlaceCaretAtEnd(blockID string) {
	f.emit.Emit(f.ctx, "editor:caret-end", map[string]string{"blockId": blockID})
}

func (f *frontendSelection) report(r editor.Range, has bool) {
	f.mu.Lock()
	f.r, f.has = r, has
	f.mu.Unlock()
}

// ============================================================
// Document lifecycle
// ============================================================

// OpenDocument opens rootID in a fresh editor session, closing any previous one.
func (a *App) OpenDocument(rootID string) ([]RowView, error) {
	if _, err := a.core.Blocks.GetBlock(a.ctx, rootID); err != nil {
		return nil, err
	}
	fs := &frontendSelection{ctx: a.ctx, emit: a.emit}
	s, err := editor.NewSession(a.ctx, editor.Options{
		RootID:     rootID,
		Blocks:     a.core.Blocks,
		Controller: fs,
		Caret:      fs,
		Log:        a.log.With("document", rootID),
		OnDrop: func() {
			a.emit.Emit(a.ctx, "editor:dropped", map[string]string{"rootId": rootID})
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}

	a.mu.Lock()
	prev := a.session
	a.session, a.frontend = s, fs
	a.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
	return a.rows(s), nil
}

// CloseDocument releases the editor session.
func (a *App) CloseDocument() {
	a.mu.Lock()
	s := a.session
	a.session, a.frontend = nil, nil
	a.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

// DocumentRows returns the visible rows of the open document.
func (a *App) DocumentRows() ([]RowView, error) {
	s, err := a.current()
	if err != nil {
		return nil, err
	}
	return a.rows(s), nil
}

func (a *App) current() (*editor.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil, ErrNoDocument
	}
	return a.session, nil
}

func (a *App) rows(s *editor.Session) []RowView {
	return rowViews(s.Rows(), s.IsCollapsed)
}

// refreshDocument reloads the open session after writes made outside it.
func (a *App) refreshDocument(ctx context.Context) {
	s, err := a.current()
	if err != nil {
		return
	}
	if err := s.Refresh(ctx); err != nil {
		a.log.Warn("refresh document", "error", err)
		return
	}
	a.emit.Emit(ctx, "editor:rows-changed", map[string]string{"rootId": s.RootID()})
}

// RenderCommitted runs caret placements queued for the frame the
// frontend just committed.
func (a *App) RenderCommitted() int {
	s, err := a.current()
	if err != nil {
		return 0
	}
	return s.RenderCommitted()
}

func (a *App) SetCollapsed(blockID string, collapsed bool) ([]RowView, error) {
	s, err := a.current()
	if err != nil {
		return nil, err
	}
	s.SetCollapsed(blockID, collapsed)
	return a.rows(s), nil
}

// ============================================================
// Selection & focus
// ============================================================

// ReportSelection records the webview's current text selection.
func (a *App) ReportSelection(r editor.Range, has bool) {
	a.mu.Lock()
	fs := a.frontend
	a.mu.Unlock()
	if fs != nil {
		fs.report(r, has)
	}
}

func (a *App) SelectBlock(blockID string, multi bool) (EditorState, error) {
	s, err := a.current()
	if err != nil {
		return EditorState{}, err
	}
	s.Select(blockID, multi)
	return a.state(s), nil
}

func (a *App) FocusBlock(blockID string) (EditorState, error) {
	s, err := a.current()
	if err != nil {
		return EditorState{}, err
	}
	s.FocusBlock(blockID)
	return a.state(s), nil
}

// Navigate moves focus "up" or "down". It reports false at a boundary.
func (a *App) Navigate(direction string) (bool, error) {
	s, err := a.current()
	if err != nil {
		return false, err
	}
	dir := editor.Direction(direction)
	if dir != editor.Up && dir != editor.Down {
		return false, fmt.Errorf("navigate: unknown direction %q", direction)
	}
	return s.Navigate(dir), nil
}

func (a *App) ClearSelection() {
	if s, err := a.current(); err == nil {
		s.ClearSelection()
	}
}

func (a *App) EditorState() (EditorState, error) {
	s, err := a.current()
	if err != nil {
		return EditorState{}, err
	}
	return a.state(s), nil
}

func (a *App) state(s *editor.Session) EditorState {
	return EditorState{
		RootID:    s.RootID(),
		Selected:  s.Selected(),
		Focused:   s.Focused(),
		State:     s.SelectionState().String(),
		Clipboard: len(s.Clipboard()),
		UndoDepth: s.History().Len(),
		Drag:      s.DragState(),
	}
}

// ============================================================
// Commands
// ============================================================

// HandleKey dispatches a key event through the hotkey table.
func (a *App) HandleKey(ev editor.KeyEvent, textSelectionEmpty bool) (KeyResult, error) {
	s, err := a.current()
	if err != nil {
		return KeyResult{Action: editor.ActionNone.String()}, err
	}
	action, err := s.HandleKey(a.ctx, &ev, textSelectionEmpty)
	return KeyResult{Action: action.String(), PreventDefault: ev.DefaultPrevented()}, err
}

func (a *App) Undo() (bool, error) {
	s, err := a.current()
	if err != nil {
		return false, err
	}
	return s.Undo(a.ctx)
}

func (a *App) CopySelection() (int, error) {
	s, err := a.current()
	if err != nil {
		return 0, err
	}
	return len(s.CopySelection()), nil
}

func (a *App) Paste() ([]domain.Block, error) {
	s, err := a.current()
	if err != nil {
		return nil, err
	}
	return s.Paste(a.ctx)
}

func (a *App) Duplicate() (*domain.Block, error) {
	s, err := a.current()
	if err != nil {
		return nil, err
	}
	return s.Duplicate(a.ctx)
}

func (a *App) DeleteSelection() error {
	s, err := a.current()
	if err != nil {
		return err
	}
	return s.DeleteSelection(a.ctx)
}

func (a *App) CutSelection() (int, error) {
	s, err := a.current()
	if err != nil {
		return 0, err
	}
	cut, err := s.CutSelection(a.ctx)
	return len(cut), err
}

func (a *App) IndentFocused() (bool, error) {
	s, err := a.current()
	if err != nil {
		return false, err
	}
	return s.IndentFocused(a.ctx)
}

func (a *App) OutdentFocused() (bool, error) {
	s, err := a.current()
	if err != nil {
		return false, err
	}
	return s.OutdentFocused(a.ctx)
}

// ============================================================
// Drag & drop
// ============================================================

func (a *App) StartDrag(blockID string) bool {
	s, err := a.current()
	return err == nil && s.StartDrag(blockID)
}

// DragOver records the hovered target; position is before, after or child.
func (a *App) DragOver(targetID, position string) bool {
	s, err := a.current()
	if err != nil {
		return false
	}
	pos := editor.Position(position)
	if !pos.Valid() {
		return false
	}
	return s.DragOver(targetID, pos)
}

func (a *App) Drop() bool {
	s, err := a.current()
	return err == nil && s.Drop(a.ctx)
}

func (a *App) CancelDrag() {
	if s, err := a.current(); err == nil {
		s.CancelDrag()
	}
}
