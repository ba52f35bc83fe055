package editor

import (
	"context"
	"fmt"

	"stepjourney/internal/domain"
	"stepjourney/internal/tree"
)

// HandleKey dispatches a keyboard event against the current session state
// and runs the matched command. Unmatched events return ActionNone and are
// left for the default handler.
func (s *Session) HandleKey(ctx context.Context, ev *KeyEvent, textSelectionEmpty bool) (Action, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ActionNone, ErrSessionClosed
	}
	s.adoptLocked()
	hc := HotkeyContext{
		HasSelection:       s.sel.Len() > 0,
		HasFocus:           s.sel.Focused() != "",
		HasClipboard:       s.sel.HasClipboard(),
		CanDuplicate:       s.duplicateTargetLocked() != "",
		TextSelectionEmpty: textSelectionEmpty,
	}
	s.mu.Unlock()

	action := Dispatch(ev, hc)
	var err error
	switch action {
	case ActionUndo:
		_, err = s.Undo(ctx)
	case ActionCopy:
		s.CopySelection()
	case ActionPaste:
		_, err = s.Paste(ctx)
	case ActionDuplicate:
		_, err = s.Duplicate(ctx)
	case ActionDelete:
		err = s.DeleteSelection(ctx)
	}
	if err != nil {
		s.log.Warn("hotkey command failed", "action", action.String(), "error", err)
	}
	return action, err
}

func (s *Session) duplicateTargetLocked() string {
	if f := s.sel.Focused(); f != "" && s.ix.Has(f) {
		return f
	}
	if ids := s.sel.IDs(); len(ids) == 1 && s.ix.Has(ids[0]) {
		return ids[0]
	}
	return ""
}

// Undo restores the most recent history entry. On a failed restore the
// entry is kept so the user can retry, and the local snapshot is reloaded.
func (s *Session) Undo(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrSessionClosed
	}
	snap, ok := s.history.Undo()
	if !ok {
		return false, nil
	}
	if err := s.blocks.RestoreSnapshot(ctx, snap); err != nil {
		s.history.Push(snap)
		if rerr := s.refreshLocked(ctx); rerr != nil {
			s.log.Warn("reload after failed undo", "error", rerr)
		}
		return false, fmt.Errorf("undo %s: %w", snap.Label, err)
	}
	return true, s.refreshLocked(ctx)
}

// Paste inserts the clipboard after the focused block. The pasted roots
// become the selection and the last one takes focus.
func (s *Session) Paste(ctx context.Context) ([]domain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	target := s.sel.Focused()
	if target == "" {
		return nil, ErrNothingFocused
	}
	clip := s.sel.Clipboard()
	if len(clip) == 0 {
		return nil, nil
	}

	snap := s.blocks.Capture(ctx, "paste", target, s.parentOfLocked(target))
	roots, err := s.blocks.PasteBlocks(ctx, target, clip)
	if err != nil {
		return nil, err
	}
	snap.Created = tree.IDs(roots)
	s.history.Push(snap)
	if err := s.refreshLocked(ctx); err != nil {
		return roots, err
	}

	s.sel.Clear()
	for _, r := range roots {
		s.sel.Select(r.ID, true)
	}
	if len(roots) > 0 {
		s.focusLocked(roots[len(roots)-1].ID)
	}
	return roots, nil
}

// Duplicate copies the focused block (or the single selected one) in
// place and focuses the copy.
func (s *Session) Duplicate(ctx context.Context) (*domain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	id := s.duplicateTargetLocked()
	if id == "" {
		return nil, ErrNothingFocused
	}

	snap := s.blocks.Capture(ctx, "duplicate", s.parentOfLocked(id))
	dup, err := s.blocks.DuplicateBlock(ctx, id)
	if err != nil {
		return nil, err
	}
	snap.Created = []string{dup.ID}
	s.history.Push(snap)
	if err := s.refreshLocked(ctx); err != nil {
		return dup, err
	}
	s.sel.Select(dup.ID, false)
	s.focusLocked(dup.ID)
	return dup, nil
}

// DeleteSelection removes every selected block with its subtree. Focus
// moves to the nearest surviving block above the first deleted one.
func (s *Session) DeleteSelection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	ids := s.sel.IDs()
	if len(ids) == 0 {
		return nil
	}
	_, err := s.deleteLocked(ctx, "delete", ids)
	return err
}

// CutSelection copies the selection to the clipboard, then deletes it.
func (s *Session) CutSelection(ctx context.Context) ([]domain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	ids := s.sel.IDs()
	if len(ids) == 0 {
		return nil, nil
	}
	clip := s.selectionSnapshotLocked()
	s.sel.SetClipboard(clip)
	if _, err := s.deleteLocked(ctx, "cut", ids); err != nil {
		return nil, err
	}
	return cloneBlocks(clip), nil
}

func (s *Session) deleteLocked(ctx context.Context, label string, ids []string) (string, error) {
	removed := map[string]bool{}
	captureIDs := make([]string, 0, len(ids)*2)
	for _, id := range ids {
		for _, b := range tree.BlockWithChildren(id, s.ix) {
			removed[b.ID] = true
			captureIDs = append(captureIDs, b.ID)
		}
		if p := s.parentOfLocked(id); p != "" {
			captureIDs = append(captureIDs, p)
		}
	}
	next := s.survivorAboveLocked(removed)

	snap := s.blocks.Capture(ctx, label, captureIDs...)
	if err := s.blocks.DeleteBlocks(ctx, ids); err != nil {
		return "", err
	}
	s.history.Push(snap)
	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}

	gone := make([]string, 0, len(removed))
	for id := range removed {
		gone = append(gone, id)
	}
	s.sel.Forget(gone...)
	s.sel.Clear()
	if next != "" {
		s.focusLocked(next)
	} else {
		s.mirrorLocked()
	}
	return next, nil
}

func (s *Session) survivorAboveLocked(removed map[string]bool) string {
	last := ""
	for _, id := range tree.RowIDs(s.rowsLocked()) {
		if removed[id] {
			return last
		}
		last = id
	}
	return last
}

// IndentFocused nests the focused block under its previous sibling.
func (s *Session) IndentFocused(ctx context.Context) (bool, error) {
	return s.reparentFocused(ctx, "indent", s.blocks.Indent)
}

// OutdentFocused lifts the focused block to follow its parent.
func (s *Session) OutdentFocused(ctx context.Context) (bool, error) {
	return s.reparentFocused(ctx, "outdent", s.blocks.Outdent)
}

func (s *Session) reparentFocused(ctx context.Context, label string, op func(context.Context, string) (bool, error)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrSessionClosed
	}
	s.adoptLocked()
	id := s.sel.Focused()
	if id == "" {
		return false, ErrNothingFocused
	}
	b, ok := s.ix.Get(id)
	if !ok {
		return false, nil
	}

	// Both candidate parents: the previous sibling and the grandparent.
	capture := []string{id, b.ParentID}
	if parent, ok := s.ix.Get(b.ParentID); ok {
		capture = append(capture, parent.ParentID)
		if i := parent.IndexOfChild(id); i > 0 {
			capture = append(capture, parent.Content[i-1])
		}
	}
	snap := s.blocks.Capture(ctx, label, capture...)
	moved, err := op(ctx, id)
	if err != nil || !moved {
		return false, err
	}
	s.history.Push(snap)
	if err := s.refreshLocked(ctx); err != nil {
		return true, err
	}
	s.focusLocked(id)
	return true, nil
}

func (s *Session) parentOfLocked(id string) string {
	if b, ok := s.ix.Get(id); ok {
		return b.ParentID
	}
	return ""
}
