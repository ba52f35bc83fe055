package editor

import (
	"sort"

	"stepjourney/internal/domain"
)

// SelectionState is the coarse state of a Selection.
type SelectionState int

const (
	Idle SelectionState = iota
	SingleSelected
	MultiSelected
)

func (s SelectionState) String() string {
	switch s {
	case SingleSelected:
		return "single"
	case MultiSelected:
		return "multi"
	default:
		return "idle"
	}
}

// Selection holds the selected ids, the focused id and the clipboard. It
// is not safe for concurrent use; Session serializes access.
type Selection struct {
	selected  map[string]struct{}
	focused   string
	clipboard []domain.Block
}

func NewSelection() *Selection {
	return &Selection{selected: make(map[string]struct{})}
}

// Select with multi=false replaces the selection with id and focuses it.
// With multi=true it toggles id; focus moves only when id ends up as the
// sole member.
func (s *Selection) Select(id string, multi bool) {
	if !multi {
		s.selected = map[string]struct{}{id: {}}
		s.focused = id
		return
	}
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
	} else {
		s.selected[id] = struct{}{}
	}
	if _, ok := s.selected[id]; ok && len(s.selected) == 1 {
		s.focused = id
	}
}

// Focus sets the focused id without touching the selected set.
func (s *Selection) Focus(id string) {
	s.focused = id
}

// Clear empties the selected set. Focus is kept.
func (s *Selection) Clear() {
	s.selected = make(map[string]struct{})
}

// Forget drops ids from the selection and clears focus if it was one of them.
func (s *Selection) Forget(ids ...string) {
	for _, id := range ids {
		delete(s.selected, id)
		if s.focused == id {
			s.focused = ""
		}
	}
}

func (s *Selection) State() SelectionState {
	switch len(s.selected) {
	case 0:
		return Idle
	case 1:
		return SingleSelected
	default:
		return MultiSelected
	}
}

func (s *Selection) Has(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// IDs returns the selected ids sorted for stable output.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.selected))
	for id := range s.selected {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *Selection) Len() int { return len(s.selected) }

func (s *Selection) Focused() string { return s.focused }

// SetClipboard stores value copies of blocks.
func (s *Selection) SetClipboard(blocks []domain.Block) {
	s.clipboard = cloneBlocks(blocks)
}

// Clipboard returns value copies of the clipboard contents.
func (s *Selection) Clipboard() []domain.Block {
	return cloneBlocks(s.clipboard)
}

func (s *Selection) HasClipboard() bool { return len(s.clipboard) > 0 }

func cloneBlocks(blocks []domain.Block) []domain.Block {
	if blocks == nil {
		return nil
	}
	out := make([]domain.Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out
}
