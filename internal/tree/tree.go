// Package tree derives parent/child views and navigation orders from a flat
// snapshot of blocks.
package tree

import (
	"stepjourney/internal/domain"
)

// Index is a read-only id lookup over a block snapshot. Deleted blocks are
// excluded, so content ids pointing at them read as dangling.
type Index struct {
	byID     map[string]domain.Block
	order    []string
	byParent map[string][]string
}

// NewIndex builds an index over blocks. When an id repeats, the last record wins.
func NewIndex(blocks []domain.Block) *Index {
	ix := &Index{
		byID:     make(map[string]domain.Block, len(blocks)),
		byParent: make(map[string][]string),
	}
	for _, b := range blocks {
		if b.Deleted {
			continue
		}
		if _, seen := ix.byID[b.ID]; !seen {
			ix.order = append(ix.order, b.ID)
		}
		ix.byID[b.ID] = b
	}
	for _, id := range ix.order {
		b := ix.byID[id]
		if b.ParentID != "" {
			ix.byParent[b.ParentID] = append(ix.byParent[b.ParentID], id)
		}
	}
	return ix
}

func (ix *Index) Get(id string) (domain.Block, bool) {
	b, ok := ix.byID[id]
	return b, ok
}

func (ix *Index) Has(id string) bool {
	_, ok := ix.byID[id]
	return ok
}

func (ix *Index) Len() int { return len(ix.order) }

// Blocks returns the indexed blocks in first-seen order.
func (ix *Index) Blocks() []domain.Block {
	out := make([]domain.Block, 0, len(ix.order))
	for _, id := range ix.order {
		out = append(out, ix.byID[id])
	}
	return out
}

// ChildBlocks maps parent.Content through the index in order, skipping ids
// that are not present.
func ChildBlocks(parent domain.Block, ix *Index) []domain.Block {
	out := make([]domain.Block, 0, len(parent.Content))
	for _, id := range parent.Content {
		if b, ok := ix.Get(id); ok {
			out = append(out, b)
		}
	}
	return out
}

// ChildBlocksByType is ChildBlocks filtered to a single variant.
func ChildBlocksByType(parent domain.Block, ix *Index, t domain.BlockType) []domain.Block {
	var out []domain.Block
	for _, b := range ChildBlocks(parent, ix) {
		if b.Type == t {
			out = append(out, b)
		}
	}
	if out == nil {
		out = []domain.Block{}
	}
	return out
}

// LiveContent returns a copy of b with dangling ids removed from Content.
func LiveContent(b domain.Block, ix *Index) domain.Block {
	out := b.Clone()
	out.Content = out.Content[:0]
	for _, id := range b.Content {
		if ix.Has(id) {
			out.Content = append(out.Content, id)
		}
	}
	return out
}

// BlockWithChildren collects the block id and every transitive descendant,
// following ParentID back-links depth first. Children listed in the parent's
// Content come first in that order, then any unlisted back-linked children.
// A visited set stops the walk on cyclic data.
func BlockWithChildren(id string, ix *Index) []domain.Block {
	root, ok := ix.Get(id)
	if !ok {
		return nil
	}
	visited := map[string]bool{}
	var out []domain.Block
	var walk func(b domain.Block)
	walk = func(b domain.Block) {
		if visited[b.ID] {
			return
		}
		visited[b.ID] = true
		out = append(out, b)
		for _, childID := range ix.childIDs(b) {
			if child, ok := ix.Get(childID); ok {
				walk(child)
			}
		}
	}
	walk(root)
	return out
}

func (ix *Index) childIDs(b domain.Block) []string {
	backLinked := ix.byParent[b.ID]
	if len(backLinked) == 0 {
		return nil
	}
	linked := make(map[string]bool, len(backLinked))
	for _, id := range backLinked {
		linked[id] = true
	}
	out := make([]string, 0, len(backLinked))
	listed := make(map[string]bool, len(b.Content))
	for _, id := range b.Content {
		if linked[id] {
			out = append(out, id)
			listed[id] = true
		}
	}
	for _, id := range backLinked {
		if !listed[id] {
			out = append(out, id)
		}
	}
	return out
}

// IsAncestor reports whether ancestorID appears on the ParentID chain of id.
// A block is not its own ancestor.
func IsAncestor(ix *Index, ancestorID, id string) bool {
	seen := map[string]bool{id: true}
	b, ok := ix.Get(id)
	for ok && b.ParentID != "" {
		if b.ParentID == ancestorID {
			return true
		}
		if seen[b.ParentID] {
			return false
		}
		seen[b.ParentID] = true
		b, ok = ix.Get(b.ParentID)
	}
	return false
}

// Contains reports whether id sits in the subtree rooted at rootID, walking
// Content lists. Used to reject moves that would create a cycle.
func Contains(ix *Index, rootID, id string) bool {
	if rootID == id {
		return true
	}
	visited := map[string]bool{}
	stack := []string{rootID}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		b, ok := ix.Get(cur)
		if !ok {
			continue
		}
		for _, c := range b.Content {
			if c == id {
				return true
			}
			stack = append(stack, c)
		}
	}
	return false
}

// IDs returns the ids of blocks in order.
func IDs(blocks []domain.Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.ID
	}
	return out
}
