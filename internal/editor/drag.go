package editor

import (
	"context"
	"sync"

	"stepjourney/internal/logger"
	"stepjourney/internal/tree"
)

// Position is where a dragged block lands relative to its drop target.
type Position string

const (
	PositionBefore Position = "before"
	PositionAfter  Position = "after"
	PositionChild  Position = "child"
)

func (p Position) Valid() bool {
	return p == PositionBefore || p == PositionAfter || p == PositionChild
}

type DropTarget struct {
	BlockID  string   `json:"blockId"`
	Position Position `json:"position"`
}

// DragState is a read-only view of the controller.
type DragState struct {
	DraggedBlockID string      `json:"draggedBlockId,omitempty"`
	DropTarget     *DropTarget `json:"dropTarget,omitempty"`
	Committing     bool        `json:"committing"`
}

// Mover commits a drop.
type Mover interface {
	MoveBlock(ctx context.Context, id, newParentID string, index int) error
}

// DragController tracks at most one drag. A drop resolves its target
// against the current snapshot and commits through the Mover; the drag
// state is cleared whether the commit succeeds or fails.
type DragController struct {
	mover    Mover
	snapshot func() *tree.Index
	log      *logger.Logger

	mu         sync.Mutex
	dragged    string
	target     *DropTarget
	committing bool
	onComplete func()
}

func NewDragController(mover Mover, snapshot func() *tree.Index, log *logger.Logger) *DragController {
	if mover == nil || snapshot == nil {
		panic("editor: NewDragController requires a mover and a snapshot source")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &DragController{mover: mover, snapshot: snapshot, log: log}
}

// OnComplete sets a callback run after each successful drop.
func (d *DragController) OnComplete(fn func()) {
	d.mu.Lock()
	d.onComplete = fn
	d.mu.Unlock()
}

// StartDrag records id as the dragged block. Ignored while another drag is
// active or a drop is committing.
func (d *DragController) StartDrag(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id == "" || d.dragged != "" || d.committing {
		return false
	}
	d.dragged = id
	d.target = nil
	return true
}

// DragOver updates the drop target. Hovering the dragged block itself, or
// any call without an active drag, leaves the target unchanged.
func (d *DragController) DragOver(targetID string, pos Position) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dragged == "" || d.committing || targetID == "" || targetID == d.dragged || !pos.Valid() {
		return false
	}
	d.target = &DropTarget{BlockID: targetID, Position: pos}
	return true
}

// CancelDrag clears the dragged block and the drop target.
func (d *DragController) CancelDrag() {
	d.mu.Lock()
	d.dragged = ""
	d.target = nil
	d.mu.Unlock()
}

func (d *DragController) State() DragState {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := DragState{DraggedBlockID: d.dragged, Committing: d.committing}
	if d.target != nil {
		t := *d.target
		st.DropTarget = &t
	}
	return st
}

// Drop commits the pending drag. Returns true when a move was committed.
// Missing state is a no-op; a vanished block, a cyclic target or a failed
// move is logged and the drag is reset.
func (d *DragController) Drop(ctx context.Context) bool {
	d.mu.Lock()
	if d.dragged == "" || d.target == nil || d.committing {
		d.mu.Unlock()
		return false
	}
	dragged, target := d.dragged, *d.target
	d.committing = true
	d.mu.Unlock()

	ok := d.commit(ctx, dragged, target)

	d.mu.Lock()
	d.dragged = ""
	d.target = nil
	d.committing = false
	done := d.onComplete
	d.mu.Unlock()

	if ok && done != nil {
		done()
	}
	return ok
}

func (d *DragController) commit(ctx context.Context, draggedID string, target DropTarget) bool {
	ix := d.snapshot()
	targetBlock, ok := ix.Get(target.BlockID)
	if !ok {
		d.log.Debug("drop target vanished", "target", target.BlockID)
		return false
	}
	if !ix.Has(draggedID) {
		d.log.Debug("dragged block vanished", "block_id", draggedID)
		return false
	}

	var parentID string
	index := -1
	switch target.Position {
	case PositionChild:
		parentID = targetBlock.ID
	case PositionBefore, PositionAfter:
		parent, ok := ix.Get(targetBlock.ParentID)
		if !ok {
			d.log.Debug("drop target has no parent", "target", target.BlockID)
			return false
		}
		parentID = parent.ID
		index = siblingIndex(parent.Content, draggedID, targetBlock.ID)
		if target.Position == PositionAfter {
			index++
		}
	}

	if parentID == draggedID || tree.Contains(ix, draggedID, parentID) {
		d.log.Warn("drop rejected: target is inside the dragged block", "block_id", draggedID, "target", target.BlockID)
		return false
	}

	if err := d.mover.MoveBlock(ctx, draggedID, parentID, index); err != nil {
		d.log.Error("drop failed", "block_id", draggedID, "target", target.BlockID, "position", string(target.Position), "error", err)
		return false
	}
	return true
}

// siblingIndex is the position of targetID in content once draggedID has
// been taken out.
func siblingIndex(content []string, draggedID, targetID string) int {
	i := 0
	for _, id := range content {
		if id == draggedID {
			continue
		}
		if id == targetID {
			return i
		}
		i++
	}
	return i
}
