package editor_test

import (
	"context"
	"errors"
	"testing"

	"stepjourney/internal/domain"
	"stepjourney/internal/editor"
	"stepjourney/internal/tree"
)

type moveCall struct {
	id, parent string
	index      int
}

type fakeMover struct {
	calls []moveCall
	err   error
}

func (m *fakeMover) MoveBlock(_ context.Context, id, parent string, index int) error {
	m.calls = append(m.calls, moveCall{id, parent, index})
	return m.err
}

// page
// ├── a
// ├── b
// │   └── b1
// └── c
func dragIndex() *tree.Index {
	return tree.NewIndex([]domain.Block{
		{ID: "page", Type: domain.BlockTypePage, Content: []string{"a", "b", "c"}},
		{ID: "a", Type: domain.BlockTypeText, ParentID: "page"},
		{ID: "b", Type: domain.BlockTypeText, ParentID: "page", Content: []string{"b1"}},
		{ID: "b1", Type: domain.BlockTypeText, ParentID: "b"},
		{ID: "c", Type: domain.BlockTypeText, ParentID: "page"},
	})
}

func newDrag(m *fakeMover) *editor.DragController {
	ix := dragIndex()
	return editor.NewDragController(m, func() *tree.Index { return ix }, nil)
}

func TestDrag_OverSelfLeavesTargetEmpty(t *testing.T) {
	d := newDrag(&fakeMover{})
	d.StartDrag("a")
	if d.DragOver("a", editor.PositionAfter) {
		t.Fatal("self drop should be ignored")
	}
	if st := d.State(); st.DropTarget != nil || st.DraggedBlockID != "a" {
		t.Errorf("unexpected state %+v", st)
	}
}

func TestDrag_SecondStartIgnored(t *testing.T) {
	d := newDrag(&fakeMover{})
	if !d.StartDrag("a") {
		t.Fatal("first drag should start")
	}
	if d.StartDrag("b") {
		t.Fatal("second drag should be ignored")
	}
	if d.State().DraggedBlockID != "a" {
		t.Errorf("expected a, got %q", d.State().DraggedBlockID)
	}
}

func TestDrag_DropIndexes(t *testing.T) {
	tests := []struct {
		name    string
		dragged string
		target  string
		pos     editor.Position
		want    moveCall
	}{
		{"before later sibling", "a", "c", editor.PositionBefore, moveCall{"a", "page", 1}},
		{"after later sibling", "a", "c", editor.PositionAfter, moveCall{"a", "page", 2}},
		{"before first", "c", "a", editor.PositionBefore, moveCall{"c", "page", 0}},
		{"after nested", "a", "b1", editor.PositionAfter, moveCall{"a", "b", 1}},
		{"as child", "c", "a", editor.PositionChild, moveCall{"c", "a", -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMover{}
			d := newDrag(m)
			d.StartDrag(tt.dragged)
			d.DragOver(tt.target, tt.pos)
			if !d.Drop(context.Background()) {
				t.Fatal("expected drop to commit")
			}
			if len(m.calls) != 1 || m.calls[0] != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, m.calls)
			}
			if st := d.State(); st.DraggedBlockID != "" || st.DropTarget != nil || st.Committing {
				t.Errorf("state not reset: %+v", st)
			}
		})
	}
}

func TestDrag_IntoOwnSubtreeRejected(t *testing.T) {
	m := &fakeMover{}
	d := newDrag(m)
	d.StartDrag("b")
	d.DragOver("b1", editor.PositionChild)
	if d.Drop(context.Background()) {
		t.Fatal("drop into own subtree must not commit")
	}
	if len(m.calls) != 0 {
		t.Errorf("mover should not be called, got %+v", m.calls)
	}
	if d.State().DraggedBlockID != "" {
		t.Error("state should be reset")
	}
}

func TestDrag_FailedMoveResetsAndSkipsCallback(t *testing.T) {
	m := &fakeMover{err: errors.New("disk full")}
	d := newDrag(m)
	called := false
	d.OnComplete(func() { called = true })

	d.StartDrag("a")
	d.DragOver("c", editor.PositionAfter)
	if d.Drop(context.Background()) {
		t.Fatal("failed move reported as committed")
	}
	if called {
		t.Error("completion callback ran after failure")
	}
	if st := d.State(); st.DraggedBlockID != "" || st.DropTarget != nil {
		t.Errorf("state not reset: %+v", st)
	}
}

func TestDrag_DropWithoutTargetIsNoop(t *testing.T) {
	m := &fakeMover{}
	d := newDrag(m)
	if d.Drop(context.Background()) {
		t.Fatal("drop without drag committed")
	}
	d.StartDrag("a")
	if d.Drop(context.Background()) {
		t.Fatal("drop without target committed")
	}
	if len(m.calls) != 0 {
		t.Errorf("unexpected moves %+v", m.calls)
	}
}

func TestDrag_NewDragControllerPanicsWithoutMover(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	editor.NewDragController(nil, func() *tree.Index { return nil }, nil)
}
