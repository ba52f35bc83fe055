package editor_test

import (
	"testing"

	"stepjourney/internal/editor"
)

func TestDispatch_UndoRegardlessOfState(t *testing.T) {
	ev := &editor.KeyEvent{Key: "z", MetaKey: true}
	if got := editor.Dispatch(ev, editor.HotkeyContext{}); got != editor.ActionUndo {
		t.Fatalf("expected undo, got %s", got)
	}
	if !ev.DefaultPrevented() {
		t.Error("expected default prevented")
	}
}

func TestDispatch_Table(t *testing.T) {
	full := editor.HotkeyContext{HasSelection: true, HasFocus: true, HasClipboard: true, CanDuplicate: true, TextSelectionEmpty: true}
	tests := []struct {
		name string
		ev   editor.KeyEvent
		hc   editor.HotkeyContext
		want editor.Action
	}{
		{"ctrl z", editor.KeyEvent{Key: "z", CtrlKey: true}, full, editor.ActionUndo},
		{"shift z is redo, unhandled", editor.KeyEvent{Key: "Z", MetaKey: true, ShiftKey: true}, full, editor.ActionNone},
		{"copy", editor.KeyEvent{Key: "c", MetaKey: true}, full, editor.ActionCopy},
		{"copy without selection", editor.KeyEvent{Key: "c", MetaKey: true}, editor.HotkeyContext{HasFocus: true}, editor.ActionNone},
		{"paste", editor.KeyEvent{Key: "v", CtrlKey: true}, full, editor.ActionPaste},
		{"paste with empty clipboard", editor.KeyEvent{Key: "v", CtrlKey: true}, editor.HotkeyContext{HasFocus: true}, editor.ActionNone},
		{"duplicate", editor.KeyEvent{Key: "d", MetaKey: true}, full, editor.ActionDuplicate},
		{"delete", editor.KeyEvent{Key: "Delete"}, full, editor.ActionDelete},
		{"backspace", editor.KeyEvent{Key: "Backspace"}, full, editor.ActionDelete},
		{"backspace while text selected", editor.KeyEvent{Key: "Backspace"}, editor.HotkeyContext{HasSelection: true}, editor.ActionNone},
		{"plain letter", editor.KeyEvent{Key: "c"}, full, editor.ActionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := tt.ev
			got := editor.Dispatch(&ev, tt.hc)
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
			if prevented := ev.DefaultPrevented(); prevented != (got != editor.ActionNone) {
				t.Errorf("prevented=%v for action %s", prevented, got)
			}
		})
	}
}

func TestDispatch_NilEvent(t *testing.T) {
	if editor.Dispatch(nil, editor.HotkeyContext{}) != editor.ActionNone {
		t.Error("nil event should be ignored")
	}
}
