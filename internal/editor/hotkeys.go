package editor

import "strings"

// Action is the outcome of dispatching a key event.
type Action int

const (
	ActionNone Action = iota
	ActionUndo
	ActionCopy
	ActionPaste
	ActionDuplicate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionUndo:
		return "undo"
	case ActionCopy:
		return "copy"
	case ActionPaste:
		return "paste"
	case ActionDuplicate:
		return "duplicate"
	case ActionDelete:
		return "delete"
	default:
		return "none"
	}
}

// KeyEvent is a keyboard event forwarded from the frontend.
type KeyEvent struct {
	Key      string `json:"key"`
	MetaKey  bool   `json:"metaKey"`
	CtrlKey  bool   `json:"ctrlKey"`
	ShiftKey bool   `json:"shiftKey"`
	AltKey   bool   `json:"altKey"`

	prevented bool
}

// PreventDefault marks the event so the frontend suppresses native handling.
func (e *KeyEvent) PreventDefault() { e.prevented = true }

func (e *KeyEvent) DefaultPrevented() bool { return e.prevented }

func (e *KeyEvent) mod() bool { return e.MetaKey || e.CtrlKey }

// HotkeyContext is the ambient editor state a dispatch depends on.
type HotkeyContext struct {
	HasSelection bool
	HasFocus     bool
	HasClipboard bool
	CanDuplicate bool
	// TextSelectionEmpty is true when the caret inside the focused editable
	// region has no selected text.
	TextSelectionEmpty bool
}

type hotkey struct {
	action Action
	match  func(ev *KeyEvent, hc HotkeyContext) bool
}

// hotkeys is ordered by priority; the first match wins.
var hotkeys = []hotkey{
	{ActionUndo, func(ev *KeyEvent, _ HotkeyContext) bool {
		return ev.mod() && !ev.ShiftKey && isKey(ev, "z")
	}},
	{ActionCopy, func(ev *KeyEvent, hc HotkeyContext) bool {
		return ev.mod() && isKey(ev, "c") && hc.HasSelection
	}},
	{ActionPaste, func(ev *KeyEvent, hc HotkeyContext) bool {
		return ev.mod() && isKey(ev, "v") && hc.HasFocus && hc.HasClipboard
	}},
	{ActionDuplicate, func(ev *KeyEvent, hc HotkeyContext) bool {
		return ev.mod() && isKey(ev, "d") && hc.CanDuplicate
	}},
	{ActionDelete, func(ev *KeyEvent, hc HotkeyContext) bool {
		return (ev.Key == "Delete" || ev.Key == "Backspace") && hc.HasSelection && hc.TextSelectionEmpty
	}},
}

// Dispatch maps ev to at most one action. A matched event has its default
// prevented; an unmatched one is left untouched.
func Dispatch(ev *KeyEvent, hc HotkeyContext) Action {
	if ev == nil {
		return ActionNone
	}
	for _, hk := range hotkeys {
		if hk.match(ev, hc) {
			ev.PreventDefault()
			return hk.action
		}
	}
	return ActionNone
}

func isKey(ev *KeyEvent, key string) bool {
	return strings.EqualFold(ev.Key, key)
}
