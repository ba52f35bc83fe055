package editor_test

import (
	"reflect"
	"testing"

	"stepjourney/internal/domain"
	"stepjourney/internal/editor"
)

func TestSelection_SelectReplaces(t *testing.T) {
	s := editor.NewSelection()
	s.Select("a", false)
	s.Select("b", false)

	if got := s.IDs(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("expected [b], got %v", got)
	}
	if s.Focused() != "b" {
		t.Errorf("expected focus b, got %q", s.Focused())
	}
	if s.State() != editor.SingleSelected {
		t.Errorf("expected single, got %s", s.State())
	}
}

func TestSelection_MultiToggleTwiceRemoves(t *testing.T) {
	s := editor.NewSelection()
	s.Select("x", true)
	s.Select("x", true)

	if s.Has("x") || s.Len() != 0 {
		t.Fatalf("expected empty selection, got %v", s.IDs())
	}
	if s.State() != editor.Idle {
		t.Errorf("expected idle, got %s", s.State())
	}
}

func TestSelection_MultiKeepsFocusUnlessSole(t *testing.T) {
	s := editor.NewSelection()
	s.Select("a", true)
	if s.Focused() != "a" {
		t.Fatalf("sole member should take focus, got %q", s.Focused())
	}
	s.Select("b", true)
	if s.Focused() != "a" {
		t.Errorf("adding a second member must not move focus, got %q", s.Focused())
	}
	if s.State() != editor.MultiSelected {
		t.Errorf("expected multi, got %s", s.State())
	}
}

func TestSelection_ClearKeepsFocus(t *testing.T) {
	s := editor.NewSelection()
	s.Select("a", false)
	s.Clear()
	if s.Len() != 0 || s.Focused() != "a" {
		t.Errorf("expected empty selection with focus a, got %v / %q", s.IDs(), s.Focused())
	}
	s.Forget("a")
	if s.Focused() != "" {
		t.Errorf("forget should clear focus, got %q", s.Focused())
	}
}

func TestSelection_ClipboardIsASnapshot(t *testing.T) {
	s := editor.NewSelection()
	src := []domain.Block{{ID: "a", Type: domain.BlockTypeText, Properties: domain.TextProperties{Text: domain.PlainRichText("hi")}, Content: []string{"c"}}}
	s.SetClipboard(src)

	src[0].Content[0] = "mutated"
	src[0].ID = "other"

	clip := s.Clipboard()
	if len(clip) != 1 || clip[0].ID != "a" || clip[0].Content[0] != "c" {
		t.Fatalf("clipboard changed with its source: %+v", clip)
	}
	clip[0].ID = "again"
	if s.Clipboard()[0].ID != "a" {
		t.Error("clipboard changed through a returned copy")
	}
}

func TestScheduler_KeyedReplacement(t *testing.T) {
	sch := editor.NewScheduler()
	var got []string
	sch.AfterRender(func() { got = append(got, "plain") })
	sch.AfterRenderKey("caret", func() { got = append(got, "first") })
	sch.AfterRenderKey("caret", func() { got = append(got, "second") })

	if sch.Pending() != 2 {
		t.Fatalf("expected 2 pending, got %d", sch.Pending())
	}
	if n := sch.RenderCommitted(); n != 2 {
		t.Fatalf("expected 2 callbacks run, got %d", n)
	}
	if !reflect.DeepEqual(got, []string{"plain", "second"}) {
		t.Errorf("unexpected order %v", got)
	}
	if sch.RenderCommitted() != 0 {
		t.Error("callbacks must run once")
	}
}

func TestScheduler_ResetDropsCallbacks(t *testing.T) {
	sch := editor.NewScheduler()
	ran := false
	sch.AfterRender(func() { ran = true })
	sch.Reset()
	sch.RenderCommitted()
	if ran {
		t.Error("reset callback ran")
	}
}
