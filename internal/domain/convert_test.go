package domain_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"stepjourney/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// ToBlock
// ─────────────────────────────────────────────────────────────

func TestToBlock_KnownTypes(t *testing.T) {
	for _, bt := range domain.BlockTypes {
		raw := domain.RawBlock{ID: "b-" + string(bt), Type: string(bt)}
		b, err := domain.ToBlock(raw)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", bt, err)
		}
		if b.Type != bt {
			t.Errorf("%s: got type %q", bt, b.Type)
		}
		if !domain.PropertiesMatch(bt, b.Properties) {
			t.Errorf("%s: properties %T not legal for variant", bt, b.Properties)
		}
	}
}

func TestToBlock_UnknownType(t *testing.T) {
	_, err := domain.ToBlock(domain.RawBlock{ID: "x", Type: "spreadsheet"})
	if !errors.Is(err, domain.ErrUnknownBlockType) {
		t.Fatalf("expected ErrUnknownBlockType, got %v", err)
	}
	var typed *domain.UnknownBlockTypeError
	if !errors.As(err, &typed) || typed.Type != "spreadsheet" {
		t.Fatalf("expected typed error carrying the tag, got %#v", err)
	}
}

func TestToBlock_MissingID(t *testing.T) {
	_, err := domain.ToBlock(domain.RawBlock{Type: "text"})
	if !errors.Is(err, domain.ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestToBlock_DropsUnknownProperties(t *testing.T) {
	raw := domain.RawBlock{
		ID:         "s1",
		Type:       "step",
		Properties: json.RawMessage(`{"title":"Open","label":"1","stepIdInGroup":2,"color":"red","x":4}`),
	}
	b, err := domain.ToBlock(raw)
	if err != nil {
		t.Fatal(err)
	}
	p, ok := domain.AsStep(b)
	if !ok {
		t.Fatalf("expected step properties, got %T", b.Properties)
	}
	if p.Title != "Open" || p.Label != "1" || p.StepIDInGroup != 2 {
		t.Errorf("unexpected properties %+v", p)
	}

	out, err := json.Marshal(b.Properties)
	if err != nil {
		t.Fatal(err)
	}
	var keys map[string]any
	if err := json.Unmarshal(out, &keys); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"color", "x"} {
		if _, ok := keys[k]; ok {
			t.Errorf("unknown key %q survived conversion", k)
		}
	}
}

func TestToBlock_Defaults(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b, err := domain.ToBlockAt(domain.RawBlock{ID: "t1", Type: "text"}, now)
	if err != nil {
		t.Fatal(err)
	}
	if !b.CreatedAt.Equal(now) || !b.UpdatedAt.Equal(now) {
		t.Errorf("expected timestamps to default to now, got %v / %v", b.CreatedAt, b.UpdatedAt)
	}
	if b.CreatedBy != domain.SystemActor {
		t.Errorf("expected createdBy %q, got %q", domain.SystemActor, b.CreatedBy)
	}
	if b.Content == nil || len(b.Content) != 0 {
		t.Errorf("expected empty non-nil content, got %#v", b.Content)
	}
}

func TestToBlock_ClampsUpdatedAt(t *testing.T) {
	var raw domain.RawBlock
	data := `{"id":"t1","type":"text","createdAt":"2024-05-02T00:00:00Z","updatedAt":1714521600000}`
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		t.Fatal(err)
	}
	b, err := domain.ToBlock(raw)
	if err != nil {
		t.Fatal(err)
	}
	if b.UpdatedAt.Before(b.CreatedAt) {
		t.Errorf("updatedAt %v before createdAt %v", b.UpdatedAt, b.CreatedAt)
	}
}

func TestToBlock_ContentDedupAndParentAlias(t *testing.T) {
	raw := domain.RawBlock{
		ID:      "p1",
		Type:    "page",
		Parent:  "root",
		Content: []string{"a", "b", "a", "", "p1", "c"},
	}
	b, err := domain.ToBlock(raw)
	if err != nil {
		t.Fatal(err)
	}
	if b.ParentID != "root" {
		t.Errorf("expected parent alias to populate ParentID, got %q", b.ParentID)
	}
	want := []string{"a", "b", "c"}
	if len(b.Content) != len(want) {
		t.Fatalf("expected %v, got %v", want, b.Content)
	}
	for i := range want {
		if b.Content[i] != want[i] {
			t.Errorf("content[%d] = %q, want %q", i, b.Content[i], want[i])
		}
	}
}

func TestToBlocks_BatchContinuesPastFailures(t *testing.T) {
	raws := []domain.RawBlock{
		{ID: "a", Type: "text"},
		{ID: "b", Type: "nope"},
		{ID: "c", Type: "divider"},
	}
	blocks, err := domain.ToBlocks(raws)
	if !errors.Is(err, domain.ErrUnknownBlockType) {
		t.Fatalf("expected joined ErrUnknownBlockType, got %v", err)
	}
	if len(blocks) != 2 || blocks[0].ID != "a" || blocks[1].ID != "c" {
		t.Fatalf("expected [a c], got %+v", blocks)
	}
}

func TestBlock_JSONRoundTripKeepsVariant(t *testing.T) {
	src := `{"id":"td","type":"to_do","properties":{"text":"buy milk","checked":true},"content":[]}`
	var b domain.Block
	if err := json.Unmarshal([]byte(src), &b); err != nil {
		t.Fatal(err)
	}
	p, ok := b.Properties.(domain.ToDoProperties)
	if !ok {
		t.Fatalf("expected ToDoProperties, got %T", b.Properties)
	}
	if !p.Checked || p.Text.PlainText() != "buy milk" {
		t.Errorf("unexpected properties %+v", p)
	}

	out, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	var again domain.Block
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatal(err)
	}
	if again.Type != domain.BlockTypeToDo || !again.CreatedAt.Equal(b.CreatedAt) {
		t.Errorf("round trip changed block: %+v", again)
	}
}
