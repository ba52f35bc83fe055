package tree_test

import (
	"errors"
	"reflect"
	"testing"

	"stepjourney/internal/domain"
	"stepjourney/internal/tree"
)

func blk(id string, t domain.BlockType, parent string, content ...string) domain.Block {
	if content == nil {
		content = []string{}
	}
	return domain.Block{
		ID:         id,
		Type:       t,
		ParentID:   parent,
		Content:    content,
		Properties: domain.DefaultProperties(t),
	}
}

func sampleJourney() []domain.Block {
	return []domain.Block{
		blk("j1", domain.BlockTypeJourney, "", "g1", "g2"),
		blk("g1", domain.BlockTypeStepGroup, "j1", "s1", "s2"),
		blk("g2", domain.BlockTypeStepGroup, "j1", "s3"),
		blk("s1", domain.BlockTypeStep, "g1"),
		blk("s2", domain.BlockTypeStep, "g1"),
		blk("s3", domain.BlockTypeStep, "g2"),
	}
}

// ─────────────────────────────────────────────────────────────
// Child lookup
// ─────────────────────────────────────────────────────────────

func TestChildBlocks_PreservesOrderAndSkipsDangling(t *testing.T) {
	blocks := []domain.Block{
		blk("p", domain.BlockTypePage, "", "c", "missing", "a"),
		blk("a", domain.BlockTypeText, "p"),
		blk("c", domain.BlockTypeText, "p"),
	}
	ix := tree.NewIndex(blocks)
	got := ids(tree.ChildBlocks(blocks[0], ix))
	if !reflect.DeepEqual(got, []string{"c", "a"}) {
		t.Errorf("got %v", got)
	}
}

func TestChildBlocks_DanglingRoundTrip(t *testing.T) {
	parent := blk("p", domain.BlockTypePage, "", "a", "b")
	pool := []domain.Block{parent, blk("a", domain.BlockTypeText, "p"), blk("b", domain.BlockTypeText, "p")}

	if got := ids(tree.ChildBlocks(parent, tree.NewIndex(pool))); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("got %v", got)
	}
	if got := ids(tree.ChildBlocks(parent, tree.NewIndex(pool[:2]))); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("after removing b from pool, got %v", got)
	}
}

func TestChildBlocks_DeletedReadsAsDangling(t *testing.T) {
	parent := blk("p", domain.BlockTypePage, "", "a")
	child := blk("a", domain.BlockTypeText, "p")
	child.Deleted = true
	if got := tree.ChildBlocks(parent, tree.NewIndex([]domain.Block{parent, child})); len(got) != 0 {
		t.Errorf("expected deleted child to be omitted, got %v", ids(got))
	}
}

func TestChildBlocksByType(t *testing.T) {
	blocks := []domain.Block{
		blk("p", domain.BlockTypePage, "", "a", "b", "c"),
		blk("a", domain.BlockTypeText, "p"),
		blk("b", domain.BlockTypeToDo, "p"),
		blk("c", domain.BlockTypeText, "p"),
	}
	ix := tree.NewIndex(blocks)
	if got := ids(tree.ChildBlocksByType(blocks[0], ix, domain.BlockTypeText)); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("got %v", got)
	}
	if got := tree.ChildBlocksByType(blocks[0], ix, domain.BlockTypeImage); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

// ─────────────────────────────────────────────────────────────
// Flattening
// ─────────────────────────────────────────────────────────────

func TestFlattenJourney_Scenario(t *testing.T) {
	blocks := sampleJourney()
	ix := tree.NewIndex(blocks)
	steps, err := tree.FlattenJourney(blocks[0], ix)
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		id, group string
		global    int
	}{
		{"s1", "g1", 0},
		{"s2", "g1", 1},
		{"s3", "g2", 2},
	}
	if len(steps) != len(want) {
		t.Fatalf("expected %d steps, got %d", len(want), len(steps))
	}
	for i, w := range want {
		if steps[i].Block.ID != w.id || steps[i].GroupID != w.group || steps[i].GlobalIndex != w.global {
			t.Errorf("step %d = %s/%s/%d, want %s/%s/%d", i,
				steps[i].Block.ID, steps[i].GroupID, steps[i].GlobalIndex, w.id, w.group, w.global)
		}
	}
	if steps[1].StepIDInGroup != 2 || steps[2].StepIDInGroup != 1 {
		t.Errorf("unexpected in-group positions %d, %d", steps[1].StepIDInGroup, steps[2].StepIDInGroup)
	}
}

func TestFlattenJourney_Deterministic(t *testing.T) {
	blocks := sampleJourney()
	ix := tree.NewIndex(blocks)
	a, _ := tree.FlattenJourney(blocks[0], ix)
	b, _ := tree.FlattenJourney(blocks[0], ix)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("two flattens of the same snapshot differ")
	}
	for i, s := range a {
		if s.GlobalIndex != i {
			t.Fatalf("globalIndex gap at %d: %d", i, s.GlobalIndex)
		}
	}
}

func TestFlattenJourney_StoredStepIDWins(t *testing.T) {
	blocks := sampleJourney()
	blocks[3].Properties = domain.StepProperties{Title: "first", StepIDInGroup: 7}
	steps, err := tree.FlattenJourney(blocks[0], tree.NewIndex(blocks))
	if err != nil {
		t.Fatal(err)
	}
	if steps[0].StepIDInGroup != 7 || steps[0].Properties.Title != "first" {
		t.Errorf("got %+v", steps[0])
	}
}

func TestFlattenJourney_NotAJourney(t *testing.T) {
	blocks := sampleJourney()
	_, err := tree.FlattenJourney(blocks[1], tree.NewIndex(blocks))
	if !errors.Is(err, domain.ErrNotAJourney) {
		t.Fatalf("expected ErrNotAJourney, got %v", err)
	}
}

func TestFlattenJourney_SkipsStrayVariants(t *testing.T) {
	blocks := sampleJourney()
	blocks[0].Content = append(blocks[0].Content, "t")
	blocks[1].Content = append(blocks[1].Content, "t")
	blocks = append(blocks, blk("t", domain.BlockTypeText, "g1"))
	steps, err := tree.FlattenJourney(blocks[0], tree.NewIndex(blocks))
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 3 {
		t.Errorf("expected stray text blocks to be ignored, got %d steps", len(steps))
	}
}

func TestFlattenDocument_Collapsed(t *testing.T) {
	blocks := []domain.Block{
		blk("p", domain.BlockTypePage, "", "a", "t", "b"),
		blk("a", domain.BlockTypeText, "p"),
		blk("t", domain.BlockTypeToggle, "p", "t1"),
		blk("t1", domain.BlockTypeText, "t"),
		blk("b", domain.BlockTypeText, "p"),
	}
	ix := tree.NewIndex(blocks)

	rows := tree.FlattenDocument(blocks[0], ix, nil)
	if got := tree.RowIDs(rows); !reflect.DeepEqual(got, []string{"a", "t", "t1", "b"}) {
		t.Errorf("expanded: got %v", got)
	}
	if rows[2].Depth != 1 {
		t.Errorf("expected nested depth 1, got %d", rows[2].Depth)
	}

	rows = tree.FlattenDocument(blocks[0], ix, map[string]bool{"t": true})
	if got := tree.RowIDs(rows); !reflect.DeepEqual(got, []string{"a", "t", "b"}) {
		t.Errorf("collapsed: got %v", got)
	}
}

// ─────────────────────────────────────────────────────────────
// Subtree walks
// ─────────────────────────────────────────────────────────────

func TestBlockWithChildren(t *testing.T) {
	ix := tree.NewIndex(sampleJourney())
	got := ids(tree.BlockWithChildren("g1", ix))
	if !reflect.DeepEqual(got, []string{"g1", "s1", "s2"}) {
		t.Errorf("got %v", got)
	}
	if got := tree.BlockWithChildren("nope", ix); got != nil {
		t.Errorf("expected nil for unknown id, got %v", ids(got))
	}
}

func TestBlockWithChildren_CycleTerminates(t *testing.T) {
	blocks := []domain.Block{
		blk("a", domain.BlockTypeToggle, "b", "b"),
		blk("b", domain.BlockTypeToggle, "a", "a"),
	}
	got := ids(tree.BlockWithChildren("a", tree.NewIndex(blocks)))
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("got %v", got)
	}
}

func TestIsAncestorAndContains(t *testing.T) {
	ix := tree.NewIndex(sampleJourney())
	if !tree.IsAncestor(ix, "j1", "s3") {
		t.Error("j1 should be an ancestor of s3")
	}
	if tree.IsAncestor(ix, "g1", "s3") {
		t.Error("g1 is not an ancestor of s3")
	}
	if tree.IsAncestor(ix, "s1", "s1") {
		t.Error("a block is not its own ancestor")
	}
	if !tree.Contains(ix, "j1", "s2") || tree.Contains(ix, "g2", "s1") {
		t.Error("Contains disagrees with content lists")
	}
}

func TestLiveContent(t *testing.T) {
	parent := blk("p", domain.BlockTypePage, "", "a", "gone")
	ix := tree.NewIndex([]domain.Block{parent, blk("a", domain.BlockTypeText, "p")})
	got := tree.LiveContent(parent, ix)
	if !reflect.DeepEqual(got.Content, []string{"a"}) {
		t.Errorf("got %v", got.Content)
	}
	if len(parent.Content) != 2 {
		t.Error("LiveContent mutated its input")
	}
}

func ids(blocks []domain.Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.ID
	}
	return out
}
