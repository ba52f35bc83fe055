package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"stepjourney/internal/domain"
	"stepjourney/internal/service"
	"stepjourney/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// BlockService tests against a temporary SQLite store
// ─────────────────────────────────────────────────────────────

type fixture struct {
	svc     *service.BlockService
	store   *storage.BlockStore
	emitter *service.MockEmitter
	ctx     context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "blocks.db"), dir)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := storage.NewBlockStore(db, nil)
	emitter := &service.MockEmitter{}
	return &fixture{
		svc:     service.NewBlockService(store, dir, emitter, nil),
		store:   store,
		emitter: emitter,
		ctx:     service.WithActor(context.Background(), "tester"),
	}
}

func (f *fixture) create(t *testing.T, parentID string, bt domain.BlockType, props domain.Properties) string {
	t.Helper()
	b, err := f.svc.CreateBlock(f.ctx, parentID, bt, props, -1)
	if err != nil {
		t.Fatalf("create %s: %v", bt, err)
	}
	return b.ID
}

func (f *fixture) content(t *testing.T, id string) []string {
	t.Helper()
	b, err := f.svc.GetBlock(f.ctx, id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return b.Content
}

func (f *fixture) parentOf(t *testing.T, id string) string {
	t.Helper()
	b, err := f.store.Get(id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return b.ParentID
}

func TestBlockService_NewBlockServicePanicsWithoutStore(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for nil store")
		}
	}()
	service.NewBlockService(nil, "/tmp/test", nil, nil)
}

func TestBlockService_CreateBlock(t *testing.T) {
	f := newFixture(t)
	page := f.create(t, "", domain.BlockTypePage, nil)
	a := f.create(t, page, domain.BlockTypeText, domain.TextProperties{Text: domain.PlainRichText("a")})
	b := f.create(t, page, domain.BlockTypeText, nil)

	front, err := f.svc.CreateBlock(f.ctx, page, domain.BlockTypeDivider, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.content(t, page); !reflect.DeepEqual(got, []string{front.ID, a, b}) {
		t.Errorf("unexpected order %v", got)
	}
	if front.CreatedBy != "tester" {
		t.Errorf("expected actor from context, got %q", front.CreatedBy)
	}
	if f.emitter.Count(service.EventBlocksChanged) != 4 {
		t.Errorf("expected 4 change events, got %d", f.emitter.Count(service.EventBlocksChanged))
	}
}

func TestBlockService_CreateBlockValidates(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.CreateBlock(f.ctx, "", "sheet", nil, -1); !errors.Is(err, domain.ErrUnknownBlockType) {
		t.Errorf("expected ErrUnknownBlockType, got %v", err)
	}
	if _, err := f.svc.CreateBlock(f.ctx, "", domain.BlockTypeStep, domain.CodeProperties{}, -1); !errors.Is(err, service.ErrPropertiesMismatch) {
		t.Errorf("expected ErrPropertiesMismatch, got %v", err)
	}
	if _, err := f.svc.CreateBlock(f.ctx, "missing", domain.BlockTypeText, nil, -1); !errors.Is(err, domain.ErrBlockNotFound) {
		t.Errorf("expected ErrBlockNotFound, got %v", err)
	}
}

func TestBlockService_CreateStepAssignsStepIDInGroup(t *testing.T) {
	f := newFixture(t)
	j := f.create(t, "", domain.BlockTypeJourney, nil)
	g := f.create(t, j, domain.BlockTypeStepGroup, nil)
	f.create(t, g, domain.BlockTypeStep, nil)
	second, err := f.svc.CreateBlock(f.ctx, g, domain.BlockTypeStep, nil, -1)
	if err != nil {
		t.Fatal(err)
	}
	if p, _ := domain.AsStep(*second); p.StepIDInGroup != 2 {
		t.Errorf("expected stepIdInGroup 2, got %d", p.StepIDInGroup)
	}
}

func TestBlockService_MoveBlockReorders(t *testing.T) {
	f := newFixture(t)
	page := f.create(t, "", domain.BlockTypePage, nil)
	a := f.create(t, page, domain.BlockTypeText, nil)
	b := f.create(t, page, domain.BlockTypeText, nil)
	c := f.create(t, page, domain.BlockTypeText, nil)

	if err := f.svc.MoveBlock(f.ctx, c, page, 0); err != nil {
		t.Fatal(err)
	}
	if got := f.content(t, page); !reflect.DeepEqual(got, []string{c, a, b}) {
		t.Errorf("unexpected order %v", got)
	}
}

func TestBlockService_MoveBlockReparents(t *testing.T) {
	f := newFixture(t)
	page := f.create(t, "", domain.BlockTypePage, nil)
	toggle := f.create(t, page, domain.BlockTypeToggle, nil)
	a := f.create(t, page, domain.BlockTypeText, nil)

	if err := f.svc.MoveBlock(f.ctx, a, toggle, -1); err != nil {
		t.Fatal(err)
	}
	if got := f.content(t, page); !reflect.DeepEqual(got, []string{toggle}) {
		t.Errorf("old parent still lists child: %v", got)
	}
	if got := f.content(t, toggle); !reflect.DeepEqual(got, []string{a}) {
		t.Errorf("new parent content %v", got)
	}
	if f.parentOf(t, a) != toggle {
		t.Errorf("parentId not updated")
	}
}

func TestBlockService_MoveBlockRejectsCycles(t *testing.T) {
	f := newFixture(t)
	page := f.create(t, "", domain.BlockTypePage, nil)
	outer := f.create(t, page, domain.BlockTypeToggle, nil)
	inner := f.create(t, outer, domain.BlockTypeToggle, nil)

	if err := f.svc.MoveBlock(f.ctx, outer, inner, -1); !errors.Is(err, service.ErrCycle) {
		t.Errorf("expected ErrCycle moving into descendant, got %v", err)
	}
	if err := f.svc.MoveBlock(f.ctx, outer, outer, -1); !errors.Is(err, service.ErrCycle) {
		t.Errorf("expected ErrCycle moving into self, got %v", err)
	}
	if f.parentOf(t, outer) != page {
		t.Errorf("rejected move changed the tree")
	}
}

func TestBlockService_DeleteBlockTombstonesSubtree(t *testing.T) {
	f := newFixture(t)
	page := f.create(t, "", domain.BlockTypePage, nil)
	toggle := f.create(t, page, domain.BlockTypeToggle, nil)
	child := f.create(t, toggle, domain.BlockTypeText, nil)
	keep := f.create(t, page, domain.BlockTypeText, nil)

	if err := f.svc.DeleteBlock(f.ctx, toggle); err != nil {
		t.Fatal(err)
	}
	if got := f.content(t, page); !reflect.DeepEqual(got, []string{keep}) {
		t.Errorf("parent content %v", got)
	}
	for _, id := range []string{toggle, child} {
		if _, err := f.svc.GetBlock(f.ctx, id); !errors.Is(err, domain.ErrBlockNotFound) {
			t.Errorf("%s should read as not found, got %v", id, err)
		}
	}
	tomb, _ := f.store.WhereDeleted(true)
	if len(tomb) != 2 {
		t.Errorf("expected 2 tombstones, got %d", len(tomb))
	}
}

func TestBlockService_DuplicateBlock(t *testing.T) {
	f := newFixture(t)
	page := f.create(t, "", domain.BlockTypePage, nil)
	toggle := f.create(t, page, domain.BlockTypeToggle, domain.TextProperties{Text: domain.PlainRichText("t")})
	f.create(t, toggle, domain.BlockTypeText, domain.TextProperties{Text: domain.PlainRichText("inner")})
	last := f.create(t, page, domain.BlockTypeText, nil)

	dup, err := f.svc.DuplicateBlock(f.ctx, toggle)
	if err != nil {
		t.Fatal(err)
	}
	if dup.ID == toggle {
		t.Fatal("duplicate reused the source id")
	}
	if got := f.content(t, page); !reflect.DeepEqual(got, []string{toggle, dup.ID, last}) {
		t.Errorf("duplicate not inserted after source: %v", got)
	}
	kids, err := f.svc.ListChildren(f.ctx, dup.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(kids) != 1 || domain.RichTextOf(kids[0]).PlainText() != "inner" || kids[0].ParentID != dup.ID {
		t.Errorf("subtree not copied: %+v", kids)
	}
}

func TestBlockService_PasteBlocks(t *testing.T) {
	f := newFixture(t)
	page := f.create(t, "", domain.BlockTypePage, nil)
	a := f.create(t, page, domain.BlockTypeText, nil)
	b := f.create(t, page, domain.BlockTypeText, nil)
	toggle := f.create(t, page, domain.BlockTypeToggle, nil)
	f.create(t, toggle, domain.BlockTypeText, nil)

	snapshot, err := f.svc.Subtree(f.ctx, toggle)
	if err != nil {
		t.Fatal(err)
	}
	roots, err := f.svc.PasteBlocks(f.ctx, a, snapshot)
	if err != nil {
		t.Fatal(err)
	}
	if len(roots) != 1 {
		t.Fatalf("expected 1 pasted root, got %d", len(roots))
	}
	if got := f.content(t, page); !reflect.DeepEqual(got, []string{a, roots[0].ID, b, toggle}) {
		t.Errorf("paste not inserted after target: %v", got)
	}
	if kids, _ := f.svc.ListChildren(f.ctx, roots[0].ID); len(kids) != 1 {
		t.Errorf("pasted root lost its children")
	}

	if _, err := f.svc.PasteBlocks(f.ctx, a, nil); !errors.Is(err, service.ErrEmptySnapshot) {
		t.Errorf("expected ErrEmptySnapshot, got %v", err)
	}
}

func TestBlockService_IndentOutdent(t *testing.T) {
	f := newFixture(t)
	page := f.create(t, "", domain.BlockTypePage, nil)
	a := f.create(t, page, domain.BlockTypeBulletedList, nil)
	b := f.create(t, page, domain.BlockTypeBulletedList, nil)

	if ok, err := f.svc.Indent(f.ctx, a); err != nil || ok {
		t.Errorf("first sibling cannot indent: ok=%v err=%v", ok, err)
	}
	if ok, err := f.svc.Indent(f.ctx, b); err != nil || !ok {
		t.Fatalf("indent failed: ok=%v err=%v", ok, err)
	}
	if f.parentOf(t, b) != a {
		t.Errorf("b should now be under a")
	}
	if ok, err := f.svc.Outdent(f.ctx, b); err != nil || !ok {
		t.Fatalf("outdent failed: ok=%v err=%v", ok, err)
	}
	if got := f.content(t, page); !reflect.DeepEqual(got, []string{a, b}) {
		t.Errorf("outdent should place b after a: %v", got)
	}
	if ok, _ := f.svc.Outdent(f.ctx, a); ok {
		t.Errorf("top-level block cannot outdent")
	}
}

func TestBlockService_RestoreSnapshotUndoesDelete(t *testing.T) {
	f := newFixture(t)
	page := f.create(t, "", domain.BlockTypePage, nil)
	a := f.create(t, page, domain.BlockTypeText, domain.TextProperties{Text: domain.PlainRichText("keep me")})

	snap := f.svc.Capture(f.ctx, "delete", page, a)
	before, _ := f.store.Get(a)
	if err := f.svc.DeleteBlock(f.ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.RestoreSnapshot(f.ctx, snap); err != nil {
		t.Fatal(err)
	}
	if got := f.content(t, page); !reflect.DeepEqual(got, []string{a}) {
		t.Errorf("restore did not relink child: %v", got)
	}
	after, err := f.svc.GetBlock(f.ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if after.UpdatedAt.Before(before.UpdatedAt) {
		t.Errorf("restore moved updatedAt backwards")
	}
}

func TestBlockService_RestoreSnapshotRemovesCreated(t *testing.T) {
	f := newFixture(t)
	page := f.create(t, "", domain.BlockTypePage, nil)
	a := f.create(t, page, domain.BlockTypeText, nil)

	snap := f.svc.Capture(f.ctx, "duplicate", page)
	dup, err := f.svc.DuplicateBlock(f.ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	snap.Created = []string{dup.ID}
	if err := f.svc.RestoreSnapshot(f.ctx, snap); err != nil {
		t.Fatal(err)
	}
	if got := f.content(t, page); !reflect.DeepEqual(got, []string{a}) {
		t.Errorf("unexpected content %v", got)
	}
	if _, err := f.svc.GetBlock(f.ctx, dup.ID); !errors.Is(err, domain.ErrBlockNotFound) {
		t.Errorf("created block should be tombstoned, got %v", err)
	}
}

func TestBlockService_UpdateTitle(t *testing.T) {
	f := newFixture(t)
	step := f.create(t, "", domain.BlockTypeStep, nil)
	b, err := f.svc.UpdateTitle(f.ctx, step, "Welcome")
	if err != nil {
		t.Fatal(err)
	}
	if domain.BlockTitle(*b, "en") != "Welcome" {
		t.Errorf("title not applied: %+v", b.Properties)
	}
	div := f.create(t, "", domain.BlockTypeDivider, nil)
	if _, err := f.svc.UpdateTitle(f.ctx, div, "x"); err == nil {
		t.Error("expected error for a block without a title")
	}
}

func TestBlockService_GetBlockFiltersDangling(t *testing.T) {
	f := newFixture(t)
	page := f.create(t, "", domain.BlockTypePage, nil)
	a := f.create(t, page, domain.BlockTypeText, nil)

	raw, _ := f.store.Get(page)
	raw.Content = append(raw.Content, "ghost")
	if err := f.store.Put(raw); err != nil {
		t.Fatal(err)
	}
	if got := f.content(t, page); !reflect.DeepEqual(got, []string{a}) {
		t.Errorf("dangling id not filtered: %v", got)
	}
}

func TestBlockService_ImageRoundTrip(t *testing.T) {
	f := newFixture(t)
	img := f.create(t, "", domain.BlockTypeImage, nil)
	path, err := f.svc.SaveImageFile(f.ctx, img, "data:image/png;base64,aGVsbG8=")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(path) != ".png" {
		t.Errorf("unexpected path %s", path)
	}
	data, err := f.svc.GetImageData(f.ctx, img)
	if err != nil {
		t.Fatal(err)
	}
	if data != "data:image/png;base64,aGVsbG8=" {
		t.Errorf("unexpected data url %q", data)
	}
}
