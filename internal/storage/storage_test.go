package storage_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"stepjourney/internal/domain"
	"stepjourney/internal/storage"
)

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "test.db"), dir)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBlockStore_PutGet(t *testing.T) {
	s := storage.NewBlockStore(openTestDB(t), nil)

	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	b := &domain.Block{
		ID:         "s1",
		Type:       domain.BlockTypeStep,
		ParentID:   "g1",
		Content:    []string{"x", "y"},
		Properties: domain.StepProperties{Title: "Open the app", StepIDInGroup: 1},
		CreatedAt:  created,
		UpdatedAt:  created.Add(time.Minute),
		CreatedBy:  "u1",
	}
	if err := s.Put(b); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get("s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ParentID != "g1" || len(got.Content) != 2 || got.CreatedBy != "u1" {
		t.Errorf("unexpected block %+v", got)
	}
	p, ok := domain.AsStep(*got)
	if !ok || p.Title != "Open the app" {
		t.Errorf("unexpected properties %+v", got.Properties)
	}
	if !got.CreatedAt.Equal(created) || !got.UpdatedAt.Equal(created.Add(time.Minute)) {
		t.Errorf("timestamps not preserved: %v %v", got.CreatedAt, got.UpdatedAt)
	}

	b.Properties = domain.StepProperties{Title: "Renamed"}
	if err := s.Put(b); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get("s1")
	if p, _ := domain.AsStep(*got); p.Title != "Renamed" {
		t.Errorf("upsert did not replace properties: %+v", got.Properties)
	}
	if n, _ := s.Count(); n != 1 {
		t.Errorf("expected 1 row after upsert, got %d", n)
	}
}

func TestBlockStore_GetMissing(t *testing.T) {
	s := storage.NewBlockStore(openTestDB(t), nil)
	if _, err := s.Get("nope"); !errors.Is(err, domain.ErrBlockNotFound) {
		t.Fatalf("expected ErrBlockNotFound, got %v", err)
	}
}

func TestBlockStore_IndexQueries(t *testing.T) {
	s := storage.NewBlockStore(openTestDB(t), nil)
	blocks := []domain.Block{
		{ID: "p", Type: domain.BlockTypePage, Content: []string{"a", "b"}},
		{ID: "a", Type: domain.BlockTypeText, ParentID: "p"},
		{ID: "b", Type: domain.BlockTypeToDo, ParentID: "p"},
		{ID: "c", Type: domain.BlockTypeText, ParentID: "p", Deleted: true},
	}
	if err := s.PutMany(blocks); err != nil {
		t.Fatal(err)
	}

	children, err := s.WhereParent("p")
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 2 {
		t.Errorf("expected 2 live children, got %d", len(children))
	}
	texts, _ := s.WhereType(domain.BlockTypeText)
	if len(texts) != 1 || texts[0].ID != "a" {
		t.Errorf("unexpected text blocks %+v", texts)
	}
	tomb, _ := s.WhereDeleted(true)
	if len(tomb) != 1 || tomb[0].ID != "c" {
		t.Errorf("unexpected tombstones %+v", tomb)
	}
	all, _ := s.All()
	if len(all) != 3 {
		t.Errorf("expected 3 live blocks, got %d", len(all))
	}
}

func TestBlockStore_BulkDeleteAndPurge(t *testing.T) {
	s := storage.NewBlockStore(openTestDB(t), nil)
	old := time.Now().Add(-48 * time.Hour)
	blocks := []domain.Block{
		{ID: "a", Type: domain.BlockTypeText},
		{ID: "b", Type: domain.BlockTypeText},
		{ID: "old", Type: domain.BlockTypeText, Deleted: true, CreatedAt: old, UpdatedAt: old},
		{ID: "fresh", Type: domain.BlockTypeText, Deleted: true},
	}
	if err := s.PutMany(blocks); err != nil {
		t.Fatal(err)
	}
	if err := s.BulkDelete([]string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	n, err := s.PurgeDeleted(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged, got %d", n)
	}
	if c, _ := s.Count(); c != 1 {
		t.Errorf("expected only the fresh tombstone to remain, got %d rows", c)
	}
}

func TestJourneyStore_StepsOrderedByRank(t *testing.T) {
	s := storage.NewJourneyStore(openTestDB(t))
	if err := s.PutJourney(&domain.Journey{ID: "j1", Title: "Tour", RootBlockID: "j1"}); err != nil {
		t.Fatal(err)
	}
	steps := []domain.StepRecord{
		{ID: "s3", GroupID: "g2", Rank: "w"},
		{ID: "s1", GroupID: "g1", Rank: "c"},
		{ID: "s2", GroupID: "g1", Rank: "h"},
	}
	if err := s.ReplaceSteps("j1", steps); err != nil {
		t.Fatal(err)
	}
	got, err := s.ListSteps("j1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].ID != "s1" || got[1].ID != "s2" || got[2].ID != "s3" {
		t.Fatalf("unexpected order %+v", got)
	}
	if got[0].JourneyID != "j1" {
		t.Errorf("journey id not stored: %+v", got[0])
	}

	if err := s.ReplaceSteps("j1", steps[:1]); err != nil {
		t.Fatal(err)
	}
	got, _ = s.ListSteps("j1")
	if len(got) != 1 {
		t.Errorf("ReplaceSteps kept stale rows: %+v", got)
	}

	if err := s.DeleteJourney("j1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetJourney("j1"); !errors.Is(err, storage.ErrJourneyNotFound) {
		t.Errorf("expected ErrJourneyNotFound, got %v", err)
	}
	if list, _ := s.ListJourneys(); len(list) != 0 {
		t.Errorf("expected no journeys, got %+v", list)
	}
}

func TestApprovalStore_Lifecycle(t *testing.T) {
	s := storage.NewApprovalStore(openTestDB(t))

	for i, id := range []string{"a1", "a2"} {
		a := &storage.Approval{
			ID:        id,
			Tool:      "delete_block",
			CreatedAt: time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC),
		}
		if err := s.Create(a); err != nil {
			t.Fatal(err)
		}
	}
	pending, err := s.ListPending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].ID != "a1" || pending[0].Metadata != "{}" {
		t.Fatalf("unexpected pending %+v", pending)
	}

	if err := s.Resolve("a1", storage.ApprovalApproved); err != nil {
		t.Fatal(err)
	}
	if st, _ := s.Status("a1"); st != storage.ApprovalApproved {
		t.Errorf("status = %q", st)
	}
	if err := s.Resolve("a1", storage.ApprovalRejected); !errors.Is(err, storage.ErrApprovalNotFound) {
		t.Errorf("second resolve should fail, got %v", err)
	}
	if err := s.Resolve("a2", "maybe"); err == nil {
		t.Error("invalid status accepted")
	}

	if err := s.Delete("a1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Status("a1"); !errors.Is(err, storage.ErrApprovalNotFound) {
		t.Errorf("expected ErrApprovalNotFound, got %v", err)
	}
	pending, _ = s.ListPending()
	if len(pending) != 1 || pending[0].ID != "a2" {
		t.Errorf("unexpected pending %+v", pending)
	}
}

func TestBlockStore_FingerprintChangesOnWrite(t *testing.T) {
	s := storage.NewBlockStore(openTestDB(t), nil)
	before, err := s.Fingerprint()
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	if err := s.Put(&domain.Block{ID: "p", Type: domain.BlockTypePage, Properties: domain.PageProperties{}, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatal(err)
	}
	after, err := s.Fingerprint()
	if err != nil {
		t.Fatal(err)
	}
	if before == after {
		t.Errorf("fingerprint unchanged: %q", after)
	}
}

func TestSettingsStore_WindowSize(t *testing.T) {
	s := storage.NewSettingsStore(openTestDB(t))

	if _, ok := s.WindowSize(); ok {
		t.Fatal("fresh store should have no window size")
	}
	if err := s.SaveWindowSize(1600, 1000); err != nil {
		t.Fatal(err)
	}
	got, ok := s.WindowSize()
	if !ok || got.Width != 1600 || got.Height != 1000 {
		t.Fatalf("window size = %+v, %v", got, ok)
	}

	if err := s.SaveWindowSize(300, 200); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.WindowSize(); ok {
		t.Fatal("sizes below the minimum should be ignored")
	}

	if err := s.Set("theme", "dark"); err != nil {
		t.Fatal(err)
	}
	if v, ok, err := s.Get("theme"); err != nil || !ok || v != "dark" {
		t.Fatalf("get theme = %q, %v, %v", v, ok, err)
	}
}
