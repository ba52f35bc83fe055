package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stepjourney/internal/domain"
	"stepjourney/internal/service"
)

type recordingUpdater struct {
	mu    sync.Mutex
	calls []domain.Properties
	err   error
	gate  chan struct{}
}

func (r *recordingUpdater) UpdateProperties(_ context.Context, _ string, props domain.Properties) (*domain.Block, error) {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, props)
	return &domain.Block{Properties: props}, r.err
}

func (r *recordingUpdater) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func textProps(s string) domain.Properties {
	return domain.TextProperties{Text: domain.PlainRichText(s)}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestAutosaver_CoalescesEdits(t *testing.T) {
	up := &recordingUpdater{}
	a := service.NewAutosaver(up, 30*time.Millisecond, nil, nil)
	ctx := context.Background()

	a.Schedule(ctx, "b1", textProps("h"))
	a.Schedule(ctx, "b1", textProps("he"))
	a.Schedule(ctx, "b1", textProps("hello"))

	waitFor(t, func() bool { return up.count() == 1 })
	time.Sleep(60 * time.Millisecond)
	if up.count() != 1 {
		t.Fatalf("expected a single save, got %d", up.count())
	}
	got := up.calls[0].(domain.TextProperties)
	if got.Text.PlainText() != "hello" {
		t.Errorf("expected latest edit to be saved, got %q", got.Text.PlainText())
	}
}

func TestAutosaver_CloseCancelsPending(t *testing.T) {
	up := &recordingUpdater{}
	a := service.NewAutosaver(up, 20*time.Millisecond, nil, nil)
	a.Schedule(context.Background(), "b1", textProps("x"))
	if !a.Pending("b1") {
		t.Fatal("expected pending save")
	}
	a.Close()
	time.Sleep(50 * time.Millisecond)
	if up.count() != 0 {
		t.Fatalf("expected no save after Close, got %d", up.count())
	}
	a.Schedule(context.Background(), "b1", textProps("y"))
	if a.Pending("b1") {
		t.Fatal("closed autosaver accepted an edit")
	}
}

func TestAutosaver_CloseDoesNotCancelInFlight(t *testing.T) {
	up := &recordingUpdater{gate: make(chan struct{})}
	a := service.NewAutosaver(up, 10*time.Millisecond, nil, nil)
	a.Schedule(context.Background(), "b1", textProps("x"))
	waitFor(t, func() bool { return !a.Pending("b1") })

	a.Close()
	close(up.gate)
	a.Wait()
	if up.count() != 1 {
		t.Fatalf("in-flight save was dropped, got %d saves", up.count())
	}
}

func TestAutosaver_ReportsFailures(t *testing.T) {
	up := &recordingUpdater{err: errors.New("disk full")}
	em := &service.MockEmitter{}
	a := service.NewAutosaver(up, time.Hour, em, nil)
	a.Schedule(context.Background(), "b1", textProps("x"))
	a.Flush(context.Background())

	if em.Count(service.EventAutosaveError) != 1 {
		t.Fatalf("expected one autosave error event, got %+v", em.Events)
	}
	payload := em.Events[0].Data.(service.AutosaveFailed)
	if payload.BlockID != "b1" || payload.Error != "disk full" {
		t.Errorf("unexpected payload %+v", payload)
	}
}
