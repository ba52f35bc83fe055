package service_test

import (
	"context"
	"testing"
	"time"

	"stepjourney/internal/domain"
	"stepjourney/internal/service"
)

func TestPurger_RunOnce(t *testing.T) {
	f := newFixture(t)
	old := time.Now().Add(-72 * time.Hour)
	if err := f.store.PutMany([]domain.Block{
		{ID: "old", Type: domain.BlockTypeText, Deleted: true, CreatedAt: old, UpdatedAt: old},
		{ID: "live", Type: domain.BlockTypeText},
	}); err != nil {
		t.Fatal(err)
	}
	em := &service.MockEmitter{}
	p := service.NewPurger(f.store, 24*time.Hour, em, nil)
	n, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || em.Count(service.EventBlocksPurged) != 1 {
		t.Errorf("expected 1 purged and one event, got %d / %+v", n, em.Events)
	}
}

func TestPurger_StartRejectsBadSchedule(t *testing.T) {
	f := newFixture(t)
	p := service.NewPurger(f.store, time.Hour, nil, nil)
	if err := p.Start(context.Background(), "not a cron"); err == nil {
		t.Fatal("expected invalid schedule error")
	}
	if err := p.Start(context.Background(), "@every 1h"); err != nil {
		t.Fatal(err)
	}
	p.Stop()
	if err := p.Start(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
}
