package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"stepjourney/internal/domain"
	"stepjourney/internal/logger"
)

const EventBlocksPurged = "blocks:purged"

// Purger hard-deletes tombstoned blocks older than a retention window on a
// cron schedule.
type Purger struct {
	store     domain.BlockStore
	retention time.Duration
	emitter   EventEmitter
	log       *logger.Logger
	now       func() time.Time

	cronSched *cron.Cron
}

func NewPurger(store domain.BlockStore, retention time.Duration, emitter EventEmitter, log *logger.Logger) *Purger {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Purger{store: store, retention: retention, emitter: emitter, log: log, now: time.Now}
}

// RunOnce purges tombstones last touched before now minus retention.
func (p *Purger) RunOnce(ctx context.Context) (int, error) {
	n, err := p.store.PurgeDeleted(p.now().Add(-p.retention))
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	if n > 0 {
		p.emitter.Emit(ctx, EventBlocksPurged, n)
	}
	return n, nil
}

// Start schedules RunOnce with a cron expression. An empty schedule disables purging.
func (p *Purger) Start(ctx context.Context, schedule string) error {
	p.Stop()
	if schedule == "" {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		n, err := p.RunOnce(ctx)
		if err != nil {
			p.log.Error("purge cron failed", "error", err)
			return
		}
		p.log.Info("purge cron finished", "purged", n)
	})
	if err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}
	c.Start()
	p.cronSched = c
	p.log.Info("purge cron scheduled", "schedule", schedule, "retention", p.retention.String())
	return nil
}

// Stop halts the schedule and waits for a running purge to finish.
func (p *Purger) Stop() {
	if p.cronSched == nil {
		return
	}
	<-p.cronSched.Stop().Done()
	p.cronSched = nil
}
