package app

import (
	"context"
	"fmt"

	"stepjourney/internal/config"
	"stepjourney/internal/domain"
	"stepjourney/internal/fixtures"
	"stepjourney/internal/journey"
	"stepjourney/internal/logger"
	"stepjourney/internal/service"
	"stepjourney/internal/storage"
)

// Core is the storage and service graph shared by the desktop app, the
// HTTP server, the standalone MCP server and the one-shot commands.
type Core struct {
	Config    config.Config
	Log       *logger.Logger
	DB        *storage.DB
	Store     *storage.BlockStore
	Catalog   *storage.JourneyStore
	Approvals *storage.ApprovalStore
	Settings  *storage.SettingsStore
	Blocks    *service.BlockService
	Fixtures  *fixtures.Set
	Journeys  *journey.Store
	Autosave  *service.Autosaver
	Purger    *service.Purger
}

// OpenCore opens the database and wires the services. Fixture load errors
// are logged; the core still opens with whatever loaded.
func OpenCore(cfg config.Config, log *logger.Logger, emitter service.EventEmitter) (*Core, error) {
	if log == nil {
		log = logger.Nop()
	}
	if emitter == nil {
		emitter = service.NopEmitter{}
	}

	dsn := cfg.DBDSN
	if cfg.DBDriver == "" || cfg.DBDriver == storage.DriverSQLite {
		if dsn == "" {
			dsn = cfg.DBPath()
		}
	}
	db, err := storage.Open(cfg.DBDriver, dsn, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	c := &Core{
		Config:    cfg,
		Log:       log,
		DB:        db,
		Store:     storage.NewBlockStore(db, log),
		Catalog:   storage.NewJourneyStore(db),
		Approvals: storage.NewApprovalStore(db),
		Settings:  storage.NewSettingsStore(db),
		Fixtures:  fixtures.NewSet(cfg.FixturesDir, log),
	}
	_ = c.Fixtures.Reload()

	c.Blocks = service.NewBlockService(c.Store, cfg.DataDir, emitter, log)
	c.Journeys = journey.NewStore(journey.NewLoader(c.Store, c.Fixtures), c.Catalog, emitter, log)
	c.Autosave = service.NewAutosaver(c.Blocks, cfg.AutosaveDelay, emitter, log)
	c.Purger = service.NewPurger(c.Store, cfg.PurgeAfter, emitter, log)
	return c, nil
}

// StartPurge schedules tombstone purging. A bad schedule is logged and
// purging stays off.
func (c *Core) StartPurge(ctx context.Context) {
	if err := c.Purger.Start(ctx, c.Config.PurgeSchedule); err != nil {
		c.Log.Error("purge schedule rejected", "error", err)
	}
}

// Close flushes pending autosaves, stops the purge schedule and closes the
// database.
func (c *Core) Close(ctx context.Context) {
	c.Purger.Stop()
	c.Autosave.Flush(ctx)
	c.Autosave.Close()
	c.Autosave.Wait()
	c.Blocks.Wait(ctx)
	if err := c.DB.Close(); err != nil {
		c.Log.Warn("close database", "error", err)
	}
}

// Import persists the blocks of one fixture file. Records that fail to
// convert are skipped and reported in the returned error alongside the
// count of blocks written.
func (c *Core) Import(path string) (int, error) {
	blocks, loadErr := fixtures.LoadFile(path)
	if len(blocks) == 0 {
		return 0, loadErr
	}
	if err := c.Store.PutMany(blocks); err != nil {
		return 0, fmt.Errorf("import %s: %w", path, err)
	}
	c.Log.Info("fixture imported", "path", path, "blocks", len(blocks))
	return len(blocks), loadErr
}

// Flatten previews a journey's navigation order without loading it.
func (c *Core) Flatten(ctx context.Context, journeyID string) (domain.Block, []domain.FlattenedStep, error) {
	return c.Journeys.Preview(ctx, journeyID)
}
