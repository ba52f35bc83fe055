package app

import (
	"context"

	"stepjourney/internal/config"
	"stepjourney/internal/logger"
	mcpserver "stepjourney/internal/mcp"
	"stepjourney/internal/service"
)

// mcpActor attributes blocks created by the standalone MCP server.
const mcpActor = "mcp"

// ServeMCP runs a standalone MCP server on stdin/stdout with no GUI until
// ctx is cancelled or the client disconnects. Unless autoApprove is set,
// destructive tools wait for a desktop process sharing the database to
// answer through the mcp_approvals table.
func ServeMCP(ctx context.Context, cfg config.Config, log *logger.Logger, autoApprove bool) error {
	if log == nil {
		log = logger.Nop()
	}
	core, err := OpenCore(cfg, log, service.NopEmitter{})
	if err != nil {
		return err
	}
	defer core.Close(context.Background())

	deps := mcpserver.Deps{
		Emitter:     service.NopEmitter{},
		Blocks:      core.Blocks,
		Journeys:    core.Journeys,
		Log:         log.With("component", "mcp"),
		Actor:       mcpActor,
		AutoApprove: autoApprove,
	}
	if !autoApprove {
		deps.Approvals = core.Approvals
	}
	srv := mcpserver.New(ctx, deps)

	log.Info("starting standalone MCP stdio server", "driver", cfg.DBDriver, "auto_approve", autoApprove)
	return srv.ServeStdio()
}
