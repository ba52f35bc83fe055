package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"stepjourney/internal/domain"
	"stepjourney/internal/journey"
	"stepjourney/internal/logger"
	"stepjourney/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for stepjourney.
// It exposes tools, resources, and prompts so AI agents can read journeys
// and edit the block tree.
type Server struct {
	mcp      *server.MCPServer
	emitter  service.EventEmitter
	approval *ApprovalQueue
	log      *logger.Logger
	actor    string

	blocks   *service.BlockService
	journeys *journey.Store
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Emitter  service.EventEmitter
	Blocks   *service.BlockService
	Journeys *journey.Store
	Log      *logger.Logger
	// Approvals routes approval requests through the mcp_approvals table
	// so a separate desktop process can answer them.
	Approvals ApprovalStore
	// Actor is recorded as the creator of blocks made through tools.
	Actor string
	// AutoApprove skips the approval round-trip for destructive tools.
	AutoApprove bool
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	if deps.Blocks == nil || deps.Journeys == nil {
		panic("mcpserver: Blocks and Journeys are required")
	}
	if deps.Emitter == nil {
		deps.Emitter = service.NopEmitter{}
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	approval := NewApprovalQueue(ctx, deps.Emitter)
	approval.SetAutoApprove(deps.AutoApprove)
	if deps.Approvals != nil {
		approval.SetStore(deps.Approvals)
	}

	s := &Server{
		emitter:  deps.Emitter,
		approval: approval,
		log:      deps.Log,
		actor:    deps.Actor,
		blocks:   deps.Blocks,
		journeys: deps.Journeys,
	}

	s.mcp = server.NewMCPServer(
		"stepjourney-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerJourneyTools()
	s.registerBlockTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// MCP exposes the underlying server, mainly for tests.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("mcp stdio server starting")
	return server.ServeStdio(s.mcp)
}

// withActor tags a tool call's context with the configured actor.
func (s *Server) withActor(ctx context.Context) context.Context {
	if s.actor == "" {
		return ctx
	}
	return service.WithActor(ctx, s.actor)
}

// Approve forwards a user approval to the approval queue.
func (s *Server) Approve(actionID string) {
	s.approval.Approve(actionID)
}

// Reject forwards a user rejection to the approval queue.
func (s *Server) Reject(actionID string) {
	s.approval.Reject(actionID)
}

// ── Helpers ────────────────────────────────────────────────

// emitBlocksChanged notifies the frontend that the tree changed under rootID.
func (s *Server) emitBlocksChanged(ctx context.Context, blockID string) {
	s.emitter.Emit(ctx, "mcp:blocks-changed", map[string]string{"blockId": blockID})
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// getBlockForTool retrieves a block named by the blockId argument.
func (s *Server) getBlockForTool(ctx context.Context, req mcp.CallToolRequest) (*domain.Block, error) {
	blockID := req.GetString("blockId", "")
	if blockID == "" {
		return nil, fmt.Errorf("blockId is required")
	}
	return s.blocks.GetBlock(ctx, blockID)
}

// rawBlock renders b in its external wire form.
func rawBlock(b domain.Block) (domain.RawBlock, error) {
	return domain.ToRaw(b)
}

func boolPtr(b bool) *bool { return &b }
