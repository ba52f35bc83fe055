package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"stepjourney/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerBlockTools() {
	// ── get_block ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_block",
		mcp.WithDescription("Get a block with its properties and ordered child ids"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleGetBlock)

	// ── list_children ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_children",
		mcp.WithDescription("List the live children of a block in document order"),
		mcp.WithString("blockId", mcp.Description("Parent block ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListChildren)

	// ── create_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_block",
		mcp.WithDescription("Create a block under a parent. Text or title is applied to the block's variant when it has one."),
		mcp.WithString("type",
			mcp.Description("Block type: journey, step_group, step, page, text, heading_1, heading_2, heading_3, bulleted_list, numbered_list, to_do, toggle, quote, callout, code, image, bookmark, divider"),
			mcp.Required(),
		),
		mcp.WithString("parentId", mcp.Description("Parent block ID (optional, empty creates a root block)")),
		mcp.WithString("text", mcp.Description("Initial title or text (optional)")),
		mcp.WithString("properties", mcp.Description("Full properties as a JSON object (optional, overrides text)")),
		mcp.WithNumber("index", mcp.Description("Position among the parent's children (optional, appends when omitted)")),
	), s.handleCreateBlock)

	// ── move_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Move a block under a new parent at a position"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("parentId", mcp.Description("New parent ID (empty detaches to a root)")),
		mcp.WithNumber("index", mcp.Description("Position among the new parent's children (optional, appends when omitted)")),
	), s.handleMoveBlock)

	// ── update_block_title ─────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block_title",
		mcp.WithDescription("Set the title of a journey, step group, step, page or bookmark block"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("title", mcp.Description("New title"), mcp.Required()),
	), s.handleUpdateBlockTitle)

	// ── delete_block (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_block",
		mcp.WithDescription("DESTRUCTIVE: Delete a block and its subtree. Requires user approval."),
		mcp.WithString("blockId", mcp.Description("Block ID to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteBlock)
}

func (s *Server) handleGetBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	block, err := s.getBlockForTool(ctx, req)
	if err != nil {
		return nil, err
	}
	raw, err := rawBlock(*block)
	if err != nil {
		return nil, err
	}
	return jsonResult(raw)
}

func (s *Server) handleListChildren(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID := req.GetString("blockId", "")
	if blockID == "" {
		return nil, fmt.Errorf("blockId is required")
	}
	children, err := s.blocks.ListChildren(ctx, blockID)
	if err != nil {
		return nil, err
	}

	type childSummary struct {
		ID    string `json:"id"`
		Type  string `json:"type"`
		Title string `json:"title"`
		Kids  int    `json:"children"`
	}
	out := make([]childSummary, 0, len(children))
	for _, c := range children {
		out = append(out, childSummary{
			ID:    c.ID,
			Type:  string(c.Type),
			Title: domain.BlockTitle(c, ""),
			Kids:  len(c.Content),
		})
	}
	return jsonResult(out)
}

func (s *Server) handleCreateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = s.withActor(ctx)
	t := domain.BlockType(req.GetString("type", ""))
	if !t.Valid() {
		return nil, &domain.UnknownBlockTypeError{Type: string(t)}
	}

	var props domain.Properties
	if raw := req.GetString("properties", ""); raw != "" {
		p, err := domain.DecodeProperties(t, json.RawMessage(raw))
		if err != nil {
			return nil, fmt.Errorf("properties: %w", err)
		}
		props = p
	} else if text := req.GetString("text", ""); text != "" {
		props = propsWithText(t, text)
	}

	block, err := s.blocks.CreateBlock(ctx, req.GetString("parentId", ""), t, props, req.GetInt("index", -1))
	if err != nil {
		return nil, err
	}
	s.emitBlocksChanged(ctx, block.ID)

	raw, err := rawBlock(*block)
	if err != nil {
		return nil, err
	}
	return jsonResult(raw)
}

// propsWithText places text in the title or rich-text slot of t's record.
func propsWithText(t domain.BlockType, text string) domain.Properties {
	p := domain.DefaultProperties(t)
	if titled, ok := domain.WithTitle(p, text); ok {
		return titled
	}
	switch v := p.(type) {
	case domain.TextProperties:
		v.Text = domain.PlainRichText(text)
		return v
	case domain.ToDoProperties:
		v.Text = domain.PlainRichText(text)
		return v
	case domain.CalloutProperties:
		v.Text = domain.PlainRichText(text)
		return v
	case domain.CodeProperties:
		v.Code = text
		return v
	case domain.ImageProperties:
		v.URL = text
		return v
	}
	return p
}

func (s *Server) handleMoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = s.withActor(ctx)
	blockID := req.GetString("blockId", "")
	if blockID == "" {
		return nil, fmt.Errorf("blockId is required")
	}
	parentID := req.GetString("parentId", "")
	index := req.GetInt("index", -1)

	if err := s.blocks.MoveBlock(ctx, blockID, parentID, index); err != nil {
		return nil, err
	}
	s.emitBlocksChanged(ctx, blockID)
	if parentID == "" {
		return textResult(fmt.Sprintf("Block %s detached to a root", blockID)), nil
	}
	return textResult(fmt.Sprintf("Block %s moved under %s", blockID, parentID)), nil
}

func (s *Server) handleUpdateBlockTitle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = s.withActor(ctx)
	blockID := req.GetString("blockId", "")
	if blockID == "" {
		return nil, fmt.Errorf("blockId is required")
	}
	block, err := s.blocks.UpdateTitle(ctx, blockID, req.GetString("title", ""))
	if err != nil {
		return nil, err
	}
	s.emitBlocksChanged(ctx, block.ID)
	return textResult(fmt.Sprintf("Block %s renamed to %q", block.ID, domain.BlockTitle(*block, ""))), nil
}

func (s *Server) handleDeleteBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = s.withActor(ctx)
	block, err := s.getBlockForTool(ctx, req)
	if err != nil {
		return nil, err
	}

	subtree, err := s.blocks.Subtree(ctx, block.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(subtree))
	for _, b := range subtree {
		ids = append(ids, b.ID)
	}
	meta, _ := json.Marshal(map[string]any{"blockIds": ids})

	desc := fmt.Sprintf("Delete %s block %q and %d descendant(s)", block.Type, domain.BlockTitle(*block, ""), len(ids)-1)
	if _, err := s.approval.Request(ctx, "delete_block", desc, string(meta)); err != nil {
		return nil, err
	}

	if err := s.blocks.DeleteBlock(ctx, block.ID); err != nil {
		return nil, err
	}
	s.emitBlocksChanged(ctx, block.ID)
	return textResult(fmt.Sprintf("Block %s deleted", block.ID)), nil
}
