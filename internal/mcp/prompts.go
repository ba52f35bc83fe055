package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("author_journey",
		mcp.WithPromptDescription("Guide through building a journey with step groups and steps"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("What the journey walks the reader through"),
			mcp.RequiredArgument(),
		),
	), s.handleAuthorJourneyPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("review_journey",
		mcp.WithPromptDescription("Review an existing journey's step order and wording"),
		mcp.WithArgument("journeyId",
			mcp.ArgumentDescription("Journey id or journey root block id"),
			mcp.RequiredArgument(),
		),
	), s.handleReviewJourneyPrompt)
}

func (s *Server) handleAuthorJourneyPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	text := fmt.Sprintf(`Build a journey about %q.

1. create_block with type "journey" and text set to the journey title (no parentId).
2. For each phase, create_block with type "step_group" under the journey.
3. Inside each group, create_block with type "step". Pass properties as JSON:
   {"title": "...", "description": "...", "content": ["..."], "highlightedKeywords": ["..."]}
   stepIdInGroup is assigned automatically.
4. Call flatten_journey with the journey block id to confirm the final order.

Keep steps short. Use move_block to reorder instead of deleting and recreating.`, topic)

	return &mcp.GetPromptResult{
		Description: "Author a journey",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.TextContent{Type: "text", Text: text},
			},
		},
	}, nil
}

func (s *Server) handleReviewJourneyPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	id := req.Params.Arguments["journeyId"]
	if id == "" {
		return nil, fmt.Errorf("journeyId is required")
	}
	text := fmt.Sprintf(`Review journey %s.

Read stepjourney://journey/%s/steps or call flatten_journey. Check that:
- every group has at least one step
- step titles are unique within a group
- the order reads as a progression

Suggest fixes as move_block and update_block_title calls. Do not delete anything without asking.`, id, id)

	return &mcp.GetPromptResult{
		Description: "Review a journey",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.TextContent{Type: "text", Text: text},
			},
		},
	}, nil
}
