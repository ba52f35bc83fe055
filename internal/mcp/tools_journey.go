package mcpserver

import (
	"context"
	"fmt"

	"stepjourney/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerJourneyTools() {
	// ── list_journeys ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_journeys",
		mcp.WithDescription("List every journey: catalogued ones plus journey blocks not yet indexed"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListJourneys)

	// ── flatten_journey ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("flatten_journey",
		mcp.WithDescription("Return the ordered step list of a journey with group ids and per-group step numbers"),
		mcp.WithString("journeyId",
			mcp.Description("Journey id or journey root block id"),
			mcp.Required(),
		),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleFlattenJourney)
}

func (s *Server) handleListJourneys(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	journeys, err := s.journeys.ListJourneys(ctx)
	if err != nil {
		return nil, err
	}
	if len(journeys) == 0 {
		return textResult("No journeys found."), nil
	}
	return jsonResult(journeys)
}

// stepSummary is the compact view of a flattened step.
type stepSummary struct {
	GlobalIndex   int    `json:"globalIndex"`
	ID            string `json:"id"`
	Title         string `json:"title"`
	GroupID       string `json:"groupId"`
	StepIDInGroup int    `json:"stepIdInGroup"`
	Description   string `json:"description,omitempty"`
}

func (s *Server) handleFlattenJourney(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("journeyId", "")
	if id == "" {
		return nil, fmt.Errorf("journeyId is required")
	}
	root, steps, err := s.journeys.Preview(ctx, id)
	if err != nil {
		return nil, err
	}
	out := struct {
		JourneyID string        `json:"journeyId"`
		Title     string        `json:"title"`
		Steps     []stepSummary `json:"steps"`
	}{
		JourneyID: root.ID,
		Title:     domain.BlockTitle(root, ""),
		Steps:     make([]stepSummary, 0, len(steps)),
	}
	for _, st := range steps {
		out.Steps = append(out.Steps, stepSummary{
			GlobalIndex:   st.GlobalIndex,
			ID:            st.Block.ID,
			Title:         domain.BlockTitle(st.Block, ""),
			GroupID:       st.GroupID,
			StepIDInGroup: st.StepIDInGroup,
			Description:   st.Properties.Description,
		})
	}
	return jsonResult(out)
}
