package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	journeysURI      = "stepjourney://journeys"
	journeyURIPrefix = "stepjourney://journey/"
)

func (s *Server) registerResources() {
	// ── stepjourney://journeys ─────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		journeysURI,
		"All Journeys",
		mcp.WithResourceDescription("Catalogued and uncatalogued journeys, sorted by title"),
		mcp.WithMIMEType("application/json"),
	), s.handleJourneysResource)

	// ── stepjourney://journey/{journeyId}/steps ────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			journeyURIPrefix+"{journeyId}/steps",
			"Steps of a Journey",
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleJourneyStepsResource,
	)
}

func (s *Server) handleJourneysResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	journeys, err := s.journeys.ListJourneys(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(journeys, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      journeysURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleJourneyStepsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id, ok := journeyIDFromURI(uri)
	if !ok {
		return nil, fmt.Errorf("invalid journey URI: %s", uri)
	}
	_, steps, err := s.journeys.Preview(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(steps, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// journeyIDFromURI extracts the id from stepjourney://journey/{id}/steps.
func journeyIDFromURI(uri string) (string, bool) {
	rest, ok := strings.CutPrefix(uri, journeyURIPrefix)
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/steps")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
