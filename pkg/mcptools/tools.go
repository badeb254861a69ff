// Package mcptools exposes graph queries as MCP tools so agents can consult
// the zone knowledge graph.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/soundprediction/zonegraph/pkg/checkpoint"
	"github.com/soundprediction/zonegraph/pkg/driver"
	"github.com/soundprediction/zonegraph/pkg/types"
)

const (
	defaultSearchLimit = 10
	defaultDepth       = 2
)

// GraphTools holds references needed by the graph tool handlers.
type GraphTools struct {
	Client      driver.GraphClient
	Checkpoints *checkpoint.CheckpointManager
	Logger      *slog.Logger
}

// --- Input types ---

type SearchGraphInput struct {
	Query string `json:"query" jsonschema:"Free-text query matched against graph facts"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of facts to return (default 10)"`
}

type EntityRelationshipsInput struct {
	EntityName string `json:"entity_name" jsonschema:"Entity name such as a zone id, agent id or team:security"`
	Depth      int    `json:"depth,omitempty" jsonschema:"Traversal depth between 1 and 5 (default 2)"`
}

type EntityTimelineInput struct {
	EntityName string `json:"entity_name" jsonschema:"Entity name such as a zone id, agent id or team:security"`
	StartDate  string `json:"start_date,omitempty" jsonschema:"Optional ISO 8601 lower bound"`
	EndDate    string `json:"end_date,omitempty" jsonschema:"Optional ISO 8601 upper bound"`
}

type GraphStatsInput struct {
	GroupID string `json:"group_id,omitempty" jsonschema:"Graph partition (defaults to the configured group)"`
}

type RunStatusInput struct {
	RunID string `json:"run_id" jsonschema:"Ingestion run identifier"`
}

// --- Output types ---

type searchHit struct {
	Fact           string     `json:"fact"`
	UUID           string     `json:"uuid"`
	ValidAt        *time.Time `json:"valid_at,omitempty"`
	InvalidAt      *time.Time `json:"invalid_at,omitempty"`
	SourceNodeUUID string     `json:"source_node_uuid,omitempty"`
}

// --- Handlers ---

func (t *GraphTools) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.Default()
	}
	return t.Logger
}

func (t *GraphTools) SearchGraph(ctx context.Context, _ *mcp.CallToolRequest, input SearchGraphInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Query) == "" {
		return toolError("query is required"), nil, nil
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	results, err := t.Client.Search(ctx, input.Query, limit)
	if err != nil {
		t.logger().ErrorContext(ctx, "Graph search failed", "query", input.Query, "error", err)
		return toolError("Graph search failed: %v", err), nil, nil
	}

	hits := make([]searchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, searchHit{
			Fact:           r.Fact,
			UUID:           r.UUID,
			ValidAt:        r.ValidAt,
			InvalidAt:      r.InvalidAt,
			SourceNodeUUID: r.SourceNodeUUID,
		})
	}
	return toolJSON(hits)
}

func (t *GraphTools) GetEntityRelationships(ctx context.Context, _ *mcp.CallToolRequest, input EntityRelationshipsInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.EntityName) == "" {
		return toolError("entity_name is required"), nil, nil
	}
	depth := input.Depth
	if depth == 0 {
		depth = defaultDepth
	}

	rel, err := t.Client.GetEntityRelationships(ctx, input.EntityName, depth)
	if err != nil {
		t.logger().ErrorContext(ctx, "Entity relationship query failed", "entity", input.EntityName, "error", err)
		return toolError("Entity relationship query failed: %v", err), nil, nil
	}
	return toolJSON(rel)
}

func (t *GraphTools) GetEntityTimeline(ctx context.Context, _ *mcp.CallToolRequest, input EntityTimelineInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.EntityName) == "" {
		return toolError("entity_name is required"), nil, nil
	}
	start, err := parseDate(input.StartDate)
	if err != nil {
		return toolError("Invalid start_date: %v", err), nil, nil
	}
	end, err := parseDate(input.EndDate)
	if err != nil {
		return toolError("Invalid end_date: %v", err), nil, nil
	}

	entries, err := t.Client.GetEntityTimeline(ctx, input.EntityName, start, end)
	if err != nil {
		t.logger().ErrorContext(ctx, "Entity timeline query failed", "entity", input.EntityName, "error", err)
		return toolError("Entity timeline query failed: %v", err), nil, nil
	}
	if entries == nil {
		entries = []types.TimelineEntry{}
	}
	return toolJSON(entries)
}

func (t *GraphTools) GetGraphStats(ctx context.Context, _ *mcp.CallToolRequest, input GraphStatsInput) (*mcp.CallToolResult, any, error) {
	reporter, ok := t.Client.(driver.StatsReporter)
	if !ok {
		return toolError("Graph client does not report statistics"), nil, nil
	}
	stats, err := reporter.GetStats(ctx, input.GroupID)
	if err != nil {
		return toolError("Failed to read graph stats: %v", err), nil, nil
	}
	return toolJSON(stats)
}

func (t *GraphTools) GetRunStatus(ctx context.Context, _ *mcp.CallToolRequest, input RunStatusInput) (*mcp.CallToolResult, any, error) {
	if t.Checkpoints == nil {
		return toolError("Checkpoints are not configured"), nil, nil
	}
	cp, err := t.Checkpoints.Load(ctx, input.RunID)
	if err != nil {
		return toolError("Failed to load run %q: %v", input.RunID, err), nil, nil
	}
	if cp == nil {
		return toolError("No checkpoint for run %q", input.RunID), nil, nil
	}
	return toolJSON(cp)
}

// parseDate accepts RFC 3339 timestamps and plain dates. Empty means unbounded.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
