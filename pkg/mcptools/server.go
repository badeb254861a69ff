package mcptools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Options name the MCP implementation.
type Options struct {
	Name    string
	Version string
}

// NewServer creates an MCP server with the graph tools registered. The run
// status tool is only registered when checkpoints are configured.
func NewServer(tools *GraphTools, opts Options) *mcp.Server {
	if opts.Name == "" {
		opts.Name = "zonegraph"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    opts.Name,
		Version: opts.Version,
	}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_graph",
		Description: "Search the venue knowledge graph for facts about zones, agents, infrastructure and response teams",
	}, tools.SearchGraph)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_entity_relationships",
		Description: "Get the relationships and neighbouring entities of an entity up to a traversal depth",
	}, tools.GetEntityRelationships)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_entity_timeline",
		Description: "Get the zone episodes that mention an entity, optionally bounded by start and end dates",
	}, tools.GetEntityTimeline)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_graph_stats",
		Description: "Count episodes, entities and relationships in the graph",
	}, tools.GetGraphStats)

	if tools.Checkpoints != nil {
		mcp.AddTool(srv, &mcp.Tool{
			Name:        "get_run_status",
			Description: "Report the progress of an ingestion run from its checkpoint",
		}, tools.GetRunStatus)
	}

	return srv
}
