package driver

import (
	"context"
	"errors"
	"time"

	"github.com/soundprediction/zonegraph/pkg/types"
)

// GraphProvider represents the type of graph database provider
type GraphProvider string

const (
	GraphProviderNeo4j  GraphProvider = "neo4j"
	GraphProviderBadger GraphProvider = "badger"
)

// DefaultGroupID is used when neither the episode nor the client names a group.
const DefaultGroupID = "default"

// DefaultSearchLimit is applied when a search is issued without a positive limit.
const DefaultSearchLimit = 10

// MaxTraversalDepth bounds GetEntityRelationships.
const MaxTraversalDepth = 5

var (
	// ErrClientNotInitialized is returned by operations on a client before Initialize.
	ErrClientNotInitialized = errors.New("graph client not initialized")
	// ErrEntityNotFound is returned when a named entity does not exist in the group.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrUnsupportedProvider is returned by New for unknown database drivers.
	ErrUnsupportedProvider = errors.New("unsupported graph provider")
)

// GraphClient is the knowledge-graph contract used by the ingestion pipeline
// and the query surfaces. Clients are constructed explicitly and must be
// initialized before use.
type GraphClient interface {
	// Initialize opens connections and creates indices.
	Initialize(ctx context.Context) error

	// Close releases all resources held by the client.
	Close(ctx context.Context) error

	// AddEpisode stores an episode and projects its entities into the graph.
	AddEpisode(ctx context.Context, episode types.Episode) error

	// Search returns facts matching a free-text query.
	Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error)

	// GetEntityRelationships returns the neighbourhood of an entity up to depth hops.
	GetEntityRelationships(ctx context.Context, entity string, depth int) (*types.EntityRelationships, error)

	// GetEntityTimeline returns the episodes mentioning an entity between start and end.
	// A zero end means no upper bound.
	GetEntityTimeline(ctx context.Context, entity string, start, end time.Time) ([]types.TimelineEntry, error)

	// ClearGraph removes every node and edge of a group.
	ClearGraph(ctx context.Context, groupID string) error
}

// GraphStats holds statistics about the graph.
type GraphStats struct {
	EpisodeCount int64            `json:"episode_count"`
	NodeCount    int64            `json:"node_count"`
	EdgeCount    int64            `json:"edge_count"`
	NodesByType  map[string]int64 `json:"nodes_by_type"`
	EdgesByType  map[string]int64 `json:"edges_by_type"`
	LastUpdated  time.Time        `json:"last_updated"`
}

func newGraphStats() *GraphStats {
	return &GraphStats{
		NodesByType: make(map[string]int64),
		EdgesByType: make(map[string]int64),
		LastUpdated: time.Now(),
	}
}

func searchLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	return limit
}

func validateDepth(depth int) error {
	if depth < 1 || depth > MaxTraversalDepth {
		return types.ErrInvalidDepth
	}
	return nil
}

func groupOr(groupID, fallback string) string {
	if groupID != "" {
		return groupID
	}
	if fallback != "" {
		return fallback
	}
	return DefaultGroupID
}

// inRange reports whether ts falls within [start, end]. A zero end is unbounded.
func inRange(ts, start, end time.Time) bool {
	if ts.Before(start) {
		return false
	}
	return end.IsZero() || !ts.After(end)
}
