package driver

import (
	"context"
	"time"

	"github.com/soundprediction/zonegraph/pkg/types"
)

// This file defines focused interfaces that the GraphClient contract is
// composed from. Consumers should depend on the smallest interface that
// meets their needs.

// GraphLifecycle manages connections and indices.
type GraphLifecycle interface {
	Initialize(ctx context.Context) error
	Close(ctx context.Context) error
}

// EpisodeWriter stores episodes.
type EpisodeWriter interface {
	AddEpisode(ctx context.Context, episode types.Episode) error
}

// GraphSearcher provides fact search.
// Use this interface when you only need search capabilities.
type GraphSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error)
}

// GraphTraversal provides operations for navigating the graph structure.
type GraphTraversal interface {
	GetEntityRelationships(ctx context.Context, entity string, depth int) (*types.EntityRelationships, error)
}

// TemporalOperations provides operations for time-based queries.
type TemporalOperations interface {
	GetEntityTimeline(ctx context.Context, entity string, start, end time.Time) ([]types.TimelineEntry, error)
}

// DatabaseAdmin provides administrative operations for database maintenance.
type DatabaseAdmin interface {
	ClearGraph(ctx context.Context, groupID string) error
}

// StatsReporter reports graph statistics for a group.
type StatsReporter interface {
	GetStats(ctx context.Context, groupID string) (*GraphStats, error)
}

// Ensure GraphClient is composed of the focused interfaces.
var _ interface {
	GraphLifecycle
	EpisodeWriter
	GraphSearcher
	GraphTraversal
	TemporalOperations
	DatabaseAdmin
} = (GraphClient)(nil)

var (
	_ GraphClient   = (*Neo4jClient)(nil)
	_ GraphClient   = (*BadgerClient)(nil)
	_ GraphClient   = (*CircuitBreakerClient)(nil)
	_ StatsReporter = (*Neo4jClient)(nil)
	_ StatsReporter = (*BadgerClient)(nil)
	_ StatsReporter = (*CircuitBreakerClient)(nil)
)
