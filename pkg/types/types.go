package types

import (
	"errors"
	"fmt"
	"time"
)

// Validation errors
var (
	ErrEmptyName      = errors.New("name cannot be empty")
	ErrEmptyZoneID    = errors.New("zone id cannot be empty")
	ErrEmptyEpisodeID = errors.New("episode id cannot be empty")
	ErrEmptyContent   = errors.New("content cannot be empty")
	ErrEmptyGroupID   = errors.New("group_id cannot be empty")
	ErrInvalidLimit   = errors.New("limit must be positive")
	ErrInvalidDepth   = errors.New("depth must be between 1 and 5")
)

// ContextKey is the type of context keys read by the telemetry handlers.
type ContextKey string

const (
	// ContextKeyRunID carries the ingestion run identifier.
	ContextKeyRunID ContextKey = "run_id"
	// ContextKeySourceName carries the venue document source name.
	ContextKeySourceName ContextKey = "source_name"
	// ContextKeyRequestSource names the surface that issued the call (cli, server, mcp).
	ContextKeyRequestSource ContextKey = "request_source"
)

// Episode is a single timestamped document submitted to the knowledge graph.
type Episode struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Content   string         `json:"content"`
	Source    string         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
	GroupID   string         `json:"group_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`

	// Entities holds the structured records the episode was built from.
	// Graph clients project them into entity nodes and edges.
	Entities *ChunkEntities `json:"entities,omitempty"`
}

// Validate checks if the Episode has all required fields set.
func (e *Episode) Validate() error {
	if e.ID == "" {
		return ErrEmptyEpisodeID
	}
	if e.Content == "" {
		return ErrEmptyContent
	}
	return nil
}

// BatchResult is the partial-success outcome of ingesting a chunk batch.
type BatchResult struct {
	RunID           string   `json:"run_id"`
	EpisodesCreated int      `json:"episodes_created"`
	TotalChunks     int      `json:"total_chunks"`
	Skipped         int      `json:"skipped,omitempty"`
	EpisodeIDs      []string `json:"episode_ids,omitempty"`
	Errors          []string `json:"errors"`
	Cancelled       bool     `json:"cancelled,omitempty"`
}

// Failed returns the number of chunks whose ingestion failed.
func (r *BatchResult) Failed() int {
	return len(r.Errors)
}

// Complete reports whether every chunk was ingested or skipped without error.
func (r *BatchResult) Complete() bool {
	return !r.Cancelled && len(r.Errors) == 0 && r.EpisodesCreated+r.Skipped == r.TotalChunks
}

// String summarises the result for log lines and CLI output.
func (r *BatchResult) String() string {
	return fmt.Sprintf("%d/%d episodes created, %d skipped, %d errors", r.EpisodesCreated, r.TotalChunks, r.Skipped, len(r.Errors))
}

// SearchResult is a fact returned by a graph search.
type SearchResult struct {
	UUID           string     `json:"uuid"`
	Fact           string     `json:"fact"`
	Name           string     `json:"name"`
	SourceNodeUUID string     `json:"source_node_uuid"`
	TargetNodeUUID string     `json:"target_node_uuid"`
	ValidAt        *time.Time `json:"valid_at,omitempty"`
	InvalidAt      *time.Time `json:"invalid_at,omitempty"`
}

// EntityRelationships is the neighbourhood of an entity up to a depth.
type EntityRelationships struct {
	Entity        string  `json:"entity"`
	Depth         int     `json:"depth"`
	Relationships []*Edge `json:"relationships"`
	Neighbors     []*Node `json:"neighbors"`
}

// TimelineEntry is one episode that mentions an entity.
type TimelineEntry struct {
	EpisodeID string         `json:"episode_id"`
	Name      string         `json:"name"`
	Source    string         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
