package dto

import (
	"time"

	"github.com/soundprediction/zonegraph/pkg/types"
)

// Query limits
const (
	DefaultMaxFacts = 10
	MaxFacts        = 100
	DefaultDepth    = 1
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// FactResult represents a fact result from the knowledge graph
type FactResult struct {
	UUID           string     `json:"uuid"`
	Fact           string     `json:"fact"`
	RelationType   string     `json:"relation_type"`
	SourceNodeUUID string     `json:"source_node_uuid"`
	TargetNodeUUID string     `json:"target_node_uuid"`
	ValidAt        *time.Time `json:"valid_at,omitempty"`
	InvalidAt      *time.Time `json:"invalid_at,omitempty"`
}

// NewFactResult converts a graph search hit.
func NewFactResult(r types.SearchResult) FactResult {
	return FactResult{
		UUID:           r.UUID,
		Fact:           r.Fact,
		RelationType:   r.Name,
		SourceNodeUUID: r.SourceNodeUUID,
		TargetNodeUUID: r.TargetNodeUUID,
		ValidAt:        r.ValidAt,
		InvalidAt:      r.InvalidAt,
	}
}
