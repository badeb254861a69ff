package dto

import (
	"time"

	"github.com/soundprediction/zonegraph/pkg/types"
)

// SearchQuery is accepted as a JSON body on POST and as query parameters on GET.
type SearchQuery struct {
	Query    string `json:"query" form:"query" binding:"required"`
	MaxFacts int    `json:"max_facts" form:"max_facts" binding:"omitempty,min=1,max=100"`
}

// Limit returns MaxFacts or the default.
func (q SearchQuery) Limit() int {
	if q.MaxFacts <= 0 {
		return DefaultMaxFacts
	}
	return q.MaxFacts
}

// SearchResults represents search results
type SearchResults struct {
	Query string       `json:"query"`
	Facts []FactResult `json:"facts"`
	Total int          `json:"total"`
}

// RelationshipsQuery holds the query parameters of the relationships endpoint.
type RelationshipsQuery struct {
	Depth int `form:"depth" binding:"omitempty,min=1,max=5"`
}

// TimelineQuery bounds a timeline request. Both ends are optional RFC3339 times.
type TimelineQuery struct {
	Start time.Time `form:"start" time_format:"2006-01-02T15:04:05Z07:00"`
	End   time.Time `form:"end" time_format:"2006-01-02T15:04:05Z07:00"`
}

// TimelineResponse lists the episodes that mention an entity.
type TimelineResponse struct {
	Entity  string                `json:"entity"`
	Entries []types.TimelineEntry `json:"entries"`
	Total   int                   `json:"total"`
}

// RunStatus reports the checkpoint of an ingestion run.
type RunStatus struct {
	RunID         string    `json:"run_id"`
	SourceName    string    `json:"source_name"`
	GroupID       string    `json:"group_id,omitempty"`
	Completed     bool      `json:"completed"`
	Progress      string    `json:"progress"`
	TotalChunks   int       `json:"total_chunks"`
	Ingested      int       `json:"ingested"`
	Failed        int       `json:"failed"`
	EpisodeIDs    []string  `json:"episode_ids"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}
