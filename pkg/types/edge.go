package types

import "time"

// EdgeType names a relationship between projected entities.
type EdgeType string

const (
	// AssignedToEdge links an agent to the zone it covers.
	AssignedToEdge EdgeType = "ASSIGNED_TO"
	// LocatedInEdge links an infrastructure point to its zone.
	LocatedInEdge EdgeType = "LOCATED_IN"
	// ConnectsEdge links an entry/exit point to its zone.
	ConnectsEdge EdgeType = "CONNECTS"
	// CoversEdge links a response team to a zone.
	CoversEdge EdgeType = "COVERS"
	// HandlesEdge links an infrastructure point to an incident type.
	HandlesEdge EdgeType = "HANDLES"
	// ServesEdge links a communication channel to a zone.
	ServesEdge EdgeType = "SERVES"
	// MentionsEdge links an episode to an entity it describes.
	MentionsEdge EdgeType = "MENTIONS"
)

// Edge is a fact-bearing relationship between two entity nodes.
type Edge struct {
	Uuid       string     `json:"uuid"`
	GroupID    string     `json:"group_id"`
	SourceName string     `json:"source_name"`
	TargetName string     `json:"target_name"`
	Type       EdgeType   `json:"type"`
	Fact       string     `json:"fact"`
	EpisodeID  string     `json:"episode_id"`
	CreatedAt  time.Time  `json:"created_at"`
	ValidAt    time.Time  `json:"valid_at"`
	InvalidAt  *time.Time `json:"invalid_at,omitempty"`
}

// Other returns the endpoint of e that is not name.
func (e *Edge) Other(name string) string {
	if e.SourceName == name {
		return e.TargetName
	}
	return e.SourceName
}

// Touches reports whether name is either endpoint of e.
func (e *Edge) Touches(name string) bool {
	return e.SourceName == name || e.TargetName == name
}

// ToSearchResult converts the edge to a search hit.
func (e *Edge) ToSearchResult() SearchResult {
	validAt := e.ValidAt
	return SearchResult{
		UUID:           e.Uuid,
		Fact:           e.Fact,
		Name:           string(e.Type),
		SourceNodeUUID: e.SourceName,
		TargetNodeUUID: e.TargetName,
		ValidAt:        &validAt,
		InvalidAt:      e.InvalidAt,
	}
}
