package types

import "time"

// NodeType represents the type of a node.
type NodeType string

const (
	// EntityNodeType represents entities projected from zone records.
	EntityNodeType NodeType = "entity"
	// EpisodicNodeType represents ingested episodes.
	EpisodicNodeType NodeType = "episodic"
)

// Entity type labels used for projected nodes.
const (
	EntityTypeZone           = "Zone"
	EntityTypeAgent          = "Agent"
	EntityTypeInfrastructure = "Infrastructure"
	EntityTypeEntryExit      = "EntryExitPoint"
	EntityTypeResponseTeam   = "ResponseTeam"
	EntityTypeIncident       = "IncidentType"
	EntityTypeChannel        = "CommunicationChannel"
)

// Node represents a node in the knowledge graph.
type Node struct {
	Uuid       string         `json:"uuid"`
	Name       string         `json:"name"`
	Type       NodeType       `json:"type"`
	GroupID    string         `json:"group_id"`
	EntityType string         `json:"entity_type,omitempty"`
	Summary    string         `json:"summary,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Validate checks if the Node has all required fields set.
func (n *Node) Validate() error {
	if n.Name == "" {
		return ErrEmptyName
	}
	if n.GroupID == "" {
		return ErrEmptyGroupID
	}
	return nil
}
