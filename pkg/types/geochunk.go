package types

// Chunk metadata keys.
const (
	MetaIndex                = "index"
	MetaSecurityLevel        = "security_level"
	MetaAccessLevel          = "access_level"
	MetaAssignedAgents       = "assigned_agents"
	MetaResponseTeamCoverage = "response_team_coverage"
	MetaCreationDate         = "creation_date"
	MetaEntities             = "entities"
	MetaEntityExtractionDate = "entity_extraction_date"
)

// ZoneView gives uniform, typed read access to one zone feature regardless of
// whether it was decoded into a validated Feature or left as a raw mapping.
// String accessors return "" and collections return nil when a value is absent.
type ZoneView interface {
	ID() string
	Name() string
	ZoneType() string
	SecurityLevel() string
	AccessLevel() string
	PopulationCapacity() int
	// CurrentPopulation reports false when the value is absent.
	CurrentPopulation() (int, bool)
	EvacuationTimeMinutes() int
	EmergencyProtocols() []string
	ResponseTeamCoverage() []string
	AssignedAgents() []string
	CommunicationChannels() []string
	ResourceRequirements() map[string]int
	InfrastructurePoints() []InfrastructurePoint
	EntryExitPoints() []EntryExitPoint
	// OperationalStatus defaults to true when absent.
	OperationalStatus() bool
	LastUpdated() string
	Geometry() Geometry
	// Properties returns the zone properties as a plain mapping.
	Properties() map[string]any
}

// GeoChunk is the per-zone unit of text and structured data prepared for
// knowledge-graph ingestion.
type GeoChunk struct {
	ZoneID               string                `json:"zone_id"`
	ZoneName             string                `json:"zone_name"`
	ZoneType             string                `json:"zone_type"`
	Content              string                `json:"content"`
	Geometry             Geometry              `json:"geometry"`
	Properties           map[string]any        `json:"properties"`
	InfrastructurePoints []InfrastructurePoint `json:"infrastructure_points"`
	EntryExitPoints      []EntryExitPoint      `json:"entry_exit_points"`
	Metadata             map[string]any        `json:"metadata"`
	Index                int                   `json:"index"`

	// View is the accessor the chunk was built from.
	View ZoneView `json:"-"`
}

// Entities returns the extracted entities, or nil if extraction has not run.
func (c *GeoChunk) Entities() *ChunkEntities {
	if c.Metadata == nil {
		return nil
	}
	entities, _ := c.Metadata[MetaEntities].(*ChunkEntities)
	return entities
}

// SecurityLevel returns the security level recorded in chunk metadata.
func (c *GeoChunk) SecurityLevel() string {
	level, _ := c.Metadata[MetaSecurityLevel].(string)
	return level
}

// AssignedAgents returns the agent ids recorded in chunk metadata.
func (c *GeoChunk) AssignedAgents() []string {
	agents, _ := c.Metadata[MetaAssignedAgents].([]string)
	return agents
}
