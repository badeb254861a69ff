package types

// Agent type labels inferred from assigned agent ids.
const (
	AgentTypeSecurity        = "security_agent"
	AgentTypeMedical         = "medical_agent"
	AgentTypeInfrastructure  = "infrastructure_agent"
	AgentTypeCrowdManagement = "crowd_management_agent"
	AgentTypeGeneral         = "general_agent"
)

// AgentEntity is an assigned agent with its inferred role.
type AgentEntity struct {
	ID                string   `json:"id" yaml:"id"`
	Type              string   `json:"type" yaml:"type"`
	ZoneAssignment    string   `json:"zone_assignment" yaml:"zone_assignment"`
	ZoneName          string   `json:"zone_name" yaml:"zone_name"`
	SecurityClearance string   `json:"security_clearance" yaml:"security_clearance"`
	AccessLevel       string   `json:"access_level" yaml:"access_level"`
	Capabilities      []string `json:"capabilities" yaml:"capabilities"`
}

// InfrastructureEntity is an infrastructure point tagged with its zone.
type InfrastructureEntity struct {
	ID                 string    `json:"id" yaml:"id"`
	Name               string    `json:"name" yaml:"name"`
	Type               string    `json:"type" yaml:"type"`
	Coordinates        []float64 `json:"coordinates" yaml:"coordinates,flow"`
	Operational        bool      `json:"operational" yaml:"operational"`
	AccessLevel        string    `json:"access_level" yaml:"access_level"`
	EmergencyPriority  int       `json:"emergency_priority" yaml:"emergency_priority"`
	Resources          []string  `json:"resources" yaml:"resources"`
	SupportedIncidents []string  `json:"supported_incidents" yaml:"supported_incidents"`
	ParentZone         string    `json:"parent_zone" yaml:"parent_zone"`
}

// EntryExitEntity is an entry/exit point tagged with its zone.
type EntryExitEntity struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Coordinates []float64 `json:"coordinates" yaml:"coordinates,flow"`
	IsEntry     bool      `json:"is_entry" yaml:"is_entry"`
	IsExit      bool      `json:"is_exit" yaml:"is_exit"`
	Status      string    `json:"status" yaml:"status"`
	AccessLevel string    `json:"access_level" yaml:"access_level"`
	ParentZone  string    `json:"parent_zone" yaml:"parent_zone"`
}

// SecurityInfo summarises the security posture of a zone.
type SecurityInfo struct {
	Level       string   `json:"level" yaml:"level"`
	AccessLevel string   `json:"access_level" yaml:"access_level"`
	Protocols   []string `json:"protocols" yaml:"protocols"`
	ZoneType    string   `json:"zone_type" yaml:"zone_type"`
}

// PointResources lists the resources stocked at one infrastructure point.
type PointResources struct {
	Point     string   `json:"point" yaml:"point"`
	Resources []string `json:"resources" yaml:"resources"`
}

// ResourceInfo combines zone requirements with what points have on hand.
type ResourceInfo struct {
	Requirements              map[string]int   `json:"requirements" yaml:"requirements"`
	AvailableAtInfrastructure []PointResources `json:"available_at_infrastructure" yaml:"available_at_infrastructure"`
}

// LocationInfo is the spatial footprint of a zone.
type LocationInfo struct {
	ZoneID       string       `json:"zone_id" yaml:"zone_id"`
	ZoneName     string       `json:"zone_name" yaml:"zone_name"`
	GeometryType string       `json:"geometry_type" yaml:"geometry_type"`
	Coordinates  []Ring       `json:"coordinates,omitempty" yaml:"-"`
	BoundingBox  *LocationBox `json:"bounding_box,omitempty" yaml:"bounding_box,omitempty"`
}

// LocationBox is a bounding box with its midpoint.
type LocationBox struct {
	BoundingBox `yaml:",inline"`
	CenterLon   float64 `json:"center_lon" yaml:"center_lon"`
	CenterLat   float64 `json:"center_lat" yaml:"center_lat"`
}

// OperationalData is the capacity and status snapshot of a zone.
type OperationalData struct {
	OperationalStatus     bool   `json:"operational_status" yaml:"operational_status"`
	PopulationCapacity    int    `json:"population_capacity" yaml:"population_capacity"`
	CurrentPopulation     *int   `json:"current_population" yaml:"current_population"`
	EvacuationTimeMinutes int    `json:"evacuation_time_minutes" yaml:"evacuation_time_minutes"`
	LastUpdated           string `json:"last_updated" yaml:"last_updated"`
}

// ChunkEntities is everything extracted from one GeoChunk.
type ChunkEntities struct {
	Agents                []AgentEntity          `json:"agents" yaml:"agents"`
	ResponseTeams         []string               `json:"response_teams" yaml:"response_teams"`
	Infrastructure        []InfrastructureEntity `json:"infrastructure" yaml:"infrastructure"`
	EntryExitPoints       []EntryExitEntity      `json:"entry_exit_points" yaml:"entry_exit_points"`
	SecurityInfo          SecurityInfo           `json:"security_info" yaml:"security_info"`
	EmergencyProtocols    []string               `json:"emergency_protocols" yaml:"emergency_protocols"`
	CommunicationChannels []string               `json:"communication_channels" yaml:"communication_channels"`
	Resources             ResourceInfo           `json:"resources" yaml:"resources"`
	LocationInfo          LocationInfo           `json:"location_info" yaml:"location_info"`
	OperationalData       OperationalData        `json:"operational_data" yaml:"operational_data"`
}
