package types

import (
	"encoding/json"
	"time"
)

// DocumentMetadata describes a generated venue document.
type DocumentMetadata struct {
	CreatedBy                    string    `json:"created_by" yaml:"created_by"`
	Version                      string    `json:"version" yaml:"version"`
	AreaName                     string    `json:"area_name" yaml:"area_name"`
	CoordinateSource             string    `json:"coordinate_source" yaml:"coordinate_source"`
	LastUpdated                  time.Time `json:"last_updated" yaml:"-"`
	TotalZones                   int       `json:"total_zones" yaml:"-"`
	EnhancementStatus            string    `json:"enhancement_status" yaml:"enhancement_status"`
	CoverageAreaSqKm             float64   `json:"coverage_area_sq_km" yaml:"coverage_area_sq_km"`
	AllOriginalPolygonsPreserved bool      `json:"all_original_polygons_preserved" yaml:"-"`
}

// VenueBounds is the overall lon/lat envelope of a venue.
type VenueBounds struct {
	MinLongitude float64 `json:"min_longitude" yaml:"min_longitude"`
	MaxLongitude float64 `json:"max_longitude" yaml:"max_longitude"`
	MinLatitude  float64 `json:"min_latitude" yaml:"min_latitude"`
	MaxLatitude  float64 `json:"max_latitude" yaml:"max_latitude"`
}

// Coverage is either the single value "all" or a list of zone groups.
type Coverage []string

// MarshalJSON writes a single-element coverage as a bare string.
func (c Coverage) MarshalJSON() ([]byte, error) {
	if len(c) == 1 {
		return json.Marshal(c[0])
	}
	return json.Marshal([]string(c))
}

// UnmarshalJSON accepts a string or a list of strings.
func (c *Coverage) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*c = Coverage{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*c = list
	return nil
}

// EmergencyContact is a phone line that covers part of the venue.
type EmergencyContact struct {
	Type          string   `json:"type" yaml:"type"`
	Number        string   `json:"number" yaml:"number"`
	ContactPerson string   `json:"contact_person" yaml:"contact_person"`
	ZoneCoverage  Coverage `json:"zone_coverage" yaml:"zone_coverage"`
}

// DeploymentRule says which agents to dispatch when a trigger fires.
type DeploymentRule struct {
	TriggerThreshold  *float64 `json:"trigger_threshold,omitempty" yaml:"trigger_threshold,omitempty"`
	DeployAgents      []string `json:"deploy_agents" yaml:"deploy_agents"`
	Priority          string   `json:"priority" yaml:"priority"`
	AffectedZoneTypes []string `json:"affected_zone_types" yaml:"affected_zone_types"`
}

// CommunicationProtocol is a venue-wide communication system.
type CommunicationProtocol struct {
	Name      string   `json:"name" yaml:"name"`
	Channels  []string `json:"channels,omitempty" yaml:"channels,omitempty"`
	ZoneTypes []string `json:"zone_types,omitempty" yaml:"zone_types,omitempty"`
	Coverage  string   `json:"coverage,omitempty" yaml:"coverage,omitempty"`
	Type      string   `json:"type,omitempty" yaml:"type,omitempty"`
	Priority  string   `json:"priority" yaml:"priority"`
}

// VenueProfile is the static, venue-level part of a venue document.
type VenueProfile struct {
	Metadata               DocumentMetadata          `json:"metadata" yaml:"metadata"`
	CoordinateSystem       string                    `json:"coordinate_system" yaml:"coordinate_system"`
	Bounds                 VenueBounds               `json:"bounds" yaml:"bounds"`
	EmergencyContacts      []EmergencyContact        `json:"emergency_contacts" yaml:"emergency_contacts"`
	ResponseProtocols      map[string][]string       `json:"response_protocols" yaml:"response_protocols"`
	ResourceInventory      map[string]int            `json:"resource_inventory" yaml:"resource_inventory"`
	AgentDeploymentRules   map[string]DeploymentRule `json:"agent_deployment_rules" yaml:"agent_deployment_rules"`
	CommunicationProtocols []CommunicationProtocol   `json:"communication_protocols" yaml:"communication_protocols"`
}
