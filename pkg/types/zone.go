package types

import (
	"encoding/json"
	"time"
)

// ZoneType classifies a venue zone.
type ZoneType string

const (
	ZoneTypeResidential    ZoneType = "residential"
	ZoneTypeCommercial     ZoneType = "commercial"
	ZoneTypeIndustrial     ZoneType = "industrial"
	ZoneTypeEmergency      ZoneType = "emergency"
	ZoneTypeRestricted     ZoneType = "restricted"
	ZoneTypePublic         ZoneType = "public"
	ZoneTypeTransportation ZoneType = "transportation"
	ZoneTypeMedical        ZoneType = "medical"
	ZoneTypeSecurity       ZoneType = "security"
	ZoneTypeEducational    ZoneType = "educational"
	ZoneTypeRecreational   ZoneType = "recreational"
)

// ZoneTypes lists every known zone type.
var ZoneTypes = []ZoneType{
	ZoneTypeResidential, ZoneTypeCommercial, ZoneTypeIndustrial, ZoneTypeEmergency,
	ZoneTypeRestricted, ZoneTypePublic, ZoneTypeTransportation, ZoneTypeMedical,
	ZoneTypeSecurity, ZoneTypeEducational, ZoneTypeRecreational,
}

// IsValid reports whether t is a known zone type.
func (t ZoneType) IsValid() bool {
	for _, known := range ZoneTypes {
		if t == known {
			return true
		}
	}
	return false
}

// SecurityLevel grades how tightly a zone is controlled.
type SecurityLevel string

const (
	SecurityLevelLow        SecurityLevel = "low"
	SecurityLevelMedium     SecurityLevel = "medium"
	SecurityLevelHigh       SecurityLevel = "high"
	SecurityLevelCritical   SecurityLevel = "critical"
	SecurityLevelRestricted SecurityLevel = "restricted"
)

// IsValid reports whether l is a known security level.
func (l SecurityLevel) IsValid() bool {
	switch l {
	case SecurityLevelLow, SecurityLevelMedium, SecurityLevelHigh, SecurityLevelCritical, SecurityLevelRestricted:
		return true
	}
	return false
}

// AccessLevel describes who may enter a zone or use a point.
type AccessLevel string

const (
	AccessLevelPublic         AccessLevel = "public"
	AccessLevelRestricted     AccessLevel = "restricted"
	AccessLevelAuthorizedOnly AccessLevel = "authorized_only"
	AccessLevelEmergencyOnly  AccessLevel = "emergency_only"
)

// IsValid reports whether l is a known access level.
func (l AccessLevel) IsValid() bool {
	switch l {
	case AccessLevelPublic, AccessLevelRestricted, AccessLevelAuthorizedOnly, AccessLevelEmergencyOnly:
		return true
	}
	return false
}

// InfrastructureType is the kind of an infrastructure point.
type InfrastructureType string

const (
	InfrastructureGate                    InfrastructureType = "gate"
	InfrastructureSecurityCheckpoint      InfrastructureType = "security_checkpoint"
	InfrastructureMedicalStation          InfrastructureType = "medical_station"
	InfrastructureHelpDesk                InfrastructureType = "help_desk"
	InfrastructureEmergencyExit           InfrastructureType = "emergency_exit"
	InfrastructureFireStation             InfrastructureType = "fire_station"
	InfrastructureCommunicationTower      InfrastructureType = "communication_tower"
	InfrastructureSurveillanceCamera      InfrastructureType = "surveillance_camera"
	InfrastructureEvacuationAssemblyPoint InfrastructureType = "evacuation_assembly_point"
	InfrastructureResourceDepot           InfrastructureType = "resource_depot"
	InfrastructureCommandCenter           InfrastructureType = "command_center"
)

// IsValid reports whether t is a known infrastructure type.
func (t InfrastructureType) IsValid() bool {
	switch t {
	case InfrastructureGate, InfrastructureSecurityCheckpoint, InfrastructureMedicalStation,
		InfrastructureHelpDesk, InfrastructureEmergencyExit, InfrastructureFireStation,
		InfrastructureCommunicationTower, InfrastructureSurveillanceCamera,
		InfrastructureEvacuationAssemblyPoint, InfrastructureResourceDepot, InfrastructureCommandCenter:
		return true
	}
	return false
}

// IncidentType is a class of incident an infrastructure point can handle.
type IncidentType string

const (
	IncidentFire         IncidentType = "fire"
	IncidentMedical      IncidentType = "medical"
	IncidentSecurity     IncidentType = "security"
	IncidentStampede     IncidentType = "stampede"
	IncidentEvacuation   IncidentType = "evacuation"
	IncidentCrowdControl IncidentType = "crowd_control"
	IncidentTechnical    IncidentType = "technical"
)

// IsValid reports whether t is a known incident type.
func (t IncidentType) IsValid() bool {
	switch t {
	case IncidentFire, IncidentMedical, IncidentSecurity, IncidentStampede,
		IncidentEvacuation, IncidentCrowdControl, IncidentTechnical:
		return true
	}
	return false
}

// Geometry type names used in venue documents.
const (
	GeometryPolygon = "Polygon"
	GeometryPoint   = "Point"
)

// Ring is a closed sequence of [lon, lat] positions.
type Ring [][]float64

// PointGeometry is a GeoJSON Point.
type PointGeometry struct {
	Type        string    `json:"type" validate:"eq=Point"`
	Coordinates []float64 `json:"coordinates" validate:"position"`
}

// NewPoint returns a Point geometry at lon, lat.
func NewPoint(lon, lat float64) PointGeometry {
	return PointGeometry{Type: GeometryPoint, Coordinates: []float64{lon, lat}}
}

// Geometry is a GeoJSON polygon geometry. Coordinates[0] is the outer ring.
type Geometry struct {
	Type        string `json:"type" validate:"eq=Polygon"`
	Coordinates []Ring `json:"coordinates" validate:"required,min=1,dive,min=4,closed,dive,position"`
}

// OuterRing returns the first ring, or nil if the geometry has none.
func (g Geometry) OuterRing() Ring {
	if len(g.Coordinates) == 0 {
		return nil
	}
	return g.Coordinates[0]
}

// IsClosed reports whether the first and last positions of the ring coincide.
func (r Ring) IsClosed() bool {
	if len(r) < 2 {
		return false
	}
	first, last := r[0], r[len(r)-1]
	if len(first) < 2 || len(last) < 2 {
		return false
	}
	return first[0] == last[0] && first[1] == last[1]
}

// BoundingBox is an axis-aligned lon/lat envelope.
type BoundingBox struct {
	MinLon float64 `json:"min_lon" yaml:"min_lon"`
	MaxLon float64 `json:"max_lon" yaml:"max_lon"`
	MinLat float64 `json:"min_lat" yaml:"min_lat"`
	MaxLat float64 `json:"max_lat" yaml:"max_lat"`
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() (lon, lat float64) {
	return (b.MinLon + b.MaxLon) / 2, (b.MinLat + b.MaxLat) / 2
}

// Bounds computes the bounding box of the ring. ok is false for an empty ring.
func (r Ring) Bounds() (box BoundingBox, ok bool) {
	for _, pos := range r {
		if len(pos) < 2 {
			continue
		}
		lon, lat := pos[0], pos[1]
		if !ok {
			box = BoundingBox{MinLon: lon, MaxLon: lon, MinLat: lat, MaxLat: lat}
			ok = true
			continue
		}
		box.MinLon = min(box.MinLon, lon)
		box.MaxLon = max(box.MaxLon, lon)
		box.MinLat = min(box.MinLat, lat)
		box.MaxLat = max(box.MaxLat, lat)
	}
	return box, ok
}

// InfrastructurePoint is a fixed facility owned by exactly one zone.
type InfrastructurePoint struct {
	ID                 string             `json:"id" validate:"required"`
	Name               string             `json:"name" validate:"required"`
	Type               InfrastructureType `json:"type" validate:"infrastructure_type"`
	Coordinates        PointGeometry      `json:"coordinates"`
	Capacity           *int               `json:"capacity,omitempty" validate:"omitempty,gte=0"`
	OperationalStatus  bool               `json:"operational_status"`
	AccessLevel        AccessLevel        `json:"access_level" validate:"access_level"`
	EmergencyPriority  int                `json:"emergency_priority" validate:"gte=1,lte=5"`
	ResourcesAvailable []string           `json:"resources_available"`
	SupportedIncidents []IncidentType     `json:"supported_incidents" validate:"dive,incident_type"`
	ContactInfo        map[string]string  `json:"contact_info,omitempty"`
}

// UnmarshalJSON decodes a point, treating a missing operational_status as
// operational.
func (p *InfrastructurePoint) UnmarshalJSON(data []byte) error {
	type plain InfrastructurePoint
	decoded := plain{OperationalStatus: true}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*p = InfrastructurePoint(decoded)
	return nil
}

// EntryExitPoint is a passage into or out of exactly one zone.
type EntryExitPoint struct {
	ID               string        `json:"id" validate:"required"`
	Name             string        `json:"name" validate:"required"`
	Coordinates      PointGeometry `json:"coordinates"`
	IsEntry          bool          `json:"is_entry"`
	IsExit           bool          `json:"is_exit"`
	AccessLevel      AccessLevel   `json:"access_level" validate:"access_level"`
	OperationalHours string        `json:"operational_hours,omitempty"`
	MaxThroughput    *int          `json:"max_throughput,omitempty" validate:"omitempty,gte=0"`
	CurrentStatus    bool          `json:"current_status"`
	ConnectedZones   []string      `json:"connected_zones"`
}

// UnmarshalJSON decodes a point. A missing is_entry, is_exit or
// current_status defaults to true.
func (p *EntryExitPoint) UnmarshalJSON(data []byte) error {
	type plain EntryExitPoint
	decoded := plain{IsEntry: true, IsExit: true, CurrentStatus: true}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*p = EntryExitPoint(decoded)
	return nil
}

// Zone holds the properties of a classified venue region.
type Zone struct {
	ID                    string                `json:"id" validate:"required"`
	Name                  string                `json:"name" validate:"required"`
	ZoneType              ZoneType              `json:"zone_type" validate:"zone_type"`
	SecurityLevel         SecurityLevel         `json:"security_level" validate:"security_level"`
	PopulationCapacity    int                   `json:"population_capacity" validate:"gte=0"`
	CurrentPopulation     *int                  `json:"current_population,omitempty" validate:"omitempty,gte=0"`
	AccessLevel           AccessLevel           `json:"access_level" validate:"access_level"`
	EvacuationTimeMinutes int                   `json:"evacuation_time_minutes" validate:"gte=0"`
	EmergencyProtocols    []string              `json:"emergency_protocols"`
	ResponseTeamCoverage  []string              `json:"response_team_coverage"`
	InfrastructurePoints  []InfrastructurePoint `json:"infrastructure_points" validate:"dive"`
	EntryExitPoints       []EntryExitPoint      `json:"entry_exit_points" validate:"dive"`
	LastUpdated           time.Time             `json:"last_updated"`
	OperationalStatus     bool                  `json:"operational_status"`
	SpecialConsiderations []string              `json:"special_considerations"`
	AssignedAgents        []string              `json:"assigned_agents"`
	CommunicationChannels []string              `json:"communication_channels"`
	ResourceRequirements  map[string]int        `json:"resource_requirements"`
}

// UnmarshalJSON decodes zone properties, treating a missing
// operational_status as operational.
func (z *Zone) UnmarshalJSON(data []byte) error {
	type plain Zone
	decoded := plain{OperationalStatus: true}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*z = Zone(decoded)
	return nil
}

// Feature pairs a zone with its polygon.
type Feature struct {
	Type       string   `json:"type" validate:"eq=Feature"`
	Geometry   Geometry `json:"geometry"`
	Properties Zone     `json:"properties"`
}
