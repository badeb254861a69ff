package zone

import (
	"fmt"

	"github.com/soundprediction/zonegraph/pkg/types"
)

// Classification thresholds, in square degrees of bounding-box area.
const (
	PublicAreaThreshold     = 1e-5
	CommercialAreaThreshold = 5e-6

	// InfrastructureOffset is the longitude offset of a zone's secondary point.
	InfrastructureOffset = 0.0001

	areaScale     = 1e5
	minAreaFactor = 0.5
	maxAreaFactor = 3.0
)

// Classification is the outcome of classifying one polygon.
type Classification struct {
	ZoneType      types.ZoneType
	SecurityLevel types.SecurityLevel
	AccessLevel   types.AccessLevel
}

// Classify assigns a zone type, security level and access level using an
// ordered decision ladder. The first matching rule wins.
func Classify(zoneID int, area float64) Classification {
	switch {
	case zoneID <= 5:
		return Classification{types.ZoneTypeSecurity, types.SecurityLevelHigh, types.AccessLevelRestricted}
	case zoneID <= 10:
		return Classification{types.ZoneTypeTransportation, types.SecurityLevelMedium, types.AccessLevelPublic}
	case area > PublicAreaThreshold:
		return Classification{types.ZoneTypePublic, types.SecurityLevelMedium, types.AccessLevelPublic}
	case area > CommercialAreaThreshold:
		return Classification{types.ZoneTypeCommercial, types.SecurityLevelMedium, types.AccessLevelPublic}
	case zoneID >= 100:
		return Classification{types.ZoneTypeEmergency, types.SecurityLevelCritical, types.AccessLevelEmergencyOnly}
	default:
		return Classification{types.ZoneTypeRestricted, types.SecurityLevelMedium, types.AccessLevelAuthorizedOnly}
	}
}

// Area approximates polygon area as the width times height of the bounding
// box of the outer ring. Holes and ring orientation are ignored.
func Area(polygon []types.Ring) float64 {
	if len(polygon) == 0 {
		return 0
	}
	box, ok := polygon[0].Bounds()
	if !ok {
		return 0
	}
	return (box.MaxLon - box.MinLon) * (box.MaxLat - box.MinLat)
}

// Centroid is the arithmetic mean of the outer ring's vertices. It is only
// used to place synthetic infrastructure points.
func Centroid(polygon []types.Ring) (lon, lat float64) {
	if len(polygon) == 0 {
		return 0, 0
	}
	var n int
	for _, pos := range polygon[0] {
		if len(pos) < 2 {
			continue
		}
		lon += pos[0]
		lat += pos[1]
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return lon / float64(n), lat / float64(n)
}

var baseCapacity = map[types.ZoneType]int{
	types.ZoneTypeSecurity:       200,
	types.ZoneTypePublic:         2000,
	types.ZoneTypeCommercial:     800,
	types.ZoneTypeEmergency:      100,
	types.ZoneTypeTransportation: 300,
	types.ZoneTypeRestricted:     50,
}

const defaultBaseCapacity = 100

// Capacity scales the per-type base capacity by the area factor, clamped to
// [0.5, 3.0]. It is non-decreasing in area for a fixed zone type.
func Capacity(zoneType types.ZoneType, area float64) int {
	base, ok := baseCapacity[zoneType]
	if !ok {
		base = defaultBaseCapacity
	}
	return int(float64(base) * AreaFactor(area))
}

// AreaFactor is area × 1e5 clamped to [0.5, 3.0].
func AreaFactor(area float64) float64 {
	return max(minAreaFactor, min(maxAreaFactor, area*areaScale))
}

type pointTemplate struct {
	idPrefix   string
	namePrefix string
	kind       types.InfrastructureType
	lonOffset  float64
	capacity   int // 0 means no capacity
	access     types.AccessLevel
	priority   int
	resources  []string
	incidents  []types.IncidentType
	// maxZoneID limits the point to zones with id <= maxZoneID when non-zero.
	maxZoneID int
}

var infrastructureTemplates = map[types.ZoneType][]pointTemplate{
	types.ZoneTypeSecurity: {
		{
			idPrefix: "gate", namePrefix: "Security Gate", kind: types.InfrastructureGate,
			capacity: 100, access: types.AccessLevelRestricted, priority: 1,
			resources: []string{"metal_detector", "security_personnel"},
			incidents: []types.IncidentType{types.IncidentSecurity, types.IncidentEvacuation},
		},
		{
			idPrefix: "checkpoint", namePrefix: "Security Checkpoint", kind: types.InfrastructureSecurityCheckpoint,
			lonOffset: InfrastructureOffset, capacity: 50, access: types.AccessLevelRestricted, priority: 2,
			resources: []string{"security_personnel", "surveillance"},
			incidents: []types.IncidentType{types.IncidentSecurity, types.IncidentCrowdControl},
			maxZoneID: 10,
		},
	},
	types.ZoneTypePublic: {
		{
			idPrefix: "medical_station", namePrefix: "Medical Station", kind: types.InfrastructureMedicalStation,
			capacity: 30, access: types.AccessLevelPublic, priority: 1,
			resources: []string{"medical_equipment", "trained_staff"},
			incidents: []types.IncidentType{types.IncidentMedical, types.IncidentFire, types.IncidentStampede},
		},
		{
			idPrefix: "assembly_point", namePrefix: "Assembly Point", kind: types.InfrastructureEvacuationAssemblyPoint,
			lonOffset: -InfrastructureOffset, capacity: 500, access: types.AccessLevelEmergencyOnly, priority: 1,
			resources: []string{"crowd_barriers", "pa_system"},
			incidents: []types.IncidentType{types.IncidentEvacuation, types.IncidentFire, types.IncidentStampede},
		},
	},
	types.ZoneTypeCommercial: {
		{
			idPrefix: "help_desk", namePrefix: "Help Desk", kind: types.InfrastructureHelpDesk,
			capacity: 50, access: types.AccessLevelPublic, priority: 3,
			resources: []string{"information", "first_aid"},
			incidents: []types.IncidentType{types.IncidentMedical, types.IncidentCrowdControl},
		},
	},
	types.ZoneTypeEmergency: {
		{
			idPrefix: "command_center", namePrefix: "Command Center", kind: types.InfrastructureCommandCenter,
			capacity: 20, access: types.AccessLevelEmergencyOnly, priority: 1,
			resources: []string{"communication_hub", "coordination_staff"},
			incidents: []types.IncidentType{
				types.IncidentFire, types.IncidentMedical, types.IncidentSecurity,
				types.IncidentEvacuation, types.IncidentStampede,
			},
		},
	},
	types.ZoneTypeTransportation: {
		{
			idPrefix: "camera", namePrefix: "Surveillance Camera", kind: types.InfrastructureSurveillanceCamera,
			access: types.AccessLevelRestricted, priority: 4,
			resources: []string{"cctv_monitoring"},
			incidents: []types.IncidentType{types.IncidentSecurity, types.IncidentCrowdControl},
		},
	},
}

// InfrastructurePoints emits the synthetic infrastructure points for a zone,
// placed at the centroid or offset from it along the longitude axis.
func InfrastructurePoints(zoneID int, zoneType types.ZoneType, centroidLon, centroidLat float64) []types.InfrastructurePoint {
	templates := infrastructureTemplates[zoneType]
	points := make([]types.InfrastructurePoint, 0, len(templates))
	for _, tpl := range templates {
		if tpl.maxZoneID > 0 && zoneID > tpl.maxZoneID {
			continue
		}
		point := types.InfrastructurePoint{
			ID:                 fmt.Sprintf("%s_%03d", tpl.idPrefix, zoneID),
			Name:               fmt.Sprintf("%s %d", tpl.namePrefix, zoneID),
			Type:               tpl.kind,
			Coordinates:        types.NewPoint(centroidLon+tpl.lonOffset, centroidLat),
			OperationalStatus:  true,
			AccessLevel:        tpl.access,
			EmergencyPriority:  tpl.priority,
			ResourcesAvailable: append([]string(nil), tpl.resources...),
			SupportedIncidents: append([]types.IncidentType(nil), tpl.incidents...),
		}
		if tpl.capacity > 0 {
			capacity := tpl.capacity
			point.Capacity = &capacity
		}
		points = append(points, point)
	}
	return points
}

var agentAssignments = map[types.ZoneType][]string{
	types.ZoneTypeSecurity:       {"security-agent"},
	types.ZoneTypePublic:         {"crowdflow-agent", "medassist-agent"},
	types.ZoneTypeCommercial:     {"queue-management-agent"},
	types.ZoneTypeEmergency:      {"supervisor-agent", "infrastructure-agent"},
	types.ZoneTypeTransportation: {"crowdflow-agent"},
	types.ZoneTypeRestricted:     {"infrastructure-agent"},
}

// AssignedAgents returns the response agents that cover a zone type.
func AssignedAgents(zoneType types.ZoneType) []string {
	return cloneOr(agentAssignments[zoneType], []string{})
}

var communicationChannels = map[types.ZoneType][]string{
	types.ZoneTypeSecurity:       {"radio_secure"},
	types.ZoneTypePublic:         {"pa_system_main", "mobile_network"},
	types.ZoneTypeCommercial:     {"pa_system", "mobile_network"},
	types.ZoneTypeEmergency:      {"emergency_radio", "command_network"},
	types.ZoneTypeTransportation: {"mobile_network"},
	types.ZoneTypeRestricted:     {"radio_technical"},
}

// CommunicationChannels returns the channels that reach a zone type.
func CommunicationChannels(zoneType types.ZoneType) []string {
	return cloneOr(communicationChannels[zoneType], []string{"mobile_network"})
}

func cloneOr(values, fallback []string) []string {
	if values == nil {
		return fallback
	}
	return append([]string(nil), values...)
}
