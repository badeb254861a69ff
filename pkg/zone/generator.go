package zone

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/soundprediction/zonegraph/pkg/geojson"
	"github.com/soundprediction/zonegraph/pkg/types"
)

var namePools = map[types.ZoneType][]string{
	types.ZoneTypeSecurity:       {"Security Entrance", "Checkpoint Area", "Access Control Zone"},
	types.ZoneTypePublic:         {"Assembly Plaza", "Gathering Area", "Public Space"},
	types.ZoneTypeCommercial:     {"Commercial District", "Shopping Area", "Retail Zone"},
	types.ZoneTypeEmergency:      {"Emergency Hub", "Command Center", "Response Zone"},
	types.ZoneTypeTransportation: {"Transit Corridor", "Traffic Junction", "Passage Way"},
	types.ZoneTypeRestricted:     {"Service Area", "Utility Zone", "Access Corridor"},
}

var emergencyProtocols = map[types.ZoneType][]string{
	types.ZoneTypeSecurity:       {"security_lockdown", "evacuation_protocol_a"},
	types.ZoneTypePublic:         {"mass_evacuation", "crowd_dispersal", "medical_emergency"},
	types.ZoneTypeCommercial:     {"evacuation_standard", "fire_response"},
	types.ZoneTypeEmergency:      {"emergency_response", "resource_deployment", "command_coordination"},
	types.ZoneTypeTransportation: {"corridor_evacuation", "traffic_management"},
	types.ZoneTypeRestricted:     {"secure_evacuation", "utility_shutdown"},
}

var responseTeams = map[types.ZoneType][]string{
	types.ZoneTypeSecurity:       {"security", "medical"},
	types.ZoneTypePublic:         {"medical", "crowd_control", "fire"},
	types.ZoneTypeCommercial:     {"security", "medical"},
	types.ZoneTypeEmergency:      {"fire", "medical", "security", "command"},
	types.ZoneTypeTransportation: {"crowd_control"},
	types.ZoneTypeRestricted:     {"technical", "security"},
}

const (
	minEvacuationMinutes = 2
	maxEvacuationMinutes = 30
)

// Generator turns raw polygons into fully attributed zone features.
type Generator struct {
	// Now stamps last_updated fields. Defaults to time.Now.
	Now func() time.Time
	// Profile supplies the venue-level document blocks. Defaults to the
	// embedded profile.
	Profile *types.VenueProfile

	logger *slog.Logger
}

// NewGenerator creates a generator with the embedded venue profile.
func NewGenerator(logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	profile, err := DefaultVenueProfile()
	if err != nil {
		return nil, err
	}
	return &Generator{Now: time.Now, Profile: profile, logger: logger}, nil
}

func (g *Generator) now() time.Time {
	if g.Now == nil {
		return time.Now().UTC()
	}
	return g.Now().UTC()
}

// Generate builds the zone feature for the polygon with the given 1-based id.
func (g *Generator) Generate(zoneID int, polygon []types.Ring) types.Feature {
	area := Area(polygon)
	lon, lat := Centroid(polygon)
	class := Classify(zoneID, area)
	capacity := Capacity(class.ZoneType, area)
	population := CurrentPopulation(zoneID, capacity)

	zone := types.Zone{
		ID:                    fmt.Sprintf("zone_%03d", zoneID),
		Name:                  ZoneName(zoneID, class.ZoneType),
		ZoneType:              class.ZoneType,
		SecurityLevel:         class.SecurityLevel,
		PopulationCapacity:    capacity,
		CurrentPopulation:     &population,
		AccessLevel:           class.AccessLevel,
		EvacuationTimeMinutes: EvacuationTime(capacity),
		EmergencyProtocols:    cloneOr(emergencyProtocols[class.ZoneType], []string{"evacuation_standard"}),
		ResponseTeamCoverage:  cloneOr(responseTeams[class.ZoneType], []string{"medical"}),
		InfrastructurePoints:  InfrastructurePoints(zoneID, class.ZoneType, lon, lat),
		EntryExitPoints:       []types.EntryExitPoint{},
		LastUpdated:           g.now(),
		OperationalStatus:     true,
		SpecialConsiderations: []string{},
		AssignedAgents:        AssignedAgents(class.ZoneType),
		CommunicationChannels: CommunicationChannels(class.ZoneType),
		ResourceRequirements:  ResourceRequirements(class.ZoneType, capacity),
	}

	return types.Feature{
		Type:       "Feature",
		Geometry:   types.Geometry{Type: types.GeometryPolygon, Coordinates: polygon},
		Properties: zone,
	}
}

// GenerateDocument builds a complete venue document with one feature per
// polygon. Zone ids are assigned from 1 in input order.
func (g *Generator) GenerateDocument(polygons [][]types.Ring) (*geojson.Document, error) {
	if g.logger == nil {
		g.logger = slog.Default()
	}
	profile := g.Profile
	if profile == nil {
		var err error
		profile, err = DefaultVenueProfile()
		if err != nil {
			return nil, err
		}
	}

	features := make([]types.Feature, 0, len(polygons))
	counts := make(map[types.ZoneType]int)
	for i, polygon := range polygons {
		feature := g.Generate(i+1, polygon)
		counts[feature.Properties.ZoneType]++
		features = append(features, feature)
		if (i+1)%10 == 0 {
			g.logger.Debug("Generated zones", "count", i+1)
		}
	}

	venue := *profile
	venue.Metadata.LastUpdated = g.now()
	venue.Metadata.TotalZones = len(features)
	venue.Metadata.AllOriginalPolygonsPreserved = len(features) == len(polygons)

	g.logger.Info("Generated venue document",
		"zones", len(features),
		"security", counts[types.ZoneTypeSecurity],
		"transportation", counts[types.ZoneTypeTransportation],
		"public", counts[types.ZoneTypePublic],
		"commercial", counts[types.ZoneTypeCommercial],
		"emergency", counts[types.ZoneTypeEmergency],
		"restricted", counts[types.ZoneTypeRestricted])

	return geojson.NewDocument(features, venue), nil
}

// ZoneName returns the deterministic display name for a zone.
func ZoneName(zoneID int, zoneType types.ZoneType) string {
	pool, ok := namePools[zoneType]
	if !ok {
		pool = []string{"Zone"}
	}
	letter := rune('A' + mod(zoneID-1, 26))
	return fmt.Sprintf("%s %c-%d", pool[mod(zoneID, len(pool))], letter, zoneID)
}

// CurrentPopulation is the synthetic occupancy of a zone. It cycles between
// 10% and 55% of capacity and is not clamped to capacity.
func CurrentPopulation(zoneID, capacity int) int {
	return max(0, int(float64(capacity)*(0.1+float64(mod(zoneID, 10))*0.05)))
}

// EvacuationTime is capacity/100 minutes clamped to [2, 30].
func EvacuationTime(capacity int) int {
	return max(minEvacuationMinutes, min(maxEvacuationMinutes, capacity/100))
}

// ResourceRequirements returns the staffing a zone type needs. Public and
// commercial counts scale with capacity.
func ResourceRequirements(zoneType types.ZoneType, capacity int) map[string]int {
	switch zoneType {
	case types.ZoneTypeSecurity:
		return map[string]int{"security_personnel": 4, "medical_staff": 1}
	case types.ZoneTypePublic:
		return map[string]int{"medical_staff": capacity / 400, "crowd_control": capacity / 200, "fire_safety": 2}
	case types.ZoneTypeCommercial:
		return map[string]int{"security_personnel": 3, "crowd_control": capacity / 300}
	case types.ZoneTypeEmergency:
		return map[string]int{"command_staff": 3, "technical_staff": 2, "fire_fighters": 5}
	case types.ZoneTypeTransportation:
		return map[string]int{"crowd_control": 1}
	case types.ZoneTypeRestricted:
		return map[string]int{"technical_staff": 1, "security_personnel": 1}
	default:
		return map[string]int{}
	}
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
