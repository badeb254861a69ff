package zone

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/zonegraph/pkg/geojson"
	"github.com/soundprediction/zonegraph/pkg/types"
)

func square(lon, lat, side float64) []types.Ring {
	return []types.Ring{{
		{lon, lat},
		{lon + side, lat},
		{lon + side, lat + side},
		{lon, lat + side},
		{lon, lat},
	}}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		zoneID int
		area   float64
		want   Classification
	}{
		{"low ids are security", 3, 1.0, Classification{types.ZoneTypeSecurity, types.SecurityLevelHigh, types.AccessLevelRestricted}},
		{"id five is security", 5, 0, Classification{types.ZoneTypeSecurity, types.SecurityLevelHigh, types.AccessLevelRestricted}},
		{"ids up to ten are transportation", 7, 1.0, Classification{types.ZoneTypeTransportation, types.SecurityLevelMedium, types.AccessLevelPublic}},
		{"large area is public", 20, 2e-5, Classification{types.ZoneTypePublic, types.SecurityLevelMedium, types.AccessLevelPublic}},
		{"public threshold is exclusive", 20, 1e-5, Classification{types.ZoneTypeCommercial, types.SecurityLevelMedium, types.AccessLevelPublic}},
		{"medium area is commercial", 20, 6e-6, Classification{types.ZoneTypeCommercial, types.SecurityLevelMedium, types.AccessLevelPublic}},
		{"high ids with small area are emergency", 120, 1e-6, Classification{types.ZoneTypeEmergency, types.SecurityLevelCritical, types.AccessLevelEmergencyOnly}},
		{"area rule wins over high id", 120, 2e-5, Classification{types.ZoneTypePublic, types.SecurityLevelMedium, types.AccessLevelPublic}},
		{"fallback is restricted", 50, 1e-6, Classification{types.ZoneTypeRestricted, types.SecurityLevelMedium, types.AccessLevelAuthorizedOnly}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.zoneID, tt.area))
		})
	}

	t.Run("deterministic", func(t *testing.T) {
		for id := 1; id <= 120; id++ {
			assert.Equal(t, Classify(id, 7e-6), Classify(id, 7e-6))
		}
	})
}

func TestAreaAndCentroid(t *testing.T) {
	t.Run("bounding box area", func(t *testing.T) {
		assert.InDelta(t, 4.0, Area(square(0, 0, 2)), 1e-12)
	})

	t.Run("triangle uses bounding box", func(t *testing.T) {
		tri := []types.Ring{{{0, 0}, {2, 0}, {0, 3}, {0, 0}}}
		assert.InDelta(t, 6.0, Area(tri), 1e-12)
	})

	t.Run("empty polygon", func(t *testing.T) {
		assert.Zero(t, Area(nil))
		assert.Zero(t, Area([]types.Ring{{}}))
		lon, lat := Centroid(nil)
		assert.Zero(t, lon)
		assert.Zero(t, lat)
	})

	t.Run("centroid averages every vertex", func(t *testing.T) {
		lon, lat := Centroid(square(0, 0, 1))
		assert.InDelta(t, 0.4, lon, 1e-12)
		assert.InDelta(t, 0.4, lat, 1e-12)
	})
}

func TestCapacity(t *testing.T) {
	t.Run("clamped to half of base", func(t *testing.T) {
		assert.Equal(t, 1000, Capacity(types.ZoneTypePublic, 0))
		assert.Equal(t, 100, Capacity(types.ZoneTypeSecurity, 0))
		assert.Equal(t, 25, Capacity(types.ZoneTypeRestricted, 0))
	})

	t.Run("clamped to three times base", func(t *testing.T) {
		assert.Equal(t, 6000, Capacity(types.ZoneTypePublic, 1))
		assert.Equal(t, 2400, Capacity(types.ZoneTypeCommercial, 1))
	})

	t.Run("unknown type uses default base", func(t *testing.T) {
		assert.Equal(t, 50, Capacity(types.ZoneTypeMedical, 0))
		assert.Equal(t, 300, Capacity(types.ZoneType("stadium"), 1))
	})

	t.Run("non-decreasing in area", func(t *testing.T) {
		for _, zt := range types.ZoneTypes {
			prev := -1
			for i := 0; i <= 400; i++ {
				got := Capacity(zt, float64(i)*1e-7)
				assert.GreaterOrEqual(t, got, prev, "zone type %s at step %d", zt, i)
				prev = got
			}
		}
	})
}

func TestInfrastructurePoints(t *testing.T) {
	t.Run("security zone gets gate and checkpoint", func(t *testing.T) {
		points := InfrastructurePoints(3, types.ZoneTypeSecurity, 77.5, 12.9)
		require.Len(t, points, 2)

		gate := points[0]
		assert.Equal(t, "gate_003", gate.ID)
		assert.Equal(t, "Security Gate 3", gate.Name)
		assert.Equal(t, types.InfrastructureGate, gate.Type)
		assert.Equal(t, []float64{77.5, 12.9}, gate.Coordinates.Coordinates)
		require.NotNil(t, gate.Capacity)
		assert.Equal(t, 100, *gate.Capacity)
		assert.Equal(t, 1, gate.EmergencyPriority)

		checkpoint := points[1]
		assert.Equal(t, "checkpoint_003", checkpoint.ID)
		assert.Equal(t, types.InfrastructureSecurityCheckpoint, checkpoint.Type)
		assert.InDelta(t, 77.5001, checkpoint.Coordinates.Coordinates[0], 1e-9)
		assert.Equal(t, 2, checkpoint.EmergencyPriority)
	})

	t.Run("checkpoint only for low ids", func(t *testing.T) {
		points := InfrastructurePoints(11, types.ZoneTypeSecurity, 0, 0)
		require.Len(t, points, 1)
		assert.Equal(t, "gate_011", points[0].ID)
	})

	t.Run("public zone gets medical station and assembly point", func(t *testing.T) {
		points := InfrastructurePoints(20, types.ZoneTypePublic, 1, 1)
		require.Len(t, points, 2)
		assert.Equal(t, types.InfrastructureMedicalStation, points[0].Type)
		assert.Equal(t, types.InfrastructureEvacuationAssemblyPoint, points[1].Type)
		assert.InDelta(t, 0.9999, points[1].Coordinates.Coordinates[0], 1e-9)
		assert.Equal(t, types.AccessLevelEmergencyOnly, points[1].AccessLevel)
		assert.Equal(t, []types.IncidentType{types.IncidentMedical, types.IncidentFire, types.IncidentStampede}, points[0].SupportedIncidents)
	})

	t.Run("camera has no capacity", func(t *testing.T) {
		points := InfrastructurePoints(7, types.ZoneTypeTransportation, 0, 0)
		require.Len(t, points, 1)
		assert.Equal(t, "camera_007", points[0].ID)
		assert.Nil(t, points[0].Capacity)
		assert.Equal(t, 4, points[0].EmergencyPriority)
	})

	t.Run("restricted zone has none", func(t *testing.T) {
		points := InfrastructurePoints(50, types.ZoneTypeRestricted, 0, 0)
		assert.NotNil(t, points)
		assert.Empty(t, points)
	})

	t.Run("points do not share slices with the table", func(t *testing.T) {
		points := InfrastructurePoints(1, types.ZoneTypeSecurity, 0, 0)
		points[0].ResourcesAvailable[0] = "changed"
		again := InfrastructurePoints(1, types.ZoneTypeSecurity, 0, 0)
		assert.Equal(t, "metal_detector", again[0].ResourcesAvailable[0])
	})
}

func TestLookupTables(t *testing.T) {
	assert.Equal(t, []string{"crowdflow-agent", "medassist-agent"}, AssignedAgents(types.ZoneTypePublic))
	assert.Equal(t, []string{}, AssignedAgents(types.ZoneTypeMedical))
	assert.Equal(t, []string{"emergency_radio", "command_network"}, CommunicationChannels(types.ZoneTypeEmergency))
	assert.Equal(t, []string{"mobile_network"}, CommunicationChannels(types.ZoneTypeIndustrial))
}

func TestZoneName(t *testing.T) {
	assert.Equal(t, "Checkpoint Area A-1", ZoneName(1, types.ZoneTypeSecurity))
	assert.Equal(t, "Service Area A-27", ZoneName(27, types.ZoneTypeRestricted))
	assert.Equal(t, "Emergency Hub D-108", ZoneName(108, types.ZoneTypeEmergency))
	assert.Equal(t, "Zone B-2", ZoneName(2, types.ZoneTypeMedical))
	assert.NotPanics(t, func() { ZoneName(-4, types.ZoneTypePublic) })
}

func TestDerivedValues(t *testing.T) {
	t.Run("current population", func(t *testing.T) {
		assert.Equal(t, 100, CurrentPopulation(10, 1000))
		assert.Equal(t, 25, CurrentPopulation(3, 100))
		assert.Equal(t, 0, CurrentPopulation(5, 0))
	})

	t.Run("evacuation time", func(t *testing.T) {
		assert.Equal(t, 2, EvacuationTime(100))
		assert.Equal(t, 10, EvacuationTime(1000))
		assert.Equal(t, 30, EvacuationTime(6000))
	})

	t.Run("resource requirements scale with capacity", func(t *testing.T) {
		assert.Equal(t, map[string]int{"medical_staff": 15, "crowd_control": 30, "fire_safety": 2},
			ResourceRequirements(types.ZoneTypePublic, 6000))
		assert.Equal(t, map[string]int{"security_personnel": 3, "crowd_control": 8},
			ResourceRequirements(types.ZoneTypeCommercial, 2400))
		assert.Empty(t, ResourceRequirements(types.ZoneTypeMedical, 1000))
	})
}

func fixedGenerator(t *testing.T) *Generator {
	t.Helper()
	gen, err := NewGenerator(nil)
	require.NoError(t, err)
	now := time.Date(2025, 7, 20, 10, 30, 0, 0, time.UTC)
	gen.Now = func() time.Time { return now }
	return gen
}

func TestGenerate(t *testing.T) {
	gen := fixedGenerator(t)

	t.Run("security zone", func(t *testing.T) {
		f := gen.Generate(1, square(77.596, 12.977, 0.0005))
		z := f.Properties
		assert.Equal(t, "Feature", f.Type)
		assert.Equal(t, types.GeometryPolygon, f.Geometry.Type)
		assert.Equal(t, "zone_001", z.ID)
		assert.Equal(t, "Checkpoint Area A-1", z.Name)
		assert.Equal(t, types.ZoneTypeSecurity, z.ZoneType)
		assert.Equal(t, types.SecurityLevelHigh, z.SecurityLevel)
		assert.Len(t, z.InfrastructurePoints, 2)
		assert.NotNil(t, z.EntryExitPoints)
		assert.Empty(t, z.EntryExitPoints)
		assert.True(t, z.OperationalStatus)
		assert.Equal(t, []string{"security-agent"}, z.AssignedAgents)
		assert.Equal(t, []string{"security_lockdown", "evacuation_protocol_a"}, z.EmergencyProtocols)
		assert.Equal(t, gen.Now(), z.LastUpdated)
	})

	t.Run("large public zone", func(t *testing.T) {
		z := gen.Generate(20, square(77.596, 12.977, 0.01)).Properties
		assert.Equal(t, types.ZoneTypePublic, z.ZoneType)
		assert.Equal(t, 6000, z.PopulationCapacity)
		require.NotNil(t, z.CurrentPopulation)
		assert.Equal(t, 600, *z.CurrentPopulation)
		assert.Equal(t, 30, z.EvacuationTimeMinutes)
		assert.Equal(t, 15, z.ResourceRequirements["medical_staff"])
		assert.Equal(t, []string{"medical", "crowd_control", "fire"}, z.ResponseTeamCoverage)
	})
}

func TestGenerateDocument(t *testing.T) {
	gen := fixedGenerator(t)
	polygons := [][]types.Ring{
		square(77.596, 12.977, 0.0005),
		square(77.597, 12.978, 0.0005),
		square(77.598, 12.979, 0.0002),
	}

	doc, err := gen.GenerateDocument(polygons)
	require.NoError(t, err)

	t.Run("venue blocks", func(t *testing.T) {
		assert.Equal(t, geojson.FeatureCollection, doc.Type)
		assert.Len(t, doc.Features, 3)
		assert.Equal(t, 3, doc.Metadata.TotalZones)
		assert.True(t, doc.Metadata.AllOriginalPolygonsPreserved)
		assert.Equal(t, "WGS84", doc.CoordinateSystem)
		assert.Len(t, doc.EmergencyContacts, 4)
		assert.Len(t, doc.ResponseProtocols, 7)
		assert.Len(t, doc.ResourceInventory, 14)
		assert.Len(t, doc.AgentDeploymentRules, 6)
		assert.Len(t, doc.CommunicationProtocols, 5)
	})

	t.Run("zone ids are sequential", func(t *testing.T) {
		for i, f := range doc.Features {
			assert.Equal(t, ZoneName(i+1, f.Properties.ZoneType), f.Properties.Name)
		}
		assert.Equal(t, "zone_003", doc.Features[2].Properties.ID)
	})

	t.Run("round trip preserves zones", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "venue.geojson")
		require.NoError(t, geojson.Save(path, doc))

		coll, err := geojson.LoadViews(path, nil, nil)
		require.NoError(t, err)
		require.True(t, coll.Validated(), "schema error: %v", coll.SchemaErr)
		require.Len(t, coll.Views, len(doc.Features))

		for i, view := range coll.Views {
			want := doc.Features[i].Properties
			assert.Equal(t, want.ID, view.ID())
			assert.Equal(t, string(want.ZoneType), view.ZoneType())
			assert.Len(t, view.InfrastructurePoints(), len(want.InfrastructurePoints))
			assert.Len(t, view.EntryExitPoints(), len(want.EntryExitPoints))
		}

		loaded, err := geojson.Load(path, nil)
		require.NoError(t, err)
		assert.True(t, loaded.Features[0].Properties.LastUpdated.Equal(gen.Now()))
		assert.Equal(t, doc.Bounds, loaded.Bounds)
	})

	t.Run("coverage all is written as a string", func(t *testing.T) {
		data, err := json.Marshal(doc.EmergencyContacts[0])
		require.NoError(t, err)
		assert.Contains(t, string(data), `"zone_coverage":"all"`)
	})
}

func TestVenueProfile(t *testing.T) {
	profile, err := DefaultVenueProfile()
	require.NoError(t, err)

	assert.Equal(t, "6.0-Complete-All-108-Zones", profile.Metadata.Version)
	assert.InDelta(t, 3.2, profile.Metadata.CoverageAreaSqKm, 1e-9)
	assert.InDelta(t, 77.595, profile.Bounds.MinLongitude, 1e-9)
	assert.Equal(t, types.Coverage{"security_zones", "restricted_zones"}, profile.EmergencyContacts[3].ZoneCoverage)
	assert.Equal(t, 120, profile.ResourceInventory["security_personnel"])

	rule := profile.AgentDeploymentRules["high_crowd_density"]
	require.NotNil(t, rule.TriggerThreshold)
	assert.InDelta(t, 0.8, *rule.TriggerThreshold, 1e-9)
	assert.Nil(t, profile.AgentDeploymentRules["security_incident"].TriggerThreshold)

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := ParseVenueProfile([]byte("bounds: [unclosed"))
		assert.Error(t, err)
	})
}
