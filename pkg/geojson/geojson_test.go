package geojson

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/zonegraph/pkg/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func validFeature(id string) types.Feature {
	capacity, population := 100, 15
	return types.Feature{
		Type: "Feature",
		Geometry: types.Geometry{
			Type: types.GeometryPolygon,
			Coordinates: []types.Ring{{
				{77.596, 12.977}, {77.597, 12.977}, {77.597, 12.978}, {77.596, 12.978}, {77.596, 12.977},
			}},
		},
		Properties: types.Zone{
			ID:                 id,
			Name:               "Security Entrance A-" + id,
			ZoneType:           types.ZoneTypeSecurity,
			SecurityLevel:      types.SecurityLevelHigh,
			AccessLevel:        types.AccessLevelRestricted,
			PopulationCapacity: 100,
			CurrentPopulation:  &population,
			InfrastructurePoints: []types.InfrastructurePoint{{
				ID:                 "gate_" + id,
				Name:               "Security Gate",
				Type:               types.InfrastructureGate,
				Coordinates:        types.NewPoint(77.5965, 12.9775),
				Capacity:           &capacity,
				OperationalStatus:  true,
				AccessLevel:        types.AccessLevelRestricted,
				EmergencyPriority:  1,
				SupportedIncidents: []types.IncidentType{types.IncidentSecurity},
			}},
			EntryExitPoints:   []types.EntryExitPoint{},
			LastUpdated:       time.Date(2025, 7, 20, 10, 0, 0, 0, time.UTC),
			OperationalStatus: true,
		},
	}
}

const rawDocument = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {"type": "Polygon", "coordinates": [[[77.596, 12.977], [77.597, 12.977], [77.597, 12.978], [77.596, 12.977]]]},
      "properties": {
        "id": "zone_042",
        "name": "Gate Plaza",
        "zone_type": "stadium",
        "security_level": "medium",
        "access_level": "public",
        "population_capacity": 1200,
        "evacuation_time_minutes": 12,
        "assigned_agents": ["crowdflow-agent"],
        "resource_requirements": {"medical_staff": 3, "bogus": "x"},
        "infrastructure_points": [
          {"id": "kiosk_1", "name": "Kiosk", "type": "kiosk", "coordinates": [77.5965, 12.9775], "resources_available": ["maps"]},
          {"id": "gate_2", "name": "North Gate", "type": "gate", "coordinates": {"type": "Point", "coordinates": [77.5966, 12.9776]},
           "operational_status": false, "emergency_priority": 2, "supported_incidents": ["security", "fire"], "capacity": 40}
        ],
        "entry_exit_points": [
          {"id": "ee_1", "name": "North Entry", "is_entry": true, "is_exit": false, "max_throughput": 300}
        ],
        "last_updated": "2025-07-20T10:00:00Z"
      }
    },
    {"type": "Feature", "properties": {}}
  ],
  "metadata": {"version": "legacy"}
}`

func TestLoad(t *testing.T) {
	t.Run("missing file is a parse error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.geojson"), nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrParse))
		var pe *ParseError
		require.True(t, errors.As(err, &pe))
		assert.Contains(t, pe.Path, "missing.geojson")
	})

	t.Run("malformed json is a parse error", func(t *testing.T) {
		path := writeFile(t, "bad.geojson", `{"type": "FeatureCollection", "features": [`)
		_, err := LoadViews(path, nil, nil)
		assert.ErrorIs(t, err, ErrParse)
	})

	t.Run("repair tolerates trailing commas", func(t *testing.T) {
		path := writeFile(t, "trailing.geojson", `{"type": "FeatureCollection", "features": [],}`)
		_, err := Load(path, nil)
		assert.ErrorIs(t, err, ErrParse)

		doc, err := Load(path, &LoadOptions{Repair: true})
		require.NoError(t, err)
		assert.Equal(t, FeatureCollection, doc.Type)
		assert.Empty(t, doc.Features)
	})

	t.Run("save and load", func(t *testing.T) {
		doc := NewDocument([]types.Feature{validFeature("zone_001")}, types.VenueProfile{CoordinateSystem: "WGS84"})
		path := filepath.Join(t.TempDir(), "venue.geojson")
		require.NoError(t, Save(path, doc))

		loaded, err := Load(path, nil)
		require.NoError(t, err)
		require.Len(t, loaded.Features, 1)
		assert.Equal(t, "zone_001", loaded.Features[0].Properties.ID)
		assert.Equal(t, "WGS84", loaded.CoordinateSystem)
		assert.NoError(t, Validate(loaded))
	})
}

func TestLoadSourceGeometries(t *testing.T) {
	path := writeFile(t, "source.geojson", `{"geometries": [
		{"type": "Polygon", "coordinates": [[[0, 0], [1, 0], [1, 1], [0, 0]]]},
		{"type": "LineString", "coordinates": [[0, 0], [1, 1]]},
		{"type": "Polygon", "coordinates": [[[2, 2], [3, 2], [3, 3], [2, 2]], [[2.1, 2.1], [2.2, 2.1], [2.2, 2.2], [2.1, 2.1]]]}
	]}`)

	polygons, err := LoadSourceGeometries(path)
	require.NoError(t, err)
	require.Len(t, polygons, 2)
	assert.Len(t, polygons[0][0], 4)
	assert.Len(t, polygons[1], 2)

	t.Run("bad coordinates", func(t *testing.T) {
		path := writeFile(t, "bad.geojson", `{"geometries": [{"type": "Polygon", "coordinates": "nope"}]}`)
		_, err := LoadSourceGeometries(path)
		assert.ErrorIs(t, err, ErrParse)
	})
}

func TestValidate(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		doc := NewDocument([]types.Feature{validFeature("zone_001"), validFeature("zone_002")}, types.VenueProfile{})
		assert.NoError(t, Validate(doc))
	})

	t.Run("enum and range violations", func(t *testing.T) {
		f := validFeature("zone_001")
		f.Properties.ZoneType = "stadium"
		f.Properties.InfrastructurePoints[0].EmergencyPriority = 9
		f.Properties.InfrastructurePoints[0].SupportedIncidents = []types.IncidentType{"flood"}
		doc := NewDocument([]types.Feature{f}, types.VenueProfile{})

		err := Validate(doc)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSchemaValidation)

		var sve *SchemaValidationError
		require.True(t, errors.As(err, &sve))
		tags := make(map[string]bool)
		for _, issue := range sve.Issues {
			tags[issue.Tag] = true
		}
		assert.True(t, tags["zone_type"])
		assert.True(t, tags["lte"])
		assert.True(t, tags["incident_type"])
		assert.Contains(t, err.Error(), "zone_type")
	})

	t.Run("open ring", func(t *testing.T) {
		f := validFeature("zone_001")
		f.Geometry.Coordinates[0] = f.Geometry.Coordinates[0][:4]
		err := Validate(NewDocument([]types.Feature{f}, types.VenueProfile{}))
		require.Error(t, err)
		var sve *SchemaValidationError
		require.True(t, errors.As(err, &sve))
		assert.Equal(t, "closed", sve.Issues[0].Tag)
	})

	t.Run("position out of range", func(t *testing.T) {
		f := validFeature("zone_001")
		f.Properties.InfrastructurePoints[0].Coordinates = types.NewPoint(200, 12)
		assert.Error(t, Validate(NewDocument([]types.Feature{f}, types.VenueProfile{})))
	})

	t.Run("duplicate zone ids", func(t *testing.T) {
		doc := NewDocument([]types.Feature{validFeature("zone_001"), validFeature("zone_001")}, types.VenueProfile{})
		err := Validate(doc)
		var sve *SchemaValidationError
		require.True(t, errors.As(err, &sve))
		require.Len(t, sve.Issues, 1)
		assert.Equal(t, "unique", sve.Issues[0].Tag)
		assert.Equal(t, "features[1].properties.id", sve.Issues[0].Field)
	})
}

func TestLoadViews(t *testing.T) {
	t.Run("typed views for a valid document", func(t *testing.T) {
		doc := NewDocument([]types.Feature{validFeature("zone_001")}, types.VenueProfile{})
		path := filepath.Join(t.TempDir(), "venue.geojson")
		require.NoError(t, Save(path, doc))

		coll, err := LoadViews(path, nil, nil)
		require.NoError(t, err)
		assert.True(t, coll.Validated())
		require.Len(t, coll.Views, 1)
		_, typed := coll.Views[0].(*TypedView)
		assert.True(t, typed)
	})

	t.Run("falls back to raw views", func(t *testing.T) {
		path := writeFile(t, "raw.geojson", rawDocument)

		coll, err := LoadViews(path, nil, nil)
		require.NoError(t, err)
		assert.False(t, coll.Validated())
		assert.ErrorIs(t, coll.SchemaErr, ErrSchemaValidation)
		assert.Equal(t, "legacy", coll.Metadata["version"])
		require.Len(t, coll.Views, 2)

		v := coll.Views[0]
		_, raw := v.(*RawView)
		assert.True(t, raw)
		assert.Equal(t, "zone_042", v.ID())
		assert.Equal(t, "stadium", v.ZoneType())
		assert.Equal(t, 1200, v.PopulationCapacity())
		_, ok := v.CurrentPopulation()
		assert.False(t, ok)
		assert.Equal(t, 12, v.EvacuationTimeMinutes())
		assert.Equal(t, []string{"crowdflow-agent"}, v.AssignedAgents())
		assert.Nil(t, v.EmergencyProtocols())
		assert.Equal(t, map[string]int{"medical_staff": 3}, v.ResourceRequirements())
		assert.True(t, v.OperationalStatus())
		assert.Equal(t, "2025-07-20T10:00:00Z", v.LastUpdated())
	})
}

func TestRawViewPoints(t *testing.T) {
	path := writeFile(t, "raw.geojson", rawDocument)
	coll, err := LoadViews(path, nil, nil)
	require.NoError(t, err)

	v := coll.Views[0]

	t.Run("infrastructure", func(t *testing.T) {
		points := v.InfrastructurePoints()
		require.Len(t, points, 2)

		kiosk := points[0]
		assert.Equal(t, []float64{77.5965, 12.9775}, kiosk.Coordinates.Coordinates)
		assert.True(t, kiosk.OperationalStatus)
		assert.Zero(t, kiosk.EmergencyPriority)
		assert.Nil(t, kiosk.Capacity)

		gate := points[1]
		assert.Equal(t, types.GeometryPoint, gate.Coordinates.Type)
		assert.Equal(t, []float64{77.5966, 12.9776}, gate.Coordinates.Coordinates)
		assert.False(t, gate.OperationalStatus)
		assert.Equal(t, 2, gate.EmergencyPriority)
		assert.Equal(t, []types.IncidentType{types.IncidentSecurity, types.IncidentFire}, gate.SupportedIncidents)
		require.NotNil(t, gate.Capacity)
		assert.Equal(t, 40, *gate.Capacity)
	})

	t.Run("entry exit", func(t *testing.T) {
		points := v.EntryExitPoints()
		require.Len(t, points, 1)
		assert.True(t, points[0].IsEntry)
		assert.False(t, points[0].IsExit)
		assert.True(t, points[0].CurrentStatus)
		require.NotNil(t, points[0].MaxThroughput)
		assert.Equal(t, 300, *points[0].MaxThroughput)
	})

	t.Run("geometry", func(t *testing.T) {
		g := v.Geometry()
		assert.Equal(t, types.GeometryPolygon, g.Type)
		require.Len(t, g.Coordinates, 1)
		assert.Len(t, g.Coordinates[0], 4)
	})

	t.Run("empty feature", func(t *testing.T) {
		empty := coll.Views[1]
		assert.Empty(t, empty.ID())
		assert.Empty(t, empty.Geometry().Coordinates)
		assert.Nil(t, empty.InfrastructurePoints())
		assert.NotNil(t, empty.Properties())
	})
}

func TestTypedView(t *testing.T) {
	f := validFeature("zone_007")
	v := NewTypedView(&f)

	assert.Equal(t, "zone_007", v.ID())
	assert.Equal(t, "security", v.ZoneType())
	pop, ok := v.CurrentPopulation()
	assert.True(t, ok)
	assert.Equal(t, 15, pop)
	assert.Equal(t, "2025-07-20T10:00:00Z", v.LastUpdated())

	props := v.Properties()
	assert.Equal(t, "zone_007", props["id"])
	assert.Equal(t, "security", props["zone_type"])
}

const sparseDocument = `{
  "type": "FeatureCollection",
  "features": [{
    "type": "Feature",
    "geometry": {"type": "Polygon", "coordinates": [[[77.596, 12.977], [77.597, 12.977], [77.597, 12.978], [77.596, 12.978], [77.596, 12.977]]]},
    "properties": {
      "id": "zone_003",
      "name": "Checkpoint Area C-3",
      "zone_type": "security",
      "security_level": "high",
      "access_level": "restricted",
      "population_capacity": 200,
      "evacuation_time_minutes": 2,
      "infrastructure_points": [{
        "id": "gate_003", "name": "Security Gate", "type": "gate",
        "coordinates": {"type": "Point", "coordinates": [77.5965, 12.9775]},
        "access_level": "restricted", "emergency_priority": 1
      }],
      "entry_exit_points": [{
        "id": "ee_003", "name": "South Entry",
        "coordinates": {"type": "Point", "coordinates": [77.5961, 12.9771]},
        "access_level": "public"
      }]
    }
  }]
}`

func TestViewDefaults(t *testing.T) {
	path := writeFile(t, "sparse.geojson", sparseDocument)

	coll, err := LoadViews(path, nil, nil)
	require.NoError(t, err)
	require.True(t, coll.Validated(), "schema error: %v", coll.SchemaErr)
	typed := coll.Views[0]

	var raw struct {
		Features []map[string]any `json:"features"`
	}
	require.NoError(t, json.Unmarshal([]byte(sparseDocument), &raw))
	untyped := NewRawView(raw.Features[0])

	for name, v := range map[string]ZoneView{"typed": typed, "raw": untyped} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, v.OperationalStatus())

			_, ok := v.CurrentPopulation()
			assert.False(t, ok)

			points := v.InfrastructurePoints()
			require.Len(t, points, 1)
			assert.True(t, points[0].OperationalStatus)

			exits := v.EntryExitPoints()
			require.Len(t, exits, 1)
			assert.True(t, exits[0].IsEntry)
			assert.True(t, exits[0].IsExit)
			assert.True(t, exits[0].CurrentStatus)
		})
	}

	t.Run("explicit false survives decode", func(t *testing.T) {
		var z types.Zone
		require.NoError(t, json.Unmarshal([]byte(`{"id":"zone_009","operational_status":false}`), &z))
		assert.False(t, z.OperationalStatus)
	})
}
