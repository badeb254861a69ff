package export

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/zonegraph/pkg/types"
)

func testEpisode(id, zoneID string, ts time.Time) types.Episode {
	return types.Episode{
		ID:        id,
		Name:      "Checkpoint Area A-1",
		Content:   "=== ZONE: Checkpoint Area A-1 (" + zoneID + ") ===",
		Source:    "Zone: Checkpoint Area A-1 (" + zoneID + ") from venue_zones",
		Timestamp: ts,
		Metadata:  map[string]any{"zone_id": zoneID},
		Entities: &types.ChunkEntities{
			Agents:        []types.AgentEntity{{ID: "security-agent", Type: types.AgentTypeSecurity, ZoneAssignment: zoneID}},
			ResponseTeams: []string{"security"},
			LocationInfo:  types.LocationInfo{ZoneID: zoneID, ZoneName: "Checkpoint Area A-1"},
		},
	}
}

func TestParquetGraphWriter(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	w, err := NewParquetGraphWriter(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, w.BaseDir())

	t1 := time.Date(2025, 7, 20, 10, 0, 0, 0, time.UTC)
	require.NoError(t, w.AddEpisode(ctx, testEpisode("venue_zones_zone_002_2.000000", "zone_002", t1.Add(time.Minute))))
	require.NoError(t, w.AddEpisode(ctx, testEpisode("venue_zones_zone_001_1.000000", "zone_001", t1)))

	t.Run("episodes", func(t *testing.T) {
		episodes, err := ReadEpisodes(dir)
		require.NoError(t, err)
		require.Len(t, episodes, 2)
		assert.Equal(t, "venue_zones_zone_001_1.000000", episodes[0].ID, "ordered by timestamp")
		assert.Equal(t, "zone_001", episodes[0].ZoneID)
		assert.Equal(t, "default", episodes[0].GroupID)
		assert.True(t, t1.Equal(episodes[0].Timestamp))

		var entities types.ChunkEntities
		require.NoError(t, json.Unmarshal([]byte(episodes[0].Entities), &entities))
		assert.Equal(t, "security-agent", entities.Agents[0].ID)
	})

	t.Run("entity nodes", func(t *testing.T) {
		nodes, err := ReadEntityNodes(dir)
		require.NoError(t, err)
		// zone, agent and team per episode
		assert.Len(t, nodes, 6)
		byType := make(map[string]int)
		for _, n := range nodes {
			byType[n.EntityType]++
		}
		assert.Equal(t, 2, byType[types.EntityTypeZone])
		assert.Equal(t, 2, byType[types.EntityTypeAgent])
		assert.Equal(t, 2, byType[types.EntityTypeResponseTeam])
	})

	t.Run("entity edges", func(t *testing.T) {
		edges, err := ReadEntityEdges(dir)
		require.NoError(t, err)
		assert.Len(t, edges, 4)
		for _, e := range edges {
			assert.NotEmpty(t, e.Fact)
			assert.Nil(t, e.InvalidAt)
		}
	})

	t.Run("invalid episode", func(t *testing.T) {
		err := w.AddEpisode(ctx, types.Episode{ID: "x"})
		assert.ErrorIs(t, err, types.ErrEmptyContent)
	})

	t.Run("episode without entities", func(t *testing.T) {
		other := t.TempDir()
		w2, err := NewParquetGraphWriter(other)
		require.NoError(t, err)
		ep := testEpisode("bare", "zone_009", t1)
		ep.Entities = nil
		require.NoError(t, w2.AddEpisode(ctx, ep))

		nodes, err := ReadEntityNodes(other)
		require.NoError(t, err)
		assert.Empty(t, nodes)
	})
}

func TestFileSafe(t *testing.T) {
	assert.Equal(t, "team_security", fileSafe("team:security"))
	assert.Equal(t, "a_b_c", fileSafe("a/b\\c"))
	assert.Equal(t, "venue_zone_001_1.5", fileSafe("venue_zone_001_1.5"))
}
