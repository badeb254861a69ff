package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/zonegraph/pkg/types"
)

func newTestBadger(t *testing.T) *BadgerClient {
	t.Helper()
	client := NewBadgerClient(BadgerConfig{InMemory: true}, nil)
	require.NoError(t, client.Initialize(context.Background()))
	t.Cleanup(func() { _ = client.Close(context.Background()) })
	return client
}

func TestBadgerClientNotInitialized(t *testing.T) {
	ctx := context.Background()
	client := NewBadgerClient(BadgerConfig{InMemory: true}, nil)

	assert.ErrorIs(t, client.AddEpisode(ctx, testEpisode("e1", "zone_001", time.Now())), ErrClientNotInitialized)
	_, err := client.Search(ctx, "gate", 5)
	assert.ErrorIs(t, err, ErrClientNotInitialized)
	assert.ErrorIs(t, client.ClearGraph(ctx, ""), ErrClientNotInitialized)
	assert.NoError(t, client.Close(ctx))
}

func TestBadgerClient(t *testing.T) {
	ctx := context.Background()
	client := newTestBadger(t)

	t1 := time.Date(2025, 7, 20, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	require.NoError(t, client.AddEpisode(ctx, testEpisode("venue_zone_001_1", "zone_001", t1)))
	require.NoError(t, client.AddEpisode(ctx, testEpisode("venue_zone_001_2", "zone_001", t2)))

	second := testEpisode("venue_zone_002_1", "zone_002", t2)
	second.Entities = testEntities("zone_002", "Assembly Plaza B-2")
	second.Entities.Agents[0].ID = "crowdflow-agent"
	require.NoError(t, client.AddEpisode(ctx, second))

	t.Run("invalid episode is rejected", func(t *testing.T) {
		assert.ErrorIs(t, client.AddEpisode(ctx, types.Episode{Content: "x"}), types.ErrEmptyEpisodeID)
	})

	t.Run("search", func(t *testing.T) {
		results, err := client.Search(ctx, "Security Gate", 10)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		for _, r := range results {
			assert.Contains(t, r.Fact, "Security Gate 1")
		}
		assert.True(t, !results[0].ValidAt.Before(*results[len(results)-1].ValidAt), "newest first")
	})

	t.Run("search limit and empty query", func(t *testing.T) {
		results, err := client.Search(ctx, "zone", 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)

		results, err = client.Search(ctx, "   ", 2)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("relationships depth one", func(t *testing.T) {
		rel, err := client.GetEntityRelationships(ctx, "zone_001", 1)
		require.NoError(t, err)
		assert.Equal(t, "zone_001", rel.Entity)
		for _, e := range rel.Relationships {
			assert.True(t, e.Touches("zone_001"), "%s -> %s", e.SourceName, e.TargetName)
		}
		names := nodeNames(rel.Neighbors)
		assert.Contains(t, names, "security-agent")
		assert.Contains(t, names, "gate_001")
		assert.NotContains(t, names, "incident:security")
	})

	t.Run("relationships depth two reach incidents and other zones", func(t *testing.T) {
		rel, err := client.GetEntityRelationships(ctx, "zone_001", 2)
		require.NoError(t, err)
		names := nodeNames(rel.Neighbors)
		assert.Contains(t, names, "incident:security")
		assert.Contains(t, names, "zone_002")
		assert.NotContains(t, names, "zone_001")
	})

	t.Run("relationships validation", func(t *testing.T) {
		_, err := client.GetEntityRelationships(ctx, "zone_001", 0)
		assert.ErrorIs(t, err, types.ErrInvalidDepth)
		_, err = client.GetEntityRelationships(ctx, "zone_001", 6)
		assert.ErrorIs(t, err, types.ErrInvalidDepth)
		_, err = client.GetEntityRelationships(ctx, "zone_999", 1)
		assert.ErrorIs(t, err, ErrEntityNotFound)
	})

	t.Run("timeline", func(t *testing.T) {
		entries, err := client.GetEntityTimeline(ctx, "zone_001", time.Time{}, time.Time{})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "venue_zone_001_1", entries[0].EpisodeID)
		assert.Equal(t, "venue_zone_001_2", entries[1].EpisodeID)
		assert.Equal(t, "zone_001", entries[0].Metadata["zone_id"])

		entries, err = client.GetEntityTimeline(ctx, "security-agent", t1.Add(time.Minute), time.Time{})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "venue_zone_001_2", entries[0].EpisodeID)

		entries, err = client.GetEntityTimeline(ctx, "team:security", t1, t1)
		require.NoError(t, err)
		assert.Len(t, entries, 1)

		_, err = client.GetEntityTimeline(ctx, "nobody", time.Time{}, time.Time{})
		assert.ErrorIs(t, err, ErrEntityNotFound)
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := client.GetStats(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.EpisodeCount)
		assert.Equal(t, int64(2), stats.NodesByType[types.EntityTypeZone])
		assert.Equal(t, int64(2), stats.NodesByType[types.EntityTypeAgent])
		assert.Positive(t, stats.EdgeCount)
	})

	t.Run("clear other group leaves data", func(t *testing.T) {
		require.NoError(t, client.ClearGraph(ctx, "other"))
		stats, err := client.GetStats(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.EpisodeCount)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, client.ClearGraph(ctx, ""))
		stats, err := client.GetStats(ctx, "")
		require.NoError(t, err)
		assert.Zero(t, stats.EpisodeCount)
		assert.Zero(t, stats.NodeCount)
		assert.Zero(t, stats.EdgeCount)
		_, err = client.GetEntityRelationships(ctx, "zone_001", 1)
		assert.ErrorIs(t, err, ErrEntityNotFound)
	})
}

func TestBadgerClientPersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	client := NewBadgerClient(BadgerConfig{Path: dir}, nil)
	require.NoError(t, client.Initialize(ctx))
	require.NoError(t, client.AddEpisode(ctx, testEpisode("e1", "zone_001", time.Now())))
	require.NoError(t, client.Close(ctx))

	reopened := NewBadgerClient(BadgerConfig{Path: dir}, nil)
	require.NoError(t, reopened.Initialize(ctx))
	defer reopened.Close(ctx)
	entries, err := reopened.GetEntityTimeline(ctx, "zone_001", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBadgerKeys(t *testing.T) {
	assert.Equal(t, "node/default/team:security", string(badgerKey(nodePrefix, "default", "team:security")))
	assert.Equal(t, "node/default/north%2Fgate", string(badgerKey(nodePrefix, "default", "north/gate")))
	assert.Equal(t, "ep/g%2F1/", string(groupPrefix(episodePrefix, "g/1")))
}

func nodeNames(nodes []*types.Node) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	return names
}
