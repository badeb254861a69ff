package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/zonegraph/pkg/checkpoint"
	"github.com/soundprediction/zonegraph/pkg/driver"
	"github.com/soundprediction/zonegraph/pkg/geochunk"
	"github.com/soundprediction/zonegraph/pkg/types"
	"github.com/soundprediction/zonegraph/pkg/zone"
)

var errGraphDown = errors.New("graph down")

// fakeClient records episodes and fails the calls listed in failOn (1-based).
type fakeClient struct {
	failOn   map[int]bool
	calls    int
	episodes []types.Episode
	onAdd    func(call int)
}

func (f *fakeClient) AddEpisode(ctx context.Context, episode types.Episode) error {
	f.calls++
	if f.onAdd != nil {
		f.onAdd(f.calls)
	}
	if f.failOn[f.calls] {
		return errGraphDown
	}
	f.episodes = append(f.episodes, episode)
	return nil
}

type sleepRecorder struct {
	calls     int
	durations []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.calls++
	s.durations = append(s.durations, d)
	return ctx.Err()
}

func square(x float64) []types.Ring {
	const side = 0.001
	return []types.Ring{{{x, 0}, {x + side, 0}, {x + side, side}, {x, side}, {x, 0}}}
}

func testChunks(t *testing.T, n int) []types.GeoChunk {
	t.Helper()
	gen, err := zone.NewGenerator(nil)
	require.NoError(t, err)

	polygons := make([][]types.Ring, n)
	for i := range polygons {
		polygons[i] = square(float64(i) * 0.01)
	}
	doc, err := gen.GenerateDocument(polygons)
	require.NoError(t, err)
	return geochunk.NewBuilder(nil).BuildDocument(doc)
}

func newTestCoordinator(client driver.EpisodeWriter, sleeper *sleepRecorder) *Coordinator {
	c := NewCoordinator(client, Config{}, nil)
	c.Sleep = sleeper.sleep
	base := time.Date(2025, 7, 20, 10, 0, 0, 0, time.UTC)
	tick := 0
	c.Now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return c
}

func TestIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("all chunks succeed", func(t *testing.T) {
		client := &fakeClient{}
		sleeper := &sleepRecorder{}
		c := newTestCoordinator(client, sleeper)

		result := c.Ingest(ctx, testChunks(t, 3), "venue_zones", nil)
		assert.Equal(t, 3, result.EpisodesCreated)
		assert.Equal(t, 3, result.TotalChunks)
		assert.Empty(t, result.Errors)
		assert.True(t, result.Complete())
		assert.NotEmpty(t, result.RunID)
		assert.Len(t, result.EpisodeIDs, 3)

		assert.Equal(t, 2, sleeper.calls, "no pause after the last episode")
		for _, d := range sleeper.durations {
			assert.Equal(t, DefaultPacing, d)
		}
	})

	t.Run("failed chunk is recorded and the rest continue", func(t *testing.T) {
		client := &fakeClient{failOn: map[int]bool{2: true}}
		sleeper := &sleepRecorder{}
		c := newTestCoordinator(client, sleeper)
		chunks := testChunks(t, 3)

		result := c.Ingest(ctx, chunks, "venue_zones", nil)
		assert.Equal(t, 2, result.EpisodesCreated)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, fmt.Sprintf("Failed to add geo chunk %s to graph: graph down", chunks[1].ZoneID), result.Errors[0])
		assert.Equal(t, 3, client.calls, "third chunk still processed")
		assert.Equal(t, chunks[2].ZoneID, client.episodes[1].Metadata[MetaZoneID])
		assert.False(t, result.Complete())
		assert.Equal(t, 1, result.Failed())
	})

	t.Run("empty input", func(t *testing.T) {
		client := &fakeClient{}
		result := newTestCoordinator(client, &sleepRecorder{}).Ingest(ctx, nil, "venue_zones", nil)
		assert.Zero(t, result.TotalChunks)
		assert.NotNil(t, result.Errors)
		assert.Zero(t, client.calls)
	})

	t.Run("negative pacing disables pauses", func(t *testing.T) {
		sleeper := &sleepRecorder{}
		c := NewCoordinator(&fakeClient{}, Config{Pacing: -1}, nil)
		c.Sleep = sleeper.sleep
		result := c.Ingest(ctx, testChunks(t, 2), "venue_zones", nil)
		assert.Equal(t, 2, result.EpisodesCreated)
		assert.Zero(t, sleeper.calls)
	})
}

func TestIngestCancellation(t *testing.T) {
	t.Run("cancel between chunks", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		client := &fakeClient{onAdd: func(call int) {
			if call == 1 {
				cancel()
			}
		}}
		c := newTestCoordinator(client, &sleepRecorder{})

		result := c.Ingest(ctx, testChunks(t, 3), "venue_zones", nil)
		assert.True(t, result.Cancelled)
		assert.Equal(t, 1, result.EpisodesCreated)
		assert.Equal(t, 1, client.calls)
		assert.False(t, result.Complete())
	})

	t.Run("already cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		client := &fakeClient{}
		result := newTestCoordinator(client, &sleepRecorder{}).Ingest(ctx, testChunks(t, 2), "venue_zones", nil)
		assert.True(t, result.Cancelled)
		assert.Zero(t, client.calls)
	})
}

func TestEpisodeContents(t *testing.T) {
	client := &fakeClient{}
	c := newTestCoordinator(client, &sleepRecorder{})
	c.groupID = "venue"
	chunks := testChunks(t, 1)
	chunk := chunks[0]

	c.Ingest(context.Background(), chunks, "venue_zones", map[string]any{
		"version":  "1.0",
		MetaZoneID: "overridden",
	})
	require.Len(t, client.episodes, 1)
	ep := client.episodes[0]

	t.Run("id and source", func(t *testing.T) {
		assert.Equal(t, "venue_zones_"+chunk.ZoneID+"_1753005601.000000", ep.ID)
		assert.Equal(t, fmt.Sprintf("Zone: %s (%s) from venue_zones", chunk.ZoneName, chunk.ZoneID), ep.Source)
		assert.Equal(t, chunk.ZoneName, ep.Name)
		assert.Equal(t, "venue", ep.GroupID)
		assert.Equal(t, time.UTC, ep.Timestamp.Location())
	})

	t.Run("content carries source prefix", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(ep.Content, "[Source: venue_zones]\n\n"))
	})

	t.Run("metadata", func(t *testing.T) {
		assert.Equal(t, "1.0", ep.Metadata["version"])
		assert.Equal(t, chunk.ZoneID, ep.Metadata[MetaZoneID])
		assert.Equal(t, "venue_zones", ep.Metadata[MetaSourceName])
		assert.Equal(t, chunk.ZoneType, ep.Metadata[MetaZoneType])
		assert.Equal(t, chunk.SecurityLevel(), ep.Metadata[types.MetaSecurityLevel])
		assert.Equal(t, len(chunk.InfrastructurePoints), ep.Metadata[MetaInfrastructureCount])
		assert.Equal(t, len(chunk.EntryExitPoints), ep.Metadata[MetaEntryExitCount])
		assert.Equal(t, utf8.RuneCountInString(chunk.Content), ep.Metadata[MetaOriginalLength])
		assert.Equal(t, utf8.RuneCountInString(ep.Content), ep.Metadata[MetaProcessedLength])
		assert.NotEmpty(t, ep.Metadata[MetaRunID])
	})

	t.Run("entities extracted into chunk", func(t *testing.T) {
		require.NotNil(t, ep.Entities)
		assert.Same(t, ep.Entities, chunks[0].Entities())
		assert.Equal(t, chunk.ZoneID, ep.Entities.LocationInfo.ZoneID)
	})
}

func TestEpisodeID(t *testing.T) {
	at := time.Date(2025, 7, 20, 10, 0, 0, 123456000, time.UTC)
	assert.Equal(t, "venue_zone_001_1753005600.123456", EpisodeID("venue", "zone_001", at))
}

func TestGraphMetadataDefaults(t *testing.T) {
	chunk := &types.GeoChunk{ZoneID: "zone_009", Content: "héllo"}
	meta := GraphMetadata(chunk, "", "src", "héllo", nil)
	assert.Equal(t, []string{}, meta[types.MetaAssignedAgents])
	assert.Equal(t, "", meta[types.MetaSecurityLevel])
	assert.Equal(t, 5, meta[MetaOriginalLength])
	assert.NotContains(t, meta, MetaRunID)
}

func TestIngestResume(t *testing.T) {
	ctx := context.Background()
	manager, err := checkpoint.NewCheckpointManager(t.TempDir())
	require.NoError(t, err)
	chunks := testChunks(t, 3)

	first := &fakeClient{failOn: map[int]bool{2: true}}
	c := newTestCoordinator(first, &sleepRecorder{}).WithCheckpoints(manager)
	result := c.IngestRun(ctx, "run-1", chunks, "venue_zones", nil)
	assert.Equal(t, 2, result.EpisodesCreated)

	cp, err := manager.Load(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.False(t, cp.Completed)
	assert.Equal(t, checkpoint.ZoneFailed, cp.Zones[chunks[1].ZoneID].Status)

	second := &fakeClient{}
	c = newTestCoordinator(second, &sleepRecorder{}).WithCheckpoints(manager)
	result = c.IngestRun(ctx, "run-1", chunks, "venue_zones", nil)
	assert.Equal(t, 1, result.EpisodesCreated)
	assert.Equal(t, 2, result.Skipped)
	assert.True(t, result.Complete())
	require.Len(t, second.episodes, 1)
	assert.Equal(t, chunks[1].ZoneID, second.episodes[0].Metadata[MetaZoneID])
	assert.Len(t, result.EpisodeIDs, 3)

	cp, err = manager.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, cp.Completed)
	ingested, failed := cp.Counts()
	assert.Equal(t, 3, ingested)
	assert.Zero(t, failed)
}

func TestIngestWithBadger(t *testing.T) {
	ctx := context.Background()
	client := driver.NewBadgerClient(driver.BadgerConfig{InMemory: true}, nil)
	require.NoError(t, client.Initialize(ctx))
	defer client.Close(ctx)

	chunks := testChunks(t, 2)
	c := newTestCoordinator(client, &sleepRecorder{})
	result := c.Ingest(ctx, chunks, "venue_zones", nil)
	require.Empty(t, result.Errors)

	entries, err := client.GetEntityTimeline(ctx, chunks[0].ZoneID, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, result.EpisodeIDs[0], entries[0].EpisodeID)
}
