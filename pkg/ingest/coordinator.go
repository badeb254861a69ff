package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/soundprediction/zonegraph/pkg/checkpoint"
	"github.com/soundprediction/zonegraph/pkg/driver"
	"github.com/soundprediction/zonegraph/pkg/episode"
	"github.com/soundprediction/zonegraph/pkg/extract"
	"github.com/soundprediction/zonegraph/pkg/types"
)

// DefaultPacing is the pause between successive episodes.
const DefaultPacing = 500 * time.Millisecond

// Graph metadata keys attached to every episode.
const (
	MetaSourceName          = "source_name"
	MetaRunID               = "run_id"
	MetaZoneID              = "zone_id"
	MetaZoneName            = "zone_name"
	MetaZoneType            = "zone_type"
	MetaInfrastructureCount = "infrastructure_count"
	MetaEntryExitCount      = "entry_exit_count"
	MetaOriginalLength      = "original_length"
	MetaProcessedLength     = "processed_length"
)

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Config controls a Coordinator.
type Config struct {
	GroupID          string
	MaxContentLength int
	// Pacing is the pause between episodes. Zero means DefaultPacing,
	// negative disables pacing.
	Pacing time.Duration
}

// Coordinator sequences per-chunk ingestion into the knowledge graph:
// extract, prepare, add, pause. A failed chunk is recorded and the
// remaining chunks are still processed.
type Coordinator struct {
	// Sleep implements pacing. Defaults to a context-aware timer.
	Sleep Sleeper
	// Now stamps episode ids and timestamps. Defaults to time.Now.
	Now func() time.Time

	client      driver.EpisodeWriter
	extractor   *extract.Extractor
	preparer    *episode.Preparer
	checkpoints *checkpoint.CheckpointManager
	groupID     string
	pacing      time.Duration
	logger      *slog.Logger
}

// NewCoordinator creates a coordinator writing to client.
func NewCoordinator(client driver.EpisodeWriter, cfg Config, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	pacing := cfg.Pacing
	if pacing == 0 {
		pacing = DefaultPacing
	}
	groupID := cfg.GroupID
	if groupID == "" {
		groupID = driver.DefaultGroupID
	}
	return &Coordinator{
		Sleep:     sleepContext,
		Now:       time.Now,
		client:    client,
		extractor: extract.NewExtractor(logger),
		preparer:  episode.NewPreparer(cfg.MaxContentLength, logger),
		groupID:   groupID,
		pacing:    pacing,
		logger:    logger,
	}
}

// WithCheckpoints records per-zone progress in m so a run can be resumed.
func (c *Coordinator) WithCheckpoints(m *checkpoint.CheckpointManager) *Coordinator {
	c.checkpoints = m
	return c
}

// Ingest adds one episode per chunk under a fresh run id.
func (c *Coordinator) Ingest(ctx context.Context, chunks []types.GeoChunk, sourceName string, sourceMetadata map[string]any) *types.BatchResult {
	return c.IngestRun(ctx, uuid.New().String(), chunks, sourceName, sourceMetadata)
}

// IngestRun adds one episode per chunk under runID. When checkpoints are
// enabled, zones already ingested by an earlier attempt of the same run are
// skipped.
func (c *Coordinator) IngestRun(ctx context.Context, runID string, chunks []types.GeoChunk, sourceName string, sourceMetadata map[string]any) *types.BatchResult {
	result := &types.BatchResult{
		RunID:       runID,
		TotalChunks: len(chunks),
		Errors:      []string{},
	}
	if len(chunks) == 0 {
		return result
	}

	ctx = context.WithValue(ctx, types.ContextKeyRunID, runID)
	ctx = context.WithValue(ctx, types.ContextKeySourceName, sourceName)

	cp := c.loadCheckpoint(ctx, runID, sourceName, len(chunks))

	c.logger.InfoContext(ctx, "Adding geo chunks to knowledge graph",
		"run_id", runID,
		"source", sourceName,
		"chunks", len(chunks))

	for i := range chunks {
		if err := ctx.Err(); err != nil {
			result.Cancelled = true
			break
		}

		chunk := &chunks[i]
		if cp != nil && cp.IsIngested(chunk.ZoneID) {
			result.Skipped++
			result.EpisodeIDs = append(result.EpisodeIDs, cp.Zones[chunk.ZoneID].EpisodeID)
			c.logger.DebugContext(ctx, "Skipping zone ingested by earlier attempt", "zone_id", chunk.ZoneID)
			continue
		}

		ep := c.buildEpisode(chunk, runID, sourceName, sourceMetadata)
		if err := c.client.AddEpisode(ctx, ep); err != nil {
			msg := fmt.Sprintf("Failed to add geo chunk %s to graph: %v", chunk.ZoneID, err)
			c.logger.ErrorContext(ctx, msg, "zone_id", chunk.ZoneID, "error", err)
			result.Errors = append(result.Errors, msg)
			if cp != nil {
				cp.MarkFailed(chunk.ZoneID, err)
				c.saveCheckpoint(ctx, cp)
			}
			continue
		}

		result.EpisodesCreated++
		result.EpisodeIDs = append(result.EpisodeIDs, ep.ID)
		c.logger.InfoContext(ctx, "Added episode to knowledge graph",
			"episode_id", ep.ID,
			"created", result.EpisodesCreated,
			"total", len(chunks))
		if cp != nil {
			cp.MarkIngested(chunk.ZoneID, ep.ID)
			c.saveCheckpoint(ctx, cp)
		}

		if i < len(chunks)-1 && c.pacing > 0 {
			if err := c.sleep(ctx); err != nil {
				result.Cancelled = true
				break
			}
		}
	}

	if cp != nil && result.Complete() {
		cp.Completed = true
		c.saveCheckpoint(ctx, cp)
	}

	c.logger.InfoContext(ctx, "Geo chunk ingestion complete",
		"run_id", runID,
		"episodes_created", result.EpisodesCreated,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
		"cancelled", result.Cancelled)

	return result
}

func (c *Coordinator) sleep(ctx context.Context) error {
	if c.Sleep == nil {
		return sleepContext(ctx, c.pacing)
	}
	return c.Sleep(ctx, c.pacing)
}

func (c *Coordinator) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// buildEpisode extracts entities if needed and assembles the episode for chunk.
func (c *Coordinator) buildEpisode(chunk *types.GeoChunk, runID, sourceName string, sourceMetadata map[string]any) types.Episode {
	entities := chunk.Entities()
	if entities == nil {
		entities = c.extractor.ExtractInto(chunk)
	}

	content := c.preparer.Prepare(chunk, sourceName)
	now := c.now()

	return types.Episode{
		ID:        EpisodeID(sourceName, chunk.ZoneID, now),
		Name:      chunk.ZoneName,
		Content:   content,
		Source:    fmt.Sprintf("Zone: %s (%s) from %s", chunk.ZoneName, chunk.ZoneID, sourceName),
		Timestamp: now.UTC(),
		GroupID:   c.groupID,
		Metadata:  GraphMetadata(chunk, runID, sourceName, content, sourceMetadata),
		Entities:  entities,
	}
}

// EpisodeID derives an episode id from the source, zone and wall-clock time.
// Ids are not content-addressed: re-ingesting a zone creates a new episode.
func EpisodeID(sourceName, zoneID string, at time.Time) string {
	micros := at.UnixMicro()
	return fmt.Sprintf("%s_%s_%d.%06d", sourceName, zoneID, micros/1e6, micros%1e6)
}

// GraphMetadata assembles the metadata stored with a chunk's episode.
// Caller metadata is copied first and never overrides the zone keys.
func GraphMetadata(chunk *types.GeoChunk, runID, sourceName, content string, sourceMetadata map[string]any) map[string]any {
	meta := make(map[string]any, len(sourceMetadata)+12)
	for k, v := range sourceMetadata {
		meta[k] = v
	}

	agents := chunk.AssignedAgents()
	if agents == nil {
		agents = []string{}
	}

	meta[MetaSourceName] = sourceName
	meta[MetaZoneID] = chunk.ZoneID
	meta[MetaZoneName] = chunk.ZoneName
	meta[MetaZoneType] = chunk.ZoneType
	meta[types.MetaSecurityLevel] = chunk.SecurityLevel()
	meta[types.MetaAssignedAgents] = agents
	meta[MetaInfrastructureCount] = len(chunk.InfrastructurePoints)
	meta[MetaEntryExitCount] = len(chunk.EntryExitPoints)
	meta[MetaOriginalLength] = utf8.RuneCountInString(chunk.Content)
	meta[MetaProcessedLength] = utf8.RuneCountInString(content)
	if runID != "" {
		meta[MetaRunID] = runID
	}
	return meta
}

func (c *Coordinator) loadCheckpoint(ctx context.Context, runID, sourceName string, total int) *checkpoint.RunCheckpoint {
	if c.checkpoints == nil {
		return nil
	}
	cp, found, err := c.checkpoints.LoadOrCreate(ctx, runID, sourceName, c.groupID, total)
	if err != nil {
		c.logger.WarnContext(ctx, "Checkpointing disabled for run", "run_id", runID, "error", err)
		return nil
	}
	if found {
		c.logger.InfoContext(ctx, "Resuming ingestion run", "run_id", runID, "progress", cp.GetProgress())
	}
	return cp
}

func (c *Coordinator) saveCheckpoint(ctx context.Context, cp *checkpoint.RunCheckpoint) {
	if err := c.checkpoints.Save(ctx, cp); err != nil {
		c.logger.WarnContext(ctx, "Failed to save ingestion checkpoint", "run_id", cp.RunID, "error", err)
	}
}
