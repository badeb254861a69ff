package checkpoint

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// NewRunCheckpoint creates an empty checkpoint for an ingestion run
func NewRunCheckpoint(runID, sourceName, groupID string, totalChunks int) *RunCheckpoint {
	now := time.Now()
	return &RunCheckpoint{
		RunID:         runID,
		SourceName:    sourceName,
		GroupID:       groupID,
		CreatedAt:     now,
		LastUpdatedAt: now,
		TotalChunks:   totalChunks,
		Zones:         make(map[string]*ZoneProgress),
	}
}

func (c *RunCheckpoint) zone(zoneID string) *ZoneProgress {
	if c.Zones == nil {
		c.Zones = make(map[string]*ZoneProgress)
	}
	p, ok := c.Zones[zoneID]
	if !ok {
		p = &ZoneProgress{Status: ZonePending}
		c.Zones[zoneID] = p
	}
	return p
}

// MarkIngested records that a zone's episode reached the graph
func (c *RunCheckpoint) MarkIngested(zoneID, episodeID string) {
	p := c.zone(zoneID)
	p.Status = ZoneIngested
	p.EpisodeID = episodeID
	p.Attempts++
	p.LastError = ""
	p.UpdatedAt = time.Now()
}

// MarkFailed records a failed ingestion attempt for a zone
func (c *RunCheckpoint) MarkFailed(zoneID string, err error) {
	p := c.zone(zoneID)
	p.Status = ZoneFailed
	p.Attempts++
	if err != nil {
		p.LastError = err.Error()
	}
	p.UpdatedAt = time.Now()
}

// IsIngested reports whether the zone was already ingested in this run
func (c *RunCheckpoint) IsIngested(zoneID string) bool {
	p, ok := c.Zones[zoneID]
	return ok && p.Status == ZoneIngested
}

// IngestedEpisodeIDs returns the episode ids recorded so far, ordered by zone id
func (c *RunCheckpoint) IngestedEpisodeIDs() []string {
	zoneIDs := make([]string, 0, len(c.Zones))
	for id, p := range c.Zones {
		if p.Status == ZoneIngested {
			zoneIDs = append(zoneIDs, id)
		}
	}
	sort.Strings(zoneIDs)

	ids := make([]string, len(zoneIDs))
	for i, id := range zoneIDs {
		ids[i] = c.Zones[id].EpisodeID
	}
	return ids
}

// Counts returns the number of ingested and failed zones
func (c *RunCheckpoint) Counts() (ingested, failed int) {
	for _, p := range c.Zones {
		switch p.Status {
		case ZoneIngested:
			ingested++
		case ZoneFailed:
			failed++
		}
	}
	return ingested, failed
}

// GetProgress returns a human-readable progress description
func (c *RunCheckpoint) GetProgress() string {
	ingested, _ := c.Counts()
	if c.TotalChunks == 0 {
		return "0% (0/0)"
	}
	percentage := float64(ingested) / float64(c.TotalChunks) * 100
	return fmt.Sprintf("%.0f%% (%d/%d)", percentage, ingested, c.TotalChunks)
}

// Summary provides a human-readable summary of the checkpoint
func (c *RunCheckpoint) Summary() string {
	ingested, failed := c.Counts()
	summary := fmt.Sprintf("Run: %s\n", c.RunID)
	summary += fmt.Sprintf("Source: %s\n", c.SourceName)
	summary += fmt.Sprintf("Progress: %s\n", c.GetProgress())
	summary += fmt.Sprintf("Created: %s\n", c.CreatedAt.Format(time.RFC3339))
	summary += fmt.Sprintf("Last Updated: %s\n", c.LastUpdatedAt.Format(time.RFC3339))
	summary += fmt.Sprintf("Ingested: %d\n", ingested)
	if failed > 0 {
		summary += fmt.Sprintf("Failed: %d\n", failed)
	}
	if c.Completed {
		summary += "Completed: true\n"
	}
	return summary
}

// LoadOrCreate loads an existing checkpoint or creates a new one. The
// boolean reports whether an existing checkpoint was found.
func (m *CheckpointManager) LoadOrCreate(ctx context.Context, runID, sourceName, groupID string, totalChunks int) (*RunCheckpoint, bool, error) {
	existing, err := m.Load(ctx, runID)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		if totalChunks > existing.TotalChunks {
			existing.TotalChunks = totalChunks
		}
		return existing, true, nil
	}

	checkpoint := NewRunCheckpoint(runID, sourceName, groupID, totalChunks)
	if err := m.Save(ctx, checkpoint); err != nil {
		return nil, false, err
	}

	return checkpoint, false, nil
}

// FindStalled returns incomplete checkpoints that haven't been updated recently
func (m *CheckpointManager) FindStalled(ctx context.Context, stalledDuration time.Duration) ([]*RunCheckpoint, error) {
	checkpoints, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-stalledDuration)
	var stalled []*RunCheckpoint
	for _, checkpoint := range checkpoints {
		if !checkpoint.Completed && checkpoint.LastUpdatedAt.Before(cutoff) {
			stalled = append(stalled, checkpoint)
		}
	}

	return stalled, nil
}

// CheckpointStatistics summarizes the runs in a checkpoint directory
type CheckpointStatistics struct {
	Total         int
	Completed     int
	InProgress    int
	Stalled       int
	ZonesIngested int
	ZonesFailed   int
}

// GetStatistics returns statistics about checkpoints
func (m *CheckpointManager) GetStatistics(ctx context.Context, stalledDuration time.Duration) (*CheckpointStatistics, error) {
	checkpoints, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &CheckpointStatistics{Total: len(checkpoints)}
	cutoff := time.Now().Add(-stalledDuration)

	for _, checkpoint := range checkpoints {
		ingested, failed := checkpoint.Counts()
		stats.ZonesIngested += ingested
		stats.ZonesFailed += failed

		if checkpoint.Completed {
			stats.Completed++
		} else if checkpoint.LastUpdatedAt.Before(cutoff) {
			stats.Stalled++
		} else {
			stats.InProgress++
		}
	}

	return stats, nil
}
