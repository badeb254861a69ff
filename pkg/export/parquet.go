// Package export writes episodes and their projected entities and edges to
// Parquet files for offline analysis.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/soundprediction/zonegraph/pkg/driver"
	"github.com/soundprediction/zonegraph/pkg/types"
)

// Subdirectories of an export directory.
const (
	EpisodesDir    = "episodes"
	EntityNodesDir = "entity_nodes"
	EntityEdgesDir = "entity_edges"
)

// ParquetGraphWriter handles writing episodes, nodes and edges to Parquet files
type ParquetGraphWriter struct {
	baseDir string
}

// NewParquetGraphWriter creates a new Parquet writer
// baseDir should be the directory where parquet files will be stored
func NewParquetGraphWriter(baseDir string) (*ParquetGraphWriter, error) {
	for _, d := range []string{EpisodesDir, EntityNodesDir, EntityEdgesDir} {
		if err := os.MkdirAll(filepath.Join(baseDir, d), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}

	return &ParquetGraphWriter{baseDir: baseDir}, nil
}

// BaseDir returns the export root.
func (w *ParquetGraphWriter) BaseDir() string {
	return w.baseDir
}

// ParquetEpisode represents the schema for an episode in Parquet
type ParquetEpisode struct {
	ID        string    `parquet:"id"`
	Name      string    `parquet:"name"`
	Content   string    `parquet:"content"`
	Source    string    `parquet:"source"`
	GroupID   string    `parquet:"group_id"`
	ZoneID    string    `parquet:"zone_id"`
	Timestamp time.Time `parquet:"timestamp"`
	Metadata  string    `parquet:"metadata"` // JSON string
	Entities  string    `parquet:"entities"` // JSON string
}

// ParquetEntityNode represents the schema for an entity node in Parquet
type ParquetEntityNode struct {
	ID         string    `parquet:"id"`
	Name       string    `parquet:"name"`
	EntityType string    `parquet:"entity_type"`
	GroupID    string    `parquet:"group_id"`
	Summary    string    `parquet:"summary"`
	CreatedAt  time.Time `parquet:"created_at"`
	Attributes string    `parquet:"attributes"` // JSON string
	EpisodeID  string    `parquet:"episode_id"`
}

// ParquetEntityEdge represents the schema for an entity edge in Parquet
type ParquetEntityEdge struct {
	ID         string     `parquet:"id"`
	SourceName string     `parquet:"source_name"`
	TargetName string     `parquet:"target_name"`
	EdgeType   string     `parquet:"edge_type"`
	Fact       string     `parquet:"fact"`
	GroupID    string     `parquet:"group_id"`
	ValidAt    time.Time  `parquet:"valid_at"`
	InvalidAt  *time.Time `parquet:"invalid_at"`
	EpisodeID  string     `parquet:"episode_id"`
}

// AddEpisode writes the episode and its projection. It lets the writer stand
// in for a graph client during an offline ingestion run.
func (w *ParquetGraphWriter) AddEpisode(ctx context.Context, episode types.Episode) error {
	if err := episode.Validate(); err != nil {
		return err
	}
	groupID := episode.GroupID
	if groupID == "" {
		groupID = driver.DefaultGroupID
	}

	if err := w.WriteEpisode(ctx, episode); err != nil {
		return err
	}
	proj := driver.Project(episode, groupID)
	if err := w.WriteEntityNodes(ctx, proj.Entities, episode.ID); err != nil {
		return err
	}
	return w.WriteEntityEdges(ctx, proj.Edges, episode.ID)
}

// WriteEpisode writes an episode to Parquet
func (w *ParquetGraphWriter) WriteEpisode(ctx context.Context, episode types.Episode) error {
	metadataJSON, err := json.Marshal(episode.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	entitiesJSON, err := json.Marshal(episode.Entities)
	if err != nil {
		return fmt.Errorf("failed to marshal entities: %w", err)
	}

	groupID := episode.GroupID
	if groupID == "" {
		groupID = driver.DefaultGroupID
	}
	zoneID, _ := episode.Metadata["zone_id"].(string)

	pe := ParquetEpisode{
		ID:        episode.ID,
		Name:      episode.Name,
		Content:   episode.Content,
		Source:    episode.Source,
		GroupID:   groupID,
		ZoneID:    zoneID,
		Timestamp: episode.Timestamp.UTC(),
		Metadata:  string(metadataJSON),
		Entities:  string(entitiesJSON),
	}

	path := filepath.Join(w.baseDir, EpisodesDir, fmt.Sprintf("episode_%s.parquet", fileSafe(episode.ID)))
	if err := parquet.WriteFile(path, []ParquetEpisode{pe}); err != nil {
		return fmt.Errorf("failed to write episode %s: %w", episode.ID, err)
	}
	return nil
}

// WriteEntityNodes writes entity nodes to Parquet
func (w *ParquetGraphWriter) WriteEntityNodes(ctx context.Context, nodes []*types.Node, episodeID string) error {
	if len(nodes) == 0 {
		return nil
	}

	rows := make([]ParquetEntityNode, 0, len(nodes))
	for _, node := range nodes {
		attrsJSON, err := json.Marshal(node.Attributes)
		if err != nil {
			return fmt.Errorf("failed to marshal attributes: %w", err)
		}
		rows = append(rows, ParquetEntityNode{
			ID:         node.Uuid,
			Name:       node.Name,
			EntityType: node.EntityType,
			GroupID:    node.GroupID,
			Summary:    node.Summary,
			CreatedAt:  node.CreatedAt.UTC(),
			Attributes: string(attrsJSON),
			EpisodeID:  episodeID,
		})
	}

	path := filepath.Join(w.baseDir, EntityNodesDir, fmt.Sprintf("entity_nodes_%s.parquet", fileSafe(episodeID)))
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("failed to write entity nodes for %s: %w", episodeID, err)
	}
	return nil
}

// WriteEntityEdges writes entity edges to Parquet
func (w *ParquetGraphWriter) WriteEntityEdges(ctx context.Context, edges []*types.Edge, episodeID string) error {
	if len(edges) == 0 {
		return nil
	}

	rows := make([]ParquetEntityEdge, 0, len(edges))
	for _, edge := range edges {
		rows = append(rows, ParquetEntityEdge{
			ID:         edge.Uuid,
			SourceName: edge.SourceName,
			TargetName: edge.TargetName,
			EdgeType:   string(edge.Type),
			Fact:       edge.Fact,
			GroupID:    edge.GroupID,
			ValidAt:    edge.ValidAt.UTC(),
			InvalidAt:  edge.InvalidAt,
			EpisodeID:  episodeID,
		})
	}

	path := filepath.Join(w.baseDir, EntityEdgesDir, fmt.Sprintf("entity_edges_%s.parquet", fileSafe(episodeID)))
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("failed to write entity edges for %s: %w", episodeID, err)
	}
	return nil
}

// ReadEpisodes loads every exported episode, ordered by timestamp then id.
func ReadEpisodes(baseDir string) ([]ParquetEpisode, error) {
	episodes, err := readAll[ParquetEpisode](filepath.Join(baseDir, EpisodesDir))
	if err != nil {
		return nil, err
	}
	sort.Slice(episodes, func(i, j int) bool {
		if !episodes[i].Timestamp.Equal(episodes[j].Timestamp) {
			return episodes[i].Timestamp.Before(episodes[j].Timestamp)
		}
		return episodes[i].ID < episodes[j].ID
	})
	return episodes, nil
}

// ReadEntityNodes loads every exported entity node row.
func ReadEntityNodes(baseDir string) ([]ParquetEntityNode, error) {
	return readAll[ParquetEntityNode](filepath.Join(baseDir, EntityNodesDir))
}

// ReadEntityEdges loads every exported edge row.
func ReadEntityEdges(baseDir string) ([]ParquetEntityEdge, error) {
	return readAll[ParquetEntityEdge](filepath.Join(baseDir, EntityEdgesDir))
}

func readAll[T any](dir string) ([]T, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var out []T
	for _, f := range files {
		rows, err := parquet.ReadFile[T](f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
		out = append(out, rows...)
	}
	return out, nil
}

// fileSafe replaces characters that cannot appear in file names.
func fileSafe(id string) string {
	out := []rune(id)
	for i, r := range out {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			out[i] = '_'
		}
	}
	return string(out)
}
