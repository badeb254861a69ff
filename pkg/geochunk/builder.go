// Package geochunk turns zone features into GeoChunks: one text rendering
// plus structured data per zone.
package geochunk

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/soundprediction/zonegraph/pkg/geojson"
	"github.com/soundprediction/zonegraph/pkg/types"
)

// Builder creates GeoChunks from zone views.
type Builder struct {
	// Now stamps creation_date. Defaults to time.Now.
	Now func() time.Time

	logger *slog.Logger
}

// NewBuilder creates a chunk builder.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{Now: time.Now, logger: logger}
}

// Build returns exactly one chunk per view, in input order.
func (b *Builder) Build(views []types.ZoneView) []types.GeoChunk {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	chunks := make([]types.GeoChunk, 0, len(views))
	for index, view := range views {
		chunks = append(chunks, buildChunk(index, view, now()))
	}
	logger.Info("Created geo chunks", "count", len(chunks))
	return chunks
}

// BuildDocument builds chunks for every feature of a typed document.
func (b *Builder) BuildDocument(doc *geojson.Document) []types.GeoChunk {
	return b.Build(doc.Views())
}

// BuildCollection builds chunks for a loaded collection, typed or raw.
func (b *Builder) BuildCollection(coll *geojson.Collection) []types.GeoChunk {
	return b.Build(coll.Views)
}

func buildChunk(index int, view types.ZoneView, created time.Time) types.GeoChunk {
	agents := view.AssignedAgents()
	if agents == nil {
		agents = []string{}
	}
	teams := view.ResponseTeamCoverage()
	if teams == nil {
		teams = []string{}
	}
	return types.GeoChunk{
		ZoneID:               orDefault(view.ID(), fmt.Sprintf("zone_%d", index)),
		ZoneName:             orDefault(view.Name(), fmt.Sprintf("Zone %d", index)),
		ZoneType:             orDefault(view.ZoneType(), "unknown"),
		Content:              Render(view),
		Geometry:             view.Geometry(),
		Properties:           view.Properties(),
		InfrastructurePoints: view.InfrastructurePoints(),
		EntryExitPoints:      view.EntryExitPoints(),
		Metadata: map[string]any{
			types.MetaIndex:                index,
			types.MetaSecurityLevel:        view.SecurityLevel(),
			types.MetaAccessLevel:          view.AccessLevel(),
			types.MetaAssignedAgents:       agents,
			types.MetaResponseTeamCoverage: teams,
			types.MetaCreationDate:         created.Format(time.RFC3339),
		},
		Index: index,
		View:  view,
	}
}
