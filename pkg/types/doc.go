// Package types defines the data model shared by the zonegraph pipeline.
//
// Zone records and their infrastructure and entry/exit points describe a
// venue. A GeoChunk is the per-zone unit built from a venue document, and
// ChunkEntities holds what is extracted from it. An Episode is the unit
// submitted to the knowledge graph, where zone entities become Nodes joined
// by fact-bearing Edges.
//
// # Validation
//
// Zone structs carry `validate` tags consumed by the geojson package. Simple
// identity checks are available as Validate methods:
//
//	ep := &types.Episode{ID: "venue_zone_001_1712345678.000000", Content: "..."}
//	if err := ep.Validate(); err != nil {
//	    // Handle validation error
//	}
package types
