// Package geojson reads and writes venue documents: GeoJSON feature
// collections of zones plus the venue-level blocks.
package geojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	jsonrepair "github.com/kaptinlin/jsonrepair"

	"github.com/soundprediction/zonegraph/pkg/types"
)

// FeatureCollection is the GeoJSON type of a venue document.
const FeatureCollection = "FeatureCollection"

// ErrParse is returned, wrapped in a *ParseError, when a venue file is missing
// or is not valid JSON.
var ErrParse = errors.New("failed to parse venue document")

// ParseError reports a venue file that could not be read or decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrParse.Error(), e.Path, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// Document is a venue document: zone features plus venue-level blocks.
type Document struct {
	Type     string          `json:"type" validate:"eq=FeatureCollection"`
	Features []types.Feature `json:"features" validate:"dive"`
	types.VenueProfile
}

// NewDocument wraps features and a venue profile into a document.
func NewDocument(features []types.Feature, profile types.VenueProfile) *Document {
	if features == nil {
		features = []types.Feature{}
	}
	return &Document{Type: FeatureCollection, Features: features, VenueProfile: profile}
}

// LoadOptions controls how venue files are read.
type LoadOptions struct {
	// Repair runs the input through a JSON repairer before decoding. It
	// tolerates trailing commas, comments and truncated files.
	Repair bool
}

func readJSON(path string, opts *LoadOptions) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if opts != nil && opts.Repair {
		repaired, err := jsonrepair.JSONRepair(string(data))
		if err != nil {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("repair failed: %w", err)}
		}
		data = []byte(repaired)
	}
	if !json.Valid(data) {
		return nil, &ParseError{Path: path, Err: errors.New("invalid JSON")}
	}
	return data, nil
}

// Load decodes a venue document into its typed form without validating it.
func Load(path string, opts *LoadOptions) (*Document, error) {
	data, err := readJSON(path, opts)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &doc, nil
}

// Save writes doc as indented JSON.
func Save(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode venue document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write venue document: %w", err)
	}
	return nil
}

type sourceGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// LoadSourceGeometries reads the polygons of a raw geometry file of the form
// {"geometries": [{"type": "Polygon", "coordinates": [...]}, ...]}.
// Geometries of other types are skipped.
func LoadSourceGeometries(path string) ([][]types.Ring, error) {
	data, err := readJSON(path, nil)
	if err != nil {
		return nil, err
	}
	var src struct {
		Geometries []sourceGeometry `json:"geometries"`
	}
	if err := json.Unmarshal(data, &src); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	polygons := make([][]types.Ring, 0, len(src.Geometries))
	for i, g := range src.Geometries {
		if g.Type != types.GeometryPolygon {
			continue
		}
		var rings []types.Ring
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("geometry %d: %w", i, err)}
		}
		polygons = append(polygons, rings)
	}
	return polygons, nil
}
