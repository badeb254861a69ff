package geojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/soundprediction/zonegraph/pkg/types"
)

// ZoneView is the uniform accessor over typed and raw zone features.
type ZoneView = types.ZoneView

// TypedView adapts a decoded, validated feature.
type TypedView struct {
	feature *types.Feature
}

var _ ZoneView = (*TypedView)(nil)

// NewTypedView wraps a typed feature.
func NewTypedView(feature *types.Feature) *TypedView {
	return &TypedView{feature: feature}
}

func (v *TypedView) ID() string            { return v.feature.Properties.ID }
func (v *TypedView) Name() string          { return v.feature.Properties.Name }
func (v *TypedView) ZoneType() string      { return string(v.feature.Properties.ZoneType) }
func (v *TypedView) SecurityLevel() string { return string(v.feature.Properties.SecurityLevel) }
func (v *TypedView) AccessLevel() string   { return string(v.feature.Properties.AccessLevel) }
func (v *TypedView) PopulationCapacity() int {
	return v.feature.Properties.PopulationCapacity
}
func (v *TypedView) CurrentPopulation() (int, bool) {
	if v.feature.Properties.CurrentPopulation == nil {
		return 0, false
	}
	return *v.feature.Properties.CurrentPopulation, true
}
func (v *TypedView) EvacuationTimeMinutes() int {
	return v.feature.Properties.EvacuationTimeMinutes
}
func (v *TypedView) EmergencyProtocols() []string   { return v.feature.Properties.EmergencyProtocols }
func (v *TypedView) ResponseTeamCoverage() []string { return v.feature.Properties.ResponseTeamCoverage }
func (v *TypedView) AssignedAgents() []string       { return v.feature.Properties.AssignedAgents }
func (v *TypedView) CommunicationChannels() []string {
	return v.feature.Properties.CommunicationChannels
}
func (v *TypedView) ResourceRequirements() map[string]int {
	return v.feature.Properties.ResourceRequirements
}
func (v *TypedView) InfrastructurePoints() []types.InfrastructurePoint {
	return v.feature.Properties.InfrastructurePoints
}
func (v *TypedView) EntryExitPoints() []types.EntryExitPoint {
	return v.feature.Properties.EntryExitPoints
}
func (v *TypedView) OperationalStatus() bool {
	return v.feature.Properties.OperationalStatus
}
func (v *TypedView) Geometry() types.Geometry {
	return v.feature.Geometry
}

func (v *TypedView) LastUpdated() string {
	if v.feature.Properties.LastUpdated.IsZero() {
		return ""
	}
	return v.feature.Properties.LastUpdated.Format(time.RFC3339)
}

func (v *TypedView) Properties() map[string]any {
	data, err := json.Marshal(v.feature.Properties)
	if err != nil {
		return map[string]any{}
	}
	props := make(map[string]any)
	if err := json.Unmarshal(data, &props); err != nil {
		return map[string]any{}
	}
	return props
}

// RawView adapts an undecoded feature mapping. Values of the wrong shape are
// treated as absent.
type RawView struct {
	feature map[string]any
	props   map[string]any
}

var _ ZoneView = (*RawView)(nil)

// NewRawView wraps a feature decoded as a generic JSON object.
func NewRawView(feature map[string]any) *RawView {
	props, _ := feature["properties"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	return &RawView{feature: feature, props: props}
}

func (v *RawView) ID() string            { return asString(v.props["id"]) }
func (v *RawView) Name() string          { return asString(v.props["name"]) }
func (v *RawView) ZoneType() string      { return asString(v.props["zone_type"]) }
func (v *RawView) SecurityLevel() string { return asString(v.props["security_level"]) }
func (v *RawView) AccessLevel() string   { return asString(v.props["access_level"]) }
func (v *RawView) LastUpdated() string   { return asString(v.props["last_updated"]) }

func (v *RawView) PopulationCapacity() int {
	n, _ := asInt(v.props["population_capacity"])
	return n
}

func (v *RawView) CurrentPopulation() (int, bool) {
	return asInt(v.props["current_population"])
}

func (v *RawView) EvacuationTimeMinutes() int {
	n, _ := asInt(v.props["evacuation_time_minutes"])
	return n
}

func (v *RawView) EmergencyProtocols() []string {
	return asStrings(v.props["emergency_protocols"])
}
func (v *RawView) ResponseTeamCoverage() []string {
	return asStrings(v.props["response_team_coverage"])
}
func (v *RawView) AssignedAgents() []string {
	return asStrings(v.props["assigned_agents"])
}
func (v *RawView) CommunicationChannels() []string {
	return asStrings(v.props["communication_channels"])
}

func (v *RawView) ResourceRequirements() map[string]int {
	raw, ok := v.props["resource_requirements"].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]int, len(raw))
	for k, val := range raw {
		if n, ok := asInt(val); ok {
			out[k] = n
		}
	}
	return out
}

func (v *RawView) OperationalStatus() bool {
	return asBool(v.props["operational_status"], true)
}

func (v *RawView) InfrastructurePoints() []types.InfrastructurePoint {
	items, ok := v.props["infrastructure_points"].([]any)
	if !ok {
		return nil
	}
	points := make([]types.InfrastructurePoint, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		point := types.InfrastructurePoint{
			ID:                 asString(m["id"]),
			Name:               asString(m["name"]),
			Type:               types.InfrastructureType(asString(m["type"])),
			Coordinates:        asPoint(m["coordinates"]),
			OperationalStatus:  asBool(m["operational_status"], true),
			AccessLevel:        types.AccessLevel(asString(m["access_level"])),
			ResourcesAvailable: asStrings(m["resources_available"]),
		}
		if n, ok := asInt(m["capacity"]); ok {
			point.Capacity = &n
		}
		point.EmergencyPriority, _ = asInt(m["emergency_priority"])
		for _, inc := range asStrings(m["supported_incidents"]) {
			point.SupportedIncidents = append(point.SupportedIncidents, types.IncidentType(inc))
		}
		if contact, ok := m["contact_info"].(map[string]any); ok {
			point.ContactInfo = make(map[string]string, len(contact))
			for k, val := range contact {
				point.ContactInfo[k] = asString(val)
			}
		}
		points = append(points, point)
	}
	return points
}

func (v *RawView) EntryExitPoints() []types.EntryExitPoint {
	items, ok := v.props["entry_exit_points"].([]any)
	if !ok {
		return nil
	}
	points := make([]types.EntryExitPoint, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		point := types.EntryExitPoint{
			ID:               asString(m["id"]),
			Name:             asString(m["name"]),
			Coordinates:      asPoint(m["coordinates"]),
			IsEntry:          asBool(m["is_entry"], true),
			IsExit:           asBool(m["is_exit"], true),
			AccessLevel:      types.AccessLevel(asString(m["access_level"])),
			OperationalHours: asString(m["operational_hours"]),
			CurrentStatus:    asBool(m["current_status"], true),
			ConnectedZones:   asStrings(m["connected_zones"]),
		}
		if n, ok := asInt(m["max_throughput"]); ok {
			point.MaxThroughput = &n
		}
		points = append(points, point)
	}
	return points
}

func (v *RawView) Geometry() types.Geometry {
	geom, ok := v.feature["geometry"].(map[string]any)
	if !ok {
		return types.Geometry{}
	}
	g := types.Geometry{Type: asString(geom["type"])}
	rings, _ := geom["coordinates"].([]any)
	for _, r := range rings {
		positions, ok := r.([]any)
		if !ok {
			continue
		}
		ring := make(types.Ring, 0, len(positions))
		for _, p := range positions {
			if pos := asFloats(p); len(pos) >= 2 {
				ring = append(ring, pos)
			}
		}
		g.Coordinates = append(g.Coordinates, ring)
	}
	return g
}

func (v *RawView) Properties() map[string]any { return v.props }

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, false
			}
			return int(f), true
		}
		return int(i), true
	default:
		return 0, false
	}
}

func asBool(v any, def bool) bool {
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func asStrings(v any) []string {
	switch items := v.(type) {
	case []string:
		return append([]string(nil), items...)
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, asString(item))
		}
		return out
	default:
		return nil
	}
}

func asFloats(v any) []float64 {
	items, ok := v.([]any)
	if !ok {
		if fs, ok := v.([]float64); ok {
			return append([]float64(nil), fs...)
		}
		return nil
	}
	out := make([]float64, 0, len(items))
	for _, item := range items {
		f, ok := item.(float64)
		if !ok {
			return nil
		}
		out = append(out, f)
	}
	return out
}

// asPoint accepts either a Point geometry object or a bare position.
func asPoint(v any) types.PointGeometry {
	if m, ok := v.(map[string]any); ok {
		return types.PointGeometry{Type: asString(m["type"]), Coordinates: asFloats(m["coordinates"])}
	}
	if pos := asFloats(v); pos != nil {
		return types.PointGeometry{Type: types.GeometryPoint, Coordinates: pos}
	}
	return types.PointGeometry{}
}

// Views wraps every feature of a typed document.
func (d *Document) Views() []ZoneView {
	views := make([]ZoneView, 0, len(d.Features))
	for i := range d.Features {
		views = append(views, NewTypedView(&d.Features[i]))
	}
	return views
}

// Collection is a loaded venue document exposed through zone views.
type Collection struct {
	Views []ZoneView
	// Document is the typed document, or nil when schema validation failed
	// and the views fall back to raw access.
	Document *Document
	// Metadata is the raw venue metadata block.
	Metadata map[string]any
	// SchemaErr holds the validation failure that caused the fallback.
	SchemaErr error
}

// Validated reports whether the collection passed strict schema validation.
func (c *Collection) Validated() bool {
	return c.Document != nil
}

// LoadViews reads a venue document, validates it against the zone schema and
// returns typed views. When validation fails it logs a warning and returns
// raw views instead. Only a missing or malformed file is an error.
func LoadViews(path string, opts *LoadOptions, logger *slog.Logger) (*Collection, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := readJSON(path, opts)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Features []map[string]any `json:"features"`
		Metadata map[string]any   `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	coll := &Collection{Metadata: raw.Metadata}

	var doc Document
	schemaErr := json.Unmarshal(data, &doc)
	if schemaErr != nil {
		schemaErr = &SchemaValidationError{Issues: []FieldIssue{{
			Field:   "features",
			Tag:     "decode",
			Message: schemaErr.Error(),
		}}}
	} else {
		schemaErr = Validate(&doc)
	}

	if schemaErr == nil {
		coll.Document = &doc
		coll.Views = doc.Views()
		logger.Info("Loaded zones with schema validation", "path", path, "zones", len(coll.Views))
		return coll, nil
	}

	var sve *SchemaValidationError
	if errors.As(schemaErr, &sve) {
		logger.Warn("Schema validation failed", "path", path, "issues", len(sve.Issues), "error", schemaErr)
	} else {
		logger.Warn("Schema validation failed", "path", path, "error", schemaErr)
	}
	coll.SchemaErr = schemaErr
	coll.Views = make([]ZoneView, 0, len(raw.Features))
	for _, f := range raw.Features {
		if f == nil {
			f = map[string]any{}
		}
		coll.Views = append(coll.Views, NewRawView(f))
	}
	logger.Info("Loaded zones from raw data", "path", path, "zones", len(coll.Views))
	return coll, nil
}
