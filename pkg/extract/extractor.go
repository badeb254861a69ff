// Package extract derives typed entity records from GeoChunks.
package extract

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/soundprediction/zonegraph/pkg/geojson"
	"github.com/soundprediction/zonegraph/pkg/types"
)

// DefaultEmergencyPriority is used for infrastructure points without one.
const DefaultEmergencyPriority = 4

// agentRule maps agent id keywords to an agent type. Rules are evaluated in
// order and the first rule with a matching keyword wins.
type agentRule struct {
	keywords     []string
	agentType    string
	capabilities []string
}

var agentRules = []agentRule{
	{
		keywords:     []string{"security"},
		agentType:    types.AgentTypeSecurity,
		capabilities: []string{"access_control", "threat_assessment", "evacuation_coordination"},
	},
	{
		keywords:     []string{"medical", "medassist"},
		agentType:    types.AgentTypeMedical,
		capabilities: []string{"emergency_medical_response", "triage", "medical_evacuation"},
	},
	{
		keywords:     []string{"infrastructure"},
		agentType:    types.AgentTypeInfrastructure,
		capabilities: []string{"infrastructure_monitoring", "maintenance_coordination", "resource_management"},
	},
	{
		keywords:     []string{"queue", "crowd"},
		agentType:    types.AgentTypeCrowdManagement,
		capabilities: []string{"crowd_flow_analysis", "queue_management", "crowd_safety"},
	},
}

var zoneCapabilities = map[string]string{
	string(types.ZoneTypeEmergency): "emergency_response",
	string(types.ZoneTypeMedical):   "medical_facility_management",
	string(types.ZoneTypeSecurity):  "security_zone_management",
}

// AgentType infers an agent's role from its id. Matching is case-insensitive.
func AgentType(agentID string) string {
	if rule := matchRule(agentID); rule != nil {
		return rule.agentType
	}
	return types.AgentTypeGeneral
}

func matchRule(agentID string) *agentRule {
	id := strings.ToLower(agentID)
	for i := range agentRules {
		for _, kw := range agentRules[i].keywords {
			if strings.Contains(id, kw) {
				return &agentRules[i]
			}
		}
	}
	return nil
}

// Capabilities returns the deduplicated capabilities of an agent deployed in
// a zone of the given type and security level.
func Capabilities(agentID, zoneType, securityLevel string) []string {
	var caps []string
	if rule := matchRule(agentID); rule != nil {
		caps = append(caps, rule.capabilities...)
		if rule.agentType == types.AgentTypeSecurity &&
			(securityLevel == string(types.SecurityLevelHigh) || securityLevel == string(types.SecurityLevelCritical)) {
			caps = append(caps, "high_security_operations")
		}
	}
	if extra, ok := zoneCapabilities[zoneType]; ok {
		caps = append(caps, extra)
	}
	return dedupe(caps)
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// Extractor derives ChunkEntities from GeoChunks.
type Extractor struct {
	// Now stamps entity_extraction_date. Defaults to time.Now.
	Now func() time.Time

	logger *slog.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{Now: time.Now, logger: logger}
}

// Extract derives the entities of one chunk without modifying it.
func (e *Extractor) Extract(chunk *types.GeoChunk) types.ChunkEntities {
	view := chunk.View
	if view == nil {
		view = geojson.NewRawView(map[string]any{"properties": chunk.Properties})
	}
	return types.ChunkEntities{
		Agents:                extractAgents(chunk, view),
		ResponseTeams:         nonNil(view.ResponseTeamCoverage()),
		Infrastructure:        extractInfrastructure(chunk),
		EntryExitPoints:       extractEntryExit(chunk),
		SecurityInfo:          extractSecurity(view),
		EmergencyProtocols:    nonNil(view.EmergencyProtocols()),
		CommunicationChannels: nonNil(view.CommunicationChannels()),
		Resources:             extractResources(chunk, view),
		LocationInfo:          extractLocation(chunk),
		OperationalData:       extractOperational(view),
	}
}

// ExtractInto extracts a chunk's entities and records them, with the
// extraction time, in the chunk metadata.
func (e *Extractor) ExtractInto(chunk *types.GeoChunk) *types.ChunkEntities {
	entities := e.Extract(chunk)
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	if chunk.Metadata == nil {
		chunk.Metadata = make(map[string]any)
	}
	chunk.Metadata[types.MetaEntities] = &entities
	chunk.Metadata[types.MetaEntityExtractionDate] = now().Format(time.RFC3339)
	return &entities
}

// ExtractAll extracts entities for every chunk in place.
func (e *Extractor) ExtractAll(chunks []types.GeoChunk) {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}
	for i := range chunks {
		e.ExtractInto(&chunks[i])
	}
	logger.Info("Extracted entities from geo chunks", "count", len(chunks))
}

func extractAgents(chunk *types.GeoChunk, view types.ZoneView) []types.AgentEntity {
	ids := view.AssignedAgents()
	agents := make([]types.AgentEntity, 0, len(ids))
	for _, id := range ids {
		agents = append(agents, types.AgentEntity{
			ID:                id,
			Type:              AgentType(id),
			ZoneAssignment:    chunk.ZoneID,
			ZoneName:          chunk.ZoneName,
			SecurityClearance: view.SecurityLevel(),
			AccessLevel:       view.AccessLevel(),
			Capabilities:      Capabilities(id, view.ZoneType(), view.SecurityLevel()),
		})
	}
	return agents
}

func extractInfrastructure(chunk *types.GeoChunk) []types.InfrastructureEntity {
	out := make([]types.InfrastructureEntity, 0, len(chunk.InfrastructurePoints))
	for _, p := range chunk.InfrastructurePoints {
		priority := p.EmergencyPriority
		if priority == 0 {
			priority = DefaultEmergencyPriority
		}
		incidents := make([]string, len(p.SupportedIncidents))
		for i, inc := range p.SupportedIncidents {
			incidents[i] = string(inc)
		}
		out = append(out, types.InfrastructureEntity{
			ID:                 orDefault(p.ID, "unknown"),
			Name:               orDefault(p.Name, "Unknown"),
			Type:               orDefault(string(p.Type), "unknown"),
			Coordinates:        position(p.Coordinates),
			Operational:        p.OperationalStatus,
			AccessLevel:        orDefault(string(p.AccessLevel), "unknown"),
			EmergencyPriority:  priority,
			Resources:          nonNil(p.ResourcesAvailable),
			SupportedIncidents: incidents,
			ParentZone:         chunk.ZoneID,
		})
	}
	return out
}

func extractEntryExit(chunk *types.GeoChunk) []types.EntryExitEntity {
	out := make([]types.EntryExitEntity, 0, len(chunk.EntryExitPoints))
	for _, p := range chunk.EntryExitPoints {
		status := "closed"
		if p.CurrentStatus {
			status = "open"
		}
		out = append(out, types.EntryExitEntity{
			ID:          orDefault(p.ID, "unknown"),
			Name:        orDefault(p.Name, "Unknown"),
			Coordinates: position(p.Coordinates),
			IsEntry:     p.IsEntry,
			IsExit:      p.IsExit,
			Status:      status,
			AccessLevel: orDefault(string(p.AccessLevel), "unknown"),
			ParentZone:  chunk.ZoneID,
		})
	}
	return out
}

func extractSecurity(view types.ZoneView) types.SecurityInfo {
	return types.SecurityInfo{
		Level:       view.SecurityLevel(),
		AccessLevel: view.AccessLevel(),
		Protocols:   nonNil(view.EmergencyProtocols()),
		ZoneType:    view.ZoneType(),
	}
}

func extractResources(chunk *types.GeoChunk, view types.ZoneView) types.ResourceInfo {
	reqs := view.ResourceRequirements()
	if reqs == nil {
		reqs = map[string]int{}
	}
	available := make([]types.PointResources, 0)
	for _, p := range chunk.InfrastructurePoints {
		if len(p.ResourcesAvailable) == 0 {
			continue
		}
		available = append(available, types.PointResources{
			Point:     orDefault(p.ID, "unknown"),
			Resources: p.ResourcesAvailable,
		})
	}
	return types.ResourceInfo{Requirements: reqs, AvailableAtInfrastructure: available}
}

func extractLocation(chunk *types.GeoChunk) types.LocationInfo {
	geom := chunk.Geometry
	info := types.LocationInfo{
		ZoneID:       chunk.ZoneID,
		ZoneName:     chunk.ZoneName,
		GeometryType: geom.Type,
		Coordinates:  geom.Coordinates,
	}
	if geom.Type == types.GeometryPolygon {
		if box, ok := geom.OuterRing().Bounds(); ok {
			lon, lat := box.Center()
			info.BoundingBox = &types.LocationBox{BoundingBox: box, CenterLon: lon, CenterLat: lat}
		}
	}
	return info
}

func extractOperational(view types.ZoneView) types.OperationalData {
	data := types.OperationalData{
		OperationalStatus:     view.OperationalStatus(),
		PopulationCapacity:    view.PopulationCapacity(),
		EvacuationTimeMinutes: view.EvacuationTimeMinutes(),
		LastUpdated:           view.LastUpdated(),
	}
	if pop, ok := view.CurrentPopulation(); ok {
		data.CurrentPopulation = &pop
	}
	return data
}

func position(p types.PointGeometry) []float64 {
	if p.Coordinates == nil {
		return []float64{}
	}
	return p.Coordinates
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
