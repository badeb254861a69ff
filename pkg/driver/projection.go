package driver

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/soundprediction/zonegraph/pkg/types"
)

// Name prefixes keep shared vocabulary nodes apart from zone-local ids.
const (
	IncidentPrefix = "incident:"
	TeamPrefix     = "team:"
	ChannelPrefix  = "channel:"
)

var uuidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("zonegraph"))

// NodeUUID returns the stable identifier of a named entity within a group.
func NodeUUID(groupID, name string) string {
	return uuid.NewSHA1(uuidNamespace, []byte(groupID+"|"+name)).String()
}

func edgeUUID(groupID, episodeID string, edgeType types.EdgeType, source, target string) string {
	key := strings.Join([]string{groupID, episodeID, string(edgeType), source, target}, "|")
	return uuid.NewSHA1(uuidNamespace, []byte(key)).String()
}

// Projection is the graph form of one episode.
type Projection struct {
	Episode  *types.Node
	Entities []*types.Node
	Edges    []*types.Edge
}

// Mentions returns the names of every entity the episode describes.
func (p *Projection) Mentions() []string {
	names := make([]string, len(p.Entities))
	for i, n := range p.Entities {
		names[i] = n.Name
	}
	return names
}

type projector struct {
	groupID string
	episode types.Episode
	nodes   map[string]*types.Node
	out     Projection
}

// Project turns an episode and its extracted entities into entity nodes and
// fact edges. Episodes without entities project to the episode node alone.
func Project(episode types.Episode, groupID string) Projection {
	p := &projector{
		groupID: groupID,
		episode: episode,
		nodes:   make(map[string]*types.Node),
	}
	p.out.Episode = &types.Node{
		Uuid:      NodeUUID(groupID, "episode|"+episode.ID),
		Name:      episode.Name,
		Type:      types.EpisodicNodeType,
		GroupID:   groupID,
		Summary:   episode.ID,
		CreatedAt: episode.Timestamp,
		UpdatedAt: episode.Timestamp,
	}

	if e := episode.Entities; e != nil {
		p.projectEntities(e)
	}
	return p.out
}

func (p *projector) projectEntities(e *types.ChunkEntities) {
	zoneID := e.LocationInfo.ZoneID
	if zoneID == "" {
		zoneID, _ = p.episode.Metadata["zone_id"].(string)
	}
	if zoneID == "" {
		return
	}
	zoneName := e.LocationInfo.ZoneName
	if zoneName == "" {
		zoneName = zoneID
	}

	zoneAttrs := map[string]any{
		"zone_name":               zoneName,
		"zone_type":               e.SecurityInfo.ZoneType,
		"security_level":          e.SecurityInfo.Level,
		"access_level":            e.SecurityInfo.AccessLevel,
		"population_capacity":     e.OperationalData.PopulationCapacity,
		"evacuation_time_minutes": e.OperationalData.EvacuationTimeMinutes,
		"operational_status":      e.OperationalData.OperationalStatus,
		"emergency_protocols":     e.EmergencyProtocols,
	}
	if box := e.LocationInfo.BoundingBox; box != nil {
		zoneAttrs["center_lon"] = box.CenterLon
		zoneAttrs["center_lat"] = box.CenterLat
	}
	p.node(zoneID, types.EntityTypeZone,
		fmt.Sprintf("%s: %s zone, %s security, %s access", zoneName, e.SecurityInfo.ZoneType, e.SecurityInfo.Level, e.SecurityInfo.AccessLevel),
		zoneAttrs)

	for _, a := range e.Agents {
		p.node(a.ID, types.EntityTypeAgent, fmt.Sprintf("%s (%s)", a.ID, a.Type), map[string]any{
			"agent_type":   a.Type,
			"capabilities": a.Capabilities,
		})
		p.edge(types.AssignedToEdge, a.ID, zoneID,
			fmt.Sprintf("%s (%s) is assigned to %s (%s) with %s clearance", a.ID, a.Type, zoneName, zoneID, a.SecurityClearance))
	}

	for _, inf := range e.Infrastructure {
		p.node(inf.ID, types.EntityTypeInfrastructure, fmt.Sprintf("%s (%s)", inf.Name, inf.Type), map[string]any{
			"infrastructure_type": inf.Type,
			"operational":         inf.Operational,
			"access_level":        inf.AccessLevel,
			"emergency_priority":  inf.EmergencyPriority,
			"resources":           inf.Resources,
			"coordinates":         inf.Coordinates,
		})
		p.edge(types.LocatedInEdge, inf.ID, zoneID,
			fmt.Sprintf("%s (%s) is located in %s (%s)", inf.Name, inf.Type, zoneName, zoneID))
		for _, incident := range inf.SupportedIncidents {
			name := IncidentPrefix + incident
			p.node(name, types.EntityTypeIncident, incident+" incidents", nil)
			p.edge(types.HandlesEdge, inf.ID, name,
				fmt.Sprintf("%s handles %s incidents in %s", inf.Name, incident, zoneName))
		}
	}

	for _, ee := range e.EntryExitPoints {
		p.node(ee.ID, types.EntityTypeEntryExit, ee.Name, map[string]any{
			"is_entry":     ee.IsEntry,
			"is_exit":      ee.IsExit,
			"status":       ee.Status,
			"access_level": ee.AccessLevel,
			"coordinates":  ee.Coordinates,
		})
		p.edge(types.ConnectsEdge, ee.ID, zoneID,
			fmt.Sprintf("%s connects to %s (%s) and is currently %s", ee.Name, zoneName, zoneID, ee.Status))
	}

	for _, team := range e.ResponseTeams {
		name := TeamPrefix + team
		p.node(name, types.EntityTypeResponseTeam, team+" response team", nil)
		p.edge(types.CoversEdge, name, zoneID,
			fmt.Sprintf("%s response team covers %s (%s)", team, zoneName, zoneID))
	}

	for _, channel := range e.CommunicationChannels {
		name := ChannelPrefix + channel
		p.node(name, types.EntityTypeChannel, channel+" communication channel", nil)
		p.edge(types.ServesEdge, name, zoneID,
			fmt.Sprintf("%s communication serves %s (%s)", channel, zoneName, zoneID))
	}
}

func (p *projector) node(name, entityType, summary string, attrs map[string]any) {
	if _, ok := p.nodes[name]; ok {
		return
	}
	n := &types.Node{
		Uuid:       NodeUUID(p.groupID, name),
		Name:       name,
		Type:       types.EntityNodeType,
		GroupID:    p.groupID,
		EntityType: entityType,
		Summary:    summary,
		Attributes: attrs,
		CreatedAt:  p.episode.Timestamp,
		UpdatedAt:  p.episode.Timestamp,
	}
	p.nodes[name] = n
	p.out.Entities = append(p.out.Entities, n)
}

func (p *projector) edge(edgeType types.EdgeType, source, target, fact string) {
	id := edgeUUID(p.groupID, p.episode.ID, edgeType, source, target)
	for _, e := range p.out.Edges {
		if e.Uuid == id {
			return
		}
	}
	p.out.Edges = append(p.out.Edges, &types.Edge{
		Uuid:       id,
		GroupID:    p.groupID,
		SourceName: source,
		TargetName: target,
		Type:       edgeType,
		Fact:       fact,
		EpisodeID:  p.episode.ID,
		CreatedAt:  p.episode.Timestamp,
		ValidAt:    p.episode.Timestamp,
	})
}
