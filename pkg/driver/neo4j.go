package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/soundprediction/zonegraph/pkg/types"
)

const (
	mergeEpisodeQuery = `
		MERGE (ep:Episodic {uuid: $uuid})
		SET ep.episode_id = $episode_id,
			ep.name = $name,
			ep.content = $content,
			ep.source = $source,
			ep.group_id = $group_id,
			ep.valid_at = $valid_at,
			ep.created_at = $created_at,
			ep.metadata = $metadata
	`

	mergeEntityQuery = `
		MERGE (n:Entity {name: $name, group_id: $group_id})
		ON CREATE SET n.uuid = $uuid, n.created_at = $created_at
		SET n:%s
		SET n.entity_type = $entity_type,
			n.summary = $summary,
			n.attributes = $attributes,
			n.updated_at = $updated_at
	`

	mergeRelatesToQuery = `
		MATCH (s:Entity {name: $source, group_id: $group_id})
		MATCH (t:Entity {name: $target, group_id: $group_id})
		MERGE (s)-[r:RELATES_TO {uuid: $uuid}]->(t)
		SET r.name = $name,
			r.fact = $fact,
			r.group_id = $group_id,
			r.episode_id = $episode_id,
			r.created_at = $created_at,
			r.valid_at = $valid_at
	`

	mergeMentionsQuery = `
		MATCH (ep:Episodic {uuid: $episode_uuid})
		UNWIND $names AS entity_name
		MATCH (n:Entity {name: entity_name, group_id: $group_id})
		MERGE (ep)-[m:MENTIONS]->(n)
		SET m.group_id = $group_id, m.created_at = $created_at
	`

	entityExistsQuery = `
		MATCH (e:Entity {name: $name, group_id: $group_id})
		RETURN count(e) AS matches
	`

	timelineQuery = `
		MATCH (ep:Episodic {group_id: $group_id})-[:MENTIONS]->(e:Entity {name: $name, group_id: $group_id})
		WHERE ep.valid_at >= $start AND ($end IS NULL OR ep.valid_at <= $end)
		RETURN ep.episode_id AS episode_id, ep.name AS name, ep.source AS source,
			ep.valid_at AS valid_at, ep.metadata AS metadata
		ORDER BY ep.valid_at ASC
	`

	clearGroupQuery = `
		MATCH (n {group_id: $group_id})
		DETACH DELETE n
	`
)

// Neo4jConfig holds connection settings for a Neo4jClient.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
	GroupID  string
}

// Neo4jClient implements GraphClient on a Neo4j database.
type Neo4jClient struct {
	cfg    Neo4jConfig
	logger *slog.Logger

	mu     sync.RWMutex
	client neo4j.DriverWithContext
}

// NewNeo4jClient creates a Neo4j client. Connections are opened by Initialize.
func NewNeo4jClient(cfg Neo4jConfig, logger *slog.Logger) *Neo4jClient {
	if cfg.Database == "" {
		cfg.Database = "neo4j"
	}
	if cfg.GroupID == "" {
		cfg.GroupID = DefaultGroupID
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Neo4jClient{cfg: cfg, logger: logger}
}

// Provider returns the type of graph database provider.
func (n *Neo4jClient) Provider() GraphProvider {
	return GraphProviderNeo4j
}

// Initialize connects to Neo4j, verifies connectivity and creates indices.
func (n *Neo4jClient) Initialize(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.client != nil {
		return nil
	}

	client, err := neo4j.NewDriverWithContext(n.cfg.URI, neo4j.BasicAuth(n.cfg.Username, n.cfg.Password, ""))
	if err != nil {
		return fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return fmt.Errorf("failed to connect to neo4j at %s: %w", n.cfg.URI, err)
	}
	n.client = client

	if err := n.createIndices(ctx); err != nil {
		return fmt.Errorf("failed to create indices: %w", err)
	}
	n.logger.Info("Connected to neo4j", "uri", n.cfg.URI, "database", n.cfg.Database)
	return nil
}

// Close releases the driver.
func (n *Neo4jClient) Close(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.client == nil {
		return nil
	}
	err := n.client.Close(ctx)
	n.client = nil
	return err
}

func (n *Neo4jClient) session(ctx context.Context) (neo4j.SessionWithContext, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.client == nil {
		return nil, ErrClientNotInitialized
	}
	return n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.cfg.Database}), nil
}

func (n *Neo4jClient) createIndices(ctx context.Context) error {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.cfg.Database})
	defer session.Close(ctx)

	indices := append(GetRangeIndices(GraphProviderNeo4j), GetFulltextIndices(GraphProviderNeo4j)...)
	for _, indexQuery := range indices {
		if _, err := session.Run(ctx, indexQuery, nil); err != nil {
			if !strings.Contains(err.Error(), "already exists") && !strings.Contains(err.Error(), "An equivalent") {
				return err
			}
		}
	}
	return nil
}

// AddEpisode stores the episode node, merges its projected entities and
// links the episode to every entity it mentions, in one transaction.
func (n *Neo4jClient) AddEpisode(ctx context.Context, episode types.Episode) error {
	if err := episode.Validate(); err != nil {
		return err
	}
	session, err := n.session(ctx)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	groupID := groupOr(episode.GroupID, n.cfg.GroupID)
	proj := Project(episode, groupID)
	metadata, err := json.Marshal(episode.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode episode metadata: %w", err)
	}
	now := time.Now().UTC()

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, mergeEpisodeQuery, map[string]any{
			"uuid":       proj.Episode.Uuid,
			"episode_id": episode.ID,
			"name":       episode.Name,
			"content":    episode.Content,
			"source":     episode.Source,
			"group_id":   groupID,
			"valid_at":   episode.Timestamp.UTC(),
			"created_at": now,
			"metadata":   string(metadata),
		}); err != nil {
			return nil, err
		}

		for _, node := range proj.Entities {
			attrs, err := json.Marshal(node.Attributes)
			if err != nil {
				return nil, err
			}
			if _, err := tx.Run(ctx, fmt.Sprintf(mergeEntityQuery, node.EntityType), map[string]any{
				"uuid":        node.Uuid,
				"name":        node.Name,
				"group_id":    groupID,
				"entity_type": node.EntityType,
				"summary":     node.Summary,
				"attributes":  string(attrs),
				"created_at":  now,
				"updated_at":  now,
			}); err != nil {
				return nil, err
			}
		}

		for _, edge := range proj.Edges {
			if _, err := tx.Run(ctx, mergeRelatesToQuery, map[string]any{
				"uuid":       edge.Uuid,
				"source":     edge.SourceName,
				"target":     edge.TargetName,
				"name":       string(edge.Type),
				"fact":       edge.Fact,
				"group_id":   groupID,
				"episode_id": edge.EpisodeID,
				"created_at": now,
				"valid_at":   edge.ValidAt.UTC(),
			}); err != nil {
				return nil, err
			}
		}

		if mentions := proj.Mentions(); len(mentions) > 0 {
			if _, err := tx.Run(ctx, mergeMentionsQuery, map[string]any{
				"episode_uuid": proj.Episode.Uuid,
				"names":        mentions,
				"group_id":     groupID,
				"created_at":   now,
			}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to add episode %s: %w", episode.ID, err)
	}
	return nil
}

// Search performs fulltext search over relationship names and facts.
func (n *Neo4jClient) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	escaped := EscapeQueryString(query)
	if escaped == "" {
		return []types.SearchResult{}, nil
	}
	session, err := n.session(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, GetRelationshipsQuery(EdgeFactIndex), map[string]any{
			"query":    escaped,
			"limit":    searchLimit(limit),
			"group_id": n.cfg.GroupID,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	records, err := Must[[]*db.Record](result, "search")
	if err != nil {
		return nil, err
	}
	results := make([]types.SearchResult, 0, len(records))
	for _, record := range records {
		edge, err := edgeFromRecord(record)
		if err != nil {
			n.logger.Warn("Skipping malformed search hit", "error", err)
			continue
		}
		results = append(results, edge.ToSearchResult())
	}
	return results, nil
}

// GetEntityRelationships returns every relationship on a path of up to depth
// hops from the entity, plus the entities reached.
func (n *Neo4jClient) GetEntityRelationships(ctx context.Context, entity string, depth int) (*types.EntityRelationships, error) {
	if err := validateDepth(depth); err != nil {
		return nil, err
	}
	session, err := n.session(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	params := map[string]any{"name": entity, "group_id": n.cfg.GroupID}
	relQuery, neighborQuery := GetNeighborhoodQueries(depth)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := entityExists(ctx, tx, params); err != nil {
			return nil, err
		}
		relRes, err := tx.Run(ctx, relQuery, params)
		if err != nil {
			return nil, err
		}
		relRecords, err := relRes.Collect(ctx)
		if err != nil {
			return nil, err
		}
		nodeRes, err := tx.Run(ctx, neighborQuery, params)
		if err != nil {
			return nil, err
		}
		nodeRecords, err := nodeRes.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return map[string][]*db.Record{"relationships": relRecords, "neighbors": nodeRecords}, nil
	})
	if err != nil {
		return nil, err
	}

	data := result.(map[string][]*db.Record)
	out := &types.EntityRelationships{
		Entity:        entity,
		Depth:         depth,
		Relationships: make([]*types.Edge, 0, len(data["relationships"])),
		Neighbors:     make([]*types.Node, 0, len(data["neighbors"])),
	}
	for _, record := range data["relationships"] {
		edge, err := edgeFromRecord(record)
		if err != nil {
			return nil, err
		}
		out.Relationships = append(out.Relationships, edge)
	}
	sortEdges(out.Relationships)
	for _, record := range data["neighbors"] {
		value, _ := record.Get("m")
		node, err := Must[dbtype.Node](value, "m")
		if err != nil {
			return nil, err
		}
		out.Neighbors = append(out.Neighbors, nodeFromDBNode(node))
	}
	return out, nil
}

// GetEntityTimeline returns the episodes mentioning an entity in time order.
func (n *Neo4jClient) GetEntityTimeline(ctx context.Context, entity string, start, end time.Time) ([]types.TimelineEntry, error) {
	session, err := n.session(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	params := map[string]any{
		"name":     entity,
		"group_id": n.cfg.GroupID,
		"start":    start.UTC(),
		"end":      nil,
	}
	if !end.IsZero() {
		params["end"] = end.UTC()
	}

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := entityExists(ctx, tx, params); err != nil {
			return nil, err
		}
		res, err := tx.Run(ctx, timelineQuery, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}

	records, err := Must[[]*db.Record](result, "timeline")
	if err != nil {
		return nil, err
	}
	entries := make([]types.TimelineEntry, 0, len(records))
	for _, record := range records {
		entry := types.TimelineEntry{
			EpisodeID: recordString(record, "episode_id"),
			Name:      recordString(record, "name"),
			Source:    recordString(record, "source"),
		}
		if v, ok := record.Get("valid_at"); ok {
			entry.Timestamp, _ = AsTime(v)
		}
		if raw := recordString(record, "metadata"); raw != "" {
			_ = json.Unmarshal([]byte(raw), &entry.Metadata)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ClearGraph removes every node and relationship of a group.
func (n *Neo4jClient) ClearGraph(ctx context.Context, groupID string) error {
	session, err := n.session(ctx)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	groupID = groupOr(groupID, n.cfg.GroupID)
	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, clearGroupQuery, map[string]any{"group_id": groupID})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to clear group %s: %w", groupID, err)
	}
	n.logger.Info("Cleared graph group", "group_id", groupID)
	return nil
}

// GetStats retrieves statistics about a group.
func (n *Neo4jClient) GetStats(ctx context.Context, groupID string) (*GraphStats, error) {
	session, err := n.session(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	groupID = groupOr(groupID, n.cfg.GroupID)
	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		nodeQuery := `
			MATCH (n {group_id: $group_id})
			RETURN coalesce(n.entity_type, head(labels(n))) AS node_type, count(n) AS node_count
			ORDER BY node_type
		`
		nodeRes, err := tx.Run(ctx, nodeQuery, map[string]any{"group_id": groupID})
		if err != nil {
			return nil, err
		}
		nodeRecords, err := nodeRes.Collect(ctx)
		if err != nil {
			return nil, err
		}

		edgeQuery := `
			MATCH ()-[r:RELATES_TO {group_id: $group_id}]->()
			RETURN r.name AS edge_type, count(r) AS edge_count
			ORDER BY edge_type
		`
		edgeRes, err := tx.Run(ctx, edgeQuery, map[string]any{"group_id": groupID})
		if err != nil {
			return nil, err
		}
		edgeRecords, err := edgeRes.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return map[string][]*db.Record{"nodes": nodeRecords, "edges": edgeRecords}, nil
	})
	if err != nil {
		return nil, err
	}

	data := result.(map[string][]*db.Record)
	stats := newGraphStats()
	for _, record := range data["nodes"] {
		nodeType := recordString(record, "node_type")
		count := recordInt(record, "node_count")
		if nodeType == "Episodic" {
			stats.EpisodeCount += count
			continue
		}
		stats.NodeCount += count
		stats.NodesByType[nodeType] += count
	}
	for _, record := range data["edges"] {
		count := recordInt(record, "edge_count")
		stats.EdgeCount += count
		stats.EdgesByType[recordString(record, "edge_type")] += count
	}
	return stats, nil
}

func entityExists(ctx context.Context, tx neo4j.ManagedTransaction, params map[string]any) error {
	res, err := tx.Run(ctx, entityExistsQuery, params)
	if err != nil {
		return err
	}
	record, err := res.Single(ctx)
	if err != nil {
		return err
	}
	if recordInt(record, "matches") == 0 {
		return fmt.Errorf("%w: %v", ErrEntityNotFound, params["name"])
	}
	return nil
}

func edgeFromRecord(record *db.Record) (*types.Edge, error) {
	value, _ := record.Get("r")
	rel, err := Must[dbtype.Relationship](value, "r")
	if err != nil {
		return nil, err
	}
	return edgeFromDBRelation(rel, recordString(record, "source"), recordString(record, "target")), nil
}

func edgeFromDBRelation(rel dbtype.Relationship, source, target string) *types.Edge {
	props := rel.Props
	edge := &types.Edge{SourceName: source, TargetName: target}
	edge.Uuid, _ = As[string](props["uuid"])
	edge.GroupID, _ = As[string](props["group_id"])
	edge.Fact, _ = As[string](props["fact"])
	edge.EpisodeID, _ = As[string](props["episode_id"])
	if name, ok := As[string](props["name"]); ok {
		edge.Type = types.EdgeType(name)
	}
	edge.CreatedAt, _ = AsTime(props["created_at"])
	edge.ValidAt, _ = AsTime(props["valid_at"])
	if invalidAt, ok := AsTime(props["invalid_at"]); ok {
		edge.InvalidAt = &invalidAt
	}
	return edge
}

func nodeFromDBNode(node dbtype.Node) *types.Node {
	props := node.Props
	result := &types.Node{Type: types.EntityNodeType}
	result.Uuid, _ = As[string](props["uuid"])
	result.Name, _ = As[string](props["name"])
	result.GroupID, _ = As[string](props["group_id"])
	result.EntityType, _ = As[string](props["entity_type"])
	result.Summary, _ = As[string](props["summary"])
	result.CreatedAt, _ = AsTime(props["created_at"])
	result.UpdatedAt, _ = AsTime(props["updated_at"])
	if raw, ok := As[string](props["attributes"]); ok && raw != "" {
		_ = json.Unmarshal([]byte(raw), &result.Attributes)
	}
	return result
}

func sortEdges(edges []*types.Edge) {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.SourceName != b.SourceName {
			return a.SourceName < b.SourceName
		}
		if a.TargetName != b.TargetName {
			return a.TargetName < b.TargetName
		}
		return a.Uuid < b.Uuid
	})
}
