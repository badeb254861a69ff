package driver

import (
	"fmt"
	"strings"
)

// Fulltext index names.
const (
	EdgeFactIndex      = "edge_name_and_fact"
	NodeSummaryIndex   = "node_name_and_summary"
	EpisodeContentIdx  = "episode_content"
	maxSearchQueryRune = 512
)

// GetRangeIndices returns database-specific range index creation queries
func GetRangeIndices(provider GraphProvider) []string {
	switch provider {
	case GraphProviderBadger:
		return []string{} // badger keys are the index

	default: // Neo4j
		return []string{
			"CREATE INDEX entity_uuid IF NOT EXISTS FOR (n:Entity) ON (n.uuid)",
			"CREATE INDEX episode_uuid IF NOT EXISTS FOR (n:Episodic) ON (n.uuid)",
			"CREATE INDEX relation_uuid IF NOT EXISTS FOR ()-[e:RELATES_TO]-() ON (e.uuid)",
			"CREATE INDEX entity_name_group IF NOT EXISTS FOR (n:Entity) ON (n.name, n.group_id)",
			"CREATE INDEX entity_group_id IF NOT EXISTS FOR (n:Entity) ON (n.group_id)",
			"CREATE INDEX episode_group_id IF NOT EXISTS FOR (n:Episodic) ON (n.group_id)",
			"CREATE INDEX relation_group_id IF NOT EXISTS FOR ()-[e:RELATES_TO]-() ON (e.group_id)",
			"CREATE INDEX mention_group_id IF NOT EXISTS FOR ()-[e:MENTIONS]-() ON (e.group_id)",
			"CREATE INDEX valid_at_episodic_index IF NOT EXISTS FOR (n:Episodic) ON (n.valid_at)",
			"CREATE INDEX name_edge_index IF NOT EXISTS FOR ()-[e:RELATES_TO]-() ON (e.name)",
			"CREATE INDEX valid_at_edge_index IF NOT EXISTS FOR ()-[e:RELATES_TO]-() ON (e.valid_at)",
		}
	}
}

// GetFulltextIndices returns database-specific fulltext index creation queries
func GetFulltextIndices(provider GraphProvider) []string {
	switch provider {
	case GraphProviderBadger:
		return []string{}

	default: // Neo4j
		return []string{
			`CREATE FULLTEXT INDEX episode_content IF NOT EXISTS
FOR (e:Episodic) ON EACH [e.content, e.source, e.group_id]`,
			`CREATE FULLTEXT INDEX node_name_and_summary IF NOT EXISTS
FOR (n:Entity) ON EACH [n.name, n.summary, n.group_id]`,
			`CREATE FULLTEXT INDEX edge_name_and_fact IF NOT EXISTS
FOR ()-[e:RELATES_TO]-() ON EACH [e.name, e.fact, e.group_id]`,
		}
	}
}

// GetRelationshipsQuery returns the fulltext search query for relationships.
// The caller passes the search text as the $query parameter, escaped with
// EscapeQueryString.
func GetRelationshipsQuery(indexName string) string {
	return fmt.Sprintf(`CALL db.index.fulltext.queryRelationships("%s", $query, {limit: $limit})
YIELD relationship AS r, score
WHERE r.group_id = $group_id
RETURN r, startNode(r).name AS source, endNode(r).name AS target, score
ORDER BY score DESC`, indexName)
}

// GetNeighborhoodQueries returns the variable-length traversals used for
// entity relationships: one for the relationships on every path and one for
// the distinct neighbours. depth must already be validated.
func GetNeighborhoodQueries(depth int) (relationships, neighbors string) {
	relationships = fmt.Sprintf(`MATCH path = (e:Entity {name: $name, group_id: $group_id})-[:RELATES_TO*1..%d]-(:Entity)
UNWIND relationships(path) AS r
WITH DISTINCT r
RETURN r, startNode(r).name AS source, endNode(r).name AS target`, depth)
	neighbors = fmt.Sprintf(`MATCH (e:Entity {name: $name, group_id: $group_id})-[:RELATES_TO*1..%d]-(m:Entity)
WHERE m <> e
RETURN DISTINCT m
ORDER BY m.name`, depth)
	return relationships, neighbors
}

// luceneReplacer is a package-level replacer for escaping special characters
// in fulltext search queries.
var luceneReplacer = strings.NewReplacer(
	`"`, `\"`,
	`\`, `\\`,
	`+`, `\+`,
	`-`, `\-`,
	`!`, `\!`,
	`(`, `\(`,
	`)`, `\)`,
	`{`, `\{`,
	`}`, `\}`,
	`[`, `\[`,
	`]`, `\]`,
	`^`, `\^`,
	`~`, `\~`,
	`*`, `\*`,
	`?`, `\?`,
	`:`, `\:`,
	`|`, `\|`,
	`&`, `\&`,
	`/`, `\/`,
)

// EscapeQueryString escapes special characters in search queries and bounds
// their length.
func EscapeQueryString(query string) string {
	query = strings.TrimSpace(query)
	if r := []rune(query); len(r) > maxSearchQueryRune {
		query = string(r[:maxSearchQueryRune])
	}
	return luceneReplacer.Replace(query)
}
