package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/soundprediction/zonegraph/pkg/types"
)

// Key layout. Every segment after the prefix is path-escaped so names that
// contain '/' cannot collide.
//
//	ep/<group>/<episode id>                           episode record
//	node/<group>/<name>                               entity node
//	edge/<group>/<uuid>                               fact edge
//	mention/<group>/<name>/<unix nanos>/<episode id>  timeline index
const (
	episodePrefix = "ep"
	nodePrefix    = "node"
	edgePrefix    = "edge"
	mentionPrefix = "mention"
)

func badgerKey(parts ...string) []byte {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		if i == 0 {
			escaped[i] = p
			continue
		}
		escaped[i] = url.PathEscape(p)
	}
	return []byte(strings.Join(escaped, "/"))
}

func groupPrefix(prefix, groupID string) []byte {
	return append(badgerKey(prefix, groupID), '/')
}

func mentionKey(groupID, name string, ts time.Time, episodeID string) []byte {
	return badgerKey(mentionPrefix, groupID, name, fmt.Sprintf("%020d", ts.UnixNano()), episodeID)
}

// BadgerConfig holds settings for a BadgerClient.
type BadgerConfig struct {
	Path     string
	InMemory bool
	GroupID  string
}

// BadgerClient implements GraphClient on an embedded Badger key-value store.
type BadgerClient struct {
	cfg    BadgerConfig
	logger *slog.Logger

	mu sync.RWMutex
	db *badger.DB
}

// NewBadgerClient creates an embedded graph client. The store is opened by Initialize.
func NewBadgerClient(cfg BadgerConfig, logger *slog.Logger) *BadgerClient {
	if cfg.GroupID == "" {
		cfg.GroupID = DefaultGroupID
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerClient{cfg: cfg, logger: logger}
}

// Provider returns the type of graph database provider.
func (b *BadgerClient) Provider() GraphProvider {
	return GraphProviderBadger
}

// Initialize opens the store.
func (b *BadgerClient) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db != nil {
		return nil
	}

	opts := badger.DefaultOptions(b.cfg.Path)
	if b.cfg.InMemory || b.cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open badger store at %q: %w", b.cfg.Path, err)
	}
	b.db = db
	b.logger.Info("Opened badger graph store", "path", b.cfg.Path, "in_memory", opts.InMemory)
	return nil
}

// Close closes the store.
func (b *BadgerClient) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func (b *BadgerClient) store() (*badger.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return nil, ErrClientNotInitialized
	}
	return b.db, nil
}

// AddEpisode stores the episode, merges its projected entities and indexes
// the mentions for timeline queries, in one transaction.
func (b *BadgerClient) AddEpisode(ctx context.Context, episode types.Episode) error {
	if err := episode.Validate(); err != nil {
		return err
	}
	db, err := b.store()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	groupID := groupOr(episode.GroupID, b.cfg.GroupID)
	episode.GroupID = groupID
	proj := Project(episode, groupID)

	record := episode
	record.Entities = nil
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode episode %s: %w", episode.ID, err)
	}

	err = db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(badgerKey(episodePrefix, groupID, episode.ID), value); err != nil {
			return err
		}
		for _, node := range proj.Entities {
			if err := mergeNode(txn, node); err != nil {
				return err
			}
		}
		for _, edge := range proj.Edges {
			data, err := json.Marshal(edge)
			if err != nil {
				return err
			}
			if err := txn.Set(badgerKey(edgePrefix, groupID, edge.Uuid), data); err != nil {
				return err
			}
		}
		for _, name := range proj.Mentions() {
			if err := txn.Set(mentionKey(groupID, name, episode.Timestamp, episode.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add episode %s: %w", episode.ID, err)
	}
	return nil
}

// mergeNode keeps the creation time of an existing node and replaces the rest.
func mergeNode(txn *badger.Txn, node *types.Node) error {
	key := badgerKey(nodePrefix, node.GroupID, node.Name)
	existing, err := getJSON[types.Node](txn, key)
	switch {
	case err == nil:
		node.CreatedAt = existing.CreatedAt
	case !errors.Is(err, badger.ErrKeyNotFound):
		return err
	}
	data, err := json.Marshal(node)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func getJSON[T any](txn *badger.Txn, key []byte) (*T, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	var out T
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &out)
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

func scanJSON[T any](txn *badger.Txn, prefix []byte, fn func(*T) error) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var v T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		}); err != nil {
			return err
		}
		if err := fn(&v); err != nil {
			return err
		}
	}
	return nil
}

func (b *BadgerClient) loadEdges(txn *badger.Txn, groupID string) ([]*types.Edge, error) {
	var edges []*types.Edge
	err := scanJSON(txn, groupPrefix(edgePrefix, groupID), func(e *types.Edge) error {
		edges = append(edges, e)
		return nil
	})
	return edges, err
}

// Search returns facts whose text contains every query term, newest first.
// Matching is case-insensitive over the fact, relationship name and endpoints.
func (b *BadgerClient) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []types.SearchResult{}, nil
	}
	db, err := b.store()
	if err != nil {
		return nil, err
	}

	var matches []*types.Edge
	err = db.View(func(txn *badger.Txn) error {
		edges, err := b.loadEdges(txn, b.cfg.GroupID)
		if err != nil {
			return err
		}
		for _, e := range edges {
			if matchesTerms(e, terms) {
				matches = append(matches, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].ValidAt.Equal(matches[j].ValidAt) {
			return matches[i].ValidAt.After(matches[j].ValidAt)
		}
		return matches[i].Uuid < matches[j].Uuid
	})
	limit = searchLimit(limit)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	results := make([]types.SearchResult, len(matches))
	for i, e := range matches {
		results[i] = e.ToSearchResult()
	}
	return results, nil
}

func matchesTerms(e *types.Edge, terms []string) bool {
	text := strings.ToLower(strings.Join([]string{e.Fact, string(e.Type), e.SourceName, e.TargetName}, " "))
	for _, term := range terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

// GetEntityRelationships walks fact edges breadth-first from the entity, in
// either direction, up to depth hops.
func (b *BadgerClient) GetEntityRelationships(ctx context.Context, entity string, depth int) (*types.EntityRelationships, error) {
	if err := validateDepth(depth); err != nil {
		return nil, err
	}
	db, err := b.store()
	if err != nil {
		return nil, err
	}

	out := &types.EntityRelationships{
		Entity:        entity,
		Depth:         depth,
		Relationships: []*types.Edge{},
		Neighbors:     []*types.Node{},
	}
	groupID := b.cfg.GroupID
	err = db.View(func(txn *badger.Txn) error {
		if _, err := getJSON[types.Node](txn, badgerKey(nodePrefix, groupID, entity)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrEntityNotFound, entity)
			}
			return err
		}

		edges, err := b.loadEdges(txn, groupID)
		if err != nil {
			return err
		}
		adjacency := make(map[string][]*types.Edge)
		for _, e := range edges {
			adjacency[e.SourceName] = append(adjacency[e.SourceName], e)
			if e.TargetName != e.SourceName {
				adjacency[e.TargetName] = append(adjacency[e.TargetName], e)
			}
		}

		visited := map[string]bool{entity: true}
		seenEdges := make(map[string]bool)
		var neighbors []string
		frontier := []string{entity}
		for hop := 0; hop < depth && len(frontier) > 0; hop++ {
			var next []string
			for _, name := range frontier {
				for _, e := range adjacency[name] {
					if !seenEdges[e.Uuid] {
						seenEdges[e.Uuid] = true
						out.Relationships = append(out.Relationships, e)
					}
					other := e.Other(name)
					if !visited[other] {
						visited[other] = true
						neighbors = append(neighbors, other)
						next = append(next, other)
					}
				}
			}
			frontier = next
		}

		sort.Strings(neighbors)
		for _, name := range neighbors {
			node, err := getJSON[types.Node](txn, badgerKey(nodePrefix, groupID, name))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			out.Neighbors = append(out.Neighbors, node)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortEdges(out.Relationships)
	return out, nil
}

// GetEntityTimeline returns the episodes mentioning an entity in time order.
func (b *BadgerClient) GetEntityTimeline(ctx context.Context, entity string, start, end time.Time) ([]types.TimelineEntry, error) {
	db, err := b.store()
	if err != nil {
		return nil, err
	}

	groupID := b.cfg.GroupID
	entries := []types.TimelineEntry{}
	err = db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(badgerKey(nodePrefix, groupID, entity)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrEntityNotFound, entity)
			}
			return err
		}

		prefix := append(badgerKey(mentionPrefix, groupID, entity), '/')
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rest := bytes.TrimPrefix(it.Item().Key(), prefix)
			tsPart, idPart, ok := strings.Cut(string(rest), "/")
			if !ok {
				continue
			}
			nanos, err := strconv.ParseInt(tsPart, 10, 64)
			if err != nil {
				continue
			}
			if !inRange(time.Unix(0, nanos), start, end) {
				continue
			}
			episodeID, err := url.PathUnescape(idPart)
			if err != nil {
				continue
			}
			ep, err := getJSON[types.Episode](txn, badgerKey(episodePrefix, groupID, episodeID))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			entries = append(entries, types.TimelineEntry{
				EpisodeID: ep.ID,
				Name:      ep.Name,
				Source:    ep.Source,
				Timestamp: ep.Timestamp,
				Metadata:  ep.Metadata,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ClearGraph drops every key of a group.
func (b *BadgerClient) ClearGraph(ctx context.Context, groupID string) error {
	db, err := b.store()
	if err != nil {
		return err
	}
	groupID = groupOr(groupID, b.cfg.GroupID)
	prefixes := [][]byte{
		groupPrefix(episodePrefix, groupID),
		groupPrefix(nodePrefix, groupID),
		groupPrefix(edgePrefix, groupID),
		groupPrefix(mentionPrefix, groupID),
	}

	var keys [][]byte
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for _, prefix := range prefixes {
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				keys = append(keys, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear group %s: %w", groupID, err)
	}

	wb := db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("failed to clear group %s: %w", groupID, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to clear group %s: %w", groupID, err)
	}
	b.logger.Info("Cleared graph group", "group_id", groupID, "keys", len(keys))
	return nil
}

// GetStats counts the episodes, nodes and edges of a group.
func (b *BadgerClient) GetStats(ctx context.Context, groupID string) (*GraphStats, error) {
	db, err := b.store()
	if err != nil {
		return nil, err
	}
	groupID = groupOr(groupID, b.cfg.GroupID)
	stats := newGraphStats()
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		prefix := groupPrefix(episodePrefix, groupID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stats.EpisodeCount++
		}
		it.Close()

		if err := scanJSON(txn, groupPrefix(nodePrefix, groupID), func(n *types.Node) error {
			stats.NodeCount++
			stats.NodesByType[n.EntityType]++
			return nil
		}); err != nil {
			return err
		}
		return scanJSON(txn, groupPrefix(edgePrefix, groupID), func(e *types.Edge) error {
			stats.EdgeCount++
			stats.EdgesByType[string(e.Type)]++
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
