// Package driver provides knowledge-graph client implementations for zonegraph.
//
// This package defines the GraphClient contract used by the ingestion
// pipeline and the query surfaces, and provides implementations for Neo4j and
// for an embedded Badger store.
//
// # Supported Databases
//
//   - Neo4j: episodes, entities and facts as Episodic/Entity nodes and
//     RELATES_TO relationships, searched through fulltext indices
//   - Badger: embedded key-value store, suitable for single-process use and tests
//
// # Usage
//
// Clients are constructed explicitly and initialized by the caller:
//
//	client := driver.NewBadgerClient(driver.BadgerConfig{Path: "./zonegraph_db"}, logger)
//	if err := client.Initialize(ctx); err != nil {
//		return err
//	}
//	defer client.Close(ctx)
//
// New selects the client from configuration and wraps it in a circuit
// breaker when one is enabled.
//
// # Projection
//
// Episodes that carry extracted entities are projected into entity nodes
// (zones, agents, infrastructure, entry/exit points, response teams,
// incident types, communication channels) and fact edges between them. The
// projection is shared by both clients so they answer queries alike.
package driver
