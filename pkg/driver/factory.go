package driver

import (
	"fmt"
	"log/slog"

	"github.com/soundprediction/zonegraph/pkg/alert"
	"github.com/soundprediction/zonegraph/pkg/config"
)

// New builds the graph client selected by cfg.Database.Driver, wrapped in a
// circuit breaker when one is enabled. The client is not initialized.
func New(cfg *config.Config, alerter alert.Alerter, logger *slog.Logger) (GraphClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	groupID := cfg.Ingestion.GroupID

	var client GraphClient
	switch GraphProvider(cfg.Database.Driver) {
	case GraphProviderNeo4j:
		client = NewNeo4jClient(Neo4jConfig{
			URI:      cfg.Database.URI,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			Database: cfg.Database.Database,
			GroupID:  groupID,
		}, logger)
	case GraphProviderBadger, "":
		client = NewBadgerClient(BadgerConfig{
			Path:     cfg.Database.URI,
			InMemory: cfg.Database.InMemory,
			GroupID:  groupID,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Database.Driver)
	}

	if cfg.CircuitBreaker.Enabled {
		client = NewCircuitBreakerClient(client, cfg.CircuitBreaker, alerter, "graph-"+cfg.Database.Driver, logger)
	}
	return client, nil
}
