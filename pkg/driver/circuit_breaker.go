package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/soundprediction/zonegraph/pkg/alert"
	"github.com/soundprediction/zonegraph/pkg/config"
	"github.com/soundprediction/zonegraph/pkg/types"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("graph client circuit open")

// CircuitBreakerClient wraps a GraphClient with circuit breaking logic.
// Calls fail fast while the breaker is open; nothing is retried.
type CircuitBreakerClient struct {
	client  GraphClient
	cb      *gobreaker.CircuitBreaker
	alerter alert.Alerter
	name    string
	logger  *slog.Logger
}

// NewCircuitBreakerClient creates a new circuit breaker client
func NewCircuitBreakerClient(client GraphClient, cfg config.CircuitBreakerConfig, alerter alert.Alerter, name string, logger *slog.Logger) *CircuitBreakerClient {
	if logger == nil {
		logger = slog.Default()
	}
	if alerter == nil {
		alerter = &alert.NoOpAlerter{}
	}
	ratio := cfg.ReadyToTripRatio
	if ratio <= 0 {
		ratio = 0.6
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= ratio
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen {
				msg := fmt.Sprintf("Circuit Breaker '%s' changed status from %s to %s. Too many graph failures detected.", name, from, to)
				if err := alerter.Alert(fmt.Sprintf("URGENT: Circuit Breaker Tripped - %s", name), msg); err != nil {
					logger.Error("Failed to send circuit breaker alert", "error", err)
				}
			}
		},
	}

	return &CircuitBreakerClient{
		client:  client,
		cb:      gobreaker.NewCircuitBreaker(st),
		alerter: alerter,
		name:    name,
		logger:  logger,
	}
}

// isSuccessful keeps caller mistakes from tripping the breaker.
func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, ErrEntityNotFound) ||
		errors.Is(err, types.ErrInvalidDepth) ||
		errors.Is(err, types.ErrEmptyEpisodeID) ||
		errors.Is(err, types.ErrEmptyContent) ||
		errors.Is(err, context.Canceled)
}

// State returns the current breaker state.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.cb.State()
}

func (c *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := c.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s: %v", ErrCircuitOpen, c.name, err)
	}
	return result, err
}

// Initialize implements GraphClient
func (c *CircuitBreakerClient) Initialize(ctx context.Context) error {
	return c.client.Initialize(ctx)
}

// Close implements GraphClient
func (c *CircuitBreakerClient) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// AddEpisode implements GraphClient
func (c *CircuitBreakerClient) AddEpisode(ctx context.Context, episode types.Episode) error {
	_, err := c.execute(func() (interface{}, error) {
		return nil, c.client.AddEpisode(ctx, episode)
	})
	return err
}

// Search implements GraphClient
func (c *CircuitBreakerClient) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	resp, err := c.execute(func() (interface{}, error) {
		return c.client.Search(ctx, query, limit)
	})
	if err != nil {
		return nil, err
	}
	return resp.([]types.SearchResult), nil
}

// GetEntityRelationships implements GraphClient
func (c *CircuitBreakerClient) GetEntityRelationships(ctx context.Context, entity string, depth int) (*types.EntityRelationships, error) {
	resp, err := c.execute(func() (interface{}, error) {
		return c.client.GetEntityRelationships(ctx, entity, depth)
	})
	if err != nil {
		return nil, err
	}
	return resp.(*types.EntityRelationships), nil
}

// GetEntityTimeline implements GraphClient
func (c *CircuitBreakerClient) GetEntityTimeline(ctx context.Context, entity string, start, end time.Time) ([]types.TimelineEntry, error) {
	resp, err := c.execute(func() (interface{}, error) {
		return c.client.GetEntityTimeline(ctx, entity, start, end)
	})
	if err != nil {
		return nil, err
	}
	return resp.([]types.TimelineEntry), nil
}

// ClearGraph implements GraphClient
func (c *CircuitBreakerClient) ClearGraph(ctx context.Context, groupID string) error {
	_, err := c.execute(func() (interface{}, error) {
		return nil, c.client.ClearGraph(ctx, groupID)
	})
	return err
}

// GetStats delegates to the wrapped client when it reports statistics.
func (c *CircuitBreakerClient) GetStats(ctx context.Context, groupID string) (*GraphStats, error) {
	reporter, ok := c.client.(StatsReporter)
	if !ok {
		return nil, fmt.Errorf("%s does not report statistics", c.name)
	}
	resp, err := c.execute(func() (interface{}, error) {
		return reporter.GetStats(ctx, groupID)
	})
	if err != nil {
		return nil, err
	}
	return resp.(*GraphStats), nil
}
