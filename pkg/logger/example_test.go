package logger_test

import (
	"log/slog"
	"os"

	"github.com/soundprediction/zonegraph/pkg/logger"
)

func ExampleNewDefaultLogger() {
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Debug("Building geo chunks")
	// Green
	log.Info("Added episode to knowledge graph", "episode_id", "venue_zones_zone_001_1753005600.000000")
	// Yellow
	log.Warn("Schema validation failed, using raw view")
	// Red
	log.Error("Failed to add geo chunk zone_002 to graph")
}

func ExampleNewHandler() {
	log := slog.New(logger.NewHandler(os.Stderr, "json", logger.ParseLevel("debug")))
	log.Debug("Loaded venue document", "zones", 108)
}
