package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/zonegraph/pkg/config"
	"github.com/soundprediction/zonegraph/pkg/types"
)

func discard() slog.Handler {
	return slog.NewTextHandler(io.Discard, nil)
}

func runContext() context.Context {
	ctx := context.WithValue(context.Background(), types.ContextKeyRunID, "run-1")
	return context.WithValue(ctx, types.ContextKeySourceName, "venue_zones")
}

func TestParquetHandler(t *testing.T) {
	dir := t.TempDir()
	h, err := NewParquetHandler(discard(), dir)
	require.NoError(t, err)

	log := slog.New(h).With("component", "ingest")
	ctx := runContext()
	log.InfoContext(ctx, "not persisted")
	log.ErrorContext(ctx, "Failed to add geo chunk zone_002 to graph", "error", errors.New("graph down"))

	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	require.NoError(t, err)
	assert.Empty(t, files, "records are buffered until flush")

	require.NoError(t, h.Close())
	files, err = filepath.Glob(filepath.Join(dir, "*.parquet"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	records, err := ReadParquet(files[0])
	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "ERROR", rec.Level)
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, "venue_zones", rec.SourceName)
	assert.JSONEq(t, `{"component":"ingest","error":"graph down"}`, rec.Attributes)

	require.NoError(t, h.Close(), "closing with an empty buffer is a no-op")
}

func TestParquetHandlerBatches(t *testing.T) {
	dir := t.TempDir()
	h, err := NewParquetHandler(discard(), dir)
	require.NoError(t, err)
	h.sink.batchSize = 2

	log := slog.New(h)
	for i := 0; i < 5; i++ {
		log.Error("boom", "i", i)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Len(t, h.sink.buffer, 1)
}

func TestSQLHandler(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "telemetry.db"))
	require.NoError(t, err)
	defer db.Close()

	h, err := NewSQLHandler(discard(), db)
	require.NoError(t, err)

	log := slog.New(h)
	log.ErrorContext(runContext(), "first failure", "zone_id", "zone_001")
	log.ErrorContext(context.Background(), "unrelated failure")
	log.Warn("not persisted")

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+DefaultTable).Scan(&count))
	assert.Equal(t, 2, count)

	records, err := h.RecentErrors(context.Background(), "run-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "first failure", records[0].Message)
	assert.Equal(t, "venue_zones", records[0].SourceName)
	assert.JSONEq(t, `{"zone_id":"zone_001"}`, records[0].Attributes)
	assert.False(t, records[0].Timestamp.IsZero())

	all, err := h.RecentErrors(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSetup(t *testing.T) {
	t.Run("no sinks", func(t *testing.T) {
		next := discard()
		h, closeFn, err := Setup(config.TelemetryConfig{}, next)
		require.NoError(t, err)
		assert.Equal(t, next, h)
		assert.NoError(t, closeFn())
	})

	t.Run("parquet and sqlite", func(t *testing.T) {
		dir := t.TempDir()
		h, closeFn, err := Setup(config.TelemetryConfig{
			ParquetPath: filepath.Join(dir, "parquet"),
			DbURL:       filepath.Join(dir, "db", "telemetry.db"),
		}, discard())
		require.NoError(t, err)

		_, ok := h.(*SQLHandler)
		assert.True(t, ok)
		slog.New(h).Error("boom")
		require.NoError(t, closeFn())

		files, err := filepath.Glob(filepath.Join(dir, "parquet", "*.parquet"))
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})
}
