package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/soundprediction/zonegraph/pkg/types"
)

// DefaultBatchSize is the number of error records buffered before a Parquet
// file is written.
const DefaultBatchSize = 100

// LogRecord represents a single error log entry
type LogRecord struct {
	ID            string    `parquet:"id"`
	Timestamp     time.Time `parquet:"timestamp"`
	Level         string    `parquet:"level"`
	Message       string    `parquet:"message"`
	RunID         string    `parquet:"run_id"`
	SourceName    string    `parquet:"source_name"`
	RequestSource string    `parquet:"request_source"`
	SourceFile    string    `parquet:"source_file"`
	LineNumber    int       `parquet:"line_number"`
	Attributes    string    `parquet:"attributes"` // JSON string
}

// newLogRecord builds the persisted form of r, reading run and source
// identifiers from ctx and bound attributes from attrs.
func newLogRecord(ctx context.Context, r slog.Record, attrs []slog.Attr) LogRecord {
	var runID, sourceName, requestSource string
	if v, ok := ctx.Value(types.ContextKeyRunID).(string); ok {
		runID = v
	}
	if v, ok := ctx.Value(types.ContextKeySourceName).(string); ok {
		sourceName = v
	}
	if v, ok := ctx.Value(types.ContextKeyRequestSource).(string); ok {
		requestSource = v
	}

	fields := make(map[string]any, len(attrs)+r.NumAttrs())
	add := func(a slog.Attr) bool {
		v := a.Value.Resolve().Any()
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		fields[a.Key] = v
		return true
	}
	for _, a := range attrs {
		add(a)
	}
	r.Attrs(add)

	attrsJSON, err := json.Marshal(fields)
	if err != nil {
		attrsJSON = []byte("{}")
	}

	var sourceFile string
	var line int
	if r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		sourceFile = f.File
		line = f.Line
	}

	return LogRecord{
		ID:            uuid.New().String(),
		Timestamp:     r.Time.UTC(),
		Level:         r.Level.String(),
		Message:       r.Message,
		RunID:         runID,
		SourceName:    sourceName,
		RequestSource: requestSource,
		SourceFile:    sourceFile,
		LineNumber:    line,
		Attributes:    string(attrsJSON),
	}
}

// parquetSink is the buffer shared by a handler and its derived handlers.
type parquetSink struct {
	mu        sync.Mutex
	outputDir string
	buffer    []LogRecord
	batchSize int
}

// ParquetHandler is a slog.Handler that writes error logs to Parquet files
type ParquetHandler struct {
	next  slog.Handler
	sink  *parquetSink
	attrs []slog.Attr
}

// NewParquetHandler creates a new ParquetHandler
func NewParquetHandler(next slog.Handler, outputDir string) (*ParquetHandler, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}

	return &ParquetHandler{
		next: next,
		sink: &parquetSink{
			outputDir: outputDir,
			batchSize: DefaultBatchSize,
			buffer:    make([]LogRecord, 0, DefaultBatchSize),
		},
	}, nil
}

// Enabled implements slog.Handler
func (h *ParquetHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *ParquetHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}

	// Only errors are persisted
	if r.Level < slog.LevelError {
		return nil
	}

	record := newLogRecord(ctx, r, h.attrs)

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()

	h.sink.buffer = append(h.sink.buffer, record)
	if len(h.sink.buffer) >= h.sink.batchSize {
		return h.sink.flush()
	}
	return nil
}

// Flush writes any buffered records to a new Parquet file.
func (h *ParquetHandler) Flush() error {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return h.sink.flush()
}

// Close flushes buffered records.
func (h *ParquetHandler) Close() error {
	return h.Flush()
}

// flush writes the current buffer to a new Parquet file.
// Caller must hold the lock
func (s *parquetSink) flush() error {
	if len(s.buffer) == 0 {
		return nil
	}

	now := time.Now()
	filename := fmt.Sprintf("ingestion_errors_%s_%d.parquet", now.Format("20060102_150405"), now.UnixNano())
	path := filepath.Join(s.outputDir, filename)

	if err := parquet.WriteFile(path, s.buffer); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write telemetry parquet file: %v\n", err)
		return err
	}

	s.buffer = s.buffer[:0]
	return nil
}

// WithAttrs implements slog.Handler
func (h *ParquetHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ParquetHandler{
		next:  h.next.WithAttrs(attrs),
		sink:  h.sink,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler
func (h *ParquetHandler) WithGroup(name string) slog.Handler {
	return &ParquetHandler{
		next:  h.next.WithGroup(name),
		sink:  h.sink,
		attrs: h.attrs,
	}
}

// ReadParquet loads the records of one telemetry file.
func ReadParquet(path string) ([]LogRecord, error) {
	records, err := parquet.ReadFile[LogRecord](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read telemetry file %s: %w", path, err)
	}
	return records, nil
}
