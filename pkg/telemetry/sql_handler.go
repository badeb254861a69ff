package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DefaultTable is the table telemetry records are written to.
const DefaultTable = "telemetry_logs"

// OpenSQLite opens (or creates) a SQLite telemetry database at path.
func OpenSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create telemetry dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}
	return db, nil
}

// SQLHandler is a slog.Handler that writes error logs to a SQL database
type SQLHandler struct {
	next      slog.Handler
	db        *sql.DB
	tableName string
	attrs     []slog.Attr
}

// NewSQLHandler creates a new SQLHandler using an existing DB connection
func NewSQLHandler(next slog.Handler, db *sql.DB) (*SQLHandler, error) {
	h := &SQLHandler{
		next:      next,
		db:        db,
		tableName: DefaultTable,
	}

	if err := h.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure telemetry table: %w", err)
	}

	return h, nil
}

func (h *SQLHandler) ensureTable() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			timestamp TEXT NOT NULL,
			level TEXT NOT NULL,
			message TEXT,
			run_id TEXT,
			source_name TEXT,
			request_source TEXT,
			source_file TEXT,
			line_number INTEGER,
			attributes TEXT
		)
	`, h.tableName)

	_, err := h.db.Exec(query)
	return err
}

// Enabled implements slog.Handler
func (h *SQLHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *SQLHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}

	// Only errors are persisted, like ParquetHandler
	if r.Level < slog.LevelError {
		return nil
	}

	rec := newLogRecord(ctx, r, h.attrs)

	query := fmt.Sprintf(`
		INSERT INTO %s (id, timestamp, level, message, run_id, source_name, request_source, source_file, line_number, attributes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, h.tableName)

	_, err := h.db.ExecContext(context.WithoutCancel(ctx), query,
		rec.ID,
		rec.Timestamp.Format(time.RFC3339Nano),
		rec.Level,
		rec.Message,
		rec.RunID,
		rec.SourceName,
		rec.RequestSource,
		rec.SourceFile,
		rec.LineNumber,
		rec.Attributes,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write log to SQL: %v\n", err)
	}

	// Database errors never block the logging chain
	return nil
}

// WithAttrs implements slog.Handler
func (h *SQLHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SQLHandler{
		next:      h.next.WithAttrs(attrs),
		db:        h.db,
		tableName: h.tableName,
		attrs:     append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler
func (h *SQLHandler) WithGroup(name string) slog.Handler {
	return &SQLHandler{
		next:      h.next.WithGroup(name),
		db:        h.db,
		tableName: h.tableName,
		attrs:     h.attrs,
	}
}

// RecentErrors returns the newest persisted records for a run, or for all
// runs when runID is empty.
func (h *SQLHandler) RecentErrors(ctx context.Context, runID string, limit int) ([]LogRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT id, timestamp, level, message, run_id, source_name, request_source, source_file, line_number, attributes
		FROM %s
		WHERE (? = '' OR run_id = ?)
		ORDER BY timestamp DESC
		LIMIT ?
	`, h.tableName)

	rows, err := h.db.QueryContext(ctx, query, runID, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("query telemetry: %w", err)
	}
	defer rows.Close()

	var records []LogRecord
	for rows.Next() {
		var rec LogRecord
		var ts string
		if err := rows.Scan(&rec.ID, &ts, &rec.Level, &rec.Message, &rec.RunID, &rec.SourceName,
			&rec.RequestSource, &rec.SourceFile, &rec.LineNumber, &rec.Attributes); err != nil {
			return nil, fmt.Errorf("scan telemetry: %w", err)
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		records = append(records, rec)
	}
	return records, rows.Err()
}
