// Package telemetry persists error-level log records so failed ingestion
// runs can be inspected after the fact. Records are written to Parquet files
// and, when configured, to a SQLite database.
package telemetry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/soundprediction/zonegraph/pkg/config"
)

// Setup wraps next with the handlers enabled in cfg. The returned close
// function flushes and releases them.
func Setup(cfg config.TelemetryConfig, next slog.Handler) (slog.Handler, func() error, error) {
	handler := next
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	if cfg.ParquetPath != "" {
		ph, err := NewParquetHandler(handler, cfg.ParquetPath)
		if err != nil {
			return nil, nil, err
		}
		handler = ph
		closers = append(closers, ph.Close)
	}

	if cfg.DbURL != "" {
		db, err := OpenSQLite(cfg.DbURL)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		sh, err := NewSQLHandler(handler, db)
		if err != nil {
			db.Close()
			_ = closeAll()
			return nil, nil, fmt.Errorf("telemetry database %s: %w", cfg.DbURL, err)
		}
		handler = sh
		closers = append(closers, db.Close)
	}

	return handler, closeAll, nil
}
