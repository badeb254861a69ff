package zonegraph

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundprediction/zonegraph/pkg/driver"
	"github.com/soundprediction/zonegraph/pkg/export"
	"github.com/soundprediction/zonegraph/pkg/geochunk"
	"github.com/soundprediction/zonegraph/pkg/geojson"
	"github.com/soundprediction/zonegraph/pkg/ingest"
	"github.com/soundprediction/zonegraph/pkg/types"
)

type ingestOptions struct {
	sourceName   string
	runID        string
	exportDir    string
	offline      bool
	noCheckpoint bool
	repair       bool
	pacing       time.Duration
}

func newIngestCmd(a *app) *cobra.Command {
	opts := &ingestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest <venue.geojson>",
		Short: "Ingest the zones of a venue document into the knowledge graph",
		Long: `Build one geo chunk per zone, extract its entities and add it to the
knowledge graph as an episode. A failed zone is reported and the remaining
zones are still ingested. Pass --resume with the run id of an interrupted
run to skip zones it already ingested.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runIngest(cmd, args[0], opts)
		},
	}
	addIngestFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.runID, "resume", "", "run id to resume")
	cmd.Flags().StringVar(&opts.exportDir, "export", "", "also write episodes and projected entities to Parquet under this directory")
	cmd.Flags().BoolVar(&opts.noCheckpoint, "no-checkpoint", false, "do not record run progress")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	opts := &ingestOptions{offline: true, noCheckpoint: true}
	cmd := &cobra.Command{
		Use:   "export <venue.geojson>",
		Short: "Write episodes and projected entities to Parquet without a graph database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.exportDir == "" {
				opts.exportDir = a.cfg.Ingestion.ExportDir
			}
			if !cmd.Flags().Changed("pacing") {
				opts.pacing = -1
			}
			return a.runIngest(cmd, args[0], opts)
		},
	}
	addIngestFlags(cmd, opts)
	cmd.Flags().StringVarP(&opts.exportDir, "out", "o", "", "export directory (defaults to ingestion.export_dir)")
	return cmd
}

func addIngestFlags(cmd *cobra.Command, opts *ingestOptions) {
	cmd.Flags().StringVar(&opts.sourceName, "source-name", "", "source name recorded on episodes (defaults to ingestion.source_name)")
	cmd.Flags().BoolVar(&opts.repair, "repair", false, "repair malformed JSON before decoding")
	cmd.Flags().DurationVar(&opts.pacing, "pacing", 0, "pause between episodes; 0 uses ingestion.pacing_ms, negative disables")
}

func (a *app) runIngest(cmd *cobra.Command, path string, opts *ingestOptions) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coll, err := geojson.LoadViews(path, &geojson.LoadOptions{Repair: opts.repair || a.cfg.Ingestion.RepairJSON}, a.logger)
	if err != nil {
		return err
	}
	chunks := geochunk.NewBuilder(a.logger).BuildCollection(coll)

	var graph driver.EpisodeWriter
	if !opts.offline {
		client, err := a.openGraph(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(context.WithoutCancel(ctx)); err != nil {
				a.logger.Warn("Failed to close graph client", "error", err)
			}
		}()
		graph = client
	}
	writer, err := episodeWriter(graph, opts.exportDir)
	if err != nil {
		return err
	}

	pacing := opts.pacing
	if pacing == 0 {
		pacing = time.Duration(a.cfg.Ingestion.PacingMillis) * time.Millisecond
		if pacing <= 0 {
			pacing = -1
		}
	}
	coordinator := ingest.NewCoordinator(writer, ingest.Config{
		GroupID:          a.cfg.Ingestion.GroupID,
		MaxContentLength: a.cfg.Ingestion.MaxContentLength,
		Pacing:           pacing,
	}, a.logger)
	if !opts.noCheckpoint {
		m, err := a.checkpoints()
		if err != nil {
			return err
		}
		coordinator.WithCheckpoints(m)
	}

	sourceName := opts.sourceName
	if sourceName == "" {
		sourceName = a.cfg.Ingestion.SourceName
	}

	var result *types.BatchResult
	if opts.runID != "" {
		result = coordinator.IngestRun(ctx, opts.runID, chunks, sourceName, coll.Metadata)
	} else {
		result = coordinator.Ingest(ctx, chunks, sourceName, coll.Metadata)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %s\n", result.RunID, result.String())
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  - %s\n", e)
	}
	if opts.exportDir != "" {
		fmt.Fprintf(out, "Parquet export written to %s\n", opts.exportDir)
	}

	switch {
	case result.Cancelled:
		return fmt.Errorf("ingestion cancelled after %d of %d zones; resume with --resume %s",
			result.EpisodesCreated+result.Skipped, result.TotalChunks, result.RunID)
	case result.Failed() > 0:
		return fmt.Errorf("ingestion finished with %d failed zones", result.Failed())
	}
	return nil
}

// episodeWriter combines the graph and the Parquet export. The export is
// written first: a graph episode cannot be replaced, so it is only added once
// the export has taken the chunk, and a resumed run never adds it twice.
func episodeWriter(graph driver.EpisodeWriter, exportDir string) (driver.EpisodeWriter, error) {
	var writers []driver.EpisodeWriter
	if exportDir != "" {
		w, err := export.NewParquetGraphWriter(exportDir)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}
	if graph != nil {
		writers = append(writers, graph)
	}
	if len(writers) == 0 {
		return nil, errors.New("nothing to write: offline ingestion needs an export directory")
	}
	return ingest.Tee(writers...), nil
}
