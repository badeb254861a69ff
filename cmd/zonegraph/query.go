package zonegraph

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/soundprediction/zonegraph/pkg/driver"
)

// printResult writes v as indented JSON or, for format "yaml", as YAML
// keyed by the JSON field names.
func printResult(w io.Writer, v any, format string) error {
	if strings.EqualFold(format, "yaml") {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withGraph opens the graph for the duration of fn.
func (a *app) withGraph(cmd *cobra.Command, fn func(client driver.GraphClient) error) error {
	ctx := commandContext(cmd)
	client, err := a.openGraph(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(ctx); err != nil {
			a.logger.Warn("Failed to close graph client", "error", err)
		}
	}()
	return fn(client)
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		limit  int
		format string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search graph facts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return a.withGraph(cmd, func(client driver.GraphClient) error {
				results, err := client.Search(commandContext(cmd), query, limit)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), results, format)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of facts")
	cmd.Flags().StringVar(&format, "format", "json", "output format (json, yaml)")
	return cmd
}

func newRelationshipsCmd(a *app) *cobra.Command {
	var (
		depth  int
		format string
	)
	cmd := &cobra.Command{
		Use:   "relationships <entity>",
		Short: "Show the neighbourhood of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withGraph(cmd, func(client driver.GraphClient) error {
				rel, err := client.GetEntityRelationships(commandContext(cmd), args[0], depth)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), rel, format)
			})
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "d", 2, "traversal depth (1-5)")
	cmd.Flags().StringVar(&format, "format", "json", "output format (json, yaml)")
	return cmd
}

func newTimelineCmd(a *app) *cobra.Command {
	var (
		start, end string
		format     string
	)
	cmd := &cobra.Command{
		Use:   "timeline <entity>",
		Short: "List the episodes that mention an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseTime(start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			to, err := parseTime(end)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			return a.withGraph(cmd, func(client driver.GraphClient) error {
				entries, err := client.GetEntityTimeline(commandContext(cmd), args[0], from, to)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), entries, format)
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "lower bound (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "upper bound (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&format, "format", "json", "output format (json, yaml)")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count episodes, entities and relationships in the graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withGraph(cmd, func(client driver.GraphClient) error {
				reporter, ok := client.(driver.StatsReporter)
				if !ok {
					return fmt.Errorf("graph driver %q does not report statistics", a.cfg.Database.Driver)
				}
				stats, err := reporter.GetStats(commandContext(cmd), a.cfg.Ingestion.GroupID)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), stats, format)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format (json, yaml)")
	return cmd
}

func newClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every node and edge of the configured group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear group %q without --yes", a.cfg.Ingestion.GroupID)
			}
			return a.withGraph(cmd, func(client driver.GraphClient) error {
				if err := client.ClearGraph(commandContext(cmd), a.cfg.Ingestion.GroupID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared group %s\n", a.cfg.Ingestion.GroupID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm clearing the graph")
	return cmd
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	return time.Parse(time.DateOnly, s)
}
