// Package zonegraph implements the zonegraph command line.
package zonegraph

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soundprediction/zonegraph/pkg/alert"
	"github.com/soundprediction/zonegraph/pkg/checkpoint"
	"github.com/soundprediction/zonegraph/pkg/config"
	"github.com/soundprediction/zonegraph/pkg/driver"
	"github.com/soundprediction/zonegraph/pkg/logger"
	"github.com/soundprediction/zonegraph/pkg/telemetry"
	"github.com/soundprediction/zonegraph/pkg/types"
)

// app carries state shared by the subcommands of one invocation.
type app struct {
	cfgFile string
	envFile string

	cfg    *config.Config
	logger *slog.Logger
	closer func() error
}

// Execute runs the root command with os.Args. Telemetry sinks are flushed
// even when the command fails.
func Execute() error {
	rootCmd, a := newRootCmd()
	err := rootCmd.Execute()
	return errors.Join(err, a.close())
}

// newRootCmd builds the command tree and the state its subcommands share.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "zonegraph",
		Short: "Zonegraph: venue zone knowledge graph tool",
		Long: `Zonegraph classifies venue polygons into operational zones, renders each
zone as a text chunk with extracted entities, and ingests the chunks into a
knowledge graph as episodes that agents can search.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.zonegraph.yaml or ./.zonegraph.yaml)")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before configuration")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "color", "log format (color, text, json)")
	flags.String("db-driver", "", "graph database driver (badger, neo4j)")
	flags.String("db-uri", "", "graph database URI or badger directory")
	flags.String("group-id", "", "graph partition")

	rootCmd.AddCommand(
		newGenerateCmd(a),
		newInspectCmd(a),
		newIngestCmd(a),
		newExportCmd(a),
		newSearchCmd(a),
		newRelationshipsCmd(a),
		newTimelineCmd(a),
		newStatsCmd(a),
		newRunsCmd(a),
		newClearCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
	)
	return rootCmd, a
}

// init loads .env, the config file and environment, then installs the
// logger chain.
func (a *app) init(cmd *cobra.Command) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", a.envFile, err)
		}
	}

	if a.cfgFile != "" {
		viper.SetConfigFile(a.cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".zonegraph")
	}
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyRootFlags(cmd, cfg)
	a.cfg = cfg

	base := logger.NewHandler(os.Stderr, cfg.Log.Format, logger.ParseLevel(cfg.Log.Level))
	handler, closer, err := telemetry.Setup(cfg.Telemetry, base)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	a.closer = closer
	a.logger = slog.New(handler)
	slog.SetDefault(a.logger)

	if used := viper.ConfigFileUsed(); used != "" {
		a.logger.Debug("Using config file", "path", used)
	}
	return nil
}

func (a *app) close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer()
	a.closer = nil
	return err
}

func applyRootFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("db-driver") {
		cfg.Database.Driver, _ = flags.GetString("db-driver")
	}
	if flags.Changed("db-uri") {
		cfg.Database.URI, _ = flags.GetString("db-uri")
	}
	if flags.Changed("group-id") {
		cfg.Ingestion.GroupID, _ = flags.GetString("group-id")
	}
}

// commandContext tags ctx so telemetry records name the CLI as their source.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, types.ContextKeyRequestSource, "cli")
}

// openGraph builds and initializes the configured graph client. The caller
// closes it.
func (a *app) openGraph(ctx context.Context) (driver.GraphClient, error) {
	client, err := driver.New(a.cfg, alert.New(a.cfg.Alert, a.logger), a.logger)
	if err != nil {
		return nil, err
	}
	if err := client.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize graph client: %w", err)
	}
	return client, nil
}

func (a *app) checkpoints() (*checkpoint.CheckpointManager, error) {
	return checkpoint.NewCheckpointManager(a.cfg.Ingestion.CheckpointDir)
}
