package zonegraph

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/soundprediction/zonegraph/pkg/episode"
	"github.com/soundprediction/zonegraph/pkg/extract"
	"github.com/soundprediction/zonegraph/pkg/geochunk"
	"github.com/soundprediction/zonegraph/pkg/geojson"
)

// chunkReport is the YAML shape printed by inspect.
type chunkReport struct {
	ZoneID          string         `yaml:"zone_id"`
	ZoneName        string         `yaml:"zone_name"`
	ZoneType        string         `yaml:"zone_type"`
	SecurityLevel   string         `yaml:"security_level"`
	ContentLength   int            `yaml:"content_length"`
	Infrastructure  int            `yaml:"infrastructure_count"`
	EntryExitPoints int            `yaml:"entry_exit_count"`
	Content         string         `yaml:"content,omitempty"`
	Entities        map[string]any `yaml:"entities,omitempty"`
}

type inspectReport struct {
	Source    string        `yaml:"source"`
	Validated bool          `yaml:"schema_validated"`
	Issues    string        `yaml:"schema_error,omitempty"`
	Zones     []chunkReport `yaml:"zones"`
}

func newInspectCmd(a *app) *cobra.Command {
	var (
		zoneID       string
		showContent  bool
		showEntities bool
		repair       bool
	)
	cmd := &cobra.Command{
		Use:   "inspect <venue.geojson>",
		Short: "Print the geo chunks and extracted entities of a venue document as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := geojson.LoadViews(args[0], &geojson.LoadOptions{Repair: repair || a.cfg.Ingestion.RepairJSON}, a.logger)
			if err != nil {
				return err
			}
			chunks := geochunk.NewBuilder(a.logger).BuildCollection(coll)
			extractor := extract.NewExtractor(a.logger)
			preparer := episode.NewPreparer(a.cfg.Ingestion.MaxContentLength, a.logger)

			report := inspectReport{Source: args[0], Validated: coll.Validated()}
			if coll.SchemaErr != nil {
				report.Issues = coll.SchemaErr.Error()
			}
			for i := range chunks {
				chunk := &chunks[i]
				if zoneID != "" && chunk.ZoneID != zoneID {
					continue
				}
				r := chunkReport{
					ZoneID:          chunk.ZoneID,
					ZoneName:        chunk.ZoneName,
					ZoneType:        chunk.ZoneType,
					SecurityLevel:   chunk.SecurityLevel(),
					ContentLength:   utf8.RuneCountInString(chunk.Content),
					Infrastructure:  len(chunk.InfrastructurePoints),
					EntryExitPoints: len(chunk.EntryExitPoints),
				}
				if showContent {
					r.Content = preparer.Prepare(chunk, a.cfg.Ingestion.SourceName)
				}
				if showEntities {
					entities, err := toMap(extractor.ExtractInto(chunk))
					if err != nil {
						return err
					}
					r.Entities = entities
				}
				report.Zones = append(report.Zones, r)
			}
			if zoneID != "" && len(report.Zones) == 0 {
				return fmt.Errorf("zone %q not found in %s", zoneID, args[0])
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(report); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&zoneID, "zone", "", "only show this zone id")
	cmd.Flags().BoolVar(&showContent, "content", false, "include the prepared episode content")
	cmd.Flags().BoolVar(&showEntities, "entities", false, "include extracted entities")
	cmd.Flags().BoolVar(&repair, "repair", false, "repair malformed JSON before decoding")
	return cmd
}

// toMap converts v to a generic map through its JSON form so YAML output
// uses the JSON field names.
func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
