package zonegraph

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soundprediction/zonegraph/pkg/geojson"
	"github.com/soundprediction/zonegraph/pkg/zone"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		input   string
		output  string
		profile string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Classify raw venue polygons into an attributed zone document",
		Long: `Read a {"geometries": [...]} polygon file, classify each polygon into a
zone type and write a FeatureCollection venue document with zone attributes,
infrastructure points and the venue profile blocks.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			polygons, err := geojson.LoadSourceGeometries(input)
			if err != nil {
				return err
			}

			gen, err := zone.NewGenerator(a.logger)
			if err != nil {
				return err
			}
			if profile != "" {
				p, err := zone.LoadVenueProfile(profile)
				if err != nil {
					return err
				}
				gen.Profile = p
			}

			doc, err := gen.GenerateDocument(polygons)
			if err != nil {
				return err
			}
			if err := geojson.Save(output, doc); err != nil {
				return err
			}

			a.logger.Info("Generated venue document", "zones", len(doc.Features), "output", output)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d zones to %s\n", len(doc.Features), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "raw polygon geometry file")
	cmd.Flags().StringVarP(&output, "output", "o", "venue_zones.geojson", "venue document to write")
	cmd.Flags().StringVar(&profile, "venue-profile", "", "YAML venue profile overriding the embedded one")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
