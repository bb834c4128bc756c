package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/scout/internal/adapters/artifacts"
	"github.com/okian/scout/internal/adapters/dataset"
	"github.com/okian/scout/internal/domain/player"
	"github.com/okian/scout/internal/domain/schema"
	"github.com/okian/scout/pkg/logger"
)

type fitReport struct {
	Dir       string `json:"dir"`
	Rows      int    `json:"rows"`
	Skipped   int    `json:"skipped"`
	Columns   int    `json:"columns"`
	Clubs     int    `json:"clubs"`
	ModelFile string `json:"model_file"`
}

func newFitCmd(c *cli) *cobra.Command {
	var (
		out          string
		minClubCount int
	)
	cmd := &cobra.Command{
		Use:   "fit <training.csv>",
		Short: "Fit the feature schema, encoder and club encoding from a cleaned dataset",
		Long: `Learns imputation defaults, one-hot categories, club target encoding and
the reference value distribution, and writes schema.yaml, encoder.json and
club_encoding.json. The regression model itself (model.json) is trained
elsewhere and must list the same columns.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = c.cfg.ArtifactsDir
			}
			tbl, err := dataset.Read(args[0])
			if err != nil {
				return fmt.Errorf("read training data: %w", err)
			}
			recs, errs := tbl.Records()
			clean := make([]player.Record, 0, len(recs))
			for i := range recs {
				if errs[i] != nil {
					c.log.Debug(cmd.Context(), "skipping unparseable row", logger.Int("row", i+1), logger.Error(errs[i]))
					continue
				}
				clean = append(clean, recs[i])
			}

			s, err := schema.Fit(clean, schema.WithMinClubCount(minClubCount))
			if err != nil {
				return err
			}
			if err := artifacts.SaveSchema(out, s); err != nil {
				return err
			}
			c.log.Info(cmd.Context(), "schema artifacts written",
				logger.String("dir", out),
				logger.Int("columns", s.Width()),
			)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(fitReport{
				Dir:       out,
				Rows:      len(recs),
				Skipped:   len(recs) - len(clean),
				Columns:   s.Width(),
				Clubs:     len(s.Club().Means),
				ModelFile: artifacts.ModelFile,
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output directory (defaults to the artifacts directory)")
	cmd.Flags().IntVar(&minClubCount, "min-club-count", 1, "clubs with fewer rows fall back to the global mean")
	return cmd
}
