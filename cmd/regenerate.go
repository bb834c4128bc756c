package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/okian/scout/internal/domain/classify"
)

func newRegenerateCmd(c *cli) *cobra.Command {
	var tolerance float64
	cmd := &cobra.Command{
		Use:   "regenerate [dataset.csv]",
		Short: "Score every row of a dataset and write the annotation columns back",
		Long: `Scores every row, then writes predicted_value_eur, difference_eur,
ml_classification and tolerance_used into the CSV. The previous file is kept
as <name>_backup_<YYYYMMDD_HHMMSS>.csv. Without an argument the configured
dataset is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.cfg.DatasetPath
			if len(args) == 1 {
				path = args[0]
			}
			var tol *float64
			if cmd.Flags().Changed("tolerance") {
				tol = &tolerance
			}
			rep, err := c.service().Regenerate(cmd.Context(), path, tol)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
	cmd.Flags().Float64Var(&tolerance, "tolerance", classify.DefaultTolerance, "relative band classified as FAIR")
	return cmd
}
