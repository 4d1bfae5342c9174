package cli

import (
	"github.com/spf13/cobra"

	"frost-risk-alerts/internal/app"
)

var (
	predictDryRun bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run the forecast-to-risk pipeline once, immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.PredictOptions{
			DryRun: predictDryRun,
		}
		return getApp().Predict(cmd.Context(), opts)
	},
}

func init() {
	predictCmd.Flags().BoolVar(&predictDryRun, "dry-run", false, "Compute the assessment without writing to storage")
}
