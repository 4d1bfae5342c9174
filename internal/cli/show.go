package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"frost-risk-alerts/internal/app"
)

var (
	showLimit   int
	showDate    string
	showStation string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent risk assessments",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit:   showLimit,
			Date:    showDate,
			Station: showStation,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of assessments to display")
	showCmd.Flags().StringVar(&showDate, "date", "", "Filter by target date (YYYY-MM-DD)")
	showCmd.Flags().StringVar(&showStation, "station", "", "Filter by station label substring")
}
