package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"frost-risk-alerts/internal/storage"
)

// Show prints recent risk assessments, optionally filtered by target date
// and station label.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show predictions")
	}
	if closeStore != nil {
		defer closeStore()
	}

	var records []storage.PredictionRecord
	if opts.Date == "" && opts.Station == "" {
		records, err = store.ListRecentPredictions(ctx, opts.Limit)
	} else {
		filter := storage.ListFilter{Station: opts.Station}
		if opts.Date != "" {
			day, parseErr := time.Parse("2006-01-02", opts.Date)
			if parseErr != nil {
				return fmt.Errorf("invalid --date value (expect YYYY-MM-DD): %w", parseErr)
			}
			filter.TargetDate = &day
		}
		records, err = store.ListPredictions(ctx, filter, opts.Limit)
	}
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no predictions found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Target\tOutcome\tIntensity\tHours\tProb\tTemp°C\tStation\tRegistered")

	for _, rec := range records {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%.1f\t%.2f\t%.1f\t%s\t%s\n",
			rec.TargetTS.Format(time.RFC3339),
			rec.Outcome,
			rec.Intensity,
			rec.DurationHours,
			rec.FrostProbability,
			rec.ForecastTemp,
			sanitizeInline(rec.Station),
			rec.RegisteredAt.UTC().Format(time.RFC3339),
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
