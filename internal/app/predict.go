package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"frost-risk-alerts/internal/service"
	"frost-risk-alerts/internal/weather"
)

// Predict triggers one pipeline run immediately, outside the scheduler.
// With DryRun the assessment is computed and printed but not persisted.
func (a *App) Predict(ctx context.Context, opts PredictOptions) error {
	if err := weather.ValidateVariableSets(); err != nil {
		return err
	}

	model, err := a.Model()
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}
	if opts.DryRun {
		if store != nil {
			a.Logger.Warn().Msg("预测 dry-run：不会写入数据库")
		}
		store = nil
	} else if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; running without persistence")
	}

	pipeline := a.newPipeline(nil, store, model)

	descriptor, runErr := pipeline.RunOnce(ctx, time.Now())
	if descriptor != nil {
		fmt.Fprintf(os.Stdout, "Target hour:        %s\n", descriptor.TargetTime.Format(time.RFC3339))
		fmt.Fprintf(os.Stdout, "Outcome:            %s\n", descriptor.Outcome)
		fmt.Fprintf(os.Stdout, "Intensity:          %s\n", descriptor.Intensity)
		fmt.Fprintf(os.Stdout, "Duration (hours):   %.1f\n", descriptor.DurationHours)
		fmt.Fprintf(os.Stdout, "Frost probability:  %.2f\n", descriptor.FrostProbability)
		fmt.Fprintf(os.Stdout, "Forecast temp (°C): %.1f\n", descriptor.Temperature)
	}
	if runErr != nil {
		if errors.Is(runErr, service.ErrPersistenceFailed) {
			a.Logger.Error().Err(runErr).Msg("assessment computed but not saved")
		}
		return runErr
	}
	return nil
}
