package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"frost-risk-alerts/internal/alerting"
	"frost-risk-alerts/internal/classifier"
	"frost-risk-alerts/internal/config"
	"frost-risk-alerts/internal/features"
	"frost-risk-alerts/internal/scheduler"
	"frost-risk-alerts/internal/service"
	"frost-risk-alerts/internal/storage"
	"frost-risk-alerts/internal/weather"
)

// App aggregates configuration and shared dependencies for the CLI commands.
// The classifier artifact is loaded once here and injected everywhere else.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	model classifier.Classifier
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// Model lazily loads the pretrained classifier artifact. Subsequent calls
// reuse the loaded tree.
func (a *App) Model() (classifier.Classifier, error) {
	if a.model != nil {
		return a.model, nil
	}
	tree, err := classifier.LoadDecisionTree(a.Config.Model.ArtifactPath)
	if err != nil {
		return nil, err
	}
	a.Logger.Info().Str("artifact", a.Config.Model.ArtifactPath).Msg("classifier artifact loaded")
	a.model = tree
	return tree, nil
}

func (a *App) newFetcher() weather.ForecastFetcher {
	return weather.NewClient(weather.Options{
		BaseURL:   a.Config.Weather.BaseURL,
		Timeout:   a.Config.Weather.RequestTimeout,
		UserAgent: a.Config.Weather.UserAgent,
		Timezone:  a.Config.Weather.Timezone,
	}, a.Logger)
}

func (a *App) newSelector() *features.Selector {
	return features.NewSelector(features.SelectorOptions{
		BandStartHour: a.Config.Window.BandStartHour,
		BandEndHour:   a.Config.Window.BandEndHour,
	}, features.DefaultSoilMoisturePolicy(), a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newPipeline(sched *scheduler.Scheduler, store *storage.Store, model classifier.Classifier) *service.Pipeline {
	var predictionStore storage.PredictionStore
	var alertStore storage.FrostAlertStore
	if store != nil {
		predictionStore = store
		alertStore = store
	}

	return service.New(
		a.Config,
		sched,
		a.newFetcher(),
		a.newSelector(),
		model,
		predictionStore,
		alertStore,
		a.newNotifier(),
		a.Logger,
	)
}

// Run executes the long-running nightly prediction service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		Offset:       a.Config.Scheduler.Offset,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	pipeline := a.newPipeline(sched, store, model)

	a.Logger.Info().Msg("starting frost prediction service")
	err = pipeline.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("frost prediction service stopped")
	return nil
}

// PredictOptions configure a one-shot pipeline run.
type PredictOptions struct {
	DryRun bool
}

// ExportOptions hold parameters for exporting historical predictions.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit   int
	Date    string
	Station string
}
