package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"frost-risk-alerts/internal/alerting"
	"frost-risk-alerts/internal/classifier"
	"frost-risk-alerts/internal/config"
	"frost-risk-alerts/internal/features"
	"frost-risk-alerts/internal/risk"
	"frost-risk-alerts/internal/scheduler"
	"frost-risk-alerts/internal/storage"
	"frost-risk-alerts/internal/weather"
)

var (
	// ErrClassificationFailed marks a classifier fault. Fatal to the run,
	// never retried.
	ErrClassificationFailed = errors.New("classification failed")

	// ErrPersistenceFailed marks a failed store write. The computed
	// descriptor is still returned alongside it so the caller can decide
	// whether to retry the write.
	ErrPersistenceFailed = errors.New("prediction not persisted")
)

// Pipeline orchestrates one strict fetch -> select -> classify -> bucket ->
// persist chain per run. It holds no cross-run mutable state; concurrent runs
// only share the store.
type Pipeline struct {
	scheduler  *scheduler.Scheduler
	fetcher    weather.ForecastFetcher
	selector   *features.Selector
	model      classifier.Classifier
	store      storage.PredictionStore
	alertStore storage.FrostAlertStore
	notifier   alerting.Notifier
	logger     zerolog.Logger

	location      weather.Location
	lookaheadDays int
	locationLabel string
	stationLabel  string
	dataSource    string

	alertsOn       bool
	minProbability float64
	channels       []string
	locker         storage.AdvisoryLocker
	lockKey        int64
}

// New constructs the forecast-to-risk pipeline. The classifier arrives as an
// injected dependency; the pipeline never reaches for process-global model
// state.
func New(cfg *config.Config, sched *scheduler.Scheduler, fetcher weather.ForecastFetcher, selector *features.Selector, model classifier.Classifier, store storage.PredictionStore, alertStore storage.FrostAlertStore, notifier alerting.Notifier, logger zerolog.Logger) *Pipeline {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Pipeline{
		scheduler:      sched,
		fetcher:        fetcher,
		selector:       selector,
		model:          model,
		store:          store,
		alertStore:     alertStore,
		notifier:       notifier,
		logger:         logger.With().Str("component", "pipeline").Logger(),
		location:       weather.Location{Latitude: cfg.Weather.Latitude, Longitude: cfg.Weather.Longitude},
		lookaheadDays:  cfg.Weather.LookaheadDays,
		locationLabel:  cfg.Weather.LocationLabel,
		stationLabel:   cfg.Weather.StationLabel,
		dataSource:     cfg.Weather.DataSource,
		alertsOn:       cfg.Alerting.Enabled,
		minProbability: cfg.Alerting.MinProbability,
		channels:       cfg.Alerting.Channels,
		locker:         locker,
		lockKey:        cfg.Scheduler.AdvisoryLockKey,
	}
}

// Run begins the scheduled nightly loop.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return p.scheduler.Run(ctx, p.ProcessRun)
}

// ProcessRun 执行单次触发的完整管线，带跨进程互斥。
func (p *Pipeline) ProcessRun(ctx context.Context, triggeredAt time.Time) error {
	unlock, proceed, err := p.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		p.logger.Debug().Time("triggered_at", triggeredAt).Msg("skip run because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	_, err = p.RunOnce(ctx, triggeredAt)
	return err
}

// RunOnce executes the pipeline for one reference time. On a persistence
// failure the computed descriptor is returned together with the error;
// every earlier failure returns a nil descriptor and nothing is persisted.
func (p *Pipeline) RunOnce(ctx context.Context, referenceNow time.Time) (*risk.Descriptor, error) {
	observations, err := p.fetcher.Fetch(ctx, p.location, p.lookaheadDays)
	if err != nil {
		return nil, fmt.Errorf("fetch hourly forecast: %w", err)
	}

	candidate, err := p.selector.Select(observations, referenceNow)
	if err != nil {
		return nil, fmt.Errorf("select prediction window: %w", err)
	}

	result, err := p.model.Classify(candidate.Vector)
	if err != nil {
		p.logger.Error().Err(err).
			Floats64("feature_vector", candidate.Vector.Values()).
			Time("target", candidate.Timestamp).
			Msg("classifier fault")
		return nil, fmt.Errorf("%w: %v", ErrClassificationFailed, err)
	}
	if result.Probability < 0 || result.Probability > 1 {
		return nil, fmt.Errorf("%w: probability %f out of [0, 1]", ErrClassificationFailed, result.Probability)
	}

	descriptor := risk.Bucket(result.Class, result.Probability, candidate.Vector.Temperature, candidate.Timestamp)

	p.logger.Info().
		Time("target", descriptor.TargetTime).
		Str("outcome", string(descriptor.Outcome)).
		Str("intensity", string(descriptor.Intensity)).
		Float64("duration_hours", descriptor.DurationHours).
		Float64("frost_probability", descriptor.FrostProbability).
		Float64("forecast_temp_c", descriptor.Temperature).
		Msg("risk assessment derived")

	if p.store != nil {
		record, buildErr := p.buildRecord(descriptor, candidate.Vector)
		if buildErr != nil {
			return &descriptor, fmt.Errorf("%w: %v", ErrPersistenceFailed, buildErr)
		}
		stored, insertErr := p.store.InsertPrediction(ctx, record)
		if insertErr != nil {
			return &descriptor, fmt.Errorf("%w: %v", ErrPersistenceFailed, insertErr)
		}
		p.logger.Info().Int64("prediction_id", stored.ID).Msg("risk assessment persisted")
	}

	p.dispatchAlert(ctx, descriptor)

	return &descriptor, nil
}

func (p *Pipeline) buildRecord(descriptor risk.Descriptor, vector features.Vector) (storage.PredictionRecord, error) {
	snapshot, err := json.Marshal(vector.Snapshot())
	if err != nil {
		return storage.PredictionRecord{}, fmt.Errorf("marshal feature snapshot: %w", err)
	}

	return storage.PredictionRecord{
		TargetTS:         descriptor.TargetTime,
		Location:         p.locationLabel,
		Station:          p.stationLabel,
		ForecastTemp:     descriptor.Temperature,
		FrostProbability: descriptor.FrostProbability,
		Outcome:          descriptor.Outcome,
		Intensity:        descriptor.Intensity,
		DurationHours:    descriptor.DurationHours,
		FeatureSnapshot:  snapshot,
		DataSource:       p.dataSource,
	}, nil
}

// dispatchAlert notifies configured channels about a likely frost. Alerting
// failures are logged and never fail the run.
func (p *Pipeline) dispatchAlert(ctx context.Context, descriptor risk.Descriptor) {
	if !p.alertsOn || p.notifier == nil {
		return
	}
	if descriptor.Outcome != risk.OutcomeLikely || descriptor.FrostProbability < p.minProbability {
		return
	}

	if p.alertStore != nil {
		record := storage.FrostAlertRecord{
			TargetTS:         descriptor.TargetTime,
			Outcome:          descriptor.Outcome,
			Intensity:        descriptor.Intensity,
			FrostProbability: descriptor.FrostProbability,
			Channels:         p.channels,
		}
		if _, err := p.alertStore.InsertFrostAlert(ctx, record); err != nil {
			p.logger.Error().Err(err).Time("target", descriptor.TargetTime).Msg("failed to persist alert record")
		}
	}

	note := alerting.Notification{
		TargetTime:       descriptor.TargetTime,
		Location:         p.locationLabel,
		Outcome:          descriptor.Outcome,
		Intensity:        descriptor.Intensity,
		DurationHours:    descriptor.DurationHours,
		FrostProbability: descriptor.FrostProbability,
		ForecastTemp:     descriptor.Temperature,
		Channels:         p.channels,
	}
	if err := p.notifier.Notify(ctx, note); err != nil {
		p.logger.Error().Err(err).Time("target", descriptor.TargetTime).Msg("failed to dispatch alert")
	}
}

func (p *Pipeline) acquireLock(ctx context.Context) (func(), bool, error) {
	if p.lockKey == 0 || p.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := p.locker.TryAdvisoryLock(ctx, p.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
