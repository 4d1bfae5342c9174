package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertPredictionSQL = `INSERT INTO predictions (
        target_ts,
        location,
        station,
        forecast_temp_c,
        frost_probability,
        outcome,
        intensity,
        duration_hours,
        feature_snapshot,
        data_source
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    )
    RETURNING id, registered_at;`

	listRecentPredictionsSQL = `SELECT
        id,
        registered_at,
        target_ts,
        location,
        station,
        forecast_temp_c,
        frost_probability,
        outcome,
        intensity,
        duration_hours,
        feature_snapshot,
        data_source
    FROM predictions
    ORDER BY target_ts DESC
    LIMIT $1;`

	listPredictionsFilteredSQL = `SELECT
        id,
        registered_at,
        target_ts,
        location,
        station,
        forecast_temp_c,
        frost_probability,
        outcome,
        intensity,
        duration_hours,
        feature_snapshot,
        data_source
    FROM predictions
    WHERE ($1::timestamptz IS NULL OR (target_ts >= $1 AND target_ts < $1 + INTERVAL '1 day'))
      AND ($2 = '' OR station ILIKE '%' || $2 || '%')
    ORDER BY target_ts DESC
    LIMIT $3;`

	listPredictionsBetweenSQL = `SELECT
        id,
        registered_at,
        target_ts,
        location,
        station,
        forecast_temp_c,
        frost_probability,
        outcome,
        intensity,
        duration_hours,
        feature_snapshot,
        data_source
    FROM predictions
    WHERE target_ts >= $1
      AND target_ts < $2
    ORDER BY target_ts;`

	countPredictionsSQL = `SELECT COUNT(*) FROM predictions;`

	insertFrostAlertSQL = `INSERT INTO frost_alerts (
        target_ts,
        outcome,
        intensity,
        frost_probability,
        channels
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    ON CONFLICT (target_ts) DO UPDATE
    SET outcome           = EXCLUDED.outcome,
        intensity         = EXCLUDED.intensity,
        frost_probability = EXCLUDED.frost_probability,
        channels          = EXCLUDED.channels
    RETURNING id, target_ts, outcome, intensity, frost_probability, channels, created_at;`

	listRecentFrostAlertsSQL = `SELECT
        id,
        target_ts,
        outcome,
        intensity,
        frost_probability,
        channels,
        created_at
    FROM frost_alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteFrostAlertsBeforeSQL = `DELETE FROM frost_alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// PredictionStore defines operations for risk assessment persistence.
type PredictionStore interface {
	InsertPrediction(ctx context.Context, record PredictionRecord) (PredictionRecord, error)
	ListRecentPredictions(ctx context.Context, limit int) ([]PredictionRecord, error)
	ListPredictions(ctx context.Context, filter ListFilter, limit int) ([]PredictionRecord, error)
	ListPredictionsBetween(ctx context.Context, from, to time.Time) ([]PredictionRecord, error)
	CountPredictions(ctx context.Context) (int64, error)
}

// FrostAlertStore defines operations for alert auditing.
type FrostAlertStore interface {
	InsertFrostAlert(ctx context.Context, alert FrostAlertRecord) (FrostAlertRecord, error)
	ListRecentFrostAlerts(ctx context.Context, limit int) ([]FrostAlertRecord, error)
	DeleteFrostAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to predictions and frost alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// InsertPrediction persists one risk assessment atomically and returns the
// stored record with its generated identifier and registration timestamp.
func (s *Store) InsertPrediction(ctx context.Context, record PredictionRecord) (PredictionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return PredictionRecord{}, err
	}

	snapshot := []byte(record.FeatureSnapshot)
	if len(snapshot) == 0 {
		snapshot = []byte("{}")
	}

	row := pool.QueryRow(ctx, insertPredictionSQL,
		record.TargetTS,
		record.Location,
		record.Station,
		record.ForecastTemp,
		record.FrostProbability,
		string(record.Outcome),
		string(record.Intensity),
		record.DurationHours,
		snapshot,
		record.DataSource,
	)

	stored := record
	if scanErr := row.Scan(&stored.ID, &stored.RegisteredAt); scanErr != nil {
		return PredictionRecord{}, fmt.Errorf("insert prediction: %w", scanErr)
	}
	return stored, nil
}

// ListRecentPredictions lists the most recent assessments by target hour.
func (s *Store) ListRecentPredictions(ctx context.Context, limit int) ([]PredictionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentPredictionsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent predictions: %w", queryErr)
	}
	defer rows.Close()

	return collectPredictions(rows, limit)
}

// ListPredictions lists assessments matching the filter.
func (s *Store) ListPredictions(ctx context.Context, filter ListFilter, limit int) ([]PredictionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var day interface{}
	if filter.TargetDate != nil {
		midnight := filter.TargetDate.Truncate(24 * time.Hour)
		day = midnight
	}

	rows, queryErr := pool.Query(ctx, listPredictionsFilteredSQL, day, filter.Station, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list predictions: %w", queryErr)
	}
	defer rows.Close()

	return collectPredictions(rows, limit)
}

// ListPredictionsBetween lists assessments whose target hour falls in [from, to).
func (s *Store) ListPredictionsBetween(ctx context.Context, from, to time.Time) ([]PredictionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listPredictionsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list predictions between: %w", queryErr)
	}
	defer rows.Close()

	return collectPredictions(rows, 0)
}

// CountPredictions counts stored assessments.
func (s *Store) CountPredictions(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countPredictionsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count predictions: %w", scanErr)
	}
	return count, nil
}

// InsertFrostAlert persists an alert emission.
func (s *Store) InsertFrostAlert(ctx context.Context, alert FrostAlertRecord) (FrostAlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return FrostAlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertFrostAlertSQL,
		alert.TargetTS,
		string(alert.Outcome),
		string(alert.Intensity),
		alert.FrostProbability,
		alert.Channels,
	)

	rec, scanErr := scanFrostAlert(row)
	if scanErr != nil {
		return FrostAlertRecord{}, fmt.Errorf("insert frost alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentFrostAlerts lists most recent alerts.
func (s *Store) ListRecentFrostAlerts(ctx context.Context, limit int) ([]FrostAlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentFrostAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent frost alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]FrostAlertRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanFrostAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteFrostAlertsBefore deletes historical alerts.
func (s *Store) DeleteFrostAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteFrostAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete frost alerts before: %w", execErr)
	}
	return nil
}

func collectPredictions(rows pgx.Rows, capacityHint int) ([]PredictionRecord, error) {
	if capacityHint < 0 {
		capacityHint = 0
	}
	records := make([]PredictionRecord, 0, capacityHint)
	for rows.Next() {
		var rec PredictionRecord
		var outcome, intensity string
		if err := rows.Scan(
			&rec.ID,
			&rec.RegisteredAt,
			&rec.TargetTS,
			&rec.Location,
			&rec.Station,
			&rec.ForecastTemp,
			&rec.FrostProbability,
			&outcome,
			&intensity,
			&rec.DurationHours,
			&rec.FeatureSnapshot,
			&rec.DataSource,
		); err != nil {
			return nil, err
		}
		rec.Outcome = parseOutcome(outcome)
		rec.Intensity = parseIntensity(intensity)
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func scanFrostAlert(row pgx.Row) (FrostAlertRecord, error) {
	var rec FrostAlertRecord
	var outcome, intensity string
	if err := row.Scan(
		&rec.ID,
		&rec.TargetTS,
		&outcome,
		&intensity,
		&rec.FrostProbability,
		&rec.Channels,
		&rec.CreatedAt,
	); err != nil {
		return FrostAlertRecord{}, err
	}
	rec.Outcome = parseOutcome(outcome)
	rec.Intensity = parseIntensity(intensity)
	return rec, nil
}
