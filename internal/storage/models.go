package storage

import (
	"encoding/json"
	"time"

	"frost-risk-alerts/internal/risk"
)

// PredictionRecord is one persisted frost risk assessment. The store assigns
// the identifier and registration timestamp on insert; records are never
// updated in place.
type PredictionRecord struct {
	ID               int64
	RegisteredAt     time.Time
	TargetTS         time.Time
	Location         string
	Station          string
	ForecastTemp     float64
	FrostProbability float64
	Outcome          risk.Outcome
	Intensity        risk.Intensity
	DurationHours    float64
	FeatureSnapshot  json.RawMessage
	DataSource       string
}

// FrostAlertRecord captures a dispatched frost alert for auditing.
type FrostAlertRecord struct {
	ID               int64
	TargetTS         time.Time
	Outcome          risk.Outcome
	Intensity        risk.Intensity
	FrostProbability float64
	Channels         []string
	CreatedAt        time.Time
}

// ListFilter narrows prediction listings. Zero values mean "no filter".
type ListFilter struct {
	TargetDate *time.Time // matches the whole calendar day of target_ts
	Station    string     // case-insensitive substring match
}

func parseOutcome(value string) risk.Outcome {
	switch risk.Outcome(value) {
	case risk.OutcomeLikely, risk.OutcomeUnlikely:
		return risk.Outcome(value)
	default:
		return risk.OutcomeUndetermined
	}
}

func parseIntensity(value string) risk.Intensity {
	switch risk.Intensity(value) {
	case risk.IntensityLight, risk.IntensityModerate, risk.IntensitySevere:
		return risk.Intensity(value)
	default:
		return risk.IntensityNone
	}
}
