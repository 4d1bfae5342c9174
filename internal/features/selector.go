package features

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"frost-risk-alerts/internal/weather"
)

// ErrWindowNotFound indicates no complete feature vector exists inside the
// scan band. Callers see one error for both the "band empty" and "all hours
// incomplete" cases; the two are logged distinguishably.
var ErrWindowNotFound = errors.New("no complete feature vector in scan band")

// SelectorOptions bound the early-morning scan band of the next calendar
// day. Hours are inclusive on both ends.
type SelectorOptions struct {
	BandStartHour int
	BandEndHour   int
}

// DefaultSelectorOptions covers the default overnight-low window 01:00-05:00.
func DefaultSelectorOptions() SelectorOptions {
	return SelectorOptions{BandStartHour: 1, BandEndHour: 5}
}

// Candidate is the selected hour handed to the classifier: its timestamp,
// the completed feature vector, and the untouched raw observation.
type Candidate struct {
	Timestamp time.Time
	Vector    Vector
	Raw       weather.Observation
}

// Selector scans a fetched hourly series for the first usable hour.
type Selector struct {
	opts   SelectorOptions
	policy SoilMoisturePolicy
	logger zerolog.Logger
}

// NewSelector constructs a window selector.
func NewSelector(opts SelectorOptions, policy SoilMoisturePolicy, logger zerolog.Logger) *Selector {
	if opts.BandStartHour == 0 && opts.BandEndHour == 0 {
		opts = DefaultSelectorOptions()
	}
	return &Selector{
		opts:   opts,
		policy: policy,
		logger: logger.With().Str("component", "window_selector").Logger(),
	}
}

// Select walks the candidate hours of tomorrow's scan band in chronological
// order and returns the first one whose four features are all present after
// soil-moisture completion. Earliest in-band hour wins; there is no scoring
// across multiple valid hours.
func (s *Selector) Select(observations []weather.Observation, referenceNow time.Time) (Candidate, error) {
	if len(observations) == 0 {
		s.logger.Warn().Msg("observation series empty; nothing to scan")
		return Candidate{}, ErrWindowNotFound
	}

	// All observations share the provider's fixed zone. reference_now is
	// converted into that zone before any comparison; naive-vs-aware mixing
	// is not representable in Go but the offset still has to match.
	zone := observations[0].Timestamp.Location()
	now := referenceNow.In(zone)

	targetDay := now.AddDate(0, 0, 1)
	bandStart := time.Date(targetDay.Year(), targetDay.Month(), targetDay.Day(), s.opts.BandStartHour, 0, 0, 0, zone)
	bandEnd := time.Date(targetDay.Year(), targetDay.Month(), targetDay.Day(), s.opts.BandEndHour, 0, 0, 0, zone)

	inBand := 0
	for _, obs := range observations {
		ts := obs.Timestamp
		if ts.Before(bandStart) || ts.After(bandEnd) {
			continue
		}
		inBand++

		soilMoisture, ok := s.resolveSoilMoisture(obs)
		if !ok {
			s.logger.Debug().Time("hour", ts).Msg("skipping hour: soil moisture unresolvable")
			continue
		}
		if obs.Temperature == nil || obs.RelativeHumidity == nil || obs.SurfacePressure == nil {
			s.logger.Debug().Time("hour", ts).Msg("skipping hour: classifier feature missing")
			continue
		}

		candidate := Candidate{
			Timestamp: ts,
			Vector: Vector{
				Temperature:      *obs.Temperature,
				RelativeHumidity: *obs.RelativeHumidity,
				SurfacePressure:  *obs.SurfacePressure,
				SoilMoisture:     soilMoisture,
			},
			Raw: obs,
		}
		s.logger.Info().Time("hour", ts).Msg("complete feature vector selected")
		return candidate, nil
	}

	if inBand == 0 {
		s.logger.Warn().
			Time("band_start", bandStart).Time("band_end", bandEnd).
			Msg("scan band contains no observations; provider data ends before the band")
	} else {
		s.logger.Warn().
			Time("band_start", bandStart).Time("band_end", bandEnd).Int("hours_scanned", inBand).
			Msg("scan band has observations but no hour yields a complete vector")
	}
	return Candidate{}, ErrWindowNotFound
}

// resolveSoilMoisture prefers the measured value and falls back to the
// completion heuristic. There is no second estimation path: if the heuristic
// inputs are missing the hour is skipped.
func (s *Selector) resolveSoilMoisture(obs weather.Observation) (float64, bool) {
	if obs.SoilMoisture != nil {
		return *obs.SoilMoisture, true
	}
	precipitation := obs.Precipitation
	return s.policy.Estimate(obs.RelativeHumidity, &precipitation)
}
