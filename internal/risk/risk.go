// Package risk converts a classification result into the persisted frost
// risk assessment. The bucketing is a state-free decision table; both the
// probability and temperature gates of a row must hold for the row to apply.
package risk

import (
	"time"

	"github.com/shopspring/decimal"

	"frost-risk-alerts/internal/classifier"
)

// Outcome describes whether frost is expected.
type Outcome string

const (
	OutcomeLikely       Outcome = "likely"
	OutcomeUnlikely     Outcome = "unlikely"
	OutcomeUndetermined Outcome = "undetermined"
)

// Intensity tiers an expected frost event.
type Intensity string

const (
	IntensityNone     Intensity = "none"
	IntensityLight    Intensity = "light"
	IntensityModerate Intensity = "moderate"
	IntensitySevere   Intensity = "severe"
)

// Descriptor is the assessment produced once per pipeline run. It is created
// here, never mutated, and handed to the store as-is.
type Descriptor struct {
	TargetTime       time.Time
	Temperature      float64 // forecast °C for the target hour
	FrostProbability float64
	Outcome          Outcome
	Intensity        Intensity
	DurationHours    float64
}

// Decision-table thresholds. Comparisons run on decimals so a probability of
// exactly 0.80 lands in the severe row on every platform.
var (
	severeProbability   = decimal.RequireFromString("0.80")
	moderateProbability = decimal.RequireFromString("0.60")
	severeTemperature   = decimal.RequireFromString("-2")
	moderateTemperature = decimal.RequireFromString("0")
)

// Bucket derives the risk descriptor for a classified hour:
//
//	class 0               -> unlikely / none     / 0.0h
//	class 1, p>=0.80, t<-2 -> likely  / severe   / 4.0h
//	class 1, p>=0.60, t<0  -> likely  / moderate / 2.5h
//	class 1 otherwise      -> likely  / light    / 1.0h
//
// A probability above a row's gate with a temperature outside it falls
// through to the next row; the two gates are never evaluated separately.
func Bucket(class int, frostProbability, temperature float64, targetTime time.Time) Descriptor {
	descriptor := Descriptor{
		TargetTime:       targetTime,
		Temperature:      temperature,
		FrostProbability: frostProbability,
		Outcome:          OutcomeUndetermined,
		Intensity:        IntensityNone,
		DurationHours:    0,
	}

	switch class {
	case classifier.ClassNoFrost:
		descriptor.Outcome = OutcomeUnlikely
	case classifier.ClassFrost:
		descriptor.Outcome = OutcomeLikely

		probability := decimal.NewFromFloat(frostProbability)
		temp := decimal.NewFromFloat(temperature)

		switch {
		case probability.GreaterThanOrEqual(severeProbability) && temp.LessThan(severeTemperature):
			descriptor.Intensity = IntensitySevere
			descriptor.DurationHours = 4.0
		case probability.GreaterThanOrEqual(moderateProbability) && temp.LessThan(moderateTemperature):
			descriptor.Intensity = IntensityModerate
			descriptor.DurationHours = 2.5
		default:
			descriptor.Intensity = IntensityLight
			descriptor.DurationHours = 1.0
		}
	}

	return descriptor
}
