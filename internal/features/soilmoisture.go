package features

import "github.com/shopspring/decimal"

// SoilMoisturePolicy estimates a missing soil-moisture reading from relative
// humidity and precipitation. The weights have no physical derivation; they
// trade precision for availability and are kept as named values so they can
// be recalibrated without touching call sites. Arithmetic runs on decimals so
// identical inputs always produce identical estimates.
type SoilMoisturePolicy struct {
	HumidityWeight      decimal.Decimal
	PrecipitationWeight decimal.Decimal
	ScaleDivisor        decimal.Decimal
	Min                 decimal.Decimal
	Max                 decimal.Decimal
}

// DefaultSoilMoisturePolicy returns the policy shipped with the trained
// model: (rh*0.6 + precip*1.2) / 200, clamped to [0.05, 0.55] m³/m³.
func DefaultSoilMoisturePolicy() SoilMoisturePolicy {
	return SoilMoisturePolicy{
		HumidityWeight:      decimal.RequireFromString("0.6"),
		PrecipitationWeight: decimal.RequireFromString("1.2"),
		ScaleDivisor:        decimal.RequireFromString("200"),
		Min:                 decimal.RequireFromString("0.05"),
		Max:                 decimal.RequireFromString("0.55"),
	}
}

// Estimate computes the soil-moisture stand-in. Either input missing means
// the hour is unusable: ok is false and no numeric default is invented.
func (p SoilMoisturePolicy) Estimate(relativeHumidityPct, precipitationMM *float64) (float64, bool) {
	if relativeHumidityPct == nil || precipitationMM == nil {
		return 0, false
	}

	humidity := decimal.NewFromFloat(*relativeHumidityPct)
	precipitation := decimal.NewFromFloat(*precipitationMM)

	raw := humidity.Mul(p.HumidityWeight).Add(precipitation.Mul(p.PrecipitationWeight))
	scaled := raw.Div(p.ScaleDivisor)

	if scaled.LessThan(p.Min) {
		scaled = p.Min
	} else if scaled.GreaterThan(p.Max) {
		scaled = p.Max
	}

	return scaled.InexactFloat64(), true
}
