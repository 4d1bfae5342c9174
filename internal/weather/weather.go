package weather

import (
	"context"
	"fmt"
	"time"
)

// Location identifies the forecast point by WGS84 coordinates.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Validate checks the coordinates are on the globe.
func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("latitude %.5f out of range [-90, 90]", l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("longitude %.5f out of range [-180, 180]", l.Longitude)
	}
	return nil
}

// Observation is one forecast hour as returned by the provider. Optional
// fields stay nil when the provider did not report them; they are never
// zero-filled. Precipitation is the exception and defaults to 0.0 because it
// only feeds the completion heuristic.
type Observation struct {
	Timestamp        time.Time
	Temperature      *float64 // °C
	RelativeHumidity *float64 // %
	SurfacePressure  *float64 // Pa
	Precipitation    float64  // mm
	SoilMoisture     *float64 // m³/m³
}

// ForecastFetcher retrieves a time-ordered hourly series for a location.
type ForecastFetcher interface {
	Fetch(ctx context.Context, loc Location, lookaheadDays int) ([]Observation, error)
}

// Canonical variable names used across the pipeline.
const (
	VarTemperature      = "temperature"
	VarRelativeHumidity = "relative_humidity"
	VarSurfacePressure  = "surface_pressure"
	VarPrecipitation    = "precipitation"
	VarSoilMoisture     = "soil_moisture"
)

// providerVariables maps canonical names to Open-Meteo hourly variables.
var providerVariables = map[string]string{
	VarTemperature:      "temperature_2m",
	VarRelativeHumidity: "relativehumidity_2m",
	VarSurfacePressure:  "surface_pressure", // Pa; the model was trained on this unit
	VarPrecipitation:    "precipitation",
	VarSoilMoisture:     "soil_moisture_0_to_7cm",
}

// RequiredByClassifier 是分类器特征向量必须具备的变量集合。
var RequiredByClassifier = []string{
	VarTemperature,
	VarRelativeHumidity,
	VarSurfacePressure,
	VarSoilMoisture,
}

// RequiredByHeuristic lists the inputs of the soil-moisture completion formula.
var RequiredByHeuristic = []string{
	VarRelativeHumidity,
	VarPrecipitation,
}

// RequestedFromProvider is the set of canonical variables asked of the
// provider on every fetch. It must stay a superset of the classifier and
// heuristic requirements; the two sets are validated separately on purpose.
var RequestedFromProvider = []string{
	VarTemperature,
	VarRelativeHumidity,
	VarSurfacePressure,
	VarPrecipitation,
	VarSoilMoisture,
}

// ValidateVariableSets confirms every required variable is requested and has
// a provider mapping.
func ValidateVariableSets() error {
	requested := make(map[string]bool, len(RequestedFromProvider))
	for _, name := range RequestedFromProvider {
		if _, ok := providerVariables[name]; !ok {
			return fmt.Errorf("variable %q has no provider mapping", name)
		}
		requested[name] = true
	}
	for _, name := range RequiredByClassifier {
		if !requested[name] {
			return fmt.Errorf("classifier variable %q not requested from provider", name)
		}
	}
	for _, name := range RequiredByHeuristic {
		if !requested[name] {
			return fmt.Errorf("heuristic variable %q not requested from provider", name)
		}
	}
	return nil
}
