package features

import "frost-risk-alerts/internal/weather"

// Vector is the complete, ordered feature set the classifier consumes. A
// Vector is only ever built once all four values are known; incomplete hours
// never produce one.
type Vector struct {
	Temperature      float64 // °C
	RelativeHumidity float64 // %
	SurfacePressure  float64 // Pa
	SoilMoisture     float64 // m³/m³
}

// Order returns the canonical feature names in training order.
func Order() []string {
	return []string{
		weather.VarTemperature,
		weather.VarRelativeHumidity,
		weather.VarSurfacePressure,
		weather.VarSoilMoisture,
	}
}

// Values flattens the vector in training order.
func (v Vector) Values() []float64 {
	return []float64{v.Temperature, v.RelativeHumidity, v.SurfacePressure, v.SoilMoisture}
}

// Snapshot 以规范变量名导出特征值，用于持久化原始输入。
func (v Vector) Snapshot() map[string]float64 {
	return map[string]float64{
		weather.VarTemperature:      v.Temperature,
		weather.VarRelativeHumidity: v.RelativeHumidity,
		weather.VarSurfacePressure:  v.SurfacePressure,
		weather.VarSoilMoisture:     v.SoilMoisture,
	}
}
