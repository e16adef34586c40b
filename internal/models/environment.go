package models

import "time"

// WeatherCondition is the current weather regime.
type WeatherCondition string

const (
	WeatherClear     WeatherCondition = "clear"
	WeatherCloudy    WeatherCondition = "cloudy"
	WeatherRain      WeatherCondition = "rain"
	WeatherHeavyRain WeatherCondition = "heavy_rain"
	WeatherFog       WeatherCondition = "fog"
	WeatherStorm     WeatherCondition = "storm"
)

// EnvironmentState is a point-in-time snapshot of the simulated world:
// weather, clock and the derived speed multipliers.
type EnvironmentState struct {
	Condition             WeatherCondition `json:"condition"`
	TemperatureC          float64          `json:"temperature_c"`
	VisibilityKm          float64          `json:"visibility_km"`
	WindKmh               float64          `json:"wind_kmh"`
	SimulatedTime         time.Time        `json:"simulated_time"`
	TimeMultiplier        float64          `json:"time_multiplier"`
	GlobalCongestion      float64          `json:"global_congestion"` // [0,100]
	RushHour              bool             `json:"rush_hour"`
	WeatherSpeedFactor    float64          `json:"weather_speed_factor"`
	CongestionSpeedFactor float64          `json:"congestion_speed_factor"`
}

// SpeedFactor is the environment's combined contribution to vehicle speed.
func (e *EnvironmentState) SpeedFactor() float64 {
	return e.WeatherSpeedFactor * e.CongestionSpeedFactor
}
