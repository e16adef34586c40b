package environment

import (
	"math/rand"

	"github.com/ukydev/fleet-traffic-sim/internal/models"
)

// transition is one row entry of the weather Markov table.
type transition struct {
	to models.WeatherCondition
	p  float64
}

// weatherTransitions drives simulated weather. Each row sums to 1.
var weatherTransitions = map[models.WeatherCondition][]transition{
	models.WeatherClear: {
		{models.WeatherClear, 0.80}, {models.WeatherCloudy, 0.15}, {models.WeatherFog, 0.05},
	},
	models.WeatherCloudy: {
		{models.WeatherCloudy, 0.55}, {models.WeatherClear, 0.25}, {models.WeatherRain, 0.15}, {models.WeatherFog, 0.05},
	},
	models.WeatherRain: {
		{models.WeatherRain, 0.50}, {models.WeatherCloudy, 0.30}, {models.WeatherHeavyRain, 0.15}, {models.WeatherStorm, 0.05},
	},
	models.WeatherHeavyRain: {
		{models.WeatherHeavyRain, 0.40}, {models.WeatherRain, 0.35}, {models.WeatherStorm, 0.15}, {models.WeatherCloudy, 0.10},
	},
	models.WeatherFog: {
		{models.WeatherFog, 0.50}, {models.WeatherCloudy, 0.30}, {models.WeatherClear, 0.20},
	},
	models.WeatherStorm: {
		{models.WeatherStorm, 0.30}, {models.WeatherHeavyRain, 0.40}, {models.WeatherRain, 0.30},
	},
}

// nextCondition samples the Markov table for the condition following cur.
func nextCondition(cur models.WeatherCondition, rng *rand.Rand) models.WeatherCondition {
	row, ok := weatherTransitions[cur]
	if !ok {
		return models.WeatherClear
	}
	r := rng.Float64()
	acc := 0.0
	for _, t := range row {
		acc += t.p
		if r < acc {
			return t.to
		}
	}
	return row[len(row)-1].to
}

// weatherSpeedFactor is the per-condition multiplier on vehicle speed.
func weatherSpeedFactor(c models.WeatherCondition) float64 {
	switch c {
	case models.WeatherClear:
		return 1.0
	case models.WeatherCloudy:
		return 0.95
	case models.WeatherRain:
		return 0.8
	case models.WeatherHeavyRain:
		return 0.6
	case models.WeatherFog:
		return 0.65
	case models.WeatherStorm:
		return 0.45
	default:
		return 1.0
	}
}

// visibilityKm is the per-condition visibility lookup.
func visibilityKm(c models.WeatherCondition) float64 {
	switch c {
	case models.WeatherClear:
		return 10
	case models.WeatherCloudy:
		return 8
	case models.WeatherRain:
		return 5
	case models.WeatherHeavyRain:
		return 2
	case models.WeatherFog:
		return 0.5
	case models.WeatherStorm:
		return 1.5
	default:
		return 10
	}
}

// temperatureOffset is the per-condition shift applied to the diurnal curve.
func temperatureOffset(c models.WeatherCondition) float64 {
	switch c {
	case models.WeatherClear:
		return 2
	case models.WeatherRain:
		return -3
	case models.WeatherHeavyRain:
		return -5
	case models.WeatherFog:
		return -2
	case models.WeatherStorm:
		return -6
	default:
		return 0
	}
}

// severityWeight orders conditions by how strongly they raise congestion
// and incident probability.
func severityWeight(c models.WeatherCondition) float64 {
	switch c {
	case models.WeatherClear:
		return 0
	case models.WeatherCloudy:
		return 0.1
	case models.WeatherRain:
		return 0.4
	case models.WeatherFog:
		return 0.5
	case models.WeatherHeavyRain:
		return 0.7
	case models.WeatherStorm:
		return 1.0
	default:
		return 0
	}
}
