package environment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ukydev/fleet-traffic-sim/internal/models"
)

// HTTPProvider fetches live weather from a JSON endpoint. The endpoint
// answers a flat object with condition, temperature_c, visibility_km,
// wind_kmh and speed_factor fields; omitted numeric fields decode to
// zero and the engine falls back to its condition lookups for them.
type HTTPProvider struct {
	url  string
	http *http.Client
}

// NewHTTPProvider creates a provider for the given weather endpoint URL.
func NewHTTPProvider(url string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// Current fetches one live weather observation.
func (p *HTTPProvider) Current(ctx context.Context) (*Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather fetch: status %d", resp.StatusCode)
	}

	var body struct {
		Condition    string  `json:"condition"`
		TemperatureC float64 `json:"temperature_c"`
		VisibilityKm float64 `json:"visibility_km"`
		WindKmh      float64 `json:"wind_kmh"`
		SpeedFactor  float64 `json:"speed_factor"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("weather decode: %w", err)
	}
	if body.Condition == "" {
		return nil, fmt.Errorf("weather decode: missing condition")
	}
	return &Report{
		Condition:    models.WeatherCondition(body.Condition),
		TemperatureC: body.TemperatureC,
		VisibilityKm: body.VisibilityKm,
		WindKmh:      body.WindKmh,
		SpeedFactor:  body.SpeedFactor,
	}, nil
}
