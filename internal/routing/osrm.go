// Package routing wraps the OSRM HTTP API: route computation, route
// alternatives and nearest-road snapping.
package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ukydev/fleet-traffic-sim/internal/geo"
	"github.com/ukydev/fleet-traffic-sim/internal/models"
)

var (
	// ErrUnavailable means the routing service could not be reached or
	// answered with a non-OK status.
	ErrUnavailable = errors.New("routing service unavailable")
	// ErrNoRoute means the service answered but found no path between the
	// requested coordinates.
	ErrNoRoute = errors.New("no route between coordinates")
)

// Options control a route request.
type Options struct {
	Alternatives bool
	Steps        bool
	Overview     string // "full", "simplified" or "false"
}

// Client calls an OSRM-compatible routing server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a routing client for the given OSRM base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

type osrmNearestResponse struct {
	Code      string `json:"code"`
	Waypoints []struct {
		Location []float64 `json:"location"`
	} `json:"waypoints"`
}

// Route requests a single route from start to end.
func (c *Client) Route(ctx context.Context, start, end models.Location, opts Options) (*models.Route, error) {
	routes, err := c.routes(ctx, start, end, opts)
	if err != nil {
		return nil, err
	}
	return &routes[0], nil
}

// Alternatives requests the default route plus alternatives. The provider's
// preferred route is always first.
func (c *Client) Alternatives(ctx context.Context, start, end models.Location) ([]models.Route, error) {
	return c.routes(ctx, start, end, Options{Alternatives: true, Overview: "full"})
}

func (c *Client) routes(ctx context.Context, start, end models.Location, opts Options) ([]models.Route, error) {
	overview := opts.Overview
	if overview == "" {
		overview = "full"
	}
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=%s&geometries=geojson&alternatives=%t&steps=%t",
		c.baseURL, start.Lng, start.Lat, end.Lng, end.Lat, overview, opts.Alternatives, opts.Steps)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var obj osrmResponse
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if obj.Code != "" && obj.Code != "Ok" {
		return nil, fmt.Errorf("%w: osrm code %s", ErrNoRoute, obj.Code)
	}
	if len(obj.Routes) == 0 {
		return nil, ErrNoRoute
	}

	routes := make([]models.Route, 0, len(obj.Routes))
	for _, r := range obj.Routes {
		route := decodeRoute(r.Geometry.Coordinates, r.Distance, r.Duration)
		if route == nil {
			continue
		}
		routes = append(routes, *route)
	}
	if len(routes) == 0 {
		return nil, ErrNoRoute
	}
	return routes, nil
}

// NearestRoad snaps a point to the closest point on the road network.
func (c *Client) NearestRoad(ctx context.Context, point models.Location) (models.Location, error) {
	url := fmt.Sprintf("%s/nearest/v1/driving/%.6f,%.6f", c.baseURL, point.Lng, point.Lat)
	body, err := c.get(ctx, url)
	if err != nil {
		return models.Location{}, err
	}
	var obj osrmNearestResponse
	if err := json.Unmarshal(body, &obj); err != nil {
		return models.Location{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if len(obj.Waypoints) == 0 || len(obj.Waypoints[0].Location) < 2 {
		return models.Location{}, fmt.Errorf("%w: no nearest waypoint", ErrNoRoute)
	}
	loc := obj.Waypoints[0].Location
	return models.Location{Lat: loc[1], Lng: loc[0]}, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return body, nil
}

// decodeRoute converts a GeoJSON coordinate list plus totals into a Route
// with cumulative per-waypoint distance and duration. Duration is spread
// proportionally to segment length.
func decodeRoute(coords [][]float64, totalDistance, totalDuration float64) *models.Route {
	pts := make([]models.Location, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		pts = append(pts, models.Location{Lat: c[1], Lng: c[0]})
	}
	if len(pts) < 2 {
		return nil
	}

	// Geometry length can differ slightly from the reported total; use it
	// to keep the cumulative columns consistent with the waypoints.
	geomM := 0.0
	for i := 1; i < len(pts); i++ {
		geomM += geo.HaversineM(pts[i-1], pts[i])
	}
	if geomM == 0 {
		return nil
	}

	waypoints := make([]models.Waypoint, len(pts))
	cum := 0.0
	waypoints[0] = models.Waypoint{Location: pts[0]}
	for i := 1; i < len(pts); i++ {
		cum += geo.HaversineM(pts[i-1], pts[i])
		frac := cum / geomM
		waypoints[i] = models.Waypoint{
			Location:    pts[i],
			DistanceM:   frac * totalDistance,
			DurationSec: frac * totalDuration,
		}
	}
	return &models.Route{
		Waypoints:     waypoints,
		TotalDistance: totalDistance,
		TotalDuration: totalDuration,
	}
}
