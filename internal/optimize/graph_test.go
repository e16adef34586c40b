package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-traffic-sim/internal/geo"
	"github.com/ukydev/fleet-traffic-sim/internal/models"
)

var origin = models.Location{Lat: 51.5074, Lng: -0.1278}

// chainGraph builds A--B--C roughly 2 km apart with base times 10 and 15.
func chainGraph(cond Conditions) (*Graph, int, int, int) {
	g := NewGraph(cond)
	a := g.AddNode(origin)
	b := g.AddNode(geo.Offset(origin, 2000, 0))
	c := g.AddNode(geo.Offset(origin, 4000, 0))
	g.AddEdge(a, b, 2000, 10)
	g.AddEdge(b, c, 2000, 15)
	return g, a, b, c
}

func TestShortestSimpleChain(t *testing.T) {
	g, a, _, c := chainGraph(Conditions{})
	res, err := g.Shortest(a, c)
	require.NoError(t, err)

	assert.Len(t, res.Path, 3)
	assert.InDelta(t, 25, res.TotalTime, 1e-9)
	assert.InDelta(t, 4000, res.TotalDistance, 1e-9)
	assert.Empty(t, res.Incidents)
	assert.NotEmpty(t, res.Rationale)
}

func TestShortestCriticalIncidentRaisesCost(t *testing.T) {
	// incident sits at the B--C midpoint, 3 km north of A
	inc := models.Incident{
		ID:       "inc-1",
		Severity: models.SeverityCritical,
		Location: geo.Offset(origin, 3000, 0),
	}
	g, a, _, c := chainGraph(Conditions{Incidents: []models.Incident{inc}})
	res, err := g.Shortest(a, c)
	require.NoError(t, err)

	// B--C cost 15 is tripled to 45; A--B stays 10
	assert.InDelta(t, 55, res.TotalTime, 1e-9)
	require.Len(t, res.Incidents, 1)
	assert.Equal(t, "inc-1", res.Incidents[0].ID)
}

func TestShortestCheaperAlternateWins(t *testing.T) {
	inc := models.Incident{
		ID:       "inc-1",
		Severity: models.SeverityCritical,
		Location: geo.Offset(origin, 3000, 0),
	}
	g, a, b, c := chainGraph(Conditions{Incidents: []models.Incident{inc}})
	// detour far east of the incident, base time 20 < weighted 45
	d := g.AddNode(geo.Offset(origin, 3000, 3000))
	g.AddEdge(b, d, 2500, 10)
	g.AddEdge(d, c, 2500, 10)

	res, err := g.Shortest(a, c)
	require.NoError(t, err)
	assert.InDelta(t, 30, res.TotalTime, 1e-9)
	assert.Len(t, res.Path, 4)
	assert.Empty(t, res.Incidents)
}

func TestShortestCongestionWeighting(t *testing.T) {
	zone := models.Zone{
		Center:     geo.Offset(origin, 1000, 0), // on the A--B midpoint
		RadiusKm:   0.5,
		Congestion: 100,
	}
	g, a, b, _ := chainGraph(Conditions{Zones: []models.Zone{zone}})
	res, err := g.Shortest(a, b)
	require.NoError(t, err)
	// congestion 100 doubles the base time
	assert.InDelta(t, 20, res.TotalTime, 1e-9)
}

func TestShortestWeatherWeighting(t *testing.T) {
	cond := Conditions{Env: models.EnvironmentState{
		Condition:          models.WeatherHeavyRain,
		WeatherSpeedFactor: 0.5,
	}}
	g, a, _, c := chainGraph(cond)
	res, err := g.Shortest(a, c)
	require.NoError(t, err)
	assert.InDelta(t, 50, res.TotalTime, 1e-9)
	assert.Contains(t, res.Rationale, "heavy_rain")
}

func TestShortestNoPath(t *testing.T) {
	g := NewGraph(Conditions{})
	a := g.AddNode(origin)
	b := g.AddNode(geo.Offset(origin, 2000, 0))
	// no edges at all
	_, err := g.Shortest(a, b)
	assert.ErrorIs(t, err, ErrNoPath)

	_, err = g.Shortest(a, 99)
	assert.ErrorIs(t, err, ErrNoPath)
}

func TestFromRouteBuildsChain(t *testing.T) {
	route := &models.Route{
		Waypoints: []models.Waypoint{
			{Location: origin},
			{Location: geo.Offset(origin, 2000, 0), DistanceM: 2000, DurationSec: 120},
			{Location: geo.Offset(origin, 4000, 0), DistanceM: 4000, DurationSec: 240},
		},
		TotalDistance: 4000,
		TotalDuration: 240,
	}
	g := FromRoute(route, Conditions{})
	res, err := g.Shortest(0, 2)
	require.NoError(t, err)
	assert.InDelta(t, 240, res.TotalTime, 1e-9)
	assert.InDelta(t, 4000, res.TotalDistance, 1e-9)
	assert.InDelta(t, 1.0, res.FuelEstimate, 1e-9)
}
