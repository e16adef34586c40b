// Package optimize builds a weighted graph over route geometry and finds
// the cheapest path under current traffic, weather and incident
// conditions.
package optimize

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ukydev/fleet-traffic-sim/internal/geo"
	"github.com/ukydev/fleet-traffic-sim/internal/models"
)

// ErrNoPath means no path connects the requested nodes. Callers must treat
// this as a hard failure; the optimizer never invents a straight line.
var ErrNoPath = errors.New("no path found")

const (
	incidentEdgeRadiusKm = 0.5
	zoneEdgeSlackKm      = 0.5
	fuelPctPerKm         = 0.25
)

// Conditions is the world state edge costs are derived from.
type Conditions struct {
	Zones     []models.Zone
	Incidents []models.Incident
	Env       models.EnvironmentState
}

type node struct {
	id  int
	loc models.Location
}

type edge struct {
	to        int
	distanceM float64
	baseSec   float64
	cost      float64
	incidents []models.Incident
}

// Graph is a directed weighted graph. Edge cost is fixed at insertion
// time from the conditions the graph was created with.
type Graph struct {
	cond  Conditions
	nodes []node
	adj   map[int][]edge
}

// NewGraph creates an empty graph weighted by the given conditions.
func NewGraph(cond Conditions) *Graph {
	return &Graph{cond: cond, adj: make(map[int][]edge)}
}

// AddNode adds a node and returns its ID.
func (g *Graph) AddNode(loc models.Location) int {
	id := len(g.nodes)
	g.nodes = append(g.nodes, node{id: id, loc: loc})
	return id
}

// AddEdge adds a directed edge. Cost = base travel time scaled by the
// traffic, weather and incident factors along the edge.
func (g *Graph) AddEdge(from, to int, distanceM, baseSec float64) {
	mid := geo.Lerp(g.nodes[from].loc, g.nodes[to].loc, 0.5)

	traffic := g.trafficFactor(mid)
	weather := g.weatherFactor()
	incidentF, hits := g.incidentFactor(mid)

	g.adj[from] = append(g.adj[from], edge{
		to:        to,
		distanceM: distanceM,
		baseSec:   baseSec,
		cost:      baseSec * traffic * weather * incidentF,
		incidents: hits,
	})
}

func (g *Graph) trafficFactor(mid models.Location) float64 {
	factor := 1.0
	for _, z := range g.cond.Zones {
		if geo.HaversineKm(mid, z.Center) <= z.RadiusKm+zoneEdgeSlackKm {
			f := 1 + z.Congestion/100
			if f > factor {
				factor = f
			}
		}
	}
	return factor
}

func (g *Graph) weatherFactor() float64 {
	sf := g.cond.Env.WeatherSpeedFactor
	if sf <= 0 {
		return 1
	}
	// slower driving weather means proportionally longer travel time
	return 1 / sf
}

func (g *Graph) incidentFactor(mid models.Location) (float64, []models.Incident) {
	factor := 1.0
	var hits []models.Incident
	for _, inc := range g.cond.Incidents {
		if geo.HaversineKm(mid, inc.Location) <= incidentEdgeRadiusKm {
			hits = append(hits, inc)
			if f := inc.Severity.CostFactor(); f > factor {
				factor = f
			}
		}
	}
	return factor, hits
}

// Result is an optimized path with its aggregate metrics.
type Result struct {
	Path          []models.Location
	TotalDistance float64 // meters
	TotalTime     float64 // seconds, condition-weighted
	FuelEstimate  float64 // percent of tank
	Incidents     []models.Incident
	Rationale     string
}

// FromRoute builds a chain graph from a base route's waypoints and weights
// its edges with the given conditions.
func FromRoute(route *models.Route, cond Conditions) *Graph {
	g := NewGraph(cond)
	for _, wp := range route.Waypoints {
		g.AddNode(wp.Location)
	}
	for i := 1; i < len(route.Waypoints); i++ {
		prev, cur := route.Waypoints[i-1], route.Waypoints[i]
		g.AddEdge(i-1, i, cur.DistanceM-prev.DistanceM, cur.DurationSec-prev.DurationSec)
	}
	return g
}

// Shortest runs a single-source shortest-path search from src to dst and
// reconstructs the winning path. Linear-scan selection is fine at this
// graph size.
func (g *Graph) Shortest(src, dst int) (*Result, error) {
	n := len(g.nodes)
	if src < 0 || src >= n || dst < 0 || dst >= n {
		return nil, fmt.Errorf("%w: node out of range", ErrNoPath)
	}

	dist := make([]float64, n)
	prev := make([]int, n)
	visited := make([]bool, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		prev[i] = -1
	}
	dist[src] = 0

	for {
		u := -1
		best := math.Inf(1)
		for i := 0; i < n; i++ {
			if !visited[i] && dist[i] < best {
				best = dist[i]
				u = i
			}
		}
		if u == -1 {
			break
		}
		if u == dst {
			break
		}
		visited[u] = true
		for _, e := range g.adj[u] {
			if alt := dist[u] + e.cost; alt < dist[e.to] {
				dist[e.to] = alt
				prev[e.to] = u
			}
		}
	}

	if math.IsInf(dist[dst], 1) {
		return nil, ErrNoPath
	}

	// walk predecessors back to the source
	order := []int{dst}
	for at := dst; at != src; {
		at = prev[at]
		if at == -1 {
			return nil, ErrNoPath
		}
		order = append(order, at)
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}

	return g.buildResult(order, dist[dst]), nil
}

func (g *Graph) buildResult(order []int, totalCost float64) *Result {
	res := &Result{TotalTime: totalCost}
	seen := make(map[string]bool)
	for i, id := range order {
		res.Path = append(res.Path, g.nodes[id].loc)
		if i == 0 {
			continue
		}
		for _, e := range g.adj[order[i-1]] {
			if e.to != id {
				continue
			}
			res.TotalDistance += e.distanceM
			for _, inc := range e.incidents {
				if !seen[inc.ID] {
					seen[inc.ID] = true
					res.Incidents = append(res.Incidents, inc)
				}
			}
			break
		}
	}
	res.FuelEstimate = res.TotalDistance / 1000 * fuelPctPerKm
	res.Rationale = g.rationale(res)
	return res
}

func (g *Graph) rationale(res *Result) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%.1f km in ~%.0f min", res.TotalDistance/1000, res.TotalTime/60))
	if n := len(res.Incidents); n > 0 {
		worst := res.Incidents[0].Severity
		for _, inc := range res.Incidents[1:] {
			if inc.Severity.CostFactor() > worst.CostFactor() {
				worst = inc.Severity
			}
		}
		parts = append(parts, fmt.Sprintf("%d incident(s) on path, worst %s", n, worst))
	} else {
		parts = append(parts, "no incidents on path")
	}
	if g.cond.Env.Condition != "" && g.cond.Env.Condition != models.WeatherClear {
		parts = append(parts, fmt.Sprintf("%s weather slowing travel", g.cond.Env.Condition))
	}
	if g.cond.Env.GlobalCongestion >= 60 {
		parts = append(parts, fmt.Sprintf("heavy congestion (%.0f/100)", g.cond.Env.GlobalCongestion))
	}
	return strings.Join(parts, "; ")
}
