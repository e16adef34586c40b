package db

import (
	"context"

	"github.com/ukydev/fleet-traffic-sim/internal/models"
)

// VehicleStore is the persistence contract the simulation engine drives
// vehicles through. The persisted records are the cross-process source of
// truth and are re-read at the start of every tick.
type VehicleStore interface {
	ListInTransit(ctx context.Context) ([]models.Vehicle, error)
	FindByID(ctx context.Context, id string) (*models.Vehicle, error)
	Insert(ctx context.Context, vehicle models.Vehicle) (string, error)
	UpdateLocation(ctx context.Context, id string, lat, lng, speed, heading float64) error
	UpdateFuel(ctx context.Context, id string, fuel float64) error
	UpdateStatus(ctx context.Context, id string, status models.VehicleStatus) error
	UpdateDestination(ctx context.Context, id string, lat, lng float64) error
	UpdateRouteSnapshots(ctx context.Context, id string, route, alternative *models.Route) error
}

// ZoneStore is the persistence contract for traffic zones.
type ZoneStore interface {
	List(ctx context.Context) ([]models.Zone, error)
	Insert(ctx context.Context, zone models.Zone) (string, error)
	UpdateCongestion(ctx context.Context, id string, level float64, vehicleCount int) error
}
