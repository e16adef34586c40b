package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/fleet-traffic-sim/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoVehicleStore implements VehicleStore on a MongoDB collection.
type MongoVehicleStore struct {
	Collection *mongo.Collection
}

// ListInTransit returns every vehicle currently moving.
func (s *MongoVehicleStore) ListInTransit(ctx context.Context) ([]models.Vehicle, error) {
	if s.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := s.Collection.Find(ctx, bson.M{"status": models.StatusInTransit})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var vehicles []models.Vehicle
	if err := cursor.All(ctx, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// FindByID finds a vehicle by its ID.
func (s *MongoVehicleStore) FindByID(ctx context.Context, id string) (*models.Vehicle, error) {
	if s.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid vehicle ID: %w", err)
	}
	var vehicle models.Vehicle
	err = s.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&vehicle)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("vehicle not found")
		}
		return nil, err
	}
	return &vehicle, nil
}

// Insert inserts a vehicle record and returns its ID.
func (s *MongoVehicleStore) Insert(ctx context.Context, vehicle models.Vehicle) (string, error) {
	if s.Collection == nil {
		return "", fmt.Errorf("mongo collection is nil")
	}
	vehicle.CreatedAt = time.Now()
	vehicle.UpdatedAt = time.Now()
	res, err := s.Collection.InsertOne(ctx, vehicle)
	if err != nil {
		return "", err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted ID type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

// UpdateLocation writes the vehicle's position, speed and heading.
func (s *MongoVehicleStore) UpdateLocation(ctx context.Context, id string, lat, lng, speed, heading float64) error {
	return s.setFields(ctx, id, bson.M{
		"current_location": models.Location{Lat: lat, Lng: lng},
		"speed":            speed,
		"heading":          heading,
	})
}

// UpdateFuel writes the vehicle's fuel level.
func (s *MongoVehicleStore) UpdateFuel(ctx context.Context, id string, fuel float64) error {
	return s.setFields(ctx, id, bson.M{"fuel": fuel})
}

// UpdateStatus writes the vehicle's status.
func (s *MongoVehicleStore) UpdateStatus(ctx context.Context, id string, status models.VehicleStatus) error {
	return s.setFields(ctx, id, bson.M{"status": status})
}

// UpdateDestination writes the vehicle's destination.
func (s *MongoVehicleStore) UpdateDestination(ctx context.Context, id string, lat, lng float64) error {
	return s.setFields(ctx, id, bson.M{"destination": models.Location{Lat: lat, Lng: lng}})
}

// UpdateRouteSnapshots persists the active route and/or a pending
// alternative. A nil route clears the corresponding snapshot.
func (s *MongoVehicleStore) UpdateRouteSnapshots(ctx context.Context, id string, route, alternative *models.Route) error {
	return s.setFields(ctx, id, bson.M{
		"route":             route,
		"alternative_route": alternative,
	})
}

func (s *MongoVehicleStore) setFields(ctx context.Context, id string, fields bson.M) error {
	if s.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid vehicle ID: %w", err)
	}
	fields["updated_at"] = time.Now()
	result, err := s.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("vehicle not found")
	}
	return nil
}
