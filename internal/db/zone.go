package db

import (
	"context"
	"fmt"

	"github.com/ukydev/fleet-traffic-sim/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoZoneStore implements ZoneStore on a MongoDB collection.
type MongoZoneStore struct {
	Collection *mongo.Collection
}

// List returns all zones.
func (s *MongoZoneStore) List(ctx context.Context) ([]models.Zone, error) {
	if s.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := s.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var zones []models.Zone
	if err := cursor.All(ctx, &zones); err != nil {
		return nil, err
	}
	return zones, nil
}

// Insert inserts a zone record and returns its ID.
func (s *MongoZoneStore) Insert(ctx context.Context, zone models.Zone) (string, error) {
	if s.Collection == nil {
		return "", fmt.Errorf("mongo collection is nil")
	}
	res, err := s.Collection.InsertOne(ctx, zone)
	if err != nil {
		return "", err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted ID type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

// UpdateCongestion writes a zone's congestion level and vehicle count.
func (s *MongoZoneStore) UpdateCongestion(ctx context.Context, id string, level float64, vehicleCount int) error {
	if s.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid zone ID: %w", err)
	}
	result, err := s.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": bson.M{
		"congestion":    level,
		"vehicle_count": vehicleCount,
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("zone not found")
	}
	return nil
}
