package database

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// DefaultDatabase is used when the URI names no database.
const DefaultDatabase = "fleet_management"

// Connect establishes a connection to MongoDB and makes sure the indexes the
// jobs rely on exist.
func Connect(ctx context.Context, mongoURI string) (*mongo.Database, error) {
	cs, err := connstring.ParseAndValidate(mongoURI)
	if err != nil {
		return nil, fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := cs.Database
	if dbName == "" {
		dbName = DefaultDatabase
	}
	log.WithField("database", dbName).Info("Successfully connected to MongoDB")

	db := client.Database(dbName)
	if err := EnsureIndexes(ctx, db); err != nil {
		log.WithError(err).Warn("Failed to create indexes")
	}

	return db, nil
}

// collectionIndexes lists the indexes per collection. The compound vehicle
// index backs the reminder query (window on next_inspection, pending, not yet
// notified).
func collectionIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		"vehicles": {
			{Keys: bson.D{{Key: "plate", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{
				{Key: "next_inspection", Value: 1},
				{Key: "inspection_status", Value: 1},
				{Key: "email_sent", Value: 1},
			}},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		"users": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "is_primary_manager", Value: 1}}},
		},
		"maintenance": {
			{Keys: bson.D{{Key: "vehicle_id", Value: 1}, {Key: "date", Value: -1}}},
		},
		"tasks": {
			{Keys: bson.D{{Key: "vehicle_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "due_date", Value: 1}}},
		},
		"notifications": {
			{Keys: bson.D{{Key: "sent_at", Value: -1}}},
			{Keys: bson.D{{Key: "vehicle_id", Value: 1}}},
		},
	}
}

// EnsureIndexes creates the indexes of every collection. It keeps going after
// a failure and returns the last error.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	var lastErr error
	for name, indexes := range collectionIndexes() {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			log.WithError(err).WithField("collection", name).Error("Failed to create indexes")
			lastErr = err
		}
	}

	if lastErr == nil {
		log.Debug("Database indexes created successfully")
	}
	return lastErr
}

// Disconnect closes the MongoDB connection
func Disconnect(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}

	log.Info("Disconnected from MongoDB")
	return nil
}

// Health checks the database connection health
func Health(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return db.Client().Ping(ctx, nil)
}
