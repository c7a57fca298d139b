package repository

import (
	"context"
	"errors"
	"time"

	"fleet-manager/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	VehiclesCollection      = "vehicles"
	UsersCollection         = "users"
	MaintenanceCollection   = "maintenance"
	TasksCollection         = "tasks"
	NotificationsCollection = "notifications"
)

const queryTimeout = 10 * time.Second

// UnorderedBulk lets a bulk write continue past a failing operation.
func UnorderedBulk() *options.BulkWriteOptions {
	return options.BulkWrite().SetOrdered(false)
}

// ParseID converts a hex id from a request into an ObjectID.
func ParseID(hex, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid %s ID", what)
	}
	return id, nil
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

// findOneError maps a FindOne failure onto an application error.
func findOneError(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound("%s not found", what)
	}
	return apperr.Persistence(err, "failed to load %s", what)
}

// writeError maps a write failure, turning unique index violations into
// conflicts described by duplicate.
func writeError(err error, duplicate, what string) error {
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Conflict("%s", duplicate)
	}
	return apperr.Persistence(err, "failed to save %s", what)
}
