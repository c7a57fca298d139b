package repository

import (
	"context"
	"time"

	"fleet-manager/internal/models"
	"fleet-manager/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository stores the log of notification attempts.
type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{collection: db.Collection(NotificationsCollection)}
}

// NotificationFilter selects a page of the log.
type NotificationFilter struct {
	VehicleID *primitive.ObjectID
	Kind      string
	Limit     int64
	Skip      int64
}

func (r *NotificationRepository) Insert(ctx context.Context, entry *models.NotificationLog) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return apperr.Persistence(err, "failed to record notification")
	}
	return nil
}

// List returns the matching entries, newest first, and the total match count.
func (r *NotificationRepository) List(ctx context.Context, filter NotificationFilter) ([]*models.NotificationLog, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := bson.M{}
	if filter.VehicleID != nil {
		query["vehicle_id"] = *filter.VehicleID
	}
	if filter.Kind != "" {
		query["kind"] = filter.Kind
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, apperr.Persistence(err, "failed to count notifications")
	}

	opts := options.Find().SetSort(bson.D{{Key: "sent_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	if filter.Skip > 0 {
		opts.SetSkip(filter.Skip)
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, apperr.Persistence(err, "failed to query notifications")
	}
	defer cursor.Close(ctx)

	entries := []*models.NotificationLog{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, 0, apperr.Persistence(err, "failed to decode notifications")
	}
	return entries, total, nil
}

// DeleteOlderThan prunes entries sent before cutoff.
func (r *NotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"sent_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, apperr.Persistence(err, "failed to prune notifications")
	}
	return result.DeletedCount, nil
}
