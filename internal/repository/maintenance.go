package repository

import (
	"context"

	"fleet-manager/internal/models"
	"fleet-manager/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MaintenanceRepository struct {
	collection *mongo.Collection
}

func NewMaintenanceRepository(db *mongo.Database) *MaintenanceRepository {
	return &MaintenanceRepository{collection: db.Collection(MaintenanceCollection)}
}

func (r *MaintenanceRepository) Create(ctx context.Context, record *models.MaintenanceRecord) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		return apperr.Persistence(err, "failed to save maintenance record")
	}
	return nil
}

func (r *MaintenanceRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var record models.MaintenanceRecord
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record); err != nil {
		return nil, findOneError(err, "maintenance record")
	}
	return &record, nil
}

// FindAll lists every record, newest first.
func (r *MaintenanceRepository) FindAll(ctx context.Context) ([]*models.MaintenanceRecord, error) {
	return r.find(ctx, bson.M{})
}

// FindByVehicleID lists the records of one vehicle, newest first.
func (r *MaintenanceRepository) FindByVehicleID(ctx context.Context, vehicleID primitive.ObjectID) ([]*models.MaintenanceRecord, error) {
	return r.find(ctx, bson.M{"vehicle_id": vehicleID})
}

func (r *MaintenanceRepository) find(ctx context.Context, filter bson.M) ([]*models.MaintenanceRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
	if err != nil {
		return nil, apperr.Persistence(err, "failed to query maintenance records")
	}
	defer cursor.Close(ctx)

	records := []*models.MaintenanceRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, apperr.Persistence(err, "failed to decode maintenance records")
	}
	return records, nil
}

func (r *MaintenanceRepository) Update(ctx context.Context, record *models.MaintenanceRecord) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": record.ID}, bson.M{"$set": record})
	if err != nil {
		return apperr.Persistence(err, "failed to update maintenance record")
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("maintenance record not found")
	}
	return nil
}

func (r *MaintenanceRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.Persistence(err, "failed to delete maintenance record")
	}
	if result.DeletedCount == 0 {
		return apperr.NotFound("maintenance record not found")
	}
	return nil
}

// DeleteByVehicleID removes every record of a vehicle.
func (r *MaintenanceRepository) DeleteByVehicleID(ctx context.Context, vehicleID primitive.ObjectID) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"vehicle_id": vehicleID})
	if err != nil {
		return 0, apperr.Persistence(err, "failed to delete maintenance records")
	}
	return result.DeletedCount, nil
}
