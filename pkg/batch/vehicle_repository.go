package batch

import (
	"context"
	"fmt"
	"time"

	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"
	"fleet-manager/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// VehicleRepositoryAdapter adds bulk writes on top of the vehicle repository.
type VehicleRepositoryAdapter struct {
	repo       *repository.VehicleRepository
	collection *mongo.Collection
}

func NewVehicleRepositoryAdapter(repo *repository.VehicleRepository, db *mongo.Database) *VehicleRepositoryAdapter {
	return &VehicleRepositoryAdapter{
		repo:       repo,
		collection: db.Collection(repository.VehiclesCollection),
	}
}

func (vra *VehicleRepositoryAdapter) UpdateVehicle(ctx context.Context, vehicleID string, patch models.VehiclePatch) error {
	objectID, err := primitive.ObjectIDFromHex(vehicleID)
	if err != nil {
		return apperr.Validation("invalid vehicle ID %s", vehicleID)
	}
	return vra.repo.Update(ctx, objectID, patch)
}

// UpdateVehiclesBatch sends one unordered bulk write. Updates never upsert.
func (vra *VehicleRepositoryAdapter) UpdateVehiclesBatch(ctx context.Context, updates map[string]models.VehiclePatch) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := time.Now().UTC()
	operations := make([]mongo.WriteModel, 0, len(updates))

	for vehicleID, patch := range updates {
		objectID, err := primitive.ObjectIDFromHex(vehicleID)
		if err != nil {
			return 0, apperr.Validation("invalid vehicle ID %s", vehicleID)
		}

		set := bson.M(patch.SetFields())
		set["updated_at"] = now

		operations = append(operations, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": objectID}).
			SetUpdate(bson.M{"$set": set}).
			SetUpsert(false))
	}

	result, err := vra.collection.BulkWrite(ctx, operations, repository.UnorderedBulk())
	if err != nil {
		return 0, apperr.Persistence(err, "bulk write failed")
	}
	if result == nil {
		return 0, fmt.Errorf("bulk write returned no result")
	}

	return result.MatchedCount, nil
}
