package repository

import (
	"context"
	"time"

	"fleet-manager/internal/inspection"
	"fleet-manager/internal/models"
	"fleet-manager/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type VehicleRepository struct {
	collection *mongo.Collection
}

func NewVehicleRepository(db *mongo.Database) *VehicleRepository {
	return &VehicleRepository{
		collection: db.Collection(VehiclesCollection),
	}
}

// VehicleFilter narrows FindAll. Zero values match everything.
type VehicleFilter struct {
	UserID *primitive.ObjectID
	Status inspection.Status
}

func (f VehicleFilter) query() bson.M {
	query := bson.M{}
	if f.UserID != nil {
		query["user_id"] = *f.UserID
	}
	if f.Status != "" {
		query["inspection_status"] = f.Status
	}
	return query
}

func (r *VehicleRepository) Create(ctx context.Context, vehicle *models.Vehicle) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if vehicle.ID.IsZero() {
		vehicle.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, vehicle); err != nil {
		return writeError(err, "a vehicle with plate "+vehicle.Plate+" already exists", "vehicle")
	}
	return nil
}

func (r *VehicleRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var vehicle models.Vehicle
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&vehicle); err != nil {
		return nil, findOneError(err, "vehicle")
	}
	return &vehicle, nil
}

func (r *VehicleRepository) FindByPlate(ctx context.Context, plate string) (*models.Vehicle, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var vehicle models.Vehicle
	if err := r.collection.FindOne(ctx, bson.M{"plate": plate}).Decode(&vehicle); err != nil {
		return nil, findOneError(err, "vehicle")
	}
	return &vehicle, nil
}

// FindAll returns the vehicles matching filter ordered by plate.
func (r *VehicleRepository) FindAll(ctx context.Context, filter VehicleFilter) ([]*models.Vehicle, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "plate", Value: 1}})
	return r.find(ctx, filter.query(), opts)
}

// FindDueForReminder returns pending vehicles not yet notified whose next
// inspection falls in [from, to].
func (r *VehicleRepository) FindDueForReminder(ctx context.Context, from, to time.Time) ([]*models.Vehicle, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"next_inspection":   bson.M{"$gte": from, "$lte": to},
		"inspection_status": inspection.StatusPending,
		"email_sent":        false,
	}
	opts := options.Find().SetSort(bson.D{{Key: "next_inspection", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *VehicleRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Vehicle, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to query vehicles")
	}
	defer cursor.Close(ctx)

	vehicles := []*models.Vehicle{}
	if err := cursor.All(ctx, &vehicles); err != nil {
		return nil, apperr.Persistence(err, "failed to decode vehicles")
	}
	return vehicles, nil
}

// Update applies patch with a single $set. It never upserts: a vehicle that
// no longer exists yields a not found error.
func (r *VehicleRepository) Update(ctx context.Context, id primitive.ObjectID, patch models.VehiclePatch) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := bson.M(patch.SetFields())
	set["updated_at"] = time.Now().UTC()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return apperr.Persistence(err, "failed to update vehicle %s", id.Hex())
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("vehicle %s not found", id.Hex())
	}
	return nil
}

// EscalateOverdue marks every pending vehicle whose next inspection is before
// today as overdue and returns how many were changed.
func (r *VehicleRepository) EscalateOverdue(ctx context.Context, today time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"next_inspection":   bson.M{"$lt": today},
		"inspection_status": inspection.StatusPending,
	}
	update := bson.M{"$set": bson.M{
		"inspection_status": inspection.StatusOverdue,
		"updated_at":        time.Now().UTC(),
	}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, apperr.Persistence(err, "failed to escalate overdue vehicles")
	}
	return result.ModifiedCount, nil
}

func (r *VehicleRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.Persistence(err, "failed to delete vehicle %s", id.Hex())
	}
	if result.DeletedCount == 0 {
		return apperr.NotFound("vehicle %s not found", id.Hex())
	}
	return nil
}

func (r *VehicleRepository) CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, apperr.Persistence(err, "failed to count vehicles")
	}
	return count, nil
}

// CountByStatus groups the fleet by inspection status.
func (r *VehicleRepository) CountByStatus(ctx context.Context) (map[inspection.Status]int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$inspection_status",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to aggregate vehicle statuses")
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status inspection.Status `bson:"_id"`
		Count  int64             `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, apperr.Persistence(err, "failed to decode vehicle statuses")
	}

	counts := make(map[inspection.Status]int64, len(rows))
	for _, row := range rows {
		counts[inspection.Normalize(row.Status)] += row.Count
	}
	return counts, nil
}
