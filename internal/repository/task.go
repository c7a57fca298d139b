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

type TaskRepository struct {
	collection *mongo.Collection
}

func NewTaskRepository(db *mongo.Database) *TaskRepository {
	return &TaskRepository{collection: db.Collection(TasksCollection)}
}

// TaskFilter narrows Find. Zero values match everything.
type TaskFilter struct {
	VehicleID *primitive.ObjectID
	Status    string
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, task); err != nil {
		return apperr.Persistence(err, "failed to save task")
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var task models.Task
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&task); err != nil {
		return nil, findOneError(err, "task")
	}
	return &task, nil
}

// Find returns matching tasks by due date. Priority ordering is left to the
// caller since it is not lexical.
func (r *TaskRepository) Find(ctx context.Context, filter TaskFilter) ([]*models.Task, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := bson.M{}
	if filter.VehicleID != nil {
		query["vehicle_id"] = *filter.VehicleID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	cursor, err := r.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}}))
	if err != nil {
		return nil, apperr.Persistence(err, "failed to query tasks")
	}
	defer cursor.Close(ctx)

	tasks := []*models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, apperr.Persistence(err, "failed to decode tasks")
	}
	return tasks, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": task}
	unset := bson.M{}
	if task.DueDate == nil {
		unset["due_date"] = ""
	}
	if task.CompletedAt == nil {
		unset["completed_at"] = ""
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": task.ID}, update)
	if err != nil {
		return apperr.Persistence(err, "failed to update task")
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("task not found")
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.Persistence(err, "failed to delete task")
	}
	if result.DeletedCount == 0 {
		return apperr.NotFound("task not found")
	}
	return nil
}

func (r *TaskRepository) DeleteByVehicleID(ctx context.Context, vehicleID primitive.ObjectID) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"vehicle_id": vehicleID})
	if err != nil {
		return 0, apperr.Persistence(err, "failed to delete tasks")
	}
	return result.DeletedCount, nil
}
