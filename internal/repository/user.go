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

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{collection: db.Collection(UsersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		return writeError(err, "email "+user.Email+" is already in use", "user")
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var user models.User
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, findOneError(err, "user")
	}
	return &user, nil
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*models.User, error) {
	return r.find(ctx, bson.M{})
}

// FindPrimaryManagers returns the users who receive fleet summaries.
func (r *UserRepository) FindPrimaryManagers(ctx context.Context) ([]*models.User, error) {
	return r.find(ctx, bson.M{"is_primary_manager": true})
}

func (r *UserRepository) find(ctx context.Context, filter bson.M) ([]*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, apperr.Persistence(err, "failed to query users")
	}
	defer cursor.Close(ctx)

	users := []*models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, apperr.Persistence(err, "failed to decode users")
	}
	return users, nil
}

// Update replaces the stored fields of user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": user})
	if err != nil {
		return writeError(err, "email "+user.Email+" is already in use", "user")
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.Persistence(err, "failed to delete user")
	}
	if result.DeletedCount == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}
