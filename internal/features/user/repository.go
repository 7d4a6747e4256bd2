package user

import (
	"context"
	"time"

	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/internal/database"
	"tafe-weather-api/internal/middleware"
	"tafe-weather-api/pkg/pipeline"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "users"

type UserRepository interface {
	pipeline.Executor
	middleware.UserFinder
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*mongo.UpdateResult, error)
	UpdateMany(ctx context.Context, filter, set bson.M) (*mongo.UpdateResult, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
	DeleteMany(ctx context.Context, filter bson.M) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type UserRepositoryImpl struct {
	db         *database.MongodbDB
	Collection *mongo.Collection
}

func NewUserRepository(mongodb *database.MongodbDB) UserRepository {
	return &UserRepositoryImpl{
		db:         mongodb,
		Collection: mongodb.DB.Collection(Collection),
	}
}

// NewUserFinder exposes the repository to the auth middleware.
func NewUserFinder(repo UserRepository) middleware.UserFinder {
	return repo
}

func (r *UserRepositoryImpl) Aggregate(ctx context.Context, collection string, p mongo.Pipeline, results any) error {
	return r.db.Aggregate(ctx, collection, p, results)
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, user)
	return err
}

func (r *UserRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.Collection.FindOne(ctx, bson.M{"emailAddress": email}).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) TouchLastLoggedIn(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastLoggedInAt": time.Now().UTC()}})
	return err
}

func (r *UserRepositoryImpl) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*mongo.UpdateResult, error) {
	return r.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (r *UserRepositoryImpl) UpdateMany(ctx context.Context, filter, set bson.M) (*mongo.UpdateResult, error) {
	return r.Collection.UpdateMany(ctx, filter, bson.M{"$set": set})
}

func (r *UserRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *UserRepositoryImpl) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	res, err := r.Collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *UserRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "emailAddress", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "lastLoggedInAt", Value: 1}}},
	})
	return err
}
