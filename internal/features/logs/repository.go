package logs

import (
	"context"

	"tafe-weather-api/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type LogRepository interface {
	Aggregate(ctx context.Context, collection string, p mongo.Pipeline, results any) error
	DeleteByID(ctx context.Context, id primitive.ObjectID) (int64, error)
	DeleteMany(ctx context.Context, filter bson.M) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type LogRepositoryImpl struct {
	db         *database.MongodbDB
	Collection *mongo.Collection
}

func NewLogRepository(mongodb *database.MongodbDB) LogRepository {
	return &LogRepositoryImpl{
		db:         mongodb,
		Collection: mongodb.DB.Collection(Collection),
	}
}

func (r *LogRepositoryImpl) Aggregate(ctx context.Context, collection string, p mongo.Pipeline, results any) error {
	return r.db.Aggregate(ctx, collection, p, results)
}

func (r *LogRepositoryImpl) DeleteByID(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *LogRepositoryImpl) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	res, err := r.Collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *LogRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "deletedAt", Value: -1}}},
		{Keys: bson.D{{Key: "deviceName", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	return err
}
