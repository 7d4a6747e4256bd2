package maintenance

import (
	"context"

	"tafe-weather-api/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RunRepository interface {
	CreateRun(ctx context.Context, run *Run) error
	UpdateRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, task Task, limit int64) ([]Run, error)
}

type RunRepositoryImpl struct {
	collection *mongo.Collection
}

func NewRunRepository(db *database.MongodbDB) RunRepository {
	return &RunRepositoryImpl{collection: db.DB.Collection(RunCollection)}
}

func (r *RunRepositoryImpl) CreateRun(ctx context.Context, run *Run) error {
	run.ID = primitive.NewObjectID()
	_, err := r.collection.InsertOne(ctx, run)
	return err
}

func (r *RunRepositoryImpl) UpdateRun(ctx context.Context, run *Run) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": run.ID}, run)
	return err
}

func (r *RunRepositoryImpl) ListRuns(ctx context.Context, task Task, limit int64) ([]Run, error) {
	filter := bson.M{}
	if task != "" {
		filter["task"] = task
	}
	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: -1}}).SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	runs := []Run{}
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}
