package weather

import (
	"context"
	"errors"
	"time"

	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/internal/database"
	"tafe-weather-api/internal/metrics"
	"tafe-weather-api/pkg/pipeline"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsertBatchSize bounds a single InsertMany call.
const InsertBatchSize = 1000

type WeatherRepository interface {
	pipeline.Executor
	LatestFinder
	FindByID(ctx context.Context, id primitive.ObjectID) (*Weather, error)
	Find(ctx context.Context, filter bson.M, sort pipeline.SortSpec, limit int64) ([]Weather, error)
	InsertOne(ctx context.Context, w *Weather) error
	InsertMany(ctx context.Context, ws []Weather) (int, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*mongo.UpdateResult, error)
	SoftDelete(ctx context.Context, filter bson.M, by *models.DBRef) (int64, error)
	Devices(ctx context.Context) ([]string, error)
	EnsureIndexes(ctx context.Context) error
}

type WeatherRepositoryImpl struct {
	db         *database.MongodbDB
	Collection *mongo.Collection
}

func NewWeatherRepository(mongodb *database.MongodbDB) WeatherRepository {
	return &WeatherRepositoryImpl{
		db:         mongodb,
		Collection: mongodb.DB.Collection(Collection),
	}
}

func (r *WeatherRepositoryImpl) Aggregate(ctx context.Context, collection string, p mongo.Pipeline, results any) error {
	return r.db.Aggregate(ctx, collection, p, results)
}

// FindLatestTimestamp returns the newest createdAt matching filter, or nil
// when nothing matches.
func (r *WeatherRepositoryImpl) FindLatestTimestamp(ctx context.Context, filter bson.M) (*time.Time, error) {
	if filter == nil {
		filter = bson.M{}
	}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{"_id": 0, "createdAt": 1})

	var doc struct {
		CreatedAt time.Time `bson:"createdAt"`
	}
	err := r.Collection.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc.CreatedAt, nil
}

func (r *WeatherRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Weather, error) {
	var w Weather
	if err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WeatherRepositoryImpl) Find(ctx context.Context, filter bson.M, sort pipeline.SortSpec, limit int64) ([]Weather, error) {
	opts := options.Find()
	if len(sort) > 0 {
		opts.SetSort(sort.D())
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []Weather{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *WeatherRepositoryImpl) InsertOne(ctx context.Context, w *Weather) error {
	if w.ID.IsZero() {
		w.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, w)
	return err
}

// InsertMany inserts in batches of InsertBatchSize and reports how many
// readings were written before any failure.
func (r *WeatherRepositoryImpl) InsertMany(ctx context.Context, ws []Weather) (int, error) {
	inserted := 0
	for start := 0; start < len(ws); start += InsertBatchSize {
		end := min(start+InsertBatchSize, len(ws))

		docs := make([]any, 0, end-start)
		for i := start; i < end; i++ {
			if ws[i].ID.IsZero() {
				ws[i].ID = primitive.NewObjectID()
			}
			docs = append(docs, ws[i])
		}

		res, err := r.Collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
		if res != nil {
			inserted += len(res.InsertedIDs)
		}
		if err != nil {
			return inserted, err
		}
	}
	return inserted, nil
}

func (r *WeatherRepositoryImpl) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*mongo.UpdateResult, error) {
	return r.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

// SoftDelete moves every reading matching filter into the logs collection,
// stamped with deletedAt and deletedBy, then removes it from weathers. Work is
// done in batches of ids so that readings inserted meanwhile are untouched.
func (r *WeatherRepositoryImpl) SoftDelete(ctx context.Context, filter bson.M, by *models.DBRef) (int64, error) {
	cursor, err := r.Collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var deleted int64
	batch := make(bson.A, 0, InsertBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := r.moveToLogs(ctx, batch, by)
		deleted += n
		batch = batch[:0]
		return err
	}

	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return deleted, err
		}
		batch = append(batch, doc.ID)
		if len(batch) == InsertBatchSize {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := cursor.Err(); err != nil {
		return deleted, err
	}
	if err := flush(); err != nil {
		return deleted, err
	}

	metrics.WeathersSoftDeleted.Add(float64(deleted))
	return deleted, nil
}

func (r *WeatherRepositoryImpl) moveToLogs(ctx context.Context, ids bson.A, by *models.DBRef) (int64, error) {
	match := bson.M{"_id": bson.M{"$in": ids}}
	stamp := bson.M{"deletedAt": "$$NOW"}
	if by != nil {
		stamp["deletedBy"] = by
	}

	p := pipeline.NewBuilder().
		Match(match).
		Set(stamp).
		Merge(LogCollection).
		Build()

	// $merge returns no documents
	var none []bson.M
	if err := pipeline.Run(ctx, r, Collection, p, &none); err != nil {
		return 0, err
	}

	res, err := r.Collection.DeleteMany(ctx, match)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *WeatherRepositoryImpl) Devices(ctx context.Context) ([]string, error) {
	values, err := r.Collection.Distinct(ctx, "deviceName", bson.M{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *WeatherRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "deviceName", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "geoLocation", Value: "2dsphere"}}},
	})
	return err
}
