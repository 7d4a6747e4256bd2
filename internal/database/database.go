package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"tafe-weather-api/internal/config"
	"tafe-weather-api/internal/metrics"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
)

// MongodbDB is the shared database handle.
type MongodbDB struct {
	DB *mongo.Database
}

// NewDatabase creates a new MongoDB database connection with lifecycle management
func NewDatabase(lc fx.Lifecycle, cfg *config.Config) (*MongodbDB, error) {
	client, err := connectWithRetry(cfg)
	if err != nil {
		return nil, err
	}

	log.Println("Connected to MongoDB!")

	db := client.Database(cfg.DBName)

	// Register lifecycle hooks
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Println("Disconnecting from MongoDB...")
			return client.Disconnect(ctx)
		},
	})

	return &MongodbDB{DB: db}, nil
}

func connectWithRetry(cfg *config.Config) (*mongo.Client, error) {
	attempts := max(cfg.DBMaxRetries, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		client, err := connect(cfg.MongoURI)
		if err == nil {
			return client, nil
		}
		lastErr = err
		log.Printf("MongoDB connection attempt %d/%d failed: %v", attempt, attempts, err)
		if attempt < attempts {
			time.Sleep(cfg.DBRetryDelay)
		}
	}
	return nil, fmt.Errorf("connect to mongodb after %d attempts: %w", attempts, lastErr)
}

func connect(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// Aggregate runs pipeline on collection and decodes all results.
func (m *MongodbDB) Aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline, results any) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordAggregation(collection, len(pipeline), time.Since(start), err)
	}()

	cursor, err := m.DB.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	return cursor.All(ctx, results)
}

// Ping checks the server is reachable.
func (m *MongodbDB) Ping(ctx context.Context) error {
	return m.DB.Client().Ping(ctx, nil)
}
