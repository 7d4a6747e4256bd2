package logger

import (
	"context"
	"fmt"
	"sync"
	"time"

	common_models "tafe-weather-api/internal/common/models"
	"tafe-weather-api/internal/config"
	"tafe-weather-api/internal/database"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap/zapcore"
)

// AppLogCollection stores application logs. It is separate from "logs",
// which holds soft-deleted weather readings.
const AppLogCollection = "app_logs"

// LogEntry holds the data passed from Zap to our worker
type LogEntry struct {
	Level     zapcore.Level
	Message   string
	IpAddress string
	RequestID string
	Caller    string // Function name
}

// logInserter is the part of *mongo.Collection the writer needs.
type logInserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// DBLogWriter handles the async writing
type DBLogWriter struct {
	coll    logInserter
	logChan chan LogEntry
	appId   string

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDBLogWriter initializes the worker
func NewDBLogWriter(mongodb *database.MongodbDB, cfg *config.Config) *DBLogWriter {
	return newDBLogWriter(mongodb.DB.Collection(AppLogCollection), cfg.AppId)
}

func newDBLogWriter(coll logInserter, appId string) *DBLogWriter {
	writer := &DBLogWriter{
		coll:    coll,
		logChan: make(chan LogEntry, 1000), // Buffer 1000 logs
		appId:   appId,
		done:    make(chan struct{}),
	}

	// Start the background worker immediately
	go writer.processLogs()

	return writer
}

// AddLog is called by our Zap hook
func (w *DBLogWriter) AddLog(entry LogEntry) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}

	select {
	case w.logChan <- entry:
	default:
		// Channel full: drop rather than block the request
		fmt.Println("DB Log Channel Full! Dropping log:", entry.Message)
	}
}

// Close stops accepting entries and waits until the buffered ones are
// written or ctx is done.
func (w *DBLogWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.logChan)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("draining %d app logs: %w", len(w.logChan), ctx.Err())
	}
}

func (w *DBLogWriter) processLogs() {
	defer close(w.done)
	for entry := range w.logChan {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		// errors are ignored so logging never takes the API down
		_, _ = w.coll.InsertOne(ctx, toAppLog(entry, w.appId))
		cancel()
	}
}

func toAppLog(entry LogEntry, appId string) common_models.AppLog {
	return common_models.AppLog{
		Level:        entry.Level.String(),
		LogLevelId:   mapLevelToInt(entry.Level),
		Message:      entry.Message,
		Caller:       entry.Caller,
		IpAddress:    entry.IpAddress,
		RequestID:    entry.RequestID,
		AppId:        appId,
		CreatedOnUtc: time.Now().UTC(),
	}
}

func mapLevelToInt(l zapcore.Level) int {
	switch l {
	case zapcore.DebugLevel:
		return 10
	case zapcore.InfoLevel:
		return 20
	case zapcore.WarnLevel:
		return 30
	case zapcore.ErrorLevel:
		return 40
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return 50
	default:
		return 20
	}
}
