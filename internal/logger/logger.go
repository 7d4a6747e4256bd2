package logger

import (
	"context"

	"tafe-weather-api/internal/config"
	"tafe-weather-api/internal/database"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the application logger. Warnings and errors are also
// written to the app_logs collection unless LOG_TO_DB is off; the pending
// ones are flushed on shutdown, before the database disconnects.
func NewLogger(lc fx.Lifecycle, cfg *config.Config, mongodb *database.MongodbDB) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.IsProduction() {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Important: Enable Caller to get Function Name
	zapConfig.EncoderConfig.FunctionKey = "func"

	baseLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	if !cfg.LogToDB {
		return baseLogger, nil
	}

	dbWriter := NewDBLogWriter(mongodb, cfg)
	finalCore := NewDBCore(baseLogger.Core(), dbWriter, zapcore.WarnLevel)
	log := zap.New(finalCore, zap.AddCaller())

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = log.Sync()
			return dbWriter.Close(ctx)
		},
	})

	return log, nil
}
