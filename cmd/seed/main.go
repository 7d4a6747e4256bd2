package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/internal/config"
	"tafe-weather-api/internal/database"
	"tafe-weather-api/internal/features/user"
	"tafe-weather-api/internal/features/weather"
	"tafe-weather-api/internal/logger"
	"tafe-weather-api/pkg/utils"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Data Paths (Assuming running from backend root)
const (
	usersPath           = "cmd/seed/data/users.json"
	defaultReadingsPath = "cmd/seed/data/readings.json"
)

type seedUser struct {
	FirstName    string        `json:"firstName"`
	LastName     string        `json:"lastName"`
	EmailAddress string        `json:"emailAddress"`
	Phone        string        `json:"phone"`
	Password     string        `json:"password"`
	Role         []models.Role `json:"role"`
}

// Seed runs the database seeding
func Seed(
	lc fx.Lifecycle,
	userRepo user.UserRepository,
	weatherRepo weather.WeatherRepository,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
				defer cancel()

				logger.Info("Starting database seeding")

				if err := userRepo.EnsureIndexes(ctx); err != nil {
					logger.Error("Failed to ensure user indexes", zap.Error(err))
				}
				if err := weatherRepo.EnsureIndexes(ctx); err != nil {
					logger.Error("Failed to ensure weather indexes", zap.Error(err))
				}

				seedUsers(ctx, userRepo, logger)

				readingsPath := os.Getenv("SEED_READINGS")
				if readingsPath == "" {
					readingsPath = defaultReadingsPath
				}
				seedReadings(ctx, weatherRepo, readingsPath, logger)

				logger.Info("Database seeding finished")
			}()
			return nil
		},
	})
}

func seedUsers(ctx context.Context, repo user.UserRepository, logger *zap.Logger) {
	b, err := os.ReadFile(usersPath)
	if err != nil {
		logger.Warn("Failed to read users.json, skipping user seeding", zap.Error(err))
		return
	}
	var users []seedUser
	if err := json.Unmarshal(b, &users); err != nil {
		logger.Error("Failed to parse users.json", zap.Error(err))
		return
	}

	for _, u := range users {
		_, err := repo.FindByEmail(ctx, u.EmailAddress)
		if err == nil {
			logger.Info("User exists, skipping", zap.String("email", u.EmailAddress))
			continue
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			logger.Error("Failed to look up user", zap.String("email", u.EmailAddress), zap.Error(err))
			continue
		}

		hash, err := utils.HashPassword(u.Password)
		if err != nil {
			logger.Error("Failed to hash password", zap.Error(err))
			continue
		}
		now := time.Now().UTC()
		doc := &models.User{
			FirstName:      u.FirstName,
			LastName:       u.LastName,
			EmailAddress:   u.EmailAddress,
			Phone:          u.Phone,
			Password:       hash,
			Role:           u.Role,
			Status:         models.StatusActive,
			CreatedAt:      now,
			LastLoggedInAt: &now,
		}
		if err := repo.Create(ctx, doc); err != nil {
			logger.Error("Failed to create user", zap.String("email", u.EmailAddress), zap.Error(err))
			continue
		}
		logger.Info("User created", zap.String("email", u.EmailAddress), zap.Strings("role", doc.RoleStrings()))
	}
}

func seedReadings(ctx context.Context, repo weather.WeatherRepository, path string, logger *zap.Logger) {
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("Failed to open readings file, skipping weather seeding", zap.String("path", path), zap.Error(err))
		return
	}
	defer f.Close()

	format, err := weather.ParseFormat(path)
	if err != nil {
		logger.Error("Unsupported readings file", zap.String("path", path), zap.Error(err))
		return
	}
	parsed, err := weather.ParseReadings(f, format)
	if err != nil {
		logger.Error("Failed to parse readings", zap.Error(err))
		return
	}
	for _, rowErr := range parsed.Errors {
		logger.Warn("Skipped reading", zap.Int("row", rowErr.Row), zap.String("reason", rowErr.Message))
	}

	now := time.Now().UTC()
	for i := range parsed.Readings {
		if parsed.Readings[i].CreatedAt.IsZero() {
			parsed.Readings[i].CreatedAt = now
		}
	}

	n, err := repo.InsertMany(ctx, parsed.Readings)
	if err != nil {
		logger.Error("Failed to insert readings", zap.Int("inserted", n), zap.Error(err))
		return
	}
	logger.Info("Readings inserted", zap.Int("inserted", n), zap.Int("skipped", len(parsed.Errors)))
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			database.NewDatabase,
			logger.NewLogger,
			user.NewUserRepository,
			weather.NewWeatherRepository,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
