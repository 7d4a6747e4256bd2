package main

import (
	"context"
	"fmt"
	"time"

	common_api "tafe-weather-api/internal/common/api"
	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/config"
	"tafe-weather-api/internal/database"
	"tafe-weather-api/internal/features/account"
	"tafe-weather-api/internal/features/auth"
	"tafe-weather-api/internal/features/logs"
	"tafe-weather-api/internal/features/maintenance"
	"tafe-weather-api/internal/features/system"
	"tafe-weather-api/internal/features/user"
	"tafe-weather-api/internal/features/weather"
	"tafe-weather-api/internal/logger"
	"tafe-weather-api/internal/middleware"
	"tafe-weather-api/pkg/utils"

	_ "tafe-weather-api/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer(cfg *config.Config, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          apperror.ErrorHandler(log),
		BodyLimit:             16 * 1024 * 1024,
	})

	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.RequestContext(cfg))
	app.Use(middleware.RequestLogger(log))
	app.Use(middleware.MetricsMiddleware())
	app.Use(middleware.CORSMiddleware(cfg))

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route, log *zap.Logger) {
	log.Info("Registering routes", zap.Int("count", len(routes)))
	for _, route := range routes {
		log.Debug("Setting up route", zap.String("type", fmt.Sprintf("%T", route)))
		route.Setup(app)
	}
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`, ``),
)

// ConfigureTokens hands the signing settings to the token helpers.
func ConfigureTokens(cfg *config.Config) {
	utils.SetSecret(cfg.JWTSecret)
	utils.SetExpiry(cfg.JWTExpiresIn)
}

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				log.Info("Server listening", zap.String("addr", port))
				if err := app.Listen(port); err != nil {
					log.Fatal("Server failed to start", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(
	lc fx.Lifecycle,
	log *zap.Logger,
	weatherRepo weather.WeatherRepository,
	logRepo logs.LogRepository,
	userRepo user.UserRepository,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				// Use a background context with timeout for index creation
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := weatherRepo.EnsureIndexes(ctx); err != nil {
					log.Error("Failed to ensure weather indexes", zap.Error(err))
				}
				if err := logRepo.EnsureIndexes(ctx); err != nil {
					log.Error("Failed to ensure log indexes", zap.Error(err))
				}
				if err := userRepo.EnsureIndexes(ctx); err != nil {
					log.Error("Failed to ensure user indexes", zap.Error(err))
				}
			}()
			return nil
		},
	})
}

// StartMaintenance runs the cleanup scheduler for the life of the app.
func StartMaintenance(lc fx.Lifecycle, svc maintenance.MaintenanceService) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.Start()
		},
		OnStop: func(ctx context.Context) error {
			svc.Stop()
			return nil
		},
	})
}

// @title           TAFE Weather REST API
// @version         1.0
// @description     Weather sensor readings with filtering, pagination and statistics over MongoDB.

// @contact.name    API Support

// @host            localhost:8000
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Database
			database.NewDatabase,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Repository
			user.NewUserRepository,
			weather.NewWeatherRepository,
			logs.NewLogRepository,
			maintenance.NewRunRepository,

			// Interface Adapters
			user.NewUserFinder,
			system.NewPinger,
			weather.NewHub,
			weather.NewPublisher,

			// Initialize Service
			auth.NewAuthService,
			account.NewAccountService,
			user.NewUserService,
			weather.NewWeatherService,
			logs.NewLogService,
			maintenance.NewMaintenanceService,

			// Initialize Controller
			auth.NewAuthController,
			account.NewAccountController,
			user.NewUserController,
			weather.NewWeatherController,
			logs.NewLogController,
			maintenance.NewMaintenanceController,
			system.NewHealthController,

			// Initialize API Routes
			AsRoute(auth.NewAuthApi),
			AsRoute(account.NewAccountApi),
			AsRoute(user.NewUserApi),
			AsRoute(weather.NewWeatherApi),
			AsRoute(logs.NewLogApi),
			AsRoute(maintenance.NewMaintenanceApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			ConfigureTokens,
			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			InitializeIndexes,
			StartMaintenance,
		),
	)

	app.Run()
}
