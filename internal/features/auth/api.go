package auth

import (
	"tafe-weather-api/internal/common/api"
	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/config"
	"tafe-weather-api/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type AuthApi struct {
	controller *AuthController
	config     *config.Config
}

func NewAuthApi(controller *AuthController, config *config.Config) api.Route {
	return &AuthApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers all auth-related routes
func (h *AuthApi) Setup(app *fiber.App) {
	auth := app.Group("/api/v1/auth")

	auth.Get("/", h.controller.Welcome)
	auth.Post("/login", loginLimiter(h.config), h.controller.Login)
}

// loginLimiter caps login attempts per client IP.
func loginLimiter(cfg *config.Config) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        cfg.LoginRateLimit,
		Expiration: cfg.LoginRateWindow,
		Next: func(c *fiber.Ctx) bool {
			return cfg.LoginRateLimit <= 0
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return "login:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			metrics.APIRateLimitHits.WithLabelValues("/api/v1/auth/login").Inc()
			return apperror.Client(fiber.StatusTooManyRequests, "Too many login attempts. Please try again later.")
		},
	})
}
