package system

import (
	"tafe-weather-api/internal/common/api"
	"tafe-weather-api/internal/database"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HealthApi struct {
	controller *HealthController
}

func NewHealthApi(controller *HealthController) api.Route {
	return &HealthApi{controller: controller}
}

// NewPinger exposes the database to the health check.
func NewPinger(db *database.MongodbDB) Pinger {
	return db
}

func (h *HealthApi) Setup(app *fiber.App) {
	app.Get("/health", h.controller.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
