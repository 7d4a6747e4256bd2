package weather

import (
	"tafe-weather-api/internal/common/api"
	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/internal/config"
	"tafe-weather-api/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type WeatherApi struct {
	controller *WeatherController
	hub        *Hub
	users      middleware.UserFinder
	config     *config.Config
}

func NewWeatherApi(controller *WeatherController, hub *Hub, users middleware.UserFinder, cfg *config.Config) api.Route {
	return &WeatherApi{
		controller: controller,
		hub:        hub,
		users:      users,
		config:     cfg,
	}
}

// Setup registers weather routes. Reads are open to every role, sensors may
// also post readings, and only staff may edit, import or delete.
func (h *WeatherApi) Setup(app *fiber.App) {
	readers := middleware.AuthorisedTo(models.Roles...)
	writers := middleware.AuthorisedTo(models.RoleAdmin, models.RoleTeacher, models.RoleSensor)
	staff := middleware.AuthorisedTo(models.RoleAdmin, models.RoleTeacher)

	weathers := app.Group("/api/v1/weathers", middleware.Protect(h.users, h.config.SkipAuth))

	weathers.Get("/live", readers, func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}, websocket.New(h.hub.HandleLive))

	weathers.Get("/", readers, h.controller.ListWeathers)
	weathers.Post("/", writers, h.controller.CreateWeathers)
	weathers.Delete("/", staff, h.controller.DeleteWeathers)
	weathers.Post("/import", staff, h.controller.ImportWeathers)
	weathers.Get("/export", readers, h.controller.ExportWeathers)
	weathers.Get("/stats", readers, h.controller.GetStats)
	weathers.Get("/extremes", readers, h.controller.GetExtremes)
	weathers.Get("/devices", readers, h.controller.ListDevices)
	weathers.Get("/:id", readers, h.controller.GetWeather)
	weathers.Put("/:id", staff, h.controller.UpdateWeather)
	weathers.Delete("/:id", staff, h.controller.DeleteWeather)
}
