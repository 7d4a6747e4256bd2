package logs

import (
	"tafe-weather-api/internal/common/api"
	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/internal/config"
	"tafe-weather-api/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type LogApi struct {
	controller *LogController
	users      middleware.UserFinder
	config     *config.Config
}

func NewLogApi(controller *LogController, users middleware.UserFinder, cfg *config.Config) api.Route {
	return &LogApi{controller: controller, users: users, config: cfg}
}

func (h *LogApi) Setup(app *fiber.App) {
	logs := app.Group("/api/v1/logs",
		middleware.Protect(h.users, h.config.SkipAuth),
		middleware.AuthorisedTo(models.RoleAdmin, models.RoleTeacher),
	)

	logs.Get("/", h.controller.ListLogs)
	logs.Delete("/batch", h.controller.DeleteLogs)
	logs.Get("/:id", h.controller.GetLog)
	logs.Delete("/:id", h.controller.DeleteLog)
}
