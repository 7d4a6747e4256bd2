package maintenance

import (
	"tafe-weather-api/internal/common/api"
	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/internal/config"
	"tafe-weather-api/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type MaintenanceApi struct {
	controller *MaintenanceController
	users      middleware.UserFinder
	config     *config.Config
}

func NewMaintenanceApi(controller *MaintenanceController, users middleware.UserFinder, config *config.Config) api.Route {
	return &MaintenanceApi{
		controller: controller,
		users:      users,
		config:     config,
	}
}

func (h *MaintenanceApi) Setup(app *fiber.App) {
	jobs := app.Group("/api/v1/maintenance",
		middleware.Protect(h.users, h.config.SkipAuth),
		middleware.AuthorisedTo(models.RoleAdmin),
	)

	jobs.Get("/runs", h.controller.ListRuns)
	jobs.Post("/:task/run", h.controller.RunTask)
}
