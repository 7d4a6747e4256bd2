package account

import (
	"tafe-weather-api/internal/common/api"
	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/internal/config"
	"tafe-weather-api/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AccountApi struct {
	controller *AccountController
	users      middleware.UserFinder
	config     *config.Config
}

func NewAccountApi(controller *AccountController, users middleware.UserFinder, config *config.Config) api.Route {
	return &AccountApi{
		controller: controller,
		users:      users,
		config:     config,
	}
}

func (h *AccountApi) Setup(app *fiber.App) {
	account := app.Group("/api/v1/account",
		middleware.Protect(h.users, h.config.SkipAuth),
		middleware.AuthorisedTo(models.Roles...),
	)

	account.Get("/", h.controller.ShowAccount)
	account.Patch("/", h.controller.UpdateAccount)
	account.Patch("/updatePassword", h.controller.UpdatePassword)
}
