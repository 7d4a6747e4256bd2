package user

import (
	"tafe-weather-api/internal/common/api"
	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/internal/config"
	"tafe-weather-api/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type UserApi struct {
	controller *UserController
	users      middleware.UserFinder
	config     *config.Config
}

func NewUserApi(controller *UserController, users middleware.UserFinder, config *config.Config) api.Route {
	return &UserApi{
		controller: controller,
		users:      users,
		config:     config,
	}
}

// Setup registers all user-related routes
func (h *UserApi) Setup(app *fiber.App) {
	users := app.Group("/api/v1/users",
		middleware.Protect(h.users, h.config.SkipAuth),
		middleware.AuthorisedTo(models.RoleAdmin, models.RoleTeacher),
	)

	users.Get("/", h.controller.ListUsers)
	users.Post("/", h.controller.CreateUser)

	// batch routes before /:id
	users.Delete("/batch", h.controller.DeleteUsers)
	users.Patch("/roles", h.controller.UpdateRoles)

	users.Get("/:id", h.controller.GetUser)
	users.Put("/:id", h.controller.UpdateUser)
	users.Delete("/:id", h.controller.DeleteUser)
}
