package middleware

import (
	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

// AuthorisedTo lets the request through only if every role of the current
// user is one of roles. It must run after Protect.
func AuthorisedTo(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return apperror.Unauthorized("Please login to get access.")
		}

		if !models.AllowedTo(user.Role, roles...) {
			return apperror.Forbidden("Sorry, you are not authorised for this resource")
		}

		return c.Next()
	}
}
