package middleware

import (
	"context"
	"strings"

	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserFinder loads the account behind a token.
type UserFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	TouchLastLoggedIn(ctx context.Context, id primitive.ObjectID) error
}

// Protect validates the Bearer token, checks the account still exists and is
// active, stores it under models.UserKey and refreshes lastLoggedInAt.
func Protect(users UserFinder, skipAuth bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if skipAuth {
			// dev mode acts as an admin that exists nowhere
			c.Locals(models.UserKey, &models.User{
				FirstName: "dev",
				Role:      []models.Role{models.RoleAdmin},
				Status:    models.StatusActive,
			})
			return c.Next()
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		token, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			return apperror.Unauthorized("Please login to get access.")
		}

		claims, err := utils.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			return apperror.Unauthorized("Invalid token. Please login again.")
		}

		id, _ := primitive.ObjectIDFromHex(claims.UserID)
		user, err := users.FindByID(c.UserContext(), id)
		if err != nil || user == nil || !user.IsActive() {
			return apperror.Unauthorized("The user no longer exists.")
		}
		if user.PasswordChangedAt != nil && claims.IssuedBefore(*user.PasswordChangedAt) {
			return apperror.Unauthorized("User recently changed password. Please login again.")
		}

		c.Locals(models.UserKey, user)

		if err := users.TouchLastLoggedIn(c.UserContext(), id); err != nil {
			return err
		}
		return c.Next()
	}
}

// CurrentUser returns the account stored by Protect.
func CurrentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(models.UserKey).(*models.User)
	return user, ok && user != nil
}
