package api

import (
	"tafe-weather-api/internal/common/apperror"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ObjectIDParam reads a hex ObjectID route parameter.
func ObjectIDParam(c *fiber.Ctx, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Params(name))
	if err != nil {
		return primitive.NilObjectID, apperror.BadRequest("Invalid id").WithContext(map[string]any{name: c.Params(name)})
	}
	return id, nil
}
