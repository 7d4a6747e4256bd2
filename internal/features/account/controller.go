package account

import (
	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/common/validation"
	"tafe-weather-api/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"
)

type AccountController struct {
	Service AccountService
}

func NewAccountController(service AccountService) *AccountController {
	return &AccountController{Service: service}
}

// ShowAccount godoc
// @Summary Show the signed-in account
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Router /api/v1/account [get]
func (ctrl *AccountController) ShowAccount(c *fiber.Ctx) error {
	me, _ := middleware.CurrentUser(c)
	acc, err := ctrl.Service.Show(c.UserContext(), me.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"result": acc})
}

// UpdateAccount godoc
// @Summary Update name and phone of the signed-in account
// @Tags Account
// @Accept json
// @Param input body UpdateAccountRequest true "Account details"
// @Security BearerAuth
// @Router /api/v1/account [patch]
func (ctrl *AccountController) UpdateAccount(c *fiber.Ctx) error {
	var req UpdateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.BadRequest("Invalid request body")
	}
	if err := validation.ValidateStruct(&req); err != nil {
		return err
	}

	me, _ := middleware.CurrentUser(c)
	res, err := ctrl.Service.Update(c.UserContext(), me.ID, req)
	if err != nil {
		return err
	}
	return c.JSON(updateResult(res))
}

// UpdatePassword godoc
// @Summary Change the password of the signed-in account
// @Description Tokens issued before the change stop working
// @Tags Account
// @Accept json
// @Param input body UpdatePasswordRequest true "Passwords"
// @Failure 401 {object} apperror.AppError
// @Security BearerAuth
// @Router /api/v1/account/updatePassword [patch]
func (ctrl *AccountController) UpdatePassword(c *fiber.Ctx) error {
	var req UpdatePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.BadRequest("Invalid request body")
	}
	if err := validation.ValidateStruct(&req); err != nil {
		return err
	}

	me, _ := middleware.CurrentUser(c)
	res, err := ctrl.Service.UpdatePassword(c.UserContext(), me.ID, req)
	if err != nil {
		return err
	}
	return c.JSON(updateResult(res))
}

func updateResult(res *mongo.UpdateResult) fiber.Map {
	return fiber.Map{"result": fiber.Map{
		"matchedCount":  res.MatchedCount,
		"modifiedCount": res.ModifiedCount,
	}}
}
