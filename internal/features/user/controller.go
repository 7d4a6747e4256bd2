package user

import (
	common_api "tafe-weather-api/internal/common/api"
	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/common/validation"
	"tafe-weather-api/internal/middleware"
	"tafe-weather-api/pkg/filter"
	"tafe-weather-api/pkg/pipeline"

	"github.com/gofiber/fiber/v2"
)

var (
	defaultSort = pipeline.SortSpec{{Field: "createdAt", Order: -1}}
	// password hashes are never filterable
	listCompiler = filter.NewCompiler("password")
)

type UserController struct {
	Service UserService
}

func NewUserController(service UserService) *UserController {
	return &UserController{Service: service}
}

// ListUsers godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Router /api/v1/users [get]
func (ctrl *UserController) ListUsers(c *fiber.Ctx) error {
	q, err := common_api.ParseListQuery(common_api.QueryParams(c), listCompiler, defaultSort)
	if err != nil {
		return err
	}
	page, err := ctrl.Service.ListUsers(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(common_api.NewListResponse(page, q.Limit))
}

// GetUser godoc
// @Summary Get a user
// @Tags Users
// @Param id path string true "User id"
// @Router /api/v1/users/{id} [get]
func (ctrl *UserController) GetUser(c *fiber.Ctx) error {
	id, err := common_api.ObjectIDParam(c, "id")
	if err != nil {
		return err
	}
	u, err := ctrl.Service.GetUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"result": u})
}

// CreateUser godoc
// @Summary Create a user
// @Description Teachers may only create student and sensor accounts
// @Tags Users
// @Accept json
// @Produce json
// @Param input body CreateUserRequest true "New user"
// @Success 201 {object} CreateUserResponse
// @Router /api/v1/users [post]
func (ctrl *UserController) CreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.BadRequest("Invalid request body")
	}
	if err := validation.ValidateStruct(&req); err != nil {
		return err
	}

	actor, _ := middleware.CurrentUser(c)
	res, err := ctrl.Service.CreateUser(c.UserContext(), req, actor)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// UpdateUser godoc
// @Summary Update a user
// @Tags Users
// @Accept json
// @Param id path string true "User id"
// @Router /api/v1/users/{id} [put]
func (ctrl *UserController) UpdateUser(c *fiber.Ctx) error {
	id, err := common_api.ObjectIDParam(c, "id")
	if err != nil {
		return err
	}

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.BadRequest("Invalid request body")
	}
	if err := validation.ValidateStruct(&req); err != nil {
		return err
	}

	actor, _ := middleware.CurrentUser(c)
	res, err := ctrl.Service.UpdateUser(c.UserContext(), id, req, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"result": fiber.Map{
		"matchedCount":  res.MatchedCount,
		"modifiedCount": res.ModifiedCount,
	}})
}

// DeleteUser godoc
// @Summary Delete a user
// @Tags Users
// @Param id path string true "User id"
// @Success 204
// @Router /api/v1/users/{id} [delete]
func (ctrl *UserController) DeleteUser(c *fiber.Ctx) error {
	id, err := common_api.ObjectIDParam(c, "id")
	if err != nil {
		return err
	}
	actor, _ := middleware.CurrentUser(c)
	if err := ctrl.Service.DeleteUser(c.UserContext(), id, actor); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteUsers godoc
// @Summary Delete users by role and date
// @Tags Users
// @Param role query string true "Role of the accounts"
// @Param lastLoggedInAt[lte] query string false "Last login before"
// @Success 204
// @Router /api/v1/users/batch [delete]
func (ctrl *UserController) DeleteUsers(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)
	if _, err := ctrl.Service.DeleteUsers(c.UserContext(), common_api.QueryParams(c), actor); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateRoles godoc
// @Summary Replace the roles of users selected by role and date
// @Tags Users
// @Accept json
// @Param role query string true "Current role of the accounts"
// @Param createdAt query string false "Creation date filter"
// @Param input body UpdateRolesRequest true "New roles"
// @Router /api/v1/users/roles [patch]
func (ctrl *UserController) UpdateRoles(c *fiber.Ctx) error {
	var req UpdateRolesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.BadRequest("Invalid request body")
	}
	if err := validation.ValidateStruct(&req); err != nil {
		return err
	}

	actor, _ := middleware.CurrentUser(c)
	res, err := ctrl.Service.UpdateRoles(c.UserContext(), common_api.QueryParams(c), req.Role, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"result": fiber.Map{
		"matchedCount":  res.MatchedCount,
		"modifiedCount": res.ModifiedCount,
	}})
}
