package auth

import (
	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/common/validation"

	"github.com/gofiber/fiber/v2"
)

const greeting = "Welcome to TAFE Weather REST API v1! Please login to continue."

type AuthController struct {
	AuthService AuthService
}

func NewAuthController(authService AuthService) *AuthController {
	return &AuthController{
		AuthService: authService,
	}
}

type LoginRequest struct {
	EmailAddress string `json:"emailAddress" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8,max=50"`
}

type AuthResponse struct {
	Token string `json:"token"`
}

// Welcome godoc
// @Summary      API greeting
// @Tags         auth
// @Produce      json
// @Success      200  {object} map[string]string
// @Router       /api/v1/auth [get]
func (ctrl *AuthController) Welcome(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": greeting})
}

// Login godoc
// @Summary      Login
// @Description  Login with email address and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginRequest true "Login Input"
// @Success      200  {object} AuthResponse
// @Failure      400  {object} apperror.AppError
// @Failure      401  {object} apperror.AppError
// @Failure      429  {object} apperror.AppError
// @Router       /api/v1/auth/login [post]
func (ctrl *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.BadRequest("Invalid request body")
	}
	if err := validation.ValidateStruct(&req); err != nil {
		return err
	}

	token, err := ctrl.AuthService.Login(c.UserContext(), req.EmailAddress, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(AuthResponse{Token: token})
}
