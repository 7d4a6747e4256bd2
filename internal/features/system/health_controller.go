package system

import (
	"context"
	"time"

	"tafe-weather-api/internal/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	db      Pinger
	config  *config.Config
	logger  *zap.Logger
	started time.Time
}

func NewHealthController(db Pinger, cfg *config.Config, logger *zap.Logger) *HealthController {
	return &HealthController{db: db, config: cfg, logger: logger, started: time.Now()}
}

// Health godoc
// @Summary      Service health
// @Description  Reports whether MongoDB is reachable
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (h *HealthController) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	body := fiber.Map{
		"status":      "ok",
		"database":    "up",
		"environment": h.config.Environment,
		"uptime":      time.Since(h.started).Round(time.Second).String(),
	}
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("Health check failed", zap.Error(err))
		body["status"] = "degraded"
		body["database"] = "down"
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}
	return c.JSON(body)
}
