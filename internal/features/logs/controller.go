package logs

import (
	"strings"

	common_api "tafe-weather-api/internal/common/api"
	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/pkg/filter"

	"github.com/gofiber/fiber/v2"
)

var compiler = filter.NewCompiler()

type LogController struct {
	Service LogService
}

func NewLogController(service LogService) *LogController {
	return &LogController{Service: service}
}

// ListLogs godoc
// @Summary List soft-deleted readings
// @Description Defaults to deletedAt >= 2021-01-01, newest deletion first
// @Tags Logs
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Router /api/v1/logs [get]
func (ctrl *LogController) ListLogs(c *fiber.Ctx) error {
	params := WithDefaultWindow(common_api.QueryParams(c))
	q, err := common_api.ParseListQuery(params, compiler, DefaultSort)
	if err != nil {
		return err
	}

	page, err := ctrl.Service.List(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(common_api.NewListResponse(page, q.Limit))
}

// GetLog godoc
// @Summary Get one log
// @Tags Logs
// @Param id path string true "Log id"
// @Router /api/v1/logs/{id} [get]
func (ctrl *LogController) GetLog(c *fiber.Ctx) error {
	id, err := common_api.ObjectIDParam(c, "id")
	if err != nil {
		return err
	}
	log, err := ctrl.Service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"result": log})
}

// DeleteLog godoc
// @Summary Permanently delete one log
// @Tags Logs
// @Param id path string true "Log id"
// @Success 204
// @Router /api/v1/logs/{id} [delete]
func (ctrl *LogController) DeleteLog(c *fiber.Ctx) error {
	id, err := common_api.ObjectIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := ctrl.Service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteLogs godoc
// @Summary Permanently delete logs in a deletedAt range
// @Tags Logs
// @Param deletedAt[gte] query string false "From"
// @Param deletedAt[lte] query string false "To"
// @Success 204
// @Router /api/v1/logs/batch [delete]
func (ctrl *LogController) DeleteLogs(c *fiber.Ctx) error {
	params := common_api.QueryParams(c)
	for _, k := range params.Keys() {
		if !isDeletedAtKey(k) {
			return apperror.BadRequest("Only deletedAt may be used to delete logs").WithContext(map[string]any{"param": k})
		}
	}

	f, err := compiler.Compile(params)
	if err != nil {
		return err
	}
	if _, err := ctrl.Service.DeleteMany(c.UserContext(), f); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func isDeletedAtKey(k string) bool {
	return k == "deletedAt" || strings.HasPrefix(k, "deletedAt[")
}
