package maintenance

import (
	"github.com/gofiber/fiber/v2"
)

type MaintenanceController struct {
	Service MaintenanceService
}

func NewMaintenanceController(service MaintenanceService) *MaintenanceController {
	return &MaintenanceController{Service: service}
}

// RunTask godoc
// @Summary Run a maintenance task now
// @Tags maintenance
// @Produce json
// @Param task path string true "inactive-students or log-retention"
// @Success 200 {object} Run
// @Failure 404 {object} apperror.AppError
// @Router /api/v1/maintenance/{task}/run [post]
func (ctrl *MaintenanceController) RunTask(c *fiber.Ctx) error {
	run, err := ctrl.Service.Run(c.UserContext(), Task(c.Params("task")), TriggerManual)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"result": run})
}

// ListRuns godoc
// @Summary Recent maintenance runs
// @Tags maintenance
// @Produce json
// @Param task query string false "Only runs of this task"
// @Param limit query int false "Max runs to return"
// @Success 200 {array} Run
// @Router /api/v1/maintenance/runs [get]
func (ctrl *MaintenanceController) ListRuns(c *fiber.Ctx) error {
	runs, err := ctrl.Service.Runs(c.UserContext(), Task(c.Query("task")), int64(c.QueryInt("limit", DefaultRunsLimit)))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"result": runs})
}
