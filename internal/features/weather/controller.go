package weather

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	common_api "tafe-weather-api/internal/common/api"
	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/internal/common/validation"
	"tafe-weather-api/internal/middleware"
	"tafe-weather-api/pkg/filter"
	"tafe-weather-api/pkg/pipeline"

	"github.com/gofiber/fiber/v2"
)

var (
	defaultSort = pipeline.SortSpec{{Field: "createdAt", Order: -1}}

	listCompiler = filter.NewCompiler("format")
	// scope and window keys are consumed by the stats handlers
	statsCompiler = filter.NewCompiler("format", "groupBy", "deviceName", "longitude", "latitude", "startDate", "endDate")
)

type WeatherController struct {
	Service WeatherService
}

func NewWeatherController(service WeatherService) *WeatherController {
	return &WeatherController{Service: service}
}

// ListWeathers godoc
// @Summary List weather readings
// @Description Filter with field=value or field[op]=value, sort with sort[field]=1|-1
// @Tags Weathers
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} apperror.Response
// @Router /api/v1/weathers [get]
func (ctrl *WeatherController) ListWeathers(c *fiber.Ctx) error {
	q, err := common_api.ParseListQuery(common_api.QueryParams(c), listCompiler, defaultSort)
	if err != nil {
		return err
	}

	page, err := ctrl.Service.List(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(common_api.NewListResponse(page, q.Limit))
}

// GetWeather godoc
// @Summary Get one weather reading
// @Tags Weathers
// @Produce json
// @Param id path string true "Reading id"
// @Router /api/v1/weathers/{id} [get]
func (ctrl *WeatherController) GetWeather(c *fiber.Ctx) error {
	id, err := common_api.ObjectIDParam(c, "id")
	if err != nil {
		return err
	}
	w, err := ctrl.Service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"result": w})
}

// CreateWeathers accepts a single reading object or an array of them.
// @Summary Create weather readings
// @Tags Weathers
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Router /api/v1/weathers [post]
func (ctrl *WeatherController) CreateWeathers(c *fiber.Ctx) error {
	var inputs []Input
	body := bytes.TrimSpace(c.Body())
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &inputs); err != nil {
			return apperror.BadRequest("Invalid request body")
		}
	} else {
		var in Input
		if err := json.Unmarshal(body, &in); err != nil {
			return apperror.BadRequest("Invalid request body")
		}
		inputs = []Input{in}
	}

	for i := range inputs {
		if err := validation.ValidateStruct(&inputs[i]); err != nil {
			if len(inputs) == 1 {
				return err
			}
			appErr := apperror.From(err)
			ctx := map[string]any{"index": i}
			for k, v := range appErr.Context {
				ctx[k] = v
			}
			return appErr.WithContext(ctx)
		}
	}

	user, _ := middleware.CurrentUser(c)
	readings, err := ctrl.Service.Create(c.UserContext(), inputs, user)
	if err != nil {
		return err
	}

	if len(readings) == 1 {
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"result": readings[0]})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"insertedCount": len(readings), "result": readings})
}

// UpdateWeather godoc
// @Summary Update a weather reading
// @Tags Weathers
// @Accept json
// @Produce json
// @Param id path string true "Reading id"
// @Router /api/v1/weathers/{id} [put]
func (ctrl *WeatherController) UpdateWeather(c *fiber.Ctx) error {
	id, err := common_api.ObjectIDParam(c, "id")
	if err != nil {
		return err
	}

	var upd Update
	if err := c.BodyParser(&upd); err != nil {
		return apperror.BadRequest("Invalid request body")
	}
	if err := validation.ValidateStruct(&upd); err != nil {
		return err
	}

	user, _ := middleware.CurrentUser(c)
	res, err := ctrl.Service.Update(c.UserContext(), id, upd, user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"result": fiber.Map{
		"matchedCount":  res.MatchedCount,
		"modifiedCount": res.ModifiedCount,
	}})
}

// DeleteWeather godoc
// @Summary Delete a weather reading
// @Description The reading is moved to the logs collection
// @Tags Weathers
// @Param id path string true "Reading id"
// @Success 204
// @Router /api/v1/weathers/{id} [delete]
func (ctrl *WeatherController) DeleteWeather(c *fiber.Ctx) error {
	id, err := common_api.ObjectIDParam(c, "id")
	if err != nil {
		return err
	}
	user, _ := middleware.CurrentUser(c)
	if err := ctrl.Service.Delete(c.UserContext(), id, user); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteWeathers godoc
// @Summary Delete every reading matching the query filter
// @Tags Weathers
// @Router /api/v1/weathers [delete]
func (ctrl *WeatherController) DeleteWeathers(c *fiber.Ctx) error {
	q, err := common_api.ParseListQuery(common_api.QueryParams(c), listCompiler, nil)
	if err != nil {
		return err
	}
	user, _ := middleware.CurrentUser(c)
	n, err := ctrl.Service.DeleteMany(c.UserContext(), q.Filter, user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"deletedCount": n})
}

// GetStats godoc
// @Summary Max, min, average and median of one field
// @Tags Weathers
// @Produce json
// @Param aggField query string true "Numeric field"
// @Param groupBy query string false "deviceName"
// @Param deviceName query string false "Device scope"
// @Param longitude query number false "Location scope"
// @Param latitude query number false "Location scope"
// @Param recentMonths query int false "Window length when dates are omitted"
// @Param startDate query string false "Window start"
// @Param endDate query string false "Window end"
// @Router /api/v1/weathers/stats [get]
func (ctrl *WeatherController) GetStats(c *fiber.Ctx) error {
	q, err := parseStatsQuery(common_api.QueryParams(c))
	if err != nil {
		return err
	}
	res, err := ctrl.Service.Stats(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// GetExtremes godoc
// @Summary Every reading tied at the max or min of a field
// @Tags Weathers
// @Produce json
// @Param aggField query string true "Numeric field"
// @Param operation query string true "max or min"
// @Router /api/v1/weathers/extremes [get]
func (ctrl *WeatherController) GetExtremes(c *fiber.Ctx) error {
	params := common_api.QueryParams(c)
	sq, err := parseStatsQuery(params)
	if err != nil {
		return err
	}
	q := ExtremesQuery{
		StatsQuery: sq,
		Operation:  params.String("operation"),
		Limit:      common_api.ParseInt64(params.String("limit"), 0),
	}
	res, err := ctrl.Service.Extremes(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// ListDevices godoc
// @Summary Distinct device names
// @Tags Weathers
// @Router /api/v1/weathers/devices [get]
func (ctrl *WeatherController) ListDevices(c *fiber.Ctx) error {
	devices, err := ctrl.Service.Devices(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"result": devices})
}

// ImportWeathers godoc
// @Summary Import readings from a CSV, XLSX or JSON sensor export
// @Tags Weathers
// @Accept multipart/form-data
// @Param file formData file true "Sensor export"
// @Router /api/v1/weathers/import [post]
func (ctrl *WeatherController) ImportWeathers(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperror.BadRequest("A file field is required")
	}

	name := c.Query("format", fh.Filename)
	format, err := ParseFormat(name)
	if err != nil {
		return apperror.BadRequest(err.Error()).WithContext(map[string]any{"file": fh.Filename})
	}

	f, err := fh.Open()
	if err != nil {
		return apperror.BadRequest("Unable to read upload")
	}
	defer f.Close()

	user, _ := middleware.CurrentUser(c)
	res, err := ctrl.Service.Import(c.UserContext(), f, format, user)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// ExportWeathers godoc
// @Summary Export the filtered readings
// @Tags Weathers
// @Param format query string false "csv or xlsx"
// @Router /api/v1/weathers/export [get]
func (ctrl *WeatherController) ExportWeathers(c *fiber.Ctx) error {
	format, err := ParseFormat(c.Query("format", string(FormatCSV)))
	if err != nil || format == FormatJSON {
		return apperror.BadRequest("Export format must be csv or xlsx")
	}

	q, err := common_api.ParseListQuery(common_api.QueryParams(c), listCompiler, defaultSort)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := ctrl.Service.Export(c.UserContext(), q, format, &buf); err != nil {
		return err
	}

	filename := fmt.Sprintf("weathers-%s.%s", time.Now().UTC().Format("20060102-150405"), format)
	c.Attachment(filename)
	if format == FormatXLSX {
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	} else {
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	}
	return c.Send(buf.Bytes())
}

// parseStatsQuery reads the field, grouping, scope and window of a stats
// request. Remaining non-reserved keys become an extra filter.
func parseStatsQuery(params filter.Params) (StatsQuery, error) {
	q := StatsQuery{
		Field:        params.String("aggField"),
		GroupBy:      params.String("groupBy"),
		RecentMonths: int(common_api.ParseInt64(params.String("recentMonths"), DefaultRecentMonths)),
	}

	scope, err := parseScope(params)
	if err != nil {
		return q, err
	}
	q.Scope = scope

	if q.Range.Start, err = parseBound(params, "startDate", false); err != nil {
		return q, err
	}
	if q.Range.End, err = parseBound(params, "endDate", true); err != nil {
		return q, err
	}

	extra, err := statsCompiler.Compile(params)
	if err != nil {
		return q, err
	}
	if len(extra) > 0 {
		q.Filter = extra
	}
	return q, nil
}

func parseScope(params filter.Params) (Scope, error) {
	lon, lat := params.String("longitude"), params.String("latitude")
	if lon == "" && lat == "" {
		return Scope{DeviceName: params.String("deviceName")}, nil
	}
	if lon == "" || lat == "" {
		return Scope{}, apperror.BadRequest("longitude and latitude must be given together")
	}

	x, errX := strconv.ParseFloat(lon, 64)
	y, errY := strconv.ParseFloat(lat, 64)
	if errX != nil || errY != nil || x < -180 || x > 180 || y < -90 || y > 90 {
		return Scope{}, apperror.BadRequest("Invalid coordinates").WithContext(map[string]any{
			"longitude": lon,
			"latitude":  lat,
		})
	}
	return Scope{Location: models.NewPoint(x, y)}, nil
}

// parseBound parses a window bound. A date-only end covers its whole day.
func parseBound(params filter.Params, key string, end bool) (time.Time, error) {
	raw := params.String(key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, dateOnly, ok := filter.ParseDate(raw)
	if !ok {
		return time.Time{}, apperror.BadRequest("Invalid date").WithContext(map[string]any{key: raw})
	}
	if dateOnly && end {
		return filter.EndOfDay(t), nil
	}
	return t, nil
}
