package apperror

import (
	"errors"
	"net/http"

	"tafe-weather-api/internal/common/validation"
	"tafe-weather-api/pkg/filter"
	"tafe-weather-api/pkg/pipeline"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Detail is one entry of an error response.
type Detail struct {
	Message string         `json:"message"`
	Context map[string]any `json:"context"`
}

// Response is the body of every error reply.
type Response struct {
	Status   int      `json:"status"`
	Detail   []Detail `json:"detail"`
	Instance string   `json:"instance"`
}

// AppError is an error with an HTTP status. Logging marks errors that should
// be written to the log when rendered.
type AppError struct {
	Code    int
	Message string
	Context map[string]any
	Logging bool
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithContext returns a copy of e carrying ctx in its response detail.
func (e *AppError) WithContext(ctx map[string]any) *AppError {
	cp := *e
	cp.Context = ctx
	return &cp
}

// Wrap returns a copy of e that records err as its cause.
func (e *AppError) Wrap(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// Client builds a 4xx error. An empty message becomes the status text.
func Client(code int, message string) *AppError {
	if code < 400 || code > 499 {
		code = http.StatusBadRequest
	}
	if message == "" {
		message = http.StatusText(code)
	}
	return &AppError{Code: code, Message: message}
}

// Server builds a 5xx error that is always logged.
func Server(code int, message string) *AppError {
	if code < 500 || code > 599 {
		code = http.StatusInternalServerError
	}
	if message == "" {
		message = http.StatusText(code)
	}
	return &AppError{Code: code, Message: message, Logging: true}
}

func BadRequest(message string) *AppError   { return Client(http.StatusBadRequest, message) }
func Unauthorized(message string) *AppError { return Client(http.StatusUnauthorized, message) }
func Forbidden(message string) *AppError    { return Client(http.StatusForbidden, message) }
func NotFound(message string) *AppError     { return Client(http.StatusNotFound, message) }

// From converts any error into an AppError.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var invalid *filter.InvalidFilterValueError
	if errors.As(err, &invalid) {
		return BadRequest(invalid.Error()).WithContext(map[string]any{
			"field":    invalid.Field,
			"operator": invalid.Operator,
		})
	}

	var unsupported *filter.UnsupportedOperatorError
	if errors.As(err, &unsupported) {
		return BadRequest(unsupported.Error()).WithContext(map[string]any{
			"field":    unsupported.Field,
			"operator": unsupported.Operator,
		})
	}

	var invalidRequest *validation.RequestValidationError
	if errors.As(err, &invalidRequest) {
		return BadRequest("Validation failed").WithContext(invalidRequest.Fields())
	}

	var execErr *pipeline.ExecutionError
	if errors.As(err, &execErr) {
		return Server(http.StatusInternalServerError, "").Wrap(err)
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return NotFound("")
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		if fiberErr.Code >= 500 {
			return Server(fiberErr.Code, fiberErr.Message)
		}
		return Client(fiberErr.Code, fiberErr.Message)
	}

	return Server(http.StatusInternalServerError, "").Wrap(err)
}

// ErrorHandler renders errors as {status, detail, instance}. Server errors
// are logged; aggregation failures include the pipeline that failed.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr := From(err)

		if appErr.Logging {
			fields := []zap.Field{
				zap.Int("status", appErr.Code),
				zap.String("path", c.OriginalURL()),
				zap.String("ip", c.IP()),
				zap.Error(err),
			}
			if id, ok := c.Locals("requestid").(string); ok {
				fields = append(fields, zap.String("request_id", id))
			}
			var execErr *pipeline.ExecutionError
			if errors.As(err, &execErr) {
				fields = append(fields,
					zap.String("collection", execErr.Collection),
					zap.String("pipeline", execErr.PipelineJSON()),
				)
			}
			log.Error(appErr.Message, fields...)
		}

		ctx := appErr.Context
		if ctx == nil {
			ctx = map[string]any{}
		}
		return c.Status(appErr.Code).JSON(Response{
			Status:   appErr.Code,
			Detail:   []Detail{{Message: appErr.Message, Context: ctx}},
			Instance: c.OriginalURL(),
		})
	}
}
