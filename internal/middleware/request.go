package middleware

import (
	"context"
	"time"

	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/internal/config"
	"tafe-weather-api/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDMiddleware tags every request with an X-Request-ID.
func RequestIDMiddleware() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     "X-Request-ID",
		Generator:  uuid.NewString,
		ContextKey: "requestid",
	})
}

// RequestID returns the id set by RequestIDMiddleware.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}

// RequestContext bounds the request's user context by the query timeout and
// carries the request id for the layers below the controller.
func RequestContext(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.WithValue(c.UserContext(), models.RequestIDKey, RequestID(c))
		if cfg.QueryTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.QueryTimeout)
			defer cancel()
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		log.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", statusOf(c, err)),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", RequestID(c)),
			zap.String("ip", c.IP()),
		)
		return err
	}
}

// MetricsMiddleware records Prometheus request metrics by route pattern.
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		metrics.APIActiveRequests.Inc()
		defer metrics.APIActiveRequests.Dec()

		err := c.Next()

		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(c.Method(), route, statusOf(c, err), time.Since(start))
		return err
	}
}

// statusOf is the status the error handler will send for err.
func statusOf(c *fiber.Ctx, err error) int {
	if err != nil {
		return apperror.From(err).Code
	}
	return c.Response().StatusCode()
}
