package middleware

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"tasktracker/pkg/logger"
	"tasktracker/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler recovers panics into a generic 500 and logs one line per request.
func ErrorHandler() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorLogger.Error(fmt.Sprintf("Recovered from panic: %v", r),
					zap.String("method", c.Method()),
					zap.String("url", c.OriginalURL()),
					zap.String("stack", string(debug.Stack())),
				)
				err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"msg":     "Internal server error",
					"success": false,
					"status":  fiber.StatusInternalServerError,
				})
			}

			status := c.Response().StatusCode()
			if err != nil {
				status = statusOf(err)
			}
			metrics.HTTPRequests.WithLabelValues(c.Method(), strconv.Itoa(status)).Inc()
			logger.RequestLogger.Info("Request",
				zap.String("method", c.Method()),
				zap.String("url", c.OriginalURL()),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.IP()),
			)
		}()
		return c.Next()
	}
}

func statusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// ErrorResponder is the app-level fiber error handler. Errors that reach it
// are answered in the same body shape as handler errors.
func ErrorResponder(c *fiber.Ctx, err error) error {
	status := statusOf(err)
	msg := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		msg = fe.Message
	} else {
		logger.ErrorLogger.Error("Unhandled error", zap.String("url", c.OriginalURL()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"msg":     msg,
		"success": false,
		"status":  status,
	})
}
