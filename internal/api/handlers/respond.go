package handlers

import (
	"errors"
	"fmt"
	"strings"

	"tasktracker/internal/apperror"
	"tasktracker/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"msg":     msg,
		"success": false,
		"status":  status,
	})
}

// respondError maps err to its HTTP status. Only the user-facing message is written.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		logger.ErrorLogger.Error("Unexpected error", zap.String("url", c.OriginalURL()), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Internal server error")
	}
	switch appErr.Kind {
	case apperror.KindInternal, apperror.KindDeliveryUnavailable:
		logger.ErrorLogger.Error(appErr.Message, zap.String("url", c.OriginalURL()), zap.Error(appErr.Err))
	}
	return fail(c, appErr.Status(), appErr.Message)
}

func respondValidation(c *fiber.Ctx, err error) error {
	fields := []FieldError{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Message: describe(fe)})
		}
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"msg":     "Validation error",
		"errors":  fields,
		"success": false,
		"status":  fiber.StatusBadRequest,
	})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", capitalize(fe.Field()))
	case "task_status":
		return "status must be one of To do, In progress, Closed, Frozen"
	case "task_priority":
		return "priority must be one of Low, Medium, High"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// parseBody decodes a JSON body. An empty body leaves out untouched.
func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(out)
}
