// error_utils.go
package utils

import (
	"surveyhub-backend/src/models"

	"github.com/gofiber/fiber/v2"
)

func HandleError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(models.ErrorResponse{
		Status:  status,
		Message: message,
	})
}

// HandleCodedError sends the standard error envelope with a machine-readable
// code and optional offending question ids.
func HandleCodedError(c *fiber.Ctx, status int, code, message string, fields ...string) error {
	return c.Status(status).JSON(models.ErrorResponse{
		Status:  status,
		Code:    code,
		Message: message,
		Fields:  fields,
	})
}
