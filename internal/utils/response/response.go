package response

import (
	stderrors "errors"

	apperr "alumnet/internal/errors"
	"alumnet/internal/logger"

	"github.com/gofiber/fiber/v2"
)

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, message)
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:    fiber.StatusBadRequest,
	apperr.KindNotFound:      fiber.StatusNotFound,
	apperr.KindAuthorization: fiber.StatusForbidden,
	apperr.KindConflict:      fiber.StatusConflict,
	apperr.KindConcurrency:   fiber.StatusConflict,
}

// StatusOf maps an error to the HTTP status FromError would send.
func StatusOf(err error) int {
	var de *apperr.DomainError
	if stderrors.As(err, &de) {
		if status, ok := kindStatus[de.Kind]; ok {
			return status
		}
	}
	return fiber.StatusInternalServerError
}

// FromError writes a domain error with its kind and code. Anything else is
// logged and hidden behind a generic 500.
func FromError(c *fiber.Ctx, log *logger.Logger, err error) error {
	var de *apperr.DomainError
	if !stderrors.As(err, &de) {
		logger.OrNop(log).Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
		return Error(c, fiber.StatusInternalServerError, "internal server error")
	}

	body := fiber.Map{
		"error": de.Message,
		"kind":  de.Kind,
		"code":  de.Code,
	}
	if len(de.Fields) > 0 {
		body["fields"] = de.Fields
	}
	return c.Status(StatusOf(de)).JSON(body)
}
