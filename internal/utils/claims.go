package utils

import (
	"errors"

	"alumnet/internal/access"
	"alumnet/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	LocalsClaims = "claims"
	LocalsActor  = "actor"
)

// GetUserClaims extracts the user claims from the Fiber context.
func GetUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	v := c.Locals(LocalsClaims)
	if v == nil {
		return nil, errors.New("claims not found in context")
	}
	claims, ok := v.(*models.UserClaims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}

// GetActor returns the caller resolved by the auth middleware.
func GetActor(c *fiber.Ctx) (access.Actor, bool) {
	actor, ok := c.Locals(LocalsActor).(access.Actor)
	return actor, ok
}
