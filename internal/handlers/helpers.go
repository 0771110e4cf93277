package handlers

import (
	"strconv"

	"alumnet/internal/access"
	apperr "alumnet/internal/errors"
	"alumnet/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// actorOf returns the authenticated caller. Routes outside the auth group
// get the zero Actor, which every service treats as inactive.
func actorOf(c *fiber.Ctx) access.Actor {
	actor, _ := utils.GetActor(c)
	return actor
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("INVALID_ID", "%s must be a UUID", name)
	}
	return id, nil
}

func paramInt(c *fiber.Ctx, name string) (int, error) {
	n, err := strconv.Atoi(c.Params(name))
	if err != nil || n < 1 {
		return 0, apperr.Validation("INVALID_PARAM", "%s must be a positive integer", name)
	}
	return n, nil
}

func queryID(c *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Validation("INVALID_QUERY", "%s must be a UUID", name)
	}
	return &id, nil
}

func queryFloat(c *fiber.Ctx, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperr.Validation("INVALID_QUERY", "%s must be a number", name)
	}
	return &f, nil
}

func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("INVALID_BODY", "invalid request body")
	}
	return nil
}
