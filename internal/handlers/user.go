package handlers

import (
	"alumnet/internal/logger"
	"alumnet/internal/models"
	"alumnet/internal/services/user"
	"alumnet/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	users user.Service
	log   *logger.Logger
}

func NewUserHandler(users user.Service, log *logger.Logger) *UserHandler {
	return &UserHandler{users: users, log: logger.OrNop(log)}
}

func (h *UserHandler) GetMySwapProfile(c *fiber.Ctx) error {
	profile, err := h.users.GetSwapProfile(c.UserContext(), actorOf(c).UserID)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Swap profile retrieved successfully", profile)
}

func (h *UserHandler) GetSwapProfile(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	profile, err := h.users.GetSwapProfile(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Swap profile retrieved successfully", profile)
}

func (h *UserHandler) UpdateSwapPreferences(c *fiber.Ctx) error {
	var prefs models.SwapPreferences
	if err := parseBody(c, &prefs); err != nil {
		return response.FromError(c, h.log, err)
	}
	updated, err := h.users.UpdateSwapPreferences(c.UserContext(), actorOf(c), prefs)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Swap preferences updated", updated)
}
