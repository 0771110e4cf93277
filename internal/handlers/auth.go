package handlers

import (
	"errors"
	"time"

	"alumnet/internal/config"
	"alumnet/internal/logger"
	"alumnet/internal/models"
	"alumnet/internal/services/auth"
	"alumnet/internal/services/user"
	"alumnet/internal/utils"
	"alumnet/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	auth       auth.Service
	users      user.Service
	refreshTTL time.Duration
	log        *logger.Logger
}

func NewAuthHandler(authService auth.Service, users user.Service, refreshTTL time.Duration, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth:       authService,
		users:      users,
		refreshTTL: refreshTTL,
		log:        logger.OrNop(log),
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input models.CreateUserInput
	if err := parseBody(c, &input); err != nil {
		return response.FromError(c, h.log, err)
	}
	u, err := h.users.Register(c.UserContext(), input)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Created(c, "Account created successfully", u)
}

// Login authenticates by email and password and returns a token pair.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &input); err != nil {
		return response.FromError(c, h.log, err)
	}
	if input.Email == "" || input.Password == "" {
		return response.BadRequest(c, "email and password are required")
	}

	u, accessToken, refreshToken, err := h.auth.Login(c.UserContext(), input.Email, input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return response.Unauthorized(c, "invalid email or password")
		}
		return response.FromError(c, h.log, err)
	}

	h.setRefreshCookie(c, refreshToken, time.Now().Add(h.refreshTTL))
	return c.JSON(fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user": fiber.Map{
			"id":          u.ID,
			"email":       u.Email,
			"name":        u.Name,
			"role":        u.Role,
			"permissions": models.GetDefaultPermissions(u.Role),
		},
	})
}

// Refresh takes the refresh token from the cookie, or the body when absent.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	refreshToken := c.Cookies("refresh_token")
	if refreshToken == "" {
		var input struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.BodyParser(&input); err == nil {
			refreshToken = input.RefreshToken
		}
	}
	if refreshToken == "" {
		return response.Unauthorized(c, "refresh token not provided")
	}

	accessToken, newRefresh, err := h.auth.RefreshTokens(c.UserContext(), refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrSessionExpired) {
			return response.Unauthorized(c, "invalid refresh token")
		}
		return response.FromError(c, h.log, err)
	}

	h.setRefreshCookie(c, newRefresh, time.Now().Add(h.refreshTTL))
	return c.JSON(fiber.Map{
		"access_token":  accessToken,
		"refresh_token": newRefresh,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	actor := actorOf(c)
	if err := h.auth.Logout(c.UserContext(), actor.UserID); err != nil {
		return response.FromError(c, h.log, err)
	}
	h.setRefreshCookie(c, "", time.Now().Add(-time.Hour))
	return response.Success(c, "Successfully logged out", nil)
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var input struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := parseBody(c, &input); err != nil {
		return response.FromError(c, h.log, err)
	}
	if err := h.users.ChangePassword(c.UserContext(), actorOf(c), input.OldPassword, input.NewPassword); err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Password changed successfully", nil)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	u, err := h.users.GetByID(c.UserContext(), claims.UserID)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Profile retrieved successfully", u)
}

func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    value,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   config.IsProduction(),
		SameSite: "Strict",
		Path:     "/api/refresh",
	})
}
