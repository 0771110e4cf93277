// Package middleware provides HTTP middleware for the fiber app.
package middleware

import (
	"context"
	"errors"
	"strings"

	"alumnet/internal/access"
	"alumnet/internal/logger"
	"alumnet/internal/models"
	"alumnet/internal/services/auth"
	"alumnet/internal/utils"
	"alumnet/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// Authenticator is the part of auth.Service the middleware needs.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (access.Actor, *models.UserClaims, error)
}

// AuthMiddleware resolves the bearer token into an access.Actor and stores
// it, with the token claims, in the request locals.
type AuthMiddleware struct {
	auth Authenticator
	log  *logger.Logger
}

func NewAuthMiddleware(authenticator Authenticator, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		auth: authenticator,
		log:  logger.OrNop(log).With("component", "auth-middleware"),
	}
}

func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return response.Unauthorized(c, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return response.Unauthorized(c, "invalid authorization format")
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

	actor, claims, err := m.auth.Authenticate(c.UserContext(), tokenString)
	if err != nil {
		if errors.Is(err, auth.ErrSessionExpired) {
			return response.Unauthorized(c, "session expired")
		}
		return response.FromError(c, m.log, err)
	}
	if !actor.IsActive() {
		return response.Error(c, fiber.StatusForbidden, "account is not active")
	}

	c.Locals(utils.LocalsClaims, claims)
	c.Locals(utils.LocalsActor, actor)
	return c.Next()
}

// HasPermission returns a middleware that checks for a specific permission.
func HasPermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := utils.GetActor(c)
		if !ok {
			return response.Unauthorized(c, "unauthorized")
		}
		if actor.HasRole(models.RoleAdmin) || actor.HasPermission(permission) {
			return c.Next()
		}
		return response.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}
}
