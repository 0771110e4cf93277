package handlers

import (
	"alumnet/internal/logger"
	"alumnet/internal/services/user"
	"alumnet/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// PoolStatter reports redis connection pool counters.
type PoolStatter interface {
	PoolStats() *redis.PoolStats
}

type AdminHandler struct {
	users user.Service
	pool  PoolStatter
	log   *logger.Logger
}

func NewAdminHandler(users user.Service, pool PoolStatter, log *logger.Logger) *AdminHandler {
	return &AdminHandler{users: users, pool: pool, log: logger.OrNop(log)}
}

// SetUserStatus suspends or reactivates a member.
func (h *AdminHandler) SetUserStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	var input struct {
		Status string `json:"status"`
	}
	if err := parseBody(c, &input); err != nil {
		return response.FromError(c, h.log, err)
	}
	if err := h.users.SetStatus(c.UserContext(), actorOf(c), id, input.Status); err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "User status updated", fiber.Map{"id": id, "status": input.Status})
}

func (h *AdminHandler) CacheStats(c *fiber.Ctx) error {
	if h.pool == nil {
		return response.Error(c, fiber.StatusServiceUnavailable, "cache is not configured")
	}
	stats := h.pool.PoolStats()
	return response.Success(c, "Cache stats", fiber.Map{
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"stale_conns": stats.StaleConns,
	})
}
