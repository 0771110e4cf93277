// Package routes wires the HTTP handlers onto the fiber app.
package routes

import (
	"time"

	"alumnet/internal/handlers"
	"alumnet/internal/middleware"
	"alumnet/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Handlers groups everything SetupRoutes mounts.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Users        *handlers.UserHandler
	Offers       *handlers.OfferHandler
	Requests     *handlers.RequestHandler
	Transactions *handlers.TransactionHandler
	Admin        *handlers.AdminHandler
	Health       *handlers.HealthHandler
}

type Options struct {
	// AuthRateLimit caps login and register calls per client per minute.
	// Zero disables the limiter.
	AuthRateLimit int
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, h Handlers, authMW *middleware.AuthMiddleware, opts Options) {
	app.Get("/health", h.Health.Check)

	api := app.Group("/api")

	api.Post("/register", authLimiter(opts.AuthRateLimit), h.Auth.Register)
	api.Post("/login", authLimiter(opts.AuthRateLimit), h.Auth.Login)
	api.Post("/refresh", h.Auth.Refresh)

	// Browsing the catalog needs no account.
	api.Get("/offers", h.Offers.ListOffers)
	api.Get("/offers/:id", h.Offers.GetOffer)

	protected := api.Group("", authMW.Handler)

	protected.Post("/logout", h.Auth.Logout)
	protected.Get("/me", h.Auth.Me)
	protected.Post("/me/password", h.Auth.ChangePassword)

	users := protected.Group("/users/me")
	users.Get("/swap", h.Users.GetMySwapProfile)
	users.Put("/swap/preferences", h.Users.UpdateSwapPreferences)
	// registered after /users/me so "me" never parses as an id
	protected.Get("/users/:id/swap", h.Users.GetSwapProfile)

	offers := protected.Group("/offers")
	offers.Post("/", h.Offers.CreateOffer)
	offers.Put("/:id", h.Offers.UpdateOffer)
	offers.Patch("/:id/status", h.Offers.SetStatus)
	offers.Delete("/:id", h.Offers.DeleteOffer)

	requests := protected.Group("/requests")
	requests.Post("/", h.Requests.CreateRequest)
	requests.Get("/", h.Requests.ListRequests)
	requests.Get("/:id", h.Requests.GetRequest)
	requests.Post("/:id/respond", h.Requests.Respond)
	requests.Get("/:id/messages", h.Requests.ListMessages)
	requests.Post("/:id/messages", h.Requests.AddMessage)
	requests.Post("/:id/messages/read", h.Requests.MarkMessagesRead)
	requests.Get("/:id/negotiations", h.Requests.ListNegotiations)
	requests.Post("/:id/negotiations", h.Requests.AddNegotiation)
	requests.Post("/:id/negotiations/:seq/respond", h.Requests.RespondToNegotiation)
	requests.Post("/:id/confirm", h.Requests.Confirm)
	requests.Post("/:id/start", h.Requests.Start)
	requests.Post("/:id/complete", h.Requests.Complete)
	requests.Post("/:id/cancel", h.Requests.Cancel)
	requests.Post("/:id/dispute", h.Requests.RaiseDispute)
	requests.Post("/:id/dispute/resolve", h.Requests.ResolveDispute)

	transactions := protected.Group("/transactions")
	transactions.Get("/", h.Transactions.ListTransactions)
	transactions.Get("/:id", h.Transactions.GetTransaction)
	transactions.Get("/:id/feedback", h.Transactions.ListFeedback)
	transactions.Post("/:id/feedback", h.Transactions.AddFeedback)
	transactions.Post("/:id/complete", h.Transactions.Complete)
	transactions.Post("/:id/cancel", h.Transactions.Cancel)
	transactions.Patch("/:id/offered", h.Transactions.AdjustOffered)
	transactions.Post("/:id/dispute", h.Transactions.RaiseDispute)
	transactions.Post("/:id/dispute/resolve", h.Transactions.ResolveDispute)

	admin := protected.Group("/admin", middleware.HasPermission(models.PermissionReadAdmin))
	admin.Patch("/users/:id/status", middleware.HasPermission(models.PermissionWriteAdmin), h.Admin.SetUserStatus)
	admin.Get("/cache/stats", h.Admin.CacheStats)
}

// authLimiter keys on client IP; each route gets its own counter.
func authLimiter(limit int) fiber.Handler {
	if limit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})
}
