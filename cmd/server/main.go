// Package main is the entry point for the alumnet API server.
// It loads configuration, opens the stores, wires the services and
// serves the HTTP API and the realtime websocket endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"alumnet/internal/config"
	"alumnet/internal/events"
	"alumnet/internal/handlers"
	"alumnet/internal/logger"
	"alumnet/internal/middleware"
	"alumnet/internal/realtime"
	"alumnet/internal/repositories"
	"alumnet/internal/routes"
	"alumnet/internal/services/auth"
	"alumnet/internal/services/negotiation"
	"alumnet/internal/services/notification"
	"alumnet/internal/services/offer"
	"alumnet/internal/services/rating"
	"alumnet/internal/services/transaction"
	"alumnet/internal/services/user"
	"alumnet/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const shutdownTimeout = 10 * time.Second

func main() {
	config.LoadEnv()

	log, err := logger.New(config.GetEnv("LOG_MODE", "development"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := repositories.InitDB(); err != nil {
		log.Fatal("failed to initialise storage", "error", err)
	}
	defer repositories.Close()

	sqlDB, err := repositories.DB.DB()
	if err != nil {
		log.Fatal("failed to get database instance", "error", err)
	}
	log.Info("connected to database")

	// Cached offers from a previous run may predate a migration.
	if err := repositories.CacheService.FlushAll(context.Background()); err != nil {
		log.Warn("failed to flush redis cache", "error", err)
	}

	// Events
	hub := realtime.NewHub(log)
	dispatcher := events.NewDispatcher(
		config.GetIntEnv("EVENT_BUFFER_SIZE", events.DefaultBufferSize),
		log,
		notification.NewService(log),
		hub,
	)
	defer dispatcher.Close()

	if url := config.GetEnv("AMQP_URL", ""); url != "" {
		publisher, err := events.NewPublisher(events.PublisherConfig{
			URL:             url,
			ExchangeName:    config.GetEnv("AMQP_EXCHANGE", "alumnet.swaps"),
			DurableExchange: true,
			DeclareExchange: true,
		}, log)
		if err != nil {
			log.Warn("amqp publisher disabled", "error", err)
		} else {
			dispatcher.Subscribe(publisher)
			defer publisher.Close()
		}
	}

	// Stores
	userRepo := repositories.NewUserRepository(repositories.DB)
	offerRepo := repositories.NewOfferRepository(repositories.DB)
	requestRepo := repositories.NewRequestRepository(repositories.DB)
	txRepo := repositories.NewTransactionRepository(repositories.DB)

	// Services
	refreshTTL := config.GetDurationEnv("JWT_REFRESH_TTL", 7*24*time.Hour)
	tokens := utils.NewTokenIssuer(config.JWTSecret(), config.GetDurationEnv("JWT_ACCESS_TTL", 15*time.Minute), refreshTTL)
	authService := auth.NewService(userRepo, tokens, log)
	userService := user.NewService(userRepo, log)
	offerService := offer.NewService(offerRepo, userRepo, repositories.CacheService, nil, dispatcher, log)
	ratings := rating.NewAggregator(userRepo, offerService, log)
	ledger := transaction.NewService(txRepo, userRepo, ratings, nil, dispatcher, transaction.NewLogMetricsCollector(log), log)
	engine := negotiation.NewService(requestRepo, offerService, ledger, userRepo, nil, dispatcher, log)

	// HTTP
	app := fiber.New(fiber.Config{
		AppName:      "alumnet",
		ReadTimeout:  config.GetDurationEnv("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: config.GetDurationEnv("HTTP_WRITE_TIMEOUT", 15*time.Second),
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(config.GetListEnv("CORS_ORIGINS", []string{"http://localhost:5173"}), ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.SetupRoutes(app, routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService, userService, refreshTTL, log),
		Users:        handlers.NewUserHandler(userService, log),
		Offers:       handlers.NewOfferHandler(offerService, log),
		Requests:     handlers.NewRequestHandler(engine, log),
		Transactions: handlers.NewTransactionHandler(ledger, log),
		Admin:        handlers.NewAdminHandler(userService, repositories.CacheService, log),
		Health: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"database": handlers.PingFunc(sqlDB.PingContext),
			"redis":    handlers.PingFunc(repositories.CacheService.HealthCheck),
		}),
	}, middleware.NewAuthMiddleware(authService, log), routes.Options{
		AuthRateLimit: config.GetIntEnv("AUTH_RATE_LIMIT", 5),
	})

	wsServer := realtime.NewServer(":"+config.GetEnv("WS_PORT", "3001"),
		realtime.NewHandler(hub, authService, config.GetListEnv("CORS_ORIGINS", nil), log))

	errCh := make(chan error, 2)
	go func() {
		log.Info("http server listening", "port", config.GetEnv("PORT", "3000"))
		errCh <- app.Listen(":" + config.GetEnv("PORT", "3000"))
	}()
	go func() {
		log.Info("websocket server listening", "addr", wsServer.Addr)
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		log.Error("server stopped", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := wsServer.Shutdown(ctx); err != nil {
		log.Warn("websocket server shutdown", "error", err)
	}
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Warn("http server shutdown", "error", err)
	}
}
