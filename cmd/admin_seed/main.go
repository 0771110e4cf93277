// Command admin_seed creates the first administrator account.
package main

import (
	"context"
	"fmt"
	"os"

	"alumnet/internal/config"
	apperr "alumnet/internal/errors"
	"alumnet/internal/logger"
	"alumnet/internal/models"
	"alumnet/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	config.LoadEnv()

	log, err := logger.New(config.GetEnv("LOG_MODE", "development"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	adminEmail := config.GetEnv("ADMIN_EMAIL", "")
	adminPassword := config.GetEnv("ADMIN_PASSWORD", "")
	if adminEmail == "" || adminPassword == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set in environment")
	}

	if err := repositories.InitDB(); err != nil {
		log.Fatal("failed to initialise storage", "error", err)
	}
	defer repositories.Close()

	ctx := context.Background()
	users := repositories.NewUserRepository(repositories.DB)

	if existing, err := users.GetByEmail(ctx, adminEmail); err == nil {
		log.Info("admin user already exists", "user_id", existing.ID)
		return
	} else if !apperr.IsNotFound(err) {
		log.Fatal("failed to look up admin", "error", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("failed to hash password", "error", err)
	}

	admin := &models.User{
		Email:        adminEmail,
		Password:     string(hashedPassword),
		Name:         config.GetEnv("ADMIN_NAME", "Administrator"),
		Role:         models.RoleAdmin,
		Status:       models.UserStatusActive,
		TokenVersion: 1,
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatal("failed to create admin user", "error", err)
	}

	log.Info("admin account created", "user_id", admin.ID, "email", admin.Email)
}
