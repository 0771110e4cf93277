// Package testutil opens throwaway sqlite databases with the production schema.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"alumnet/internal/models"
	"alumnet/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory database private to the test.
// One connection keeps the memory database alive and serialises writers.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := repositories.GormConfig()
	cfg.Logger = logger.Default.LogMode(logger.Silent)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repositories.Migrate(db))
	return db
}

// SeedUser inserts an active user with the given role.
func SeedUser(t testing.TB, db *gorm.DB, role string) *models.User {
	t.Helper()
	id := uuid.New()
	user := &models.User{
		Base:     models.Base{ID: id},
		Email:    id.String() + "@alumni.test",
		Password: "x",
		Name:     "Alum " + id.String()[:8],
		Role:     role,
		Status:   models.UserStatusActive,
	}
	require.NoError(t, repositories.NewUserRepository(db).Create(context.Background(), user))
	return user
}

// SeedOffer inserts an active offer owned by ownerID.
func SeedOffer(t testing.TB, db *gorm.DB, ownerID uuid.UUID, amount float64) *models.SwapOffer {
	t.Helper()
	offer := &models.SwapOffer{
		OwnerID:        ownerID,
		Category:       models.CategorySkill,
		Title:          "Guitar lessons",
		Description:    "Four beginner sessions",
		Tags:           []string{"music", "guitar"},
		EstimatedValue: models.EstimatedValue{Amount: amount, Currency: "USD"},
		Status:         models.OfferActive,
	}
	require.NoError(t, repositories.NewOfferRepository(db).Create(context.Background(), offer))
	return offer
}
