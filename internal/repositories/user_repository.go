package repositories

import (
	"context"

	"alumnet/internal/models"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	// Create creates a new user; a taken email is a ConflictError
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by their ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by their email address
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// TouchLogin stamps last_login_at
	TouchLogin(ctx context.Context, id uuid.UUID) error

	// UpdatePassword stores a new hash and invalidates every token issued so far
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error

	// IncrementTokenVersion invalidates every token issued so far
	IncrementTokenVersion(ctx context.Context, id uuid.UUID) error

	// IncrementSwapStat adds delta to one of the swap_stats counters
	IncrementSwapStat(ctx context.Context, id uuid.UUID, stat string, delta int64) error

	// ApplyRating folds one rating into the running average
	ApplyRating(ctx context.Context, id uuid.UUID, rating float64) error

	// UpdateSwapPreferences replaces the stored preferences
	UpdateSwapPreferences(ctx context.Context, id uuid.UUID, prefs models.SwapPreferences) error

	// UpdateStatus updates the user's status
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}
