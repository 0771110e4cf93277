package offer

import (
	"context"

	"alumnet/internal/access"
	"alumnet/internal/models"
	"alumnet/internal/repositories"

	"github.com/google/uuid"
)

// Service defines the offer catalog
type Service interface {
	CreateOffer(ctx context.Context, actor access.Actor, in CreateOfferInput) (*models.SwapOffer, error)
	GetOffer(ctx context.Context, id uuid.UUID) (*models.SwapOffer, error)
	ListOffers(ctx context.Context, filter repositories.OfferFilter) ([]models.SwapOffer, int64, error)
	UpdateOffer(ctx context.Context, actor access.Actor, id uuid.UUID, in UpdateOfferInput) (*models.SwapOffer, error)
	SetStatus(ctx context.Context, actor access.Actor, id uuid.UUID, status models.OfferStatus) (*models.SwapOffer, error)
	DeleteOffer(ctx context.Context, actor access.Actor, id uuid.UUID) error

	// Counters. No rule checks; callers may fire and forget.
	RecordView(ctx context.Context, id uuid.UUID) error
	RecordRequestOpened(ctx context.Context, id uuid.UUID) error
	ApplyRating(ctx context.Context, id uuid.UUID, rating float64) error
}

// Cache is the read-through offer cache; *cache.CacheService satisfies it.
type Cache interface {
	CacheOffer(ctx context.Context, offer *models.SwapOffer) error
	GetOffer(ctx context.Context, id uuid.UUID) (*models.SwapOffer, error)
	InvalidateOffer(ctx context.Context, id uuid.UUID) error
}

// UserStats is the slice of the user store the catalog writes to.
type UserStats interface {
	IncrementSwapStat(ctx context.Context, userID uuid.UUID, stat string, delta int64) error
}
