// Package rating maintains running-mean ratings on users and offers.
package rating

import (
	"context"
	"fmt"
	"math"

	apperr "alumnet/internal/errors"
	"alumnet/internal/logger"

	"github.com/google/uuid"
)

const (
	MinRating = 1
	MaxRating = 5
)

// UserRatings is the slice of the user store the aggregator writes to.
type UserRatings interface {
	ApplyRating(ctx context.Context, userID uuid.UUID, rating float64) error
}

// OfferRatings is implemented by the offer catalog.
type OfferRatings interface {
	ApplyRating(ctx context.Context, offerID uuid.UUID, rating float64) error
}

// FeedbackApplied carries one accepted feedback entry.
type FeedbackApplied struct {
	ToUserID     uuid.UUID
	Rating       int
	OfferID      uuid.UUID
	OfferOwnerID uuid.UUID
}

type Aggregator interface {
	// Apply folds one rating into the user's aggregate with a single atomic write.
	Apply(ctx context.Context, userID uuid.UUID, rating int) error
	// ApplyFeedback updates the recipient, and the offer too when the recipient owns it.
	ApplyFeedback(ctx context.Context, fb FeedbackApplied) error
}

type aggregator struct {
	users  UserRatings
	offers OfferRatings
	log    *logger.Logger
}

// NewAggregator panics without a user store; offers may be nil.
func NewAggregator(users UserRatings, offers OfferRatings, log *logger.Logger) Aggregator {
	if users == nil {
		panic("user ratings store is required")
	}
	return &aggregator{users: users, offers: offers, log: logger.OrNop(log)}
}

// Next is the incremental mean used by the storage layer, clamped to [0,5].
func Next(avg float64, count int64, r float64) (float64, int64) {
	if count < 0 {
		count = 0
	}
	next := (avg*float64(count) + r) / float64(count+1)
	return math.Min(MaxRating, math.Max(0, next)), count + 1
}

func Validate(r int) error {
	if r < MinRating || r > MaxRating {
		return apperr.Validation("INVALID_RATING", "rating must be between %d and %d", MinRating, MaxRating)
	}
	return nil
}

func (a *aggregator) Apply(ctx context.Context, userID uuid.UUID, r int) error {
	if err := Validate(r); err != nil {
		return err
	}
	if err := a.users.ApplyRating(ctx, userID, float64(r)); err != nil {
		return fmt.Errorf("failed to apply user rating: %w", err)
	}
	return nil
}

func (a *aggregator) ApplyFeedback(ctx context.Context, fb FeedbackApplied) error {
	if err := a.Apply(ctx, fb.ToUserID, fb.Rating); err != nil {
		return err
	}
	if a.offers == nil || fb.OfferID == uuid.Nil || fb.ToUserID != fb.OfferOwnerID {
		return nil
	}
	if err := a.offers.ApplyRating(ctx, fb.OfferID, float64(fb.Rating)); err != nil {
		// the offer may have been deleted since the swap started
		if apperr.IsNotFound(err) {
			a.log.Warn("offer gone, skipping offer rating", "offer_id", fb.OfferID)
			return nil
		}
		return fmt.Errorf("failed to apply offer rating: %w", err)
	}
	return nil
}
