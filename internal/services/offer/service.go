package offer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"alumnet/internal/access"
	apperr "alumnet/internal/errors"
	"alumnet/internal/events"
	"alumnet/internal/logger"
	"alumnet/internal/models"
	"alumnet/internal/repositories"
	"alumnet/internal/validation"

	"github.com/google/uuid"
)

type service struct {
	repo   repositories.OfferRepository
	users  UserStats
	cache  Cache
	policy access.Policy
	events events.Emitter
	log    *logger.Logger
	now    func() time.Time
}

// NewService creates the offer catalog. cache, policy, emitter and log are optional.
func NewService(
	repo repositories.OfferRepository,
	users UserStats,
	cache Cache,
	policy access.Policy,
	emitter events.Emitter,
	log *logger.Logger,
) Service {
	if repo == nil {
		panic("offer repository is required")
	}
	if users == nil {
		panic("user store is required")
	}
	if cache == nil {
		cache = noopCache{}
	}
	return &service{
		repo:   repo,
		users:  users,
		cache:  cache,
		policy: access.OrDefault(policy),
		events: events.OrNop(emitter),
		log:    logger.OrNop(log).With("component", "offer"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) CreateOffer(ctx context.Context, actor access.Actor, in CreateOfferInput) (*models.SwapOffer, error) {
	if !actor.IsActive() || !actor.HasPermission(models.PermissionOfferWrite) {
		return nil, ErrCannotCreate
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	offer := &models.SwapOffer{
		OwnerID:        actor.UserID,
		Category:       in.Category,
		Subcategory:    strings.TrimSpace(in.Subcategory),
		Title:          strings.TrimSpace(in.Title),
		Description:    strings.TrimSpace(in.Description),
		Tags:           normalizeTags(in.Tags),
		Location:       strings.TrimSpace(in.Location),
		WantsInReturn:  strings.TrimSpace(in.WantsInReturn),
		EstimatedValue: in.EstimatedValue,
		Accommodation:  in.Accommodation,
		Availability:   in.Availability,
		Status:         models.OfferActive,
	}
	if offer.EstimatedValue.Currency == "" {
		offer.EstimatedValue.Currency = DefaultCurrency
	}
	offer.EstimatedValue.Currency = strings.ToUpper(offer.EstimatedValue.Currency)
	if offer.Category != models.CategoryAccommodation {
		offer.Accommodation = nil
	}

	v := validation.New()
	v.Offer(offer)
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, offer); err != nil {
		return nil, err
	}
	if err := s.users.IncrementSwapStat(ctx, actor.UserID, models.StatTotalOffers, 1); err != nil {
		s.log.Warn("failed to bump total_offers", "user_id", actor.UserID, "error", err)
	}

	s.events.Emit(ctx, events.New(events.OfferCreated, offer.ID, actor.UserID, actor.UserID).
		WithData("title", offer.Title).
		WithData("category", offer.Category))
	s.log.Info("offer created", "offer_id", offer.ID, "owner_id", actor.UserID)
	return offer, nil
}

func (s *service) GetOffer(ctx context.Context, id uuid.UUID) (*models.SwapOffer, error) {
	if cached, err := s.cache.GetOffer(ctx, id); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		s.log.Debug("offer cache read failed", "offer_id", id, "error", err)
	}

	offer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.CacheOffer(ctx, offer); err != nil {
		s.log.Debug("offer cache write failed", "offer_id", id, "error", err)
	}
	return offer, nil
}

func (s *service) ListOffers(ctx context.Context, filter repositories.OfferFilter) ([]models.SwapOffer, int64, error) {
	if filter.Limit <= 0 || filter.Limit > MaxPageSize {
		filter.Limit = repositories.DefaultPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, 0, apperr.Validation("INVALID_CATEGORY", "unknown category %q", filter.Category)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	return s.repo.List(ctx, filter)
}

func (s *service) UpdateOffer(ctx context.Context, actor access.Actor, id uuid.UUID, in UpdateOfferInput) (*models.SwapOffer, error) {
	offer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanPerform(actor, access.ActionOfferUpdate, offer) {
		return nil, ErrForbidden
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	in.apply(offer)
	offer.Tags = normalizeTags(offer.Tags)
	offer.EstimatedValue.Currency = strings.ToUpper(offer.EstimatedValue.Currency)

	v := validation.New()
	v.Offer(offer)
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, offer); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return offer, nil
}

func (s *service) SetStatus(ctx context.Context, actor access.Actor, id uuid.UUID, status models.OfferStatus) (*models.SwapOffer, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	offer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanPerform(actor, access.ActionOfferSetStatus, offer) {
		return nil, ErrForbidden
	}
	if offer.Status == status {
		return offer, nil
	}
	if !actor.HasPermission(models.PermissionModerateOffers) && !CanTransition(offer.Status, status) {
		return nil, apperr.Conflict(ErrIllegalTransition.Code,
			"offer cannot move from %s to %s", offer.Status, status)
	}

	from := offer.Status
	offer.Status = status
	if err := s.repo.Update(ctx, offer); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.log.Info("offer status changed", "offer_id", id, "from", from, "to", status, "actor_id", actor.UserID)
	return offer, nil
}

func (s *service) DeleteOffer(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	offer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.policy.CanPerform(actor, access.ActionOfferDelete, offer) {
		return ErrForbidden
	}
	if err := s.repo.DeleteIfIdle(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.log.Info("offer deleted", "offer_id", id, "actor_id", actor.UserID)
	return nil
}

func (s *service) RecordView(ctx context.Context, id uuid.UUID) error {
	return s.repo.IncrementViews(ctx, id)
}

func (s *service) RecordRequestOpened(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.IncrementRequests(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *service) ApplyRating(ctx context.Context, id uuid.UUID, rating float64) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	if err := s.repo.ApplyRating(ctx, id, rating); err != nil {
		return fmt.Errorf("failed to rate offer %s: %w", id, err)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *service) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.InvalidateOffer(ctx, id); err != nil {
		s.log.Warn("failed to invalidate offer cache", "offer_id", id, "error", err)
	}
}

// normalizeTags lower-cases, trims and de-duplicates tags, keeping their order.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

type noopCache struct{}

func (noopCache) CacheOffer(context.Context, *models.SwapOffer) error { return nil }

func (noopCache) GetOffer(context.Context, uuid.UUID) (*models.SwapOffer, error) { return nil, nil }

func (noopCache) InvalidateOffer(context.Context, uuid.UUID) error { return nil }
