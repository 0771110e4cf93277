package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperr "alumnet/internal/errors"
	"alumnet/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OfferFilter narrows ListOffers. Zero values are ignored.
type OfferFilter struct {
	Category      models.OfferCategory
	Subcategory   string
	OwnerID       *uuid.UUID
	Status        models.OfferStatus
	Tag           string
	Search        string
	MinValue      *float64
	MaxValue      *float64
	AvailableOnly bool
	Sort          string
	Limit         int
	Offset        int
}

// DefaultPageSize applies when a list call passes no limit.
const DefaultPageSize = 20

const (
	SortNewest = "newest"
	SortRating = "rating"
	SortViews  = "views"
	SortValue  = "value"
)

var offerSortColumns = map[string]string{
	SortNewest: "created_at DESC",
	SortRating: "rating_average DESC, rating_count DESC",
	SortViews:  "views DESC",
	SortValue:  "estimated_value_amount DESC",
}

// offerCounterColumns are only ever written by atomic increments.
var offerCounterColumns = []string{"id", "created_at", "deleted_at", "views", "requests", "rating_average", "rating_count"}

type OfferRepository interface {
	Create(ctx context.Context, offer *models.SwapOffer) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SwapOffer, error)
	List(ctx context.Context, filter OfferFilter) ([]models.SwapOffer, int64, error)
	// Update writes every editable column; counters and ratings are left alone.
	Update(ctx context.Context, offer *models.SwapOffer) error
	IncrementViews(ctx context.Context, id uuid.UUID) error
	IncrementRequests(ctx context.Context, id uuid.UUID) error
	ApplyRating(ctx context.Context, id uuid.UUID, rating float64) error
	// DeleteIfIdle soft-deletes the offer unless a non-terminal request references it.
	DeleteIfIdle(ctx context.Context, id uuid.UUID) error
}

type offerRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) Create(ctx context.Context, offer *models.SwapOffer) error {
	if err := conn(ctx, r.db).Create(offer).Error; err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	return nil
}

func (r *offerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SwapOffer, error) {
	var offer models.SwapOffer
	if err := conn(ctx, r.db).First(&offer, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "offer")
	}
	return &offer, nil
}

func (r *offerRepository) List(ctx context.Context, f OfferFilter) ([]models.SwapOffer, int64, error) {
	q := applyOfferFilter(conn(ctx, r.db).Model(&models.SwapOffer{}), f).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count offers: %w", err)
	}

	order, ok := offerSortColumns[f.Sort]
	if !ok {
		order = offerSortColumns[SortNewest]
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	var offers []models.SwapOffer
	if err := q.Order(order).Limit(limit).Offset(f.Offset).Find(&offers).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list offers: %w", err)
	}
	return offers, total, nil
}

func applyOfferFilter(q *gorm.DB, f OfferFilter) *gorm.DB {
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Subcategory != "" {
		q = q.Where("subcategory = ?", f.Subcategory)
	}
	if f.OwnerID != nil {
		q = q.Where("owner_id = ?", *f.OwnerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if tag := strings.TrimSpace(f.Tag); tag != "" {
		q = q.Where("CAST(tags AS TEXT) LIKE ?", "%\""+tag+"\"%")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	}
	if f.MinValue != nil {
		q = q.Where("estimated_value_amount >= ?", *f.MinValue)
	}
	if f.MaxValue != nil {
		q = q.Where("estimated_value_amount <= ?", *f.MaxValue)
	}
	if f.AvailableOnly {
		now := time.Now().UTC()
		q = q.Where("status = ?", models.OfferActive).
			Where("(availability_start_date IS NULL OR availability_start_date <= ?)", now).
			Where("(availability_end_date IS NULL OR availability_end_date >= ?)", now)
	}
	return q
}

func (r *offerRepository) Update(ctx context.Context, offer *models.SwapOffer) error {
	res := conn(ctx, r.db).Model(offer).
		Select("*").Omit(offerCounterColumns...).
		Updates(offer)
	if res.Error != nil {
		return fmt.Errorf("failed to update offer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("offer")
	}
	return nil
}

func (r *offerRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.increment(ctx, id, "views")
}

func (r *offerRepository) IncrementRequests(ctx context.Context, id uuid.UUID) error {
	return r.increment(ctx, id, "requests")
}

func (r *offerRepository) increment(ctx context.Context, id uuid.UUID, column string) error {
	res := conn(ctx, r.db).Model(&models.SwapOffer{}).Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to increment offer %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("offer")
	}
	return nil
}

func (r *offerRepository) ApplyRating(ctx context.Context, id uuid.UUID, rating float64) error {
	res := conn(ctx, r.db).Model(&models.SwapOffer{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"rating_average": gorm.Expr("(rating_average * rating_count + ?) / (rating_count + 1)", rating),
			"rating_count":   gorm.Expr("rating_count + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to apply offer rating: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("offer")
	}
	return nil
}

func (r *offerRepository) DeleteIfIdle(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if _, err := lockOffer(tx, id); err != nil {
			return err
		}

		var active int64
		if err := tx.Model(&models.SwapRequest{}).
			Where("offer_id = ? AND status IN ?", id, models.ActiveRequestStatuses).
			Count(&active).Error; err != nil {
			return fmt.Errorf("failed to count open requests: %w", err)
		}
		if active > 0 {
			return apperr.Conflict("OFFER_HAS_OPEN_REQUESTS",
				"offer has %d open request(s) and cannot be deleted", active)
		}

		if err := tx.Delete(&models.SwapOffer{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete offer: %w", err)
		}
		return nil
	})
}

// lockOffer reads the offer row with SELECT ... FOR UPDATE inside tx.
// sqlite has no row locks; its single writer gives the same ordering.
func lockOffer(tx *gorm.DB, id uuid.UUID) (*models.SwapOffer, error) {
	var offer models.SwapOffer
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&offer, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "offer")
	}
	return &offer, nil
}
