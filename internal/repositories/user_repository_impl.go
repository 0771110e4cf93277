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
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

var swapStatColumns = map[string]bool{
	models.StatTotalOffers:    true,
	models.StatTotalRequests:  true,
	models.StatTotalCompleted: true,
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := conn(ctx, r.db).Create(user).Error; err != nil {
		if isDuplicate(err) {
			return apperr.Conflict("EMAIL_TAKEN", "email already registered")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := conn(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := conn(ctx, r.db).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (r *userRepository) TouchLogin(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Model(&models.User{}).Where("id = ?", id).
		UpdateColumn("last_login_at", time.Now().UTC()).Error
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.expectOne(conn(ctx, r.db).Model(&models.User{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"password":      hash,
			"token_version": gorm.Expr("token_version + 1"),
		}))
}

func (r *userRepository) IncrementTokenVersion(ctx context.Context, id uuid.UUID) error {
	return r.expectOne(conn(ctx, r.db).Model(&models.User{}).Where("id = ?", id).
		UpdateColumn("token_version", gorm.Expr("token_version + 1")))
}

func (r *userRepository) IncrementSwapStat(ctx context.Context, id uuid.UUID, stat string, delta int64) error {
	if !swapStatColumns[stat] {
		return fmt.Errorf("unknown swap stat %q", stat)
	}
	return r.expectOne(conn(ctx, r.db).Model(&models.User{}).Where("id = ?", id).
		UpdateColumn(stat, gorm.Expr(stat+" + ?", delta)))
}

// ApplyRating updates the running mean in one statement; every right-hand
// side reads the pre-update row, so concurrent ratings never overwrite each other.
func (r *userRepository) ApplyRating(ctx context.Context, id uuid.UUID, rating float64) error {
	return r.expectOne(conn(ctx, r.db).Model(&models.User{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"swap_stats_average_rating": gorm.Expr(
				"(swap_stats_average_rating * swap_stats_total_ratings + ?) / (swap_stats_total_ratings + 1)", rating),
			"swap_stats_total_ratings": gorm.Expr("swap_stats_total_ratings + 1"),
		}))
}

func (r *userRepository) UpdateSwapPreferences(ctx context.Context, id uuid.UUID, prefs models.SwapPreferences) error {
	user := &models.User{Base: models.Base{ID: id}, SwapPreferences: prefs}
	return r.expectOne(conn(ctx, r.db).Model(user).Select("swap_preferences").Updates(user))
}

func (r *userRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.expectOne(conn(ctx, r.db).Model(&models.User{}).Where("id = ?", id).
		Update("status", status))
}

func (r *userRepository) expectOne(res *gorm.DB) error {
	if res.Error != nil {
		return fmt.Errorf("failed to update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user")
	}
	return nil
}
