package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"alumnet/internal/access"
	apperr "alumnet/internal/errors"
	"alumnet/internal/logger"
	"alumnet/internal/models"
	"alumnet/internal/repositories"
	"alumnet/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const maxPreferenceNotes = 500

var (
	ErrIncorrectPassword = apperr.Validation("INCORRECT_PASSWORD", "current password is incorrect")
	ErrForbidden         = apperr.Unauthorized("not allowed to manage users")
)

// SwapProfile is the public swap-facing view of a member.
type SwapProfile struct {
	UserID         uuid.UUID              `json:"user_id"`
	Name           string                 `json:"name"`
	GraduationYear int                    `json:"graduation_year,omitempty"`
	Stats          models.SwapStats       `json:"swap_stats"`
	Preferences    models.SwapPreferences `json:"swap_preferences"`
	MemberSince    time.Time              `json:"member_since"`
}

type Service interface {
	Register(ctx context.Context, input models.CreateUserInput) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetSwapProfile(ctx context.Context, userID uuid.UUID) (*SwapProfile, error)
	UpdateSwapPreferences(ctx context.Context, actor access.Actor, prefs models.SwapPreferences) (*models.SwapPreferences, error)
	ChangePassword(ctx context.Context, actor access.Actor, oldPassword, newPassword string) error
	SetStatus(ctx context.Context, actor access.Actor, userID uuid.UUID, status string) error
}

type service struct {
	repo repositories.UserRepository
	log  *logger.Logger
}

func NewService(repo repositories.UserRepository, log *logger.Logger) Service {
	if repo == nil {
		panic("user repository is required")
	}
	return &service{
		repo: repo,
		log:  logger.OrNop(log).With("component", "user"),
	}
}

func (s *service) Register(ctx context.Context, input models.CreateUserInput) (*models.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	v := validation.New()
	v.Password("password", input.Password)
	if err := v.Err(); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &models.User{
		Name:           input.Name,
		Email:          input.Email,
		GraduationYear: input.GraduationYear,
		Password:       string(hashedPassword),
		Role:           models.RoleUser,
		Status:         models.UserStatusActive,
		TokenVersion:   1,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", user.ID)
	return user, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetSwapProfile(ctx context.Context, userID uuid.UUID) (*SwapProfile, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &SwapProfile{
		UserID:         u.ID,
		Name:           u.Name,
		GraduationYear: u.GraduationYear,
		Stats:          u.SwapStats,
		Preferences:    u.SwapPreferences,
		MemberSince:    u.CreatedAt,
	}, nil
}

func (s *service) UpdateSwapPreferences(ctx context.Context, actor access.Actor, prefs models.SwapPreferences) (*models.SwapPreferences, error) {
	if !actor.IsActive() {
		return nil, apperr.Unauthorized("account is not active")
	}
	prefs.Notes = strings.TrimSpace(prefs.Notes)

	v := validation.New()
	v.MaxLength("notes", prefs.Notes, maxPreferenceNotes)
	seen := make(map[models.OfferCategory]bool, len(prefs.PreferredCategories))
	categories := prefs.PreferredCategories[:0:0]
	for _, c := range prefs.PreferredCategories {
		v.Check(c.Valid(), "preferred_categories", "contains an unknown category")
		if !seen[c] {
			seen[c] = true
			categories = append(categories, c)
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	prefs.PreferredCategories = categories

	if err := s.repo.UpdateSwapPreferences(ctx, actor.UserID, prefs); err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (s *service) ChangePassword(ctx context.Context, actor access.Actor, oldPassword, newPassword string) error {
	u, err := s.repo.GetByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(oldPassword)); err != nil {
		return ErrIncorrectPassword
	}

	v := validation.New()
	v.Password("new_password", newPassword)
	if err := v.Err(); err != nil {
		return err
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.New("failed to hash password")
	}
	return s.repo.UpdatePassword(ctx, u.ID, string(hashedPassword))
}

// SetStatus suspends or reactivates a member. Admins only.
func (s *service) SetStatus(ctx context.Context, actor access.Actor, userID uuid.UUID, status string) error {
	if !actor.IsActive() || !actor.HasPermission(models.PermissionWriteAdmin) {
		return ErrForbidden
	}
	if status != models.UserStatusActive && status != models.UserStatusSuspended {
		return apperr.Validation("INVALID_STATUS", "status must be %s or %s", models.UserStatusActive, models.UserStatusSuspended)
	}
	if userID == actor.UserID {
		return apperr.Validation("SELF_STATUS", "cannot change your own status")
	}
	if err := s.repo.UpdateStatus(ctx, userID, status); err != nil {
		return err
	}
	if status == models.UserStatusSuspended {
		// suspended members lose their sessions immediately
		if err := s.repo.IncrementTokenVersion(ctx, userID); err != nil {
			return err
		}
	}
	s.log.Info("user status changed", "user_id", userID, "status", status, "by", actor.UserID)
	return nil
}
