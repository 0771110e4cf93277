package models

import (
	"time"
)

const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"

	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
)

type User struct {
	Base
	Email           string          `gorm:"uniqueIndex;not null" json:"email"`
	Password        string          `gorm:"not null" json:"-"`
	Name            string          `gorm:"not null" json:"name"`
	GraduationYear  int             `json:"graduation_year,omitempty"`
	Role            string          `gorm:"default:'user'" json:"role"`
	Status          string          `gorm:"default:'active'" json:"status"`
	TokenVersion    int             `gorm:"default:1" json:"-"`
	LastLoginAt     *time.Time      `json:"last_login_at,omitempty"`
	SwapStats       SwapStats       `gorm:"embedded;embeddedPrefix:swap_stats_" json:"swap_stats"`
	SwapPreferences SwapPreferences `gorm:"type:jsonb;serializer:json" json:"swap_preferences"`
}

// SwapStats is maintained with atomic column updates only.
type SwapStats struct {
	TotalOffers    int64   `gorm:"not null;default:0" json:"total_offers"`
	TotalRequests  int64   `gorm:"not null;default:0" json:"total_requests"`
	TotalCompleted int64   `gorm:"not null;default:0" json:"total_completed"`
	AverageRating  float64 `gorm:"not null;default:0" json:"average_rating"`
	TotalRatings   int64   `gorm:"not null;default:0" json:"total_ratings"`
}

type SwapPreferences struct {
	PreferredCategories []OfferCategory `json:"preferred_categories,omitempty"`
	OpenToRemote        bool            `json:"open_to_remote"`
	Notes               string          `json:"notes,omitempty"`
}

// Swap stat columns accepted by UserRepository.IncrementSwapStat.
const (
	StatTotalOffers    = "swap_stats_total_offers"
	StatTotalRequests  = "swap_stats_total_requests"
	StatTotalCompleted = "swap_stats_total_completed"
)

func (u *User) IsActive() bool {
	return u.Status == "" || u.Status == UserStatusActive
}

type CreateUserInput struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8"`
	Name           string `json:"name" validate:"required,max=120"`
	GraduationYear int    `json:"graduation_year" validate:"omitempty,gte=1900,lte=2100"`
}
