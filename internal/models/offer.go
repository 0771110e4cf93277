package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OfferCategory string

const (
	CategorySkill         OfferCategory = "skill"
	CategoryService       OfferCategory = "service"
	CategoryAccommodation OfferCategory = "accommodation"
	CategoryItem          OfferCategory = "item"
	CategoryOther         OfferCategory = "other"
)

func (c OfferCategory) Valid() bool {
	switch c {
	case CategorySkill, CategoryService, CategoryAccommodation, CategoryItem, CategoryOther:
		return true
	}
	return false
}

type OfferStatus string

const (
	OfferActive    OfferStatus = "active"
	OfferInactive  OfferStatus = "inactive"
	OfferPaused    OfferStatus = "paused"
	OfferCompleted OfferStatus = "completed"
)

func (s OfferStatus) Valid() bool {
	switch s {
	case OfferActive, OfferInactive, OfferPaused, OfferCompleted:
		return true
	}
	return false
}

type EstimatedValue struct {
	Amount     float64 `gorm:"not null;default:0" json:"amount"`
	Currency   string  `gorm:"size:3" json:"currency"`
	IsFlexible bool    `json:"is_flexible"`
}

// Accommodation is only present on accommodation offers.
type Accommodation struct {
	PropertyType string   `json:"property_type"`
	MaxGuests    int      `json:"max_guests"`
	Bedrooms     int      `json:"bedrooms,omitempty"`
	Bathrooms    int      `json:"bathrooms,omitempty"`
	Amenities    []string `json:"amenities,omitempty"`
}

type Availability struct {
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

// Contains reports whether t falls inside the window; open ends are unbounded.
func (a Availability) Contains(t time.Time) bool {
	if a.StartDate != nil && t.Before(*a.StartDate) {
		return false
	}
	if a.EndDate != nil && t.After(*a.EndDate) {
		return false
	}
	return true
}

type RatingSummary struct {
	Average float64 `gorm:"not null;default:0" json:"average"`
	Count   int64   `gorm:"not null;default:0" json:"count"`
}

type SwapOffer struct {
	Base
	OwnerID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	Category       OfferCategory  `gorm:"size:32;not null;index" json:"category"`
	Subcategory    string         `gorm:"size:64" json:"subcategory,omitempty"`
	Title          string         `gorm:"size:200;not null" json:"title"`
	Description    string         `gorm:"type:text;not null" json:"description"`
	Tags           []string       `gorm:"type:jsonb;serializer:json" json:"tags"`
	Location       string         `gorm:"size:120" json:"location,omitempty"`
	WantsInReturn  string         `gorm:"type:text" json:"wants_in_return,omitempty"`
	EstimatedValue EstimatedValue `gorm:"embedded;embeddedPrefix:estimated_value_" json:"estimated_value"`
	Accommodation  *Accommodation `gorm:"type:jsonb;serializer:json" json:"accommodation,omitempty"`
	Availability   Availability   `gorm:"embedded;embeddedPrefix:availability_" json:"availability"`
	Views          int64          `gorm:"not null;default:0" json:"views"`
	Requests       int64          `gorm:"not null;default:0" json:"requests"`
	Rating         RatingSummary  `gorm:"embedded;embeddedPrefix:rating_" json:"rating"`
	Status         OfferStatus    `gorm:"size:16;not null;default:'active';index" json:"status"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsAvailable reports whether the offer can receive new requests at now.
func (o *SwapOffer) IsAvailable(now time.Time) bool {
	return o.Status == OfferActive && o.Availability.Contains(now)
}

func (o *SwapOffer) Stakeholders() []uuid.UUID {
	return []uuid.UUID{o.OwnerID}
}
