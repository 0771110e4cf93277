package models

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BalanceTolerance is the share of the total value two sides may differ by
// and still count as a balanced exchange.
const BalanceTolerance = 0.2

type TransactionStatus string

const (
	TransactionPending    TransactionStatus = "pending"
	TransactionInProgress TransactionStatus = "in_progress"
	TransactionCompleted  TransactionStatus = "completed"
	TransactionCancelled  TransactionStatus = "cancelled"
	TransactionDisputed   TransactionStatus = "disputed"
)

type ParticipantRole string

const (
	RoleRequester  ParticipantRole = "requester"
	RoleOfferOwner ParticipantRole = "offer_owner"
)

// Exchange is one side of what changes hands.
type Exchange struct {
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Category       OfferCategory  `json:"category,omitempty"`
	EstimatedValue EstimatedValue `json:"estimated_value"`
}

type Participant struct {
	UserID   uuid.UUID       `json:"user_id"`
	Role     ParticipantRole `json:"role"`
	Offered  Exchange        `json:"offered"`
	Received Exchange        `json:"received"`
}

type ValueExchange struct {
	TotalValue      float64 `json:"total_value"`
	IsBalanced      bool    `json:"is_balanced"`
	ValueDifference float64 `json:"value_difference"`
}

// ComputeValueExchange derives the balance summary from the two offered values.
func ComputeValueExchange(v1, v2 float64) ValueExchange {
	total := v1 + v2
	diff := math.Abs(v1 - v2)
	return ValueExchange{
		TotalValue:      total,
		ValueDifference: diff,
		IsBalanced:      diff <= BalanceTolerance*total,
	}
}

type TransactionTimeline struct {
	StartedAt     *time.Time `json:"started_at,omitempty"`
	ExpectedEndAt *time.Time `json:"expected_end_at,omitempty"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
}

type TransactionCompletion struct {
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CompletedBy  *uuid.UUID `gorm:"type:uuid" json:"completed_by,omitempty"`
	Notes        string     `gorm:"type:text" json:"notes,omitempty"`
	Deliverables []string   `gorm:"type:jsonb;serializer:json" json:"deliverables,omitempty"`
}

type SwapTransaction struct {
	Base
	RequestID     uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex" json:"request_id"`
	OfferID       uuid.UUID             `gorm:"type:uuid;not null;index" json:"offer_id"`
	RequesterID   uuid.UUID             `gorm:"type:uuid;not null;index" json:"requester_id"`
	OwnerID       uuid.UUID             `gorm:"type:uuid;not null;index" json:"owner_id"`
	Participants  []Participant         `gorm:"type:jsonb;serializer:json" json:"participants"`
	Timeline      TransactionTimeline   `gorm:"embedded;embeddedPrefix:timeline_" json:"timeline"`
	ValueExchange ValueExchange         `gorm:"embedded;embeddedPrefix:value_exchange_" json:"value_exchange"`
	Completion    TransactionCompletion `gorm:"embedded;embeddedPrefix:completion_" json:"completion"`
	Dispute       Dispute               `gorm:"embedded;embeddedPrefix:dispute_" json:"dispute"`
	Status        TransactionStatus     `gorm:"size:16;not null;index" json:"status"`
	Version       int64                 `gorm:"not null;default:1" json:"version"`
}

var ErrParticipantCount = errors.New("a swap transaction has exactly two participants")

// RecomputeValueExchange refreshes ValueExchange from the participants' offers.
func (t *SwapTransaction) RecomputeValueExchange() error {
	if len(t.Participants) != 2 {
		return ErrParticipantCount
	}
	t.ValueExchange = ComputeValueExchange(
		t.Participants[0].Offered.EstimatedValue.Amount,
		t.Participants[1].Offered.EstimatedValue.Amount,
	)
	return nil
}

func (t *SwapTransaction) BeforeSave(tx *gorm.DB) error {
	return t.RecomputeValueExchange()
}

func (t *SwapTransaction) Stakeholders() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(t.Participants))
	for _, p := range t.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

func (t *SwapTransaction) IsParticipant(userID uuid.UUID) bool {
	return t.Participant(userID) != nil
}

// Participant returns the entry for userID, or nil.
func (t *SwapTransaction) Participant(userID uuid.UUID) *Participant {
	for i := range t.Participants {
		if t.Participants[i].UserID == userID {
			return &t.Participants[i]
		}
	}
	return nil
}

// SetOffered updates what userID gives and mirrors it into the counterpart's received side.
func (t *SwapTransaction) SetOffered(userID uuid.UUID, value EstimatedValue) bool {
	self := t.Participant(userID)
	if self == nil {
		return false
	}
	self.Offered.EstimatedValue = value
	for i := range t.Participants {
		if t.Participants[i].UserID != userID {
			t.Participants[i].Received = self.Offered
		}
	}
	return true
}

// Feedback is one rating left by one participant for the other.
type Feedback struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_feedback_direction,priority:1" json:"transaction_id"`
	FromUserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_feedback_direction,priority:2" json:"from_user_id"`
	ToUserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_feedback_direction,priority:3;index" json:"to_user_id"`
	Rating        int       `gorm:"not null" json:"rating"`
	Comment       string    `gorm:"type:text" json:"comment,omitempty"`
	Categories    []string  `gorm:"type:jsonb;serializer:json" json:"categories,omitempty"`
	SubmittedAt   time.Time `gorm:"not null" json:"submitted_at"`
}

func (Feedback) TableName() string { return "transaction_feedback" }

func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
