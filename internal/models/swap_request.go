package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RequestStatus string

const (
	RequestPending     RequestStatus = "pending"
	RequestAccepted    RequestStatus = "accepted"
	RequestRejected    RequestStatus = "rejected"
	RequestNegotiating RequestStatus = "negotiating"
	RequestConfirmed   RequestStatus = "confirmed"
	RequestInProgress  RequestStatus = "in_progress"
	RequestCompleted   RequestStatus = "completed"
	RequestCancelled   RequestStatus = "cancelled"
	RequestDisputed    RequestStatus = "disputed"
)

// ActiveRequestStatuses are the statuses that hold the (requester, offer) slot.
var ActiveRequestStatuses = []RequestStatus{
	RequestPending,
	RequestAccepted,
	RequestNegotiating,
	RequestConfirmed,
	RequestInProgress,
}

func (s RequestStatus) IsTerminal() bool {
	for _, a := range ActiveRequestStatuses {
		if s == a {
			return false
		}
	}
	return true
}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestAccepted, RequestRejected, RequestNegotiating, RequestConfirmed,
		RequestInProgress, RequestCompleted, RequestCancelled, RequestDisputed:
		return true
	}
	return false
}

// OfferInReturn describes what the requester puts on the table.
type OfferInReturn struct {
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Category       OfferCategory  `json:"category,omitempty"`
	EstimatedValue EstimatedValue `json:"estimated_value"`
	Duration       string         `json:"duration,omitempty"`
	Availability   string         `json:"availability,omitempty"`
}

type RequestTimeline struct {
	ProposedStartDate *time.Time `json:"proposed_start_date,omitempty"`
	ProposedEndDate   *time.Time `json:"proposed_end_date,omitempty"`
	ActualStartDate   *time.Time `json:"actual_start_date,omitempty"`
	ActualEndDate     *time.Time `json:"actual_end_date,omitempty"`
}

type FeedbackNote struct {
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type RequestCompletion struct {
	CompletedBy      *uuid.UUID    `gorm:"type:uuid" json:"completed_by,omitempty"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	Notes            string        `gorm:"type:text" json:"notes,omitempty"`
	RequesterToOwner *FeedbackNote `gorm:"type:jsonb;serializer:json" json:"requester_to_owner,omitempty"`
	OwnerToRequester *FeedbackNote `gorm:"type:jsonb;serializer:json" json:"owner_to_requester,omitempty"`
}

type SwapRequest struct {
	Base
	RequesterID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"requester_id"`
	OfferOwnerID  uuid.UUID         `gorm:"type:uuid;not null;index" json:"offer_owner_id"`
	OfferID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"offer_id"`
	OfferInReturn OfferInReturn     `gorm:"type:jsonb;serializer:json" json:"offer_in_return"`
	Message       string            `gorm:"type:text" json:"message,omitempty"`
	ProposedTerms string            `gorm:"type:text" json:"proposed_terms,omitempty"`
	Timeline      RequestTimeline   `gorm:"embedded;embeddedPrefix:timeline_" json:"timeline"`
	Completion    RequestCompletion `gorm:"embedded;embeddedPrefix:completion_" json:"completion"`
	Dispute       Dispute           `gorm:"embedded;embeddedPrefix:dispute_" json:"dispute"`
	Status        RequestStatus     `gorm:"size:16;not null;index" json:"status"`
	Version       int64             `gorm:"not null;default:1" json:"version"`
	// ActiveKey is requester:offer while the request is non-terminal and NULL
	// afterwards; the unique index makes duplicate active requests impossible.
	ActiveKey *string `gorm:"size:80;uniqueIndex" json:"-"`
}

func ActiveKeyFor(requesterID, offerID uuid.UUID) string {
	return requesterID.String() + ":" + offerID.String()
}

// SetStatus keeps ActiveKey in step with the status.
func (r *SwapRequest) SetStatus(s RequestStatus) {
	r.Status = s
	if s.IsTerminal() {
		r.ActiveKey = nil
		return
	}
	key := ActiveKeyFor(r.RequesterID, r.OfferID)
	r.ActiveKey = &key
}

func (r *SwapRequest) Stakeholders() []uuid.UUID {
	return []uuid.UUID{r.RequesterID, r.OfferOwnerID}
}

func (r *SwapRequest) IsParticipant(userID uuid.UUID) bool {
	return userID == r.RequesterID || userID == r.OfferOwnerID
}

// Counterpart returns the other participant.
func (r *SwapRequest) Counterpart(userID uuid.UUID) uuid.UUID {
	if userID == r.RequesterID {
		return r.OfferOwnerID
	}
	return r.RequesterID
}

// RequestMessage is one entry in a request's append-only message log.
type RequestMessage struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_request_message_seq,priority:1" json:"request_id"`
	Seq       int        `gorm:"not null;uniqueIndex:idx_request_message_seq,priority:2" json:"seq"`
	SenderID  uuid.UUID  `gorm:"type:uuid;not null" json:"sender_id"`
	Text      string     `gorm:"type:text;not null" json:"text"`
	IsRead    bool       `gorm:"not null;default:false" json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type NegotiationStatus string

const (
	NegotiationProposed NegotiationStatus = "proposed"
	NegotiationAccepted NegotiationStatus = "accepted"
	NegotiationRejected NegotiationStatus = "rejected"
)

// Negotiation is one entry in a request's append-only negotiation log.
type Negotiation struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID   uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_request_negotiation_seq,priority:1" json:"request_id"`
	Seq         int               `gorm:"not null;uniqueIndex:idx_request_negotiation_seq,priority:2" json:"seq"`
	ProposedBy  uuid.UUID         `gorm:"type:uuid;not null" json:"proposed_by"`
	Changes     JSON              `gorm:"type:jsonb" json:"changes"`
	Note        string            `gorm:"type:text" json:"note,omitempty"`
	Status      NegotiationStatus `gorm:"size:16;not null" json:"status"`
	RespondedBy *uuid.UUID        `gorm:"type:uuid" json:"responded_by,omitempty"`
	RespondedAt *time.Time        `json:"responded_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (RequestMessage) TableName() string { return "request_messages" }
func (Negotiation) TableName() string    { return "request_negotiations" }

func (m *RequestMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (n *Negotiation) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
