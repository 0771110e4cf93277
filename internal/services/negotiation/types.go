package negotiation

import (
	"time"

	"alumnet/internal/models"
)

type CreateRequestInput struct {
	OfferInReturn     models.OfferInReturn `json:"offer_in_return"`
	Message           string               `json:"message" validate:"max=2000"`
	ProposedTerms     string               `json:"proposed_terms" validate:"max=4000"`
	ProposedStartDate *time.Time           `json:"proposed_start_date"`
	ProposedEndDate   *time.Time           `json:"proposed_end_date"`
}

type RespondInput struct {
	Decision models.RequestStatus `json:"decision" validate:"required"`
	Message  string               `json:"message" validate:"max=2000"`
}

// NegotiationInput proposes changes to the request; at least one must be set.
type NegotiationInput struct {
	ProposedTerms      *string    `json:"proposed_terms" validate:"omitempty,max=4000"`
	ProposedStartDate  *time.Time `json:"proposed_start_date"`
	ProposedEndDate    *time.Time `json:"proposed_end_date"`
	OfferInReturnValue *float64   `json:"offer_in_return_value" validate:"omitempty,gte=0"`
	Note               string     `json:"note" validate:"max=2000"`
}

type CompleteRequestInput struct {
	Notes   string `json:"notes" validate:"max=4000"`
	Rating  *int   `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}
