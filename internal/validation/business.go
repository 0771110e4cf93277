package validation

import (
	"strings"

	"alumnet/internal/models"
)

// Offer validates a complete offer record, including the accommodation
// invariant and the availability window.
func (v *Validator) Offer(o *models.SwapOffer) {
	v.Check(o.Category.Valid(), "category", "must be one of skill, service, accommodation, item, other")
	v.Required("title", o.Title)
	v.MaxLength("title", o.Title, MaxTitleLength)
	v.Required("description", o.Description)
	v.MaxLength("description", o.Description, MaxDescriptionLength)
	v.Check(len(o.Tags) <= MaxTags, "tags", "too many tags")
	for _, tag := range o.Tags {
		if strings.TrimSpace(tag) == "" || len(tag) > MaxTagLength {
			v.AddError("tags", "tags must be non-empty and short")
			break
		}
	}
	v.EstimatedValue("estimated_value", o.EstimatedValue)
	v.Before("availability", o.Availability.StartDate, o.Availability.EndDate)

	if o.Category == models.CategoryAccommodation {
		if o.Accommodation == nil {
			v.AddError("accommodation", "is required for accommodation offers")
		} else {
			v.Required("accommodation.property_type", o.Accommodation.PropertyType)
			v.Check(o.Accommodation.MaxGuests >= 1, "accommodation.max_guests", "must be at least 1")
		}
	}
	if o.Status != "" {
		v.Check(o.Status.Valid(), "status", "must be one of active, inactive, paused, completed")
	}
}

func (v *Validator) EstimatedValue(field string, ev models.EstimatedValue) {
	v.Range(field+".amount", ev.Amount, 0, MaxEstimatedValue)
	if ev.Currency != "" {
		v.Check(len(ev.Currency) == 3, field+".currency", "must be a 3-letter currency code")
	}
}

// SwapRequest validates what a requester proposes.
func (v *Validator) SwapRequest(r *models.SwapRequest) {
	v.Required("offer_in_return.title", r.OfferInReturn.Title)
	v.MaxLength("offer_in_return.title", r.OfferInReturn.Title, MaxTitleLength)
	if r.OfferInReturn.Category != "" {
		v.Check(r.OfferInReturn.Category.Valid(), "offer_in_return.category", "is not a known category")
	}
	v.EstimatedValue("offer_in_return.estimated_value", r.OfferInReturn.EstimatedValue)
	v.MaxLength("message", r.Message, MaxMessageLength)
	v.MaxLength("proposed_terms", r.ProposedTerms, MaxTermsLength)
	v.Before("timeline", r.Timeline.ProposedStartDate, r.Timeline.ProposedEndDate)
}
