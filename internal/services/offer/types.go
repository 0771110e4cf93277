package offer

import "alumnet/internal/models"

type CreateOfferInput struct {
	Category       models.OfferCategory  `json:"category" validate:"required"`
	Subcategory    string                `json:"subcategory" validate:"max=64"`
	Title          string                `json:"title" validate:"required,max=200"`
	Description    string                `json:"description" validate:"required,max=4000"`
	Tags           []string              `json:"tags" validate:"max=20,dive,required,max=40"`
	Location       string                `json:"location" validate:"max=120"`
	WantsInReturn  string                `json:"wants_in_return" validate:"max=4000"`
	EstimatedValue models.EstimatedValue `json:"estimated_value"`
	Accommodation  *models.Accommodation `json:"accommodation"`
	Availability   models.Availability   `json:"availability"`
}

// UpdateOfferInput carries only the fields to change.
type UpdateOfferInput struct {
	Category       *models.OfferCategory  `json:"category"`
	Subcategory    *string                `json:"subcategory" validate:"omitempty,max=64"`
	Title          *string                `json:"title" validate:"omitempty,max=200"`
	Description    *string                `json:"description" validate:"omitempty,max=4000"`
	Tags           *[]string              `json:"tags"`
	Location       *string                `json:"location" validate:"omitempty,max=120"`
	WantsInReturn  *string                `json:"wants_in_return"`
	EstimatedValue *models.EstimatedValue `json:"estimated_value"`
	Accommodation  *models.Accommodation  `json:"accommodation"`
	Availability   *models.Availability   `json:"availability"`
}

// apply merges the set fields into o.
func (in UpdateOfferInput) apply(o *models.SwapOffer) {
	if in.Category != nil {
		o.Category = *in.Category
	}
	if in.Subcategory != nil {
		o.Subcategory = *in.Subcategory
	}
	if in.Title != nil {
		o.Title = *in.Title
	}
	if in.Description != nil {
		o.Description = *in.Description
	}
	if in.Tags != nil {
		o.Tags = *in.Tags
	}
	if in.Location != nil {
		o.Location = *in.Location
	}
	if in.WantsInReturn != nil {
		o.WantsInReturn = *in.WantsInReturn
	}
	if in.EstimatedValue != nil {
		o.EstimatedValue = *in.EstimatedValue
	}
	if in.Accommodation != nil {
		o.Accommodation = in.Accommodation
	}
	if in.Availability != nil {
		o.Availability = *in.Availability
	}
	if o.Category != models.CategoryAccommodation {
		o.Accommodation = nil
	}
}
