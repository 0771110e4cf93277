package negotiation

import (
	"strings"
	"time"

	apperr "alumnet/internal/errors"
	"alumnet/internal/models"
)

// changesFrom flattens a proposal into the stored changes document.
// Dates are kept as RFC 3339 strings so they survive the JSON column.
func changesFrom(in NegotiationInput) models.JSON {
	changes := models.JSON{}
	if in.ProposedTerms != nil {
		changes[ChangeProposedTerms] = strings.TrimSpace(*in.ProposedTerms)
	}
	if in.ProposedStartDate != nil {
		changes[ChangeProposedStartDate] = in.ProposedStartDate.UTC().Format(time.RFC3339)
	}
	if in.ProposedEndDate != nil {
		changes[ChangeProposedEndDate] = in.ProposedEndDate.UTC().Format(time.RFC3339)
	}
	if in.OfferInReturnValue != nil {
		changes[ChangeOfferInReturnValue] = *in.OfferInReturnValue
	}
	return changes
}

// applyChanges writes an accepted changes document onto req.
func applyChanges(req *models.SwapRequest, changes models.JSON) error {
	if terms, ok := changes.String(ChangeProposedTerms); ok {
		req.ProposedTerms = terms
	}
	for key, dst := range map[string]**time.Time{
		ChangeProposedStartDate: &req.Timeline.ProposedStartDate,
		ChangeProposedEndDate:   &req.Timeline.ProposedEndDate,
	} {
		raw, ok := changes.String(key)
		if !ok {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return apperr.Validation("INVALID_CHANGE", "%s is not a valid date", key)
		}
		*dst = &t
	}
	if raw, ok := changes[ChangeOfferInReturnValue]; ok {
		amount, ok := raw.(float64)
		if !ok || amount < 0 {
			return apperr.Validation("INVALID_CHANGE", "%s must be a non-negative number", ChangeOfferInReturnValue)
		}
		req.OfferInReturn.EstimatedValue.Amount = amount
	}
	return nil
}
