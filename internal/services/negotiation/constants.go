package negotiation

import "alumnet/internal/models"

// Keys of a negotiation entry's changes document.
const (
	ChangeProposedTerms      = "proposed_terms"
	ChangeProposedStartDate  = "proposed_start_date"
	ChangeProposedEndDate    = "proposed_end_date"
	ChangeOfferInReturnValue = "offer_in_return_value"
)

// respondDecisions are the outcomes an owner may pick for a pending request.
var respondDecisions = []models.RequestStatus{
	models.RequestAccepted,
	models.RequestRejected,
	models.RequestNegotiating,
}

// negotiableStatuses accept new negotiation entries.
var negotiableStatuses = []models.RequestStatus{
	models.RequestPending,
	models.RequestAccepted,
	models.RequestNegotiating,
}

// confirmableStatuses may move to confirmed.
var confirmableStatuses = []models.RequestStatus{
	models.RequestAccepted,
	models.RequestNegotiating,
}

// completableStatuses may move to completed; confirmed auto-advances.
var completableStatuses = []models.RequestStatus{
	models.RequestInProgress,
	models.RequestConfirmed,
}

func statusIn(s models.RequestStatus, set []models.RequestStatus) bool {
	for _, c := range set {
		if s == c {
			return true
		}
	}
	return false
}
