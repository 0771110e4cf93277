package offer

import "alumnet/internal/models"

// ownerTransitions lists the statuses an owner may move an offer to.
// completed has no entry: only moderators can reopen it.
var ownerTransitions = map[models.OfferStatus][]models.OfferStatus{
	models.OfferActive:   {models.OfferInactive, models.OfferPaused, models.OfferCompleted},
	models.OfferPaused:   {models.OfferActive, models.OfferInactive, models.OfferCompleted},
	models.OfferInactive: {models.OfferActive, models.OfferCompleted},
}

// CanTransition reports whether an owner may move an offer from one status to another.
func CanTransition(from, to models.OfferStatus) bool {
	for _, s := range ownerTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

const (
	DefaultCurrency = "USD"
	MaxPageSize     = 100
)
