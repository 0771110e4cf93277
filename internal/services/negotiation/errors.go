package negotiation

import (
	apperr "alumnet/internal/errors"
	"alumnet/internal/models"
)

// Service errors
var (
	ErrForbidden        = apperr.Unauthorized("not a participant of this swap request")
	ErrCannotRequest    = apperr.Unauthorized("not allowed to request swaps")
	ErrNotOfferOwner    = apperr.Unauthorized("only the offer owner may respond to this request")
	ErrNotRequester     = apperr.Unauthorized("only the requester may confirm this request")
	ErrOwnProposal      = apperr.Unauthorized("a proposal must be answered by the other participant")
	ErrOwnOffer         = apperr.Validation("OWN_OFFER", "cannot request your own offer")
	ErrOfferUnavailable = apperr.Conflict("OFFER_UNAVAILABLE", "offer is not accepting requests")
	ErrInvalidDecision  = apperr.Validation("INVALID_DECISION", "decision must be accepted, rejected or negotiating")
	ErrNoChanges        = apperr.Validation("NO_CHANGES", "a negotiation must propose at least one change")
	ErrEmptyMessage     = apperr.Validation("EMPTY_MESSAGE", "message text is required")
)

func illegalTransition(op string, status models.RequestStatus) error {
	return apperr.Conflict("ILLEGAL_TRANSITION", "cannot %s a request that is %s", op, status)
}
