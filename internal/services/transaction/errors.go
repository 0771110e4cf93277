package transaction

import (
	apperr "alumnet/internal/errors"
	"alumnet/internal/models"
)

// Service errors
var (
	ErrForbidden        = apperr.Unauthorized("not a participant of this swap transaction")
	ErrInvalidRecipient = apperr.Validation("INVALID_RECIPIENT", "feedback must go to the other participant")
	ErrRequestMismatch  = apperr.Validation("REQUEST_OFFER_MISMATCH", "request does not belong to this offer")
)

func illegalTransition(op string, status models.TransactionStatus) error {
	return apperr.Conflict("ILLEGAL_TRANSITION", "cannot %s a transaction that is %s", op, status)
}
