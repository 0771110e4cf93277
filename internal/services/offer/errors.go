package offer

import apperr "alumnet/internal/errors"

// Service errors
var (
	ErrOfferNotFound     = apperr.NotFound("offer")
	ErrForbidden         = apperr.Unauthorized("not allowed to modify this offer")
	ErrCannotCreate      = apperr.Unauthorized("not allowed to create offers")
	ErrInvalidRating     = apperr.Validation("INVALID_RATING", "rating must be between 1 and 5")
	ErrInvalidStatus     = apperr.Validation("INVALID_STATUS", "unknown offer status")
	ErrIllegalTransition = apperr.Conflict("ILLEGAL_STATUS_TRANSITION", "offer status change not allowed")
)
