// Package dispute holds the dispute rules shared by swap requests and
// swap transactions. It mutates the embedded models.Dispute in place; the
// caller persists the owning record.
package dispute

import (
	"strings"
	"time"

	apperr "alumnet/internal/errors"
	"alumnet/internal/models"

	"github.com/google/uuid"
)

const maxReasonLength = 120

type RaiseInput struct {
	Reason      string `json:"reason" validate:"required,max=120"`
	Description string `json:"description" validate:"max=4000"`
}

type ResolveInput struct {
	Status     models.DisputeStatus `json:"status" validate:"required"`
	Resolution string               `json:"resolution" validate:"max=4000"`
}

// Raise opens a dispute. A settled dispute may be raised again.
func Raise(d *models.Dispute, by uuid.UUID, in RaiseInput, now time.Time) error {
	if d.Raised() && !d.Settled() {
		return apperr.Conflict("DISPUTE_OPEN", "a dispute is already open")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return apperr.Validation("REASON_REQUIRED", "dispute reason is required")
	}
	if len(reason) > maxReasonLength {
		return apperr.Validation("REASON_TOO_LONG", "dispute reason must be at most %d characters", maxReasonLength)
	}

	raisedAt := now
	*d = models.Dispute{
		RaisedBy:    &by,
		RaisedAt:    &raisedAt,
		Reason:      reason,
		Description: strings.TrimSpace(in.Description),
		Status:      models.DisputeOpen,
	}
	return nil
}

// Resolve moves an open dispute forward. resolved and closed are final.
func Resolve(d *models.Dispute, by uuid.UUID, in ResolveInput, now time.Time) error {
	if !d.Raised() {
		return apperr.Conflict("NO_DISPUTE", "no dispute has been raised")
	}
	if d.Settled() {
		return apperr.Conflict("DISPUTE_SETTLED", "dispute is already %s", d.Status)
	}

	switch in.Status {
	case models.DisputeUnderReview:
		d.Status = in.Status
		if r := strings.TrimSpace(in.Resolution); r != "" {
			d.Resolution = r
		}
		return nil
	case models.DisputeResolved, models.DisputeClosed:
	default:
		return apperr.Validation("INVALID_DISPUTE_STATUS",
			"status must be one of under_review, resolved, closed")
	}

	resolution := strings.TrimSpace(in.Resolution)
	if in.Status == models.DisputeResolved && resolution == "" {
		return apperr.Validation("RESOLUTION_REQUIRED", "a resolution note is required to resolve a dispute")
	}
	resolvedAt := now
	d.Status = in.Status
	d.Resolution = resolution
	d.ResolvedBy = &by
	d.ResolvedAt = &resolvedAt
	return nil
}
