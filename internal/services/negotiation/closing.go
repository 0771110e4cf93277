package negotiation

import (
	"context"
	"strings"

	"alumnet/internal/access"
	apperr "alumnet/internal/errors"
	"alumnet/internal/events"
	"alumnet/internal/models"
	"alumnet/internal/services/dispute"
	"alumnet/internal/services/rating"
	"alumnet/internal/services/transaction"
	"alumnet/internal/validation"

	"github.com/google/uuid"
)

func (s *service) Complete(ctx context.Context, actor access.Actor, id uuid.UUID, in CompleteRequestInput) (*models.SwapRequest, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.Rating != nil {
		if err := rating.Validate(*in.Rating); err != nil {
			return nil, err
		}
	}
	req, err := s.load(ctx, actor, id, access.ActionRequestProgress)
	if err != nil {
		return nil, err
	}
	if !statusIn(req.Status, completableStatuses) {
		return nil, illegalTransition("complete", req.Status)
	}

	now := s.now()
	by := actor.UserID
	from := req.Status
	if req.Timeline.ActualStartDate == nil {
		req.Timeline.ActualStartDate = &now
	}
	req.Timeline.ActualEndDate = &now
	req.Completion.CompletedBy = &by
	req.Completion.CompletedAt = &now
	req.Completion.Notes = strings.TrimSpace(in.Notes)
	if in.Rating != nil {
		note := &models.FeedbackNote{Rating: *in.Rating, Comment: strings.TrimSpace(in.Comment), SubmittedAt: now}
		if actor.UserID == req.RequesterID {
			req.Completion.RequesterToOwner = note
		} else {
			req.Completion.OwnerToRequester = note
		}
	}
	req.SetStatus(models.RequestCompleted)

	// the request, its transaction and the optional feedback commit together
	var tx *models.SwapTransaction
	err = s.requests.ExecuteInTransaction(ctx, func(ctx context.Context) error {
		if err := s.requests.SaveTransition(ctx, req, from); err != nil {
			return err
		}
		open, err := s.ensureTransaction(ctx, req)
		if err != nil {
			return err
		}
		if tx, err = s.completeTransaction(ctx, actor, open, req.Completion.Notes); err != nil {
			return err
		}
		if in.Rating == nil {
			return nil
		}
		_, err = s.ledger.AddFeedback(ctx, actor, tx.ID, transaction.FeedbackInput{
			ToUserID: req.Counterpart(actor.UserID).String(),
			Rating:   *in.Rating,
			Comment:  strings.TrimSpace(in.Comment),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.New(events.RequestCompleted, req.ID, actor.UserID, req.Stakeholders()...).
		WithData("transaction_id", tx.ID))
	s.log.Info("swap request completed", "request_id", req.ID, "transaction_id", tx.ID)
	return req, nil
}

// completeTransaction closes an in-progress transaction. Losing the race to
// the other participant counts as success once the stored row is completed.
func (s *service) completeTransaction(ctx context.Context, actor access.Actor, tx *models.SwapTransaction, notes string) (*models.SwapTransaction, error) {
	if tx.Status != models.TransactionInProgress {
		return tx, nil
	}
	done, err := s.ledger.Complete(ctx, actor, tx.ID, transaction.CompleteInput{Notes: notes})
	if err == nil {
		return done, nil
	}
	if !apperr.IsConflict(err) && !apperr.IsConcurrency(err) {
		return nil, err
	}
	current, getErr := s.ledger.GetByRequest(ctx, tx.RequestID)
	if getErr != nil {
		return nil, getErr
	}
	if current.Status != models.TransactionCompleted {
		return nil, err
	}
	return current, nil
}

func (s *service) Cancel(ctx context.Context, actor access.Actor, id uuid.UUID, reason string) (*models.SwapRequest, error) {
	req, err := s.load(ctx, actor, id, access.ActionRequestCancel)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, illegalTransition("cancel", req.Status)
	}

	from := req.Status
	now := s.now()
	by := actor.UserID
	req.Completion.CompletedBy = &by
	req.Completion.CompletedAt = &now
	req.Completion.Notes = strings.TrimSpace(reason)
	req.SetStatus(models.RequestCancelled)
	err = s.requests.ExecuteInTransaction(ctx, func(ctx context.Context) error {
		if err := s.requests.SaveTransition(ctx, req, from); err != nil {
			return err
		}
		tx, err := s.ledger.GetByRequest(ctx, req.ID)
		if apperr.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if tx.Status == models.TransactionPending || tx.Status == models.TransactionInProgress {
			_, err = s.ledger.Cancel(ctx, actor, tx.ID, reason)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.New(events.RequestCancelled, req.ID, actor.UserID, req.Counterpart(actor.UserID)))
	return req, nil
}

// RaiseDispute is allowed from every non-terminal status, pending included.
func (s *service) RaiseDispute(ctx context.Context, actor access.Actor, id uuid.UUID, in dispute.RaiseInput) (*models.SwapRequest, error) {
	req, err := s.load(ctx, actor, id, access.ActionRequestDispute)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, illegalTransition("dispute", req.Status)
	}
	if err := dispute.Raise(&req.Dispute, actor.UserID, in, s.now()); err != nil {
		return nil, err
	}

	from := req.Status
	req.SetStatus(models.RequestDisputed)
	err = s.requests.ExecuteInTransaction(ctx, func(ctx context.Context) error {
		if err := s.requests.SaveTransition(ctx, req, from); err != nil {
			return err
		}
		// an open transaction follows its request into dispute
		tx, err := s.ledger.GetByRequest(ctx, req.ID)
		if apperr.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if tx.Status == models.TransactionDisputed {
			return nil
		}
		if _, err := s.ledger.RaiseDispute(ctx, actor, tx.ID, in); err != nil && !apperr.IsConflict(err) {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.New(events.DisputeRaised, req.ID, actor.UserID, req.Stakeholders()...).
		WithData("scope", "request").
		WithData("reason", req.Dispute.Reason))
	s.log.Warn("swap request disputed", "request_id", req.ID, "raised_by", actor.UserID, "from", from)
	return req, nil
}

func (s *service) ResolveDispute(ctx context.Context, actor access.Actor, id uuid.UUID, in dispute.ResolveInput) (*models.SwapRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanPerform(actor, access.ActionDisputeResolve, req) {
		return nil, ErrForbidden
	}
	if req.Status != models.RequestDisputed {
		return nil, illegalTransition("resolve a dispute on", req.Status)
	}
	if err := dispute.Resolve(&req.Dispute, actor.UserID, in, s.now()); err != nil {
		return nil, err
	}
	if err := s.requests.SaveTransition(ctx, req, models.RequestDisputed); err != nil {
		return nil, err
	}
	s.emit(ctx, events.New(events.DisputeResolved, req.ID, actor.UserID, req.Stakeholders()...).
		WithData("scope", "request").
		WithData("status", req.Dispute.Status))
	return req, nil
}
