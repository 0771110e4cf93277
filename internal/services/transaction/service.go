package transaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"alumnet/internal/access"
	"alumnet/internal/events"
	"alumnet/internal/logger"
	"alumnet/internal/models"
	"alumnet/internal/repositories"
	"alumnet/internal/services/dispute"
	"alumnet/internal/services/rating"
	"alumnet/internal/validation"

	"github.com/google/uuid"
)

type service struct {
	repo    repositories.TransactionRepository
	users   UserStats
	ratings rating.Aggregator
	policy  access.Policy
	events  events.Emitter
	metrics MetricsCollector
	log     *logger.Logger
	now     func() time.Time
}

// NewService creates the ledger. policy, emitter, metrics and log are optional.
func NewService(
	repo repositories.TransactionRepository,
	users UserStats,
	ratings rating.Aggregator,
	policy access.Policy,
	emitter events.Emitter,
	metrics MetricsCollector,
	log *logger.Logger,
) Service {
	if repo == nil {
		panic("transaction repository is required")
	}
	if users == nil {
		panic("user store is required")
	}
	if ratings == nil {
		panic("rating aggregator is required")
	}

	// Metrics is optional, create no-op collector if nil
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}

	return &service{
		repo:    repo,
		users:   users,
		ratings: ratings,
		policy:  access.OrDefault(policy),
		events:  events.OrNop(emitter),
		metrics: metrics,
		log:     logger.OrNop(log).With("component", "ledger"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Open(ctx context.Context, req *models.SwapRequest, offer *models.SwapOffer) (*models.SwapTransaction, error) {
	if req.OfferID != offer.ID {
		return nil, ErrRequestMismatch
	}

	now := s.now()
	ownerGives := offerExchange(offer)
	requesterGives := returnExchange(req.OfferInReturn)
	t := &models.SwapTransaction{
		RequestID:   req.ID,
		OfferID:     offer.ID,
		RequesterID: req.RequesterID,
		OwnerID:     req.OfferOwnerID,
		Participants: []models.Participant{
			{UserID: req.RequesterID, Role: models.RoleRequester, Offered: requesterGives, Received: ownerGives},
			{UserID: req.OfferOwnerID, Role: models.RoleOfferOwner, Offered: ownerGives, Received: requesterGives},
		},
		Timeline: models.TransactionTimeline{
			StartedAt:     &now,
			ExpectedEndAt: req.Timeline.ProposedEndDate,
		},
		Status: models.TransactionInProgress,
	}

	stored, created, err := s.repo.CreateOnce(ctx, t)
	if err != nil {
		s.metrics.RecordOperationResult(OpOpen, ResultFailure)
		return nil, err
	}
	if created {
		s.metrics.RecordOperationResult(OpOpen, ResultSuccess)
		s.metrics.RecordTransactionOpened(stored.ValueExchange.IsBalanced, stored.ValueExchange.TotalValue)
		s.emit(ctx, events.New(events.TransactionOpened, stored.ID, uuid.Nil, stored.Stakeholders()...).
			WithData("request_id", stored.RequestID).
			WithData("is_balanced", stored.ValueExchange.IsBalanced))
		s.log.Info("transaction opened", "transaction_id", stored.ID, "request_id", req.ID,
			"total_value", stored.ValueExchange.TotalValue, "balanced", stored.ValueExchange.IsBalanced)
	}
	return stored, nil
}

func (s *service) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.SwapTransaction, error) {
	return s.load(ctx, actor, id, access.ActionTransactionView)
}

func (s *service) GetByRequest(ctx context.Context, requestID uuid.UUID) (*models.SwapTransaction, error) {
	return s.repo.GetByRequestID(ctx, requestID)
}

func (s *service) List(ctx context.Context, actor access.Actor, filter ListFilter) ([]models.SwapTransaction, int64, error) {
	if !actor.IsActive() {
		return nil, 0, ErrForbidden
	}
	return s.repo.List(ctx, repositories.TransactionFilter{
		UserID: actor.UserID,
		Status: filter.Status,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

func (s *service) AddFeedback(ctx context.Context, actor access.Actor, id uuid.UUID, in FeedbackInput) (*models.Feedback, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := rating.Validate(in.Rating); err != nil {
		return nil, err
	}
	to, err := uuid.Parse(in.ToUserID)
	if err != nil {
		return nil, ErrInvalidRecipient
	}

	t, err := s.load(ctx, actor, id, access.ActionTransactionFeedback)
	if err != nil {
		return nil, err
	}
	if to == actor.UserID || !t.IsParticipant(to) {
		return nil, ErrInvalidRecipient
	}
	if !statusIn(t.Status, feedbackStatuses) {
		return nil, illegalTransition("rate", t.Status)
	}

	fb := &models.Feedback{
		TransactionID: t.ID,
		FromUserID:    actor.UserID,
		ToUserID:      to,
		Rating:        in.Rating,
		Comment:       strings.TrimSpace(in.Comment),
		Categories:    in.Categories,
		SubmittedAt:   s.now(),
	}
	// the feedback row and both aggregates commit together
	err = s.repo.ExecuteInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.AddFeedback(ctx, fb); err != nil {
			return err
		}
		return s.ratings.ApplyFeedback(ctx, rating.FeedbackApplied{
			ToUserID:     to,
			Rating:       in.Rating,
			OfferID:      t.OfferID,
			OfferOwnerID: t.OwnerID,
		})
	})
	if err != nil {
		s.metrics.RecordOperationResult(OpFeedback, ResultFailure)
		return nil, err
	}

	s.metrics.RecordOperationResult(OpFeedback, ResultSuccess)
	s.metrics.RecordFeedback(in.Rating)
	s.emit(ctx, events.New(events.FeedbackSubmitted, t.ID, actor.UserID, to).
		WithData("rating", in.Rating))
	return fb, nil
}

func (s *service) GetFeedbackBetween(ctx context.Context, id, userA, userB uuid.UUID) ([]models.Feedback, error) {
	return s.repo.FeedbackBetween(ctx, id, userA, userB)
}

func (s *service) ListFeedback(ctx context.Context, actor access.Actor, id uuid.UUID) ([]models.Feedback, error) {
	t, err := s.load(ctx, actor, id, access.ActionTransactionView)
	if err != nil {
		return nil, err
	}
	return s.repo.ListFeedback(ctx, t.ID)
}

func (s *service) Complete(ctx context.Context, actor access.Actor, id uuid.UUID, in CompleteInput) (*models.SwapTransaction, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	t, err := s.load(ctx, actor, id, access.ActionTransactionUpdate)
	if err != nil {
		return nil, err
	}
	if t.Status != models.TransactionInProgress {
		return nil, illegalTransition("complete", t.Status)
	}

	now := s.now()
	by := actor.UserID
	t.Completion = models.TransactionCompletion{
		CompletedAt:  &now,
		CompletedBy:  &by,
		Notes:        strings.TrimSpace(in.Notes),
		Deliverables: in.Deliverables,
	}
	t.Timeline.EndedAt = &now
	t.Status = models.TransactionCompleted
	err = s.repo.ExecuteInTransaction(ctx, func(ctx context.Context) error {
		if err := s.save(ctx, OpComplete, t, models.TransactionInProgress); err != nil {
			return err
		}
		for _, uid := range t.Stakeholders() {
			if err := s.users.IncrementSwapStat(ctx, uid, models.StatTotalCompleted, 1); err != nil {
				return fmt.Errorf("failed to bump total_completed: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.New(events.TransactionCompleted, t.ID, actor.UserID, t.Stakeholders()...))
	return t, nil
}

func (s *service) Cancel(ctx context.Context, actor access.Actor, id uuid.UUID, reason string) (*models.SwapTransaction, error) {
	t, err := s.load(ctx, actor, id, access.ActionTransactionUpdate)
	if err != nil {
		return nil, err
	}
	if !statusIn(t.Status, cancellableStatuses) {
		return nil, illegalTransition("cancel", t.Status)
	}

	from := t.Status
	now := s.now()
	t.Timeline.EndedAt = &now
	t.Completion.Notes = strings.TrimSpace(reason)
	t.Status = models.TransactionCancelled
	if err := s.save(ctx, OpCancel, t, from); err != nil {
		return nil, err
	}
	s.emit(ctx, events.New(events.TransactionCancelled, t.ID, actor.UserID, t.Stakeholders()...))
	return t, nil
}

func (s *service) AdjustOffered(ctx context.Context, actor access.Actor, id uuid.UUID, value models.EstimatedValue) (*models.SwapTransaction, error) {
	v := validation.New()
	v.EstimatedValue("estimated_value", value)
	if err := v.Err(); err != nil {
		return nil, err
	}
	t, err := s.load(ctx, actor, id, access.ActionTransactionUpdate)
	if err != nil {
		return nil, err
	}
	if t.Status != models.TransactionInProgress {
		return nil, illegalTransition("adjust", t.Status)
	}
	if !t.SetOffered(actor.UserID, value) {
		return nil, ErrForbidden
	}
	// SaveTransition recomputes the value exchange in the same write
	if err := s.save(ctx, OpAdjust, t, models.TransactionInProgress); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) RaiseDispute(ctx context.Context, actor access.Actor, id uuid.UUID, in dispute.RaiseInput) (*models.SwapTransaction, error) {
	t, err := s.load(ctx, actor, id, access.ActionTransactionDispute)
	if err != nil {
		return nil, err
	}
	if !statusIn(t.Status, disputableStatuses) {
		return nil, illegalTransition("dispute", t.Status)
	}
	if err := dispute.Raise(&t.Dispute, actor.UserID, in, s.now()); err != nil {
		return nil, err
	}

	from := t.Status
	t.Status = models.TransactionDisputed
	if err := s.save(ctx, OpDispute, t, from); err != nil {
		return nil, err
	}
	s.emit(ctx, events.New(events.DisputeRaised, t.ID, actor.UserID, t.Stakeholders()...).
		WithData("scope", "transaction").
		WithData("reason", t.Dispute.Reason))
	s.log.Warn("transaction disputed", "transaction_id", t.ID, "raised_by", actor.UserID, "reason", t.Dispute.Reason)
	return t, nil
}

func (s *service) ResolveDispute(ctx context.Context, actor access.Actor, id uuid.UUID, in dispute.ResolveInput) (*models.SwapTransaction, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanPerform(actor, access.ActionDisputeResolve, t) {
		return nil, ErrForbidden
	}
	if t.Status != models.TransactionDisputed {
		return nil, illegalTransition("resolve a dispute on", t.Status)
	}
	if err := dispute.Resolve(&t.Dispute, actor.UserID, in, s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, OpResolve, t, models.TransactionDisputed); err != nil {
		return nil, err
	}
	s.emit(ctx, events.New(events.DisputeResolved, t.ID, actor.UserID, t.Stakeholders()...).
		WithData("scope", "transaction").
		WithData("status", t.Dispute.Status))
	return t, nil
}

func (s *service) load(ctx context.Context, actor access.Actor, id uuid.UUID, action access.Action) (*models.SwapTransaction, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanPerform(actor, action, t) {
		return nil, ErrForbidden
	}
	return t, nil
}

// emit publishes ev once the surrounding database transaction, if any, commits.
func (s *service) emit(ctx context.Context, ev events.Event) {
	repositories.AfterCommit(ctx, func() {
		s.events.Emit(context.WithoutCancel(ctx), ev)
	})
}

func (s *service) save(ctx context.Context, op string, t *models.SwapTransaction, from models.TransactionStatus) error {
	if err := s.repo.SaveTransition(ctx, t, from); err != nil {
		s.metrics.RecordOperationResult(op, ResultFailure)
		return err
	}
	s.metrics.RecordOperationResult(op, ResultSuccess)
	return nil
}

func offerExchange(o *models.SwapOffer) models.Exchange {
	return models.Exchange{
		Title:          o.Title,
		Description:    o.Description,
		Category:       o.Category,
		EstimatedValue: o.EstimatedValue,
	}
}

func returnExchange(r models.OfferInReturn) models.Exchange {
	return models.Exchange{
		Title:          r.Title,
		Description:    r.Description,
		Category:       r.Category,
		EstimatedValue: r.EstimatedValue,
	}
}
