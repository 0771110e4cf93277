package negotiation

import (
	"context"
	"strings"
	"time"

	"alumnet/internal/access"
	apperr "alumnet/internal/errors"
	"alumnet/internal/events"
	"alumnet/internal/logger"
	"alumnet/internal/models"
	"alumnet/internal/repositories"
	"alumnet/internal/validation"

	"github.com/google/uuid"
)

type service struct {
	requests repositories.RequestRepository
	offers   OfferCatalog
	ledger   Ledger
	users    UserStats
	policy   access.Policy
	events   events.Emitter
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates the negotiation engine. policy, emitter and log are optional.
func NewService(
	requests repositories.RequestRepository,
	offers OfferCatalog,
	ledger Ledger,
	users UserStats,
	policy access.Policy,
	emitter events.Emitter,
	log *logger.Logger,
) Service {
	if requests == nil {
		panic("request repository is required")
	}
	if offers == nil {
		panic("offer catalog is required")
	}
	if ledger == nil {
		panic("ledger is required")
	}
	if users == nil {
		panic("user store is required")
	}
	return &service{
		requests: requests,
		offers:   offers,
		ledger:   ledger,
		users:    users,
		policy:   access.OrDefault(policy),
		events:   events.OrNop(emitter),
		log:      logger.OrNop(log).With("component", "negotiation"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) CreateRequest(ctx context.Context, actor access.Actor, offerID uuid.UUID, in CreateRequestInput) (*models.SwapRequest, error) {
	if !actor.IsActive() || !actor.HasPermission(models.PermissionSwapWrite) {
		return nil, ErrCannotRequest
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	req := &models.SwapRequest{
		RequesterID:   actor.UserID,
		OfferID:       offerID,
		OfferInReturn: in.OfferInReturn,
		Message:       strings.TrimSpace(in.Message),
		ProposedTerms: strings.TrimSpace(in.ProposedTerms),
		Timeline: models.RequestTimeline{
			ProposedStartDate: in.ProposedStartDate,
			ProposedEndDate:   in.ProposedEndDate,
		},
	}
	req.OfferInReturn.Title = strings.TrimSpace(req.OfferInReturn.Title)
	if req.OfferInReturn.EstimatedValue.Currency == "" {
		req.OfferInReturn.EstimatedValue.Currency = "USD"
	}

	v := validation.New()
	v.SwapRequest(req)
	if err := v.Err(); err != nil {
		return nil, err
	}

	now := s.now()
	offer, err := s.requests.CreateForOffer(ctx, req, func(o *models.SwapOffer) error {
		if o.OwnerID == actor.UserID {
			return ErrOwnOffer
		}
		if !o.IsAvailable(now) {
			return ErrOfferUnavailable
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.offers.RecordRequestOpened(ctx, offer.ID); err != nil {
		s.log.Warn("failed to bump offer requests", "offer_id", offer.ID, "error", err)
	}
	if err := s.users.IncrementSwapStat(ctx, actor.UserID, models.StatTotalRequests, 1); err != nil {
		s.log.Warn("failed to bump total_requests", "user_id", actor.UserID, "error", err)
	}

	s.emit(ctx, events.New(events.RequestCreated, req.ID, actor.UserID, req.OfferOwnerID).
		WithData("offer_id", offer.ID).
		WithData("offer_title", offer.Title))
	s.log.Info("swap request created", "request_id", req.ID, "offer_id", offer.ID, "requester_id", actor.UserID)
	return req, nil
}

func (s *service) GetRequest(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.SwapRequest, error) {
	return s.load(ctx, actor, id, access.ActionRequestView)
}

func (s *service) ListRequests(ctx context.Context, actor access.Actor, filter repositories.RequestFilter) ([]models.SwapRequest, int64, error) {
	if !actor.IsActive() {
		return nil, 0, ErrForbidden
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperr.Validation("INVALID_STATUS", "unknown request status %q", filter.Status)
	}
	filter.UserID = actor.UserID
	return s.requests.List(ctx, filter)
}

func (s *service) Respond(ctx context.Context, actor access.Actor, id uuid.UUID, in RespondInput) (*models.SwapRequest, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if !statusIn(in.Decision, respondDecisions) {
		return nil, ErrInvalidDecision
	}
	req, err := s.load(ctx, actor, id, access.ActionRequestRespond)
	if err != nil {
		return nil, err
	}
	if err := s.requireLiveOwner(ctx, actor, req); err != nil {
		return nil, err
	}
	if req.Status != models.RequestPending {
		return nil, illegalTransition("respond to", req.Status)
	}

	req.SetStatus(in.Decision)
	err = s.requests.ExecuteInTransaction(ctx, func(ctx context.Context) error {
		if err := s.requests.SaveTransition(ctx, req, models.RequestPending); err != nil {
			return err
		}
		text := strings.TrimSpace(in.Message)
		if text == "" {
			return nil
		}
		return s.requests.AppendMessage(ctx, &models.RequestMessage{RequestID: req.ID, SenderID: actor.UserID, Text: text})
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.New(events.RequestResponded, req.ID, actor.UserID, req.RequesterID).
		WithData("decision", in.Decision))
	s.log.Info("swap request answered", "request_id", req.ID, "decision", in.Decision)
	return req, nil
}

func (s *service) AddNegotiation(ctx context.Context, actor access.Actor, id uuid.UUID, in NegotiationInput) (*models.Negotiation, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	changes := changesFrom(in)
	if len(changes) == 0 {
		return nil, ErrNoChanges
	}

	req, err := s.load(ctx, actor, id, access.ActionRequestNegotiate)
	if err != nil {
		return nil, err
	}
	if !statusIn(req.Status, negotiableStatuses) {
		return nil, illegalTransition("negotiate", req.Status)
	}

	// the proposal must leave a valid timeline behind if accepted
	preview := *req
	if err := applyChanges(&preview, changes); err != nil {
		return nil, err
	}
	v := validation.New()
	v.Before("timeline", preview.Timeline.ProposedStartDate, preview.Timeline.ProposedEndDate)
	if err := v.Err(); err != nil {
		return nil, err
	}

	n := &models.Negotiation{
		RequestID:  req.ID,
		ProposedBy: actor.UserID,
		Changes:    changes,
		Note:       strings.TrimSpace(in.Note),
		Status:     models.NegotiationProposed,
	}
	if err := s.requests.AppendNegotiation(ctx, n); err != nil {
		return nil, err
	}

	s.emit(ctx, events.New(events.RequestNegotiation, req.ID, actor.UserID, req.Counterpart(actor.UserID)).
		WithData("seq", n.Seq))
	return n, nil
}

func (s *service) RespondToNegotiation(ctx context.Context, actor access.Actor, id uuid.UUID, seq int, accept bool) (*models.SwapRequest, error) {
	req, err := s.load(ctx, actor, id, access.ActionRequestNegotiate)
	if err != nil {
		return nil, err
	}
	n, err := s.requests.GetNegotiation(ctx, req.ID, seq)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, illegalTransition("negotiate on", req.Status)
	}
	if n.ProposedBy == actor.UserID {
		return nil, ErrOwnProposal
	}
	if n.Status != models.NegotiationProposed {
		return nil, apperr.Conflict("NEGOTIATION_ALREADY_RESOLVED", "negotiation entry was already %s", n.Status)
	}

	now := s.now()
	by := actor.UserID
	n.RespondedBy = &by
	n.RespondedAt = &now

	if !accept {
		n.Status = models.NegotiationRejected
		if err := s.requests.ResolveNegotiation(ctx, n); err != nil {
			return nil, err
		}
		s.emit(ctx, events.New(events.RequestNegotiation, req.ID, actor.UserID, n.ProposedBy).
			WithData("seq", n.Seq).
			WithData("status", n.Status))
		return req, nil
	}

	if !statusIn(req.Status, confirmableStatuses) {
		return nil, illegalTransition("confirm", req.Status)
	}
	if err := applyChanges(req, n.Changes); err != nil {
		return nil, err
	}
	from := req.Status
	req.SetStatus(models.RequestConfirmed)
	n.Status = models.NegotiationAccepted
	err = s.requests.ExecuteInTransaction(ctx, func(ctx context.Context) error {
		if err := s.requests.AcceptNegotiation(ctx, req, from, n); err != nil {
			return err
		}
		return s.confirmed(ctx, actor, req)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *service) ListNegotiations(ctx context.Context, actor access.Actor, id uuid.UUID) ([]models.Negotiation, error) {
	if _, err := s.load(ctx, actor, id, access.ActionRequestView); err != nil {
		return nil, err
	}
	return s.requests.ListNegotiations(ctx, id)
}

func (s *service) Confirm(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.SwapRequest, error) {
	req, err := s.load(ctx, actor, id, access.ActionRequestProgress)
	if err != nil {
		return nil, err
	}
	if actor.UserID != req.RequesterID {
		return nil, ErrNotRequester
	}
	if req.Status != models.RequestAccepted {
		return nil, illegalTransition("confirm", req.Status)
	}

	req.SetStatus(models.RequestConfirmed)
	err = s.requests.ExecuteInTransaction(ctx, func(ctx context.Context) error {
		if err := s.requests.SaveTransition(ctx, req, models.RequestAccepted); err != nil {
			return err
		}
		return s.confirmed(ctx, actor, req)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// confirmed opens the ledger entry for a request that just reached confirmed.
func (s *service) confirmed(ctx context.Context, actor access.Actor, req *models.SwapRequest) error {
	if _, err := s.ensureTransaction(ctx, req); err != nil {
		return err
	}
	s.emit(ctx, events.New(events.RequestConfirmed, req.ID, actor.UserID, req.Stakeholders()...))
	s.log.Info("swap request confirmed", "request_id", req.ID)
	return nil
}

func (s *service) Start(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.SwapRequest, error) {
	req, err := s.load(ctx, actor, id, access.ActionRequestProgress)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestConfirmed {
		return nil, illegalTransition("start", req.Status)
	}

	now := s.now()
	req.Timeline.ActualStartDate = &now
	req.SetStatus(models.RequestInProgress)
	err = s.requests.ExecuteInTransaction(ctx, func(ctx context.Context) error {
		if err := s.requests.SaveTransition(ctx, req, models.RequestConfirmed); err != nil {
			return err
		}
		_, err := s.ensureTransaction(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.New(events.RequestStarted, req.ID, actor.UserID, req.Counterpart(actor.UserID)))
	return req, nil
}

func (s *service) AddMessage(ctx context.Context, actor access.Actor, id uuid.UUID, text string) (*models.RequestMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if len([]rune(text)) > validation.MaxMessageLength {
		return nil, apperr.Validation("MESSAGE_TOO_LONG", "message must be at most %d characters", validation.MaxMessageLength)
	}
	req, err := s.load(ctx, actor, id, access.ActionRequestMessage)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, illegalTransition("message on", req.Status)
	}

	msg := &models.RequestMessage{RequestID: req.ID, SenderID: actor.UserID, Text: text}
	if err := s.requests.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.emit(ctx, events.New(events.RequestMessage, req.ID, actor.UserID, req.Counterpart(actor.UserID)).
		WithData("seq", msg.Seq))
	return msg, nil
}

func (s *service) ListMessages(ctx context.Context, actor access.Actor, id uuid.UUID) ([]models.RequestMessage, error) {
	if _, err := s.load(ctx, actor, id, access.ActionRequestView); err != nil {
		return nil, err
	}
	return s.requests.ListMessages(ctx, id)
}

func (s *service) MarkMessagesRead(ctx context.Context, actor access.Actor, id uuid.UUID) (int64, error) {
	if _, err := s.load(ctx, actor, id, access.ActionRequestMessage); err != nil {
		return 0, err
	}
	return s.requests.MarkMessagesRead(ctx, id, actor.UserID)
}

func (s *service) load(ctx context.Context, actor access.Actor, id uuid.UUID, action access.Action) (*models.SwapRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanPerform(actor, action, req) {
		return nil, ErrForbidden
	}
	return req, nil
}

// requireLiveOwner checks the actor against the offer as it is now, not
// only against the owner recorded on the request.
func (s *service) requireLiveOwner(ctx context.Context, actor access.Actor, req *models.SwapRequest) error {
	if actor.UserID != req.OfferOwnerID {
		return ErrNotOfferOwner
	}
	offer, err := s.offers.GetOffer(ctx, req.OfferID)
	if err != nil {
		return err
	}
	if offer.OwnerID != actor.UserID {
		return ErrNotOfferOwner
	}
	return nil
}

// emit publishes ev once the surrounding database transaction, if any, commits.
func (s *service) emit(ctx context.Context, ev events.Event) {
	repositories.AfterCommit(ctx, func() {
		s.events.Emit(context.WithoutCancel(ctx), ev)
	})
}

// ensureTransaction returns the request's transaction, opening it if needed.
func (s *service) ensureTransaction(ctx context.Context, req *models.SwapRequest) (*models.SwapTransaction, error) {
	tx, err := s.ledger.GetByRequest(ctx, req.ID)
	if err == nil {
		return tx, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}
	offer, err := s.offers.GetOffer(ctx, req.OfferID)
	if err != nil {
		return nil, err
	}
	return s.ledger.Open(ctx, req, offer)
}
