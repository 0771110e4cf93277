package negotiation

import (
	"context"

	"alumnet/internal/access"
	"alumnet/internal/models"
	"alumnet/internal/repositories"
	"alumnet/internal/services/dispute"
	"alumnet/internal/services/transaction"

	"github.com/google/uuid"
)

// Service drives a swap request from proposal to completion.
type Service interface {
	CreateRequest(ctx context.Context, actor access.Actor, offerID uuid.UUID, in CreateRequestInput) (*models.SwapRequest, error)
	GetRequest(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.SwapRequest, error)
	ListRequests(ctx context.Context, actor access.Actor, filter repositories.RequestFilter) ([]models.SwapRequest, int64, error)

	Respond(ctx context.Context, actor access.Actor, id uuid.UUID, in RespondInput) (*models.SwapRequest, error)
	AddNegotiation(ctx context.Context, actor access.Actor, id uuid.UUID, in NegotiationInput) (*models.Negotiation, error)
	RespondToNegotiation(ctx context.Context, actor access.Actor, id uuid.UUID, seq int, accept bool) (*models.SwapRequest, error)
	ListNegotiations(ctx context.Context, actor access.Actor, id uuid.UUID) ([]models.Negotiation, error)
	Confirm(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.SwapRequest, error)
	Start(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.SwapRequest, error)
	Complete(ctx context.Context, actor access.Actor, id uuid.UUID, in CompleteRequestInput) (*models.SwapRequest, error)
	Cancel(ctx context.Context, actor access.Actor, id uuid.UUID, reason string) (*models.SwapRequest, error)

	AddMessage(ctx context.Context, actor access.Actor, id uuid.UUID, text string) (*models.RequestMessage, error)
	ListMessages(ctx context.Context, actor access.Actor, id uuid.UUID) ([]models.RequestMessage, error)
	MarkMessagesRead(ctx context.Context, actor access.Actor, id uuid.UUID) (int64, error)

	RaiseDispute(ctx context.Context, actor access.Actor, id uuid.UUID, in dispute.RaiseInput) (*models.SwapRequest, error)
	ResolveDispute(ctx context.Context, actor access.Actor, id uuid.UUID, in dispute.ResolveInput) (*models.SwapRequest, error)
}

// OfferCatalog is what the engine needs from the offer service.
type OfferCatalog interface {
	GetOffer(ctx context.Context, id uuid.UUID) (*models.SwapOffer, error)
	RecordRequestOpened(ctx context.Context, id uuid.UUID) error
}

// Ledger is what the engine needs from the transaction ledger.
type Ledger interface {
	Open(ctx context.Context, req *models.SwapRequest, offer *models.SwapOffer) (*models.SwapTransaction, error)
	GetByRequest(ctx context.Context, requestID uuid.UUID) (*models.SwapTransaction, error)
	Complete(ctx context.Context, actor access.Actor, id uuid.UUID, in transaction.CompleteInput) (*models.SwapTransaction, error)
	Cancel(ctx context.Context, actor access.Actor, id uuid.UUID, reason string) (*models.SwapTransaction, error)
	AddFeedback(ctx context.Context, actor access.Actor, id uuid.UUID, in transaction.FeedbackInput) (*models.Feedback, error)
	RaiseDispute(ctx context.Context, actor access.Actor, id uuid.UUID, in dispute.RaiseInput) (*models.SwapTransaction, error)
}

type UserStats interface {
	IncrementSwapStat(ctx context.Context, userID uuid.UUID, stat string, delta int64) error
}
