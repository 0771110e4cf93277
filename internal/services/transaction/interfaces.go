package transaction

import (
	"context"

	"alumnet/internal/access"
	"alumnet/internal/models"
	"alumnet/internal/services/dispute"

	"github.com/google/uuid"
)

// Service is the swap transaction ledger.
type Service interface {
	// Open is idempotent per request: a second call returns the stored transaction.
	Open(ctx context.Context, req *models.SwapRequest, offer *models.SwapOffer) (*models.SwapTransaction, error)
	Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.SwapTransaction, error)
	GetByRequest(ctx context.Context, requestID uuid.UUID) (*models.SwapTransaction, error)
	List(ctx context.Context, actor access.Actor, filter ListFilter) ([]models.SwapTransaction, int64, error)

	AddFeedback(ctx context.Context, actor access.Actor, id uuid.UUID, in FeedbackInput) (*models.Feedback, error)
	GetFeedbackBetween(ctx context.Context, id, userA, userB uuid.UUID) ([]models.Feedback, error)
	// ListFeedback returns every entry on the transaction, oldest first.
	ListFeedback(ctx context.Context, actor access.Actor, id uuid.UUID) ([]models.Feedback, error)

	Complete(ctx context.Context, actor access.Actor, id uuid.UUID, in CompleteInput) (*models.SwapTransaction, error)
	Cancel(ctx context.Context, actor access.Actor, id uuid.UUID, reason string) (*models.SwapTransaction, error)
	AdjustOffered(ctx context.Context, actor access.Actor, id uuid.UUID, value models.EstimatedValue) (*models.SwapTransaction, error)

	RaiseDispute(ctx context.Context, actor access.Actor, id uuid.UUID, in dispute.RaiseInput) (*models.SwapTransaction, error)
	ResolveDispute(ctx context.Context, actor access.Actor, id uuid.UUID, in dispute.ResolveInput) (*models.SwapTransaction, error)
}

// UserStats is the slice of the user store the ledger writes to.
type UserStats interface {
	IncrementSwapStat(ctx context.Context, userID uuid.UUID, stat string, delta int64) error
}

// MetricsCollector receives ledger measurements.
type MetricsCollector interface {
	RecordOperationResult(operation, result string)
	RecordTransactionOpened(balanced bool, totalValue float64)
	RecordFeedback(rating int)
}
