package repositories

import (
	"context"
	"fmt"

	apperr "alumnet/internal/errors"
	"alumnet/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionFilter struct {
	UserID uuid.UUID
	Status models.TransactionStatus
	Limit  int
	Offset int
}

type TransactionRepository interface {
	// CreateOnce inserts t unless a transaction already exists for its request,
	// in which case the stored one is returned with created=false.
	CreateOnce(ctx context.Context, t *models.SwapTransaction) (stored *models.SwapTransaction, created bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.SwapTransaction, error)
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*models.SwapTransaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]models.SwapTransaction, int64, error)
	// SaveTransition has the same optimistic contract as the request repository.
	SaveTransition(ctx context.Context, t *models.SwapTransaction, from models.TransactionStatus) error

	// AddFeedback fails with a ConflictError when the direction already has feedback.
	AddFeedback(ctx context.Context, fb *models.Feedback) error
	ListFeedback(ctx context.Context, transactionID uuid.UUID) ([]models.Feedback, error)
	FeedbackBetween(ctx context.Context, transactionID, userA, userB uuid.UUID) ([]models.Feedback, error)

	// ExecuteInTransaction runs fn in one database transaction shared by
	// every repository called with fn's context.
	ExecuteInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) ExecuteInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return ExecuteInTransaction(ctx, r.db, fn)
}

func (r *transactionRepository) CreateOnce(ctx context.Context, t *models.SwapTransaction) (*models.SwapTransaction, bool, error) {
	if err := t.RecomputeValueExchange(); err != nil {
		return nil, false, apperr.Validation("INVALID_PARTICIPANTS", "%s", err.Error())
	}
	t.Version = 1

	// savepoint, so a lost race leaves an enclosing transaction usable
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		return tx.Create(t).Error
	})
	if err == nil {
		return t, true, nil
	}
	if !isDuplicate(err) {
		return nil, false, fmt.Errorf("failed to create swap transaction: %w", err)
	}

	existing, getErr := r.GetByRequestID(ctx, t.RequestID)
	if getErr != nil {
		return nil, false, getErr
	}
	return existing, false, nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SwapTransaction, error) {
	var t models.SwapTransaction
	if err := conn(ctx, r.db).First(&t, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "swap transaction")
	}
	return &t, nil
}

func (r *transactionRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*models.SwapTransaction, error) {
	var t models.SwapTransaction
	if err := conn(ctx, r.db).First(&t, "request_id = ?", requestID).Error; err != nil {
		return nil, notFound(err, "swap transaction")
	}
	return &t, nil
}

func (r *transactionRepository) List(ctx context.Context, f TransactionFilter) ([]models.SwapTransaction, int64, error) {
	q := conn(ctx, r.db).Model(&models.SwapTransaction{}).
		Where("(requester_id = ? OR owner_id = ?)", f.UserID, f.UserID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count swap transactions: %w", err)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	var out []models.SwapTransaction
	if err := q.Order("created_at DESC").Limit(limit).Offset(f.Offset).Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list swap transactions: %w", err)
	}
	return out, total, nil
}

func (r *transactionRepository) SaveTransition(ctx context.Context, t *models.SwapTransaction, from models.TransactionStatus) error {
	if err := t.RecomputeValueExchange(); err != nil {
		return apperr.Validation("INVALID_PARTICIPANTS", "%s", err.Error())
	}
	prev := t.Version
	t.Version = prev + 1
	res := conn(ctx, r.db).Model(t).
		Where("status = ? AND version = ?", from, prev).
		Select("*").Omit("id", "created_at").
		Updates(t)
	if res.Error != nil {
		t.Version = prev
		return fmt.Errorf("failed to save swap transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		t.Version = prev
		return apperr.Concurrency("swap transaction")
	}
	return nil
}

func (r *transactionRepository) AddFeedback(ctx context.Context, fb *models.Feedback) error {
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		return tx.Create(fb).Error
	})
	if err != nil {
		if isDuplicate(err) {
			return apperr.Conflict("FEEDBACK_EXISTS", "feedback for this participant was already submitted")
		}
		return fmt.Errorf("failed to store feedback: %w", err)
	}
	return nil
}

func (r *transactionRepository) ListFeedback(ctx context.Context, transactionID uuid.UUID) ([]models.Feedback, error) {
	var out []models.Feedback
	if err := conn(ctx, r.db).Where("transaction_id = ?", transactionID).
		Order("submitted_at ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return out, nil
}

func (r *transactionRepository) FeedbackBetween(ctx context.Context, transactionID, userA, userB uuid.UUID) ([]models.Feedback, error) {
	var out []models.Feedback
	err := conn(ctx, r.db).
		Where("transaction_id = ?", transactionID).
		Where("((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?))",
			userA, userB, userB, userA).
		Order("submitted_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback: %w", err)
	}
	return out, nil
}
