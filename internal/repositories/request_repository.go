package repositories

import (
	"context"
	"fmt"
	"time"

	apperr "alumnet/internal/errors"
	"alumnet/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Mailbox selects which side of a request the caller is on.
type Mailbox string

const (
	MailboxAll      Mailbox = "all"
	MailboxIncoming Mailbox = "incoming"
	MailboxOutgoing Mailbox = "outgoing"
)

type RequestFilter struct {
	UserID  uuid.UUID
	Box     Mailbox
	Status  models.RequestStatus
	OfferID *uuid.UUID
	Limit   int
	Offset  int
}

// OfferCheck inspects the locked offer before a request is inserted against it.
type OfferCheck func(offer *models.SwapOffer) error

type RequestRepository interface {
	// CreateForOffer locks the offer row, runs check and inserts req in one
	// database transaction. A second active request for the same
	// (requester, offer) pair fails on the active_key unique index.
	CreateForOffer(ctx context.Context, req *models.SwapRequest, check OfferCheck) (*models.SwapOffer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.SwapRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]models.SwapRequest, int64, error)
	// SaveTransition persists req if it is still at status from and at the
	// version it was read with; otherwise it returns a ConcurrencyError.
	SaveTransition(ctx context.Context, req *models.SwapRequest, from models.RequestStatus) error

	AppendMessage(ctx context.Context, msg *models.RequestMessage) error
	ListMessages(ctx context.Context, requestID uuid.UUID) ([]models.RequestMessage, error)
	MarkMessagesRead(ctx context.Context, requestID, readerID uuid.UUID) (int64, error)

	AppendNegotiation(ctx context.Context, n *models.Negotiation) error
	GetNegotiation(ctx context.Context, requestID uuid.UUID, seq int) (*models.Negotiation, error)
	ListNegotiations(ctx context.Context, requestID uuid.UUID) ([]models.Negotiation, error)
	// ResolveNegotiation moves a proposed entry to accepted or rejected.
	ResolveNegotiation(ctx context.Context, n *models.Negotiation) error
	// AcceptNegotiation resolves n and saves the request transition in one
	// database transaction; either both are written or neither is.
	AcceptNegotiation(ctx context.Context, req *models.SwapRequest, from models.RequestStatus, n *models.Negotiation) error

	// ExecuteInTransaction runs fn in one database transaction shared by
	// every repository called with fn's context.
	ExecuteInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) ExecuteInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return ExecuteInTransaction(ctx, r.db, fn)
}

func (r *requestRepository) CreateForOffer(ctx context.Context, req *models.SwapRequest, check OfferCheck) (*models.SwapOffer, error) {
	var offer *models.SwapOffer
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		locked, err := lockOffer(tx, req.OfferID)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(locked); err != nil {
				return err
			}
		}
		req.OfferOwnerID = locked.OwnerID
		req.SetStatus(models.RequestPending)
		req.Version = 1

		if err := tx.Create(req).Error; err != nil {
			if isDuplicate(err) {
				return apperr.Conflict("DUPLICATE_REQUEST",
					"an active request for this offer already exists")
			}
			return fmt.Errorf("failed to create swap request: %w", err)
		}
		offer = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

func (r *requestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SwapRequest, error) {
	var req models.SwapRequest
	if err := conn(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "swap request")
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context, f RequestFilter) ([]models.SwapRequest, int64, error) {
	q := conn(ctx, r.db).Model(&models.SwapRequest{})
	switch f.Box {
	case MailboxIncoming:
		q = q.Where("offer_owner_id = ?", f.UserID)
	case MailboxOutgoing:
		q = q.Where("requester_id = ?", f.UserID)
	default:
		q = q.Where("(requester_id = ? OR offer_owner_id = ?)", f.UserID, f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.OfferID != nil {
		q = q.Where("offer_id = ?", *f.OfferID)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count swap requests: %w", err)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	var reqs []models.SwapRequest
	if err := q.Order("updated_at DESC").Limit(limit).Offset(f.Offset).Find(&reqs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list swap requests: %w", err)
	}
	return reqs, total, nil
}

func (r *requestRepository) SaveTransition(ctx context.Context, req *models.SwapRequest, from models.RequestStatus) error {
	return saveRequest(conn(ctx, r.db), req, from)
}

func saveRequest(db *gorm.DB, req *models.SwapRequest, from models.RequestStatus) error {
	prev := req.Version
	req.Version = prev + 1
	res := db.Model(req).
		Where("status = ? AND version = ?", from, prev).
		Select("*").Omit("id", "created_at").
		Updates(req)
	if res.Error != nil {
		req.Version = prev
		if isDuplicate(res.Error) {
			return apperr.Conflict("DUPLICATE_REQUEST", "an active request for this offer already exists")
		}
		return fmt.Errorf("failed to save swap request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		req.Version = prev
		return apperr.Concurrency("swap request")
	}
	return nil
}

func (r *requestRepository) AppendMessage(ctx context.Context, msg *models.RequestMessage) error {
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		seq, err := nextSeq(tx, &models.RequestMessage{}, msg.RequestID)
		if err != nil {
			return err
		}
		msg.Seq = seq
		return tx.Create(msg).Error
	})
	return appendError(err, "message")
}

func (r *requestRepository) ListMessages(ctx context.Context, requestID uuid.UUID) ([]models.RequestMessage, error) {
	var msgs []models.RequestMessage
	if err := conn(ctx, r.db).Where("request_id = ?", requestID).Order("seq ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

func (r *requestRepository) MarkMessagesRead(ctx context.Context, requestID, readerID uuid.UUID) (int64, error) {
	res := conn(ctx, r.db).Model(&models.RequestMessage{}).
		Where("request_id = ? AND sender_id <> ? AND is_read = ?", requestID, readerID, false).
		UpdateColumns(map[string]interface{}{"is_read": true, "read_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *requestRepository) AppendNegotiation(ctx context.Context, n *models.Negotiation) error {
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		seq, err := nextSeq(tx, &models.Negotiation{}, n.RequestID)
		if err != nil {
			return err
		}
		n.Seq = seq
		return tx.Create(n).Error
	})
	return appendError(err, "negotiation")
}

func (r *requestRepository) GetNegotiation(ctx context.Context, requestID uuid.UUID, seq int) (*models.Negotiation, error) {
	var n models.Negotiation
	err := conn(ctx, r.db).Where("request_id = ? AND seq = ?", requestID, seq).First(&n).Error
	if err != nil {
		return nil, notFound(err, "negotiation")
	}
	return &n, nil
}

func (r *requestRepository) ListNegotiations(ctx context.Context, requestID uuid.UUID) ([]models.Negotiation, error) {
	var entries []models.Negotiation
	if err := conn(ctx, r.db).Where("request_id = ?", requestID).Order("seq ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list negotiations: %w", err)
	}
	return entries, nil
}

func (r *requestRepository) ResolveNegotiation(ctx context.Context, n *models.Negotiation) error {
	return resolveNegotiation(conn(ctx, r.db), n)
}

func (r *requestRepository) AcceptNegotiation(ctx context.Context, req *models.SwapRequest, from models.RequestStatus, n *models.Negotiation) error {
	prev := req.Version
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := resolveNegotiation(tx, n); err != nil {
			return err
		}
		return saveRequest(tx, req, from)
	})
	if err != nil {
		req.Version = prev
	}
	return err
}

func resolveNegotiation(db *gorm.DB, n *models.Negotiation) error {
	res := db.Model(&models.Negotiation{}).
		Where("id = ? AND status = ?", n.ID, models.NegotiationProposed).
		Updates(map[string]interface{}{
			"status":       n.Status,
			"responded_by": n.RespondedBy,
			"responded_at": n.RespondedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to resolve negotiation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("NEGOTIATION_ALREADY_RESOLVED", "negotiation entry was already answered")
	}
	return nil
}

// nextSeq reads the current tail of an append-only log. Two writers that race
// to the same seq collide on the (request_id, seq) unique index.
func nextSeq(tx *gorm.DB, model interface{}, requestID uuid.UUID) (int, error) {
	var last int
	err := tx.Model(model).Where("request_id = ?", requestID).
		Select("COALESCE(MAX(seq), 0)").Scan(&last).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read log tail: %w", err)
	}
	return last + 1, nil
}

func appendError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if isDuplicate(err) {
		return apperr.Concurrency(entity + " log")
	}
	if _, ok := apperr.KindOf(err); ok {
		return err
	}
	return fmt.Errorf("failed to append %s: %w", entity, err)
}
