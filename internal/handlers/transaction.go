package handlers

import (
	"alumnet/internal/logger"
	"alumnet/internal/models"
	"alumnet/internal/services/dispute"
	"alumnet/internal/services/transaction"
	"alumnet/internal/utils/pagination"
	"alumnet/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type TransactionHandler struct {
	ledger transaction.Service
	log    *logger.Logger
}

func NewTransactionHandler(ledger transaction.Service, log *logger.Logger) *TransactionHandler {
	return &TransactionHandler{ledger: ledger, log: logger.OrNop(log)}
}

func (h *TransactionHandler) ListTransactions(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)
	txs, total, err := h.ledger.List(c.UserContext(), actorOf(c), transaction.ListFilter{
		Status: models.TransactionStatus(c.Query("status")),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	p.SetTotal(total)
	return c.JSON(pagination.Response(p, txs))
}

func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	tx, err := h.ledger.Get(c.UserContext(), actorOf(c), id)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Transaction retrieved successfully", tx)
}

func (h *TransactionHandler) AddFeedback(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	var input transaction.FeedbackInput
	if err := parseBody(c, &input); err != nil {
		return response.FromError(c, h.log, err)
	}
	fb, err := h.ledger.AddFeedback(c.UserContext(), actorOf(c), id, input)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Created(c, "Feedback recorded", fb)
}

// ListFeedback returns all feedback on the transaction, or only the entries
// between user_a and user_b when both are given. The caller must be able to
// view the transaction.
func (h *TransactionHandler) ListFeedback(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	if c.Query("user_a") == "" && c.Query("user_b") == "" {
		fbs, err := h.ledger.ListFeedback(c.UserContext(), actorOf(c), id)
		if err != nil {
			return response.FromError(c, h.log, err)
		}
		return response.Success(c, "Feedback retrieved successfully", fbs)
	}
	if _, err := h.ledger.Get(c.UserContext(), actorOf(c), id); err != nil {
		return response.FromError(c, h.log, err)
	}

	userA, err := uuid.Parse(c.Query("user_a"))
	if err != nil {
		return response.BadRequest(c, "user_a must be a UUID")
	}
	userB, err := uuid.Parse(c.Query("user_b"))
	if err != nil {
		return response.BadRequest(c, "user_b must be a UUID")
	}

	fbs, err := h.ledger.GetFeedbackBetween(c.UserContext(), id, userA, userB)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Feedback retrieved successfully", fbs)
}

func (h *TransactionHandler) Complete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	var input transaction.CompleteInput
	if len(c.Body()) > 0 {
		if err := parseBody(c, &input); err != nil {
			return response.FromError(c, h.log, err)
		}
	}
	tx, err := h.ledger.Complete(c.UserContext(), actorOf(c), id, input)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Transaction completed", tx)
}

func (h *TransactionHandler) Cancel(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	var input struct {
		Reason string `json:"reason"`
	}
	if len(c.Body()) > 0 {
		if err := parseBody(c, &input); err != nil {
			return response.FromError(c, h.log, err)
		}
	}
	tx, err := h.ledger.Cancel(c.UserContext(), actorOf(c), id, input.Reason)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Transaction cancelled", tx)
}

func (h *TransactionHandler) AdjustOffered(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	var input models.EstimatedValue
	if err := parseBody(c, &input); err != nil {
		return response.FromError(c, h.log, err)
	}
	tx, err := h.ledger.AdjustOffered(c.UserContext(), actorOf(c), id, input)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Offered value updated", tx)
}

func (h *TransactionHandler) RaiseDispute(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	var input dispute.RaiseInput
	if err := parseBody(c, &input); err != nil {
		return response.FromError(c, h.log, err)
	}
	tx, err := h.ledger.RaiseDispute(c.UserContext(), actorOf(c), id, input)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Dispute raised", tx)
}

func (h *TransactionHandler) ResolveDispute(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	var input dispute.ResolveInput
	if err := parseBody(c, &input); err != nil {
		return response.FromError(c, h.log, err)
	}
	tx, err := h.ledger.ResolveDispute(c.UserContext(), actorOf(c), id, input)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Dispute resolved", tx)
}
