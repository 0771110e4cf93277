package handlers

import (
	"context"

	"alumnet/internal/access"
	"alumnet/internal/logger"
	"alumnet/internal/models"
	"alumnet/internal/repositories"
	"alumnet/internal/services/dispute"
	"alumnet/internal/services/negotiation"
	"alumnet/internal/utils/pagination"
	"alumnet/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type RequestHandler struct {
	requests negotiation.Service
	log      *logger.Logger
}

func NewRequestHandler(requests negotiation.Service, log *logger.Logger) *RequestHandler {
	return &RequestHandler{requests: requests, log: logger.OrNop(log)}
}

type createRequestBody struct {
	OfferID string `json:"offer_id"`
	negotiation.CreateRequestInput
}

func (h *RequestHandler) CreateRequest(c *fiber.Ctx) error {
	var body createRequestBody
	if err := parseBody(c, &body); err != nil {
		return response.FromError(c, h.log, err)
	}
	offerID, err := uuid.Parse(body.OfferID)
	if err != nil {
		return response.BadRequest(c, "offer_id must be a UUID")
	}
	req, err := h.requests.CreateRequest(c.UserContext(), actorOf(c), offerID, body.CreateRequestInput)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Created(c, "Swap request created successfully", req)
}

func (h *RequestHandler) ListRequests(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)
	filter := repositories.RequestFilter{
		Box:    repositories.Mailbox(c.Query("box", string(repositories.MailboxAll))),
		Status: models.RequestStatus(c.Query("status")),
		Limit:  p.Limit,
		Offset: p.Offset,
	}
	var err error
	if filter.OfferID, err = queryID(c, "offer_id"); err != nil {
		return response.FromError(c, h.log, err)
	}

	reqs, total, err := h.requests.ListRequests(c.UserContext(), actorOf(c), filter)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	p.SetTotal(total)
	return c.JSON(pagination.Response(p, reqs))
}

func (h *RequestHandler) GetRequest(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	req, err := h.requests.GetRequest(c.UserContext(), actorOf(c), id)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Swap request retrieved successfully", req)
}

func (h *RequestHandler) Respond(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	var input negotiation.RespondInput
	if err := parseBody(c, &input); err != nil {
		return response.FromError(c, h.log, err)
	}
	req, err := h.requests.Respond(c.UserContext(), actorOf(c), id, input)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Response recorded", req)
}

func (h *RequestHandler) AddNegotiation(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	var input negotiation.NegotiationInput
	if err := parseBody(c, &input); err != nil {
		return response.FromError(c, h.log, err)
	}
	n, err := h.requests.AddNegotiation(c.UserContext(), actorOf(c), id, input)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Created(c, "Negotiation proposed", n)
}

func (h *RequestHandler) ListNegotiations(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	ns, err := h.requests.ListNegotiations(c.UserContext(), actorOf(c), id)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Negotiations retrieved successfully", ns)
}

func (h *RequestHandler) RespondToNegotiation(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	seq, err := paramInt(c, "seq")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	var input struct {
		Accept bool `json:"accept"`
	}
	if err := parseBody(c, &input); err != nil {
		return response.FromError(c, h.log, err)
	}
	req, err := h.requests.RespondToNegotiation(c.UserContext(), actorOf(c), id, seq, input.Accept)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Negotiation resolved", req)
}

func (h *RequestHandler) Confirm(c *fiber.Ctx) error {
	return h.transition(c, "Swap request confirmed", h.requests.Confirm)
}

func (h *RequestHandler) Start(c *fiber.Ctx) error {
	return h.transition(c, "Swap started", h.requests.Start)
}

func (h *RequestHandler) Complete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	var input negotiation.CompleteRequestInput
	if err := parseBody(c, &input); err != nil {
		return response.FromError(c, h.log, err)
	}
	req, err := h.requests.Complete(c.UserContext(), actorOf(c), id, input)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Swap completed", req)
}

func (h *RequestHandler) Cancel(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	var input struct {
		Reason string `json:"reason"`
	}
	// an empty body is a cancel without a reason
	if len(c.Body()) > 0 {
		if err := parseBody(c, &input); err != nil {
			return response.FromError(c, h.log, err)
		}
	}
	req, err := h.requests.Cancel(c.UserContext(), actorOf(c), id, input.Reason)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Swap request cancelled", req)
}

func (h *RequestHandler) RaiseDispute(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	var input dispute.RaiseInput
	if err := parseBody(c, &input); err != nil {
		return response.FromError(c, h.log, err)
	}
	req, err := h.requests.RaiseDispute(c.UserContext(), actorOf(c), id, input)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Dispute raised", req)
}

func (h *RequestHandler) ResolveDispute(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	var input dispute.ResolveInput
	if err := parseBody(c, &input); err != nil {
		return response.FromError(c, h.log, err)
	}
	req, err := h.requests.ResolveDispute(c.UserContext(), actorOf(c), id, input)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Dispute resolved", req)
}

func (h *RequestHandler) AddMessage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	var input struct {
		Message string `json:"message"`
	}
	if err := parseBody(c, &input); err != nil {
		return response.FromError(c, h.log, err)
	}
	msg, err := h.requests.AddMessage(c.UserContext(), actorOf(c), id, input.Message)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Created(c, "Message sent", msg)
}

func (h *RequestHandler) ListMessages(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	msgs, err := h.requests.ListMessages(c.UserContext(), actorOf(c), id)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Messages retrieved successfully", msgs)
}

func (h *RequestHandler) MarkMessagesRead(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	n, err := h.requests.MarkMessagesRead(c.UserContext(), actorOf(c), id)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Messages marked as read", fiber.Map{"updated": n})
}

type transitionFunc func(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.SwapRequest, error)

func (h *RequestHandler) transition(c *fiber.Ctx, message string, fn transitionFunc) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	req, err := fn(c.UserContext(), actorOf(c), id)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, message, req)
}
