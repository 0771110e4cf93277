package handlers

import (
	"context"
	"time"

	"alumnet/internal/logger"
	"alumnet/internal/models"
	"alumnet/internal/repositories"
	"alumnet/internal/services/offer"
	"alumnet/internal/utils/pagination"
	"alumnet/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

const viewTimeout = 2 * time.Second

type OfferHandler struct {
	offers offer.Service
	log    *logger.Logger
}

func NewOfferHandler(offers offer.Service, log *logger.Logger) *OfferHandler {
	return &OfferHandler{offers: offers, log: logger.OrNop(log)}
}

func (h *OfferHandler) ListOffers(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)
	filter := repositories.OfferFilter{
		Category:      models.OfferCategory(c.Query("category")),
		Subcategory:   c.Query("subcategory"),
		Status:        models.OfferStatus(c.Query("status")),
		Tag:           c.Query("tag"),
		Search:        c.Query("q"),
		AvailableOnly: c.QueryBool("available", false),
		Sort:          c.Query("sort"),
		Limit:         p.Limit,
		Offset:        p.Offset,
	}
	var err error
	if filter.OwnerID, err = queryID(c, "owner_id"); err != nil {
		return response.FromError(c, h.log, err)
	}
	if filter.MinValue, err = queryFloat(c, "min_value"); err != nil {
		return response.FromError(c, h.log, err)
	}
	if filter.MaxValue, err = queryFloat(c, "max_value"); err != nil {
		return response.FromError(c, h.log, err)
	}

	offers, total, err := h.offers.ListOffers(c.UserContext(), filter)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	p.SetTotal(total)
	return c.JSON(pagination.Response(p, offers))
}

// GetOffer counts the view in the background; a failed count never fails the read.
func (h *OfferHandler) GetOffer(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	o, err := h.offers.GetOffer(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, h.log, err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), viewTimeout)
		defer cancel()
		if err := h.offers.RecordView(ctx, id); err != nil {
			h.log.Warn("failed to record offer view", "offer_id", id, "error", err)
		}
	}()

	return response.Success(c, "Offer retrieved successfully", o)
}

func (h *OfferHandler) CreateOffer(c *fiber.Ctx) error {
	var input offer.CreateOfferInput
	if err := parseBody(c, &input); err != nil {
		return response.FromError(c, h.log, err)
	}
	o, err := h.offers.CreateOffer(c.UserContext(), actorOf(c), input)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Created(c, "Offer created successfully", o)
}

func (h *OfferHandler) UpdateOffer(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	var input offer.UpdateOfferInput
	if err := parseBody(c, &input); err != nil {
		return response.FromError(c, h.log, err)
	}
	o, err := h.offers.UpdateOffer(c.UserContext(), actorOf(c), id, input)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Offer updated successfully", o)
}

func (h *OfferHandler) SetStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	var input struct {
		Status models.OfferStatus `json:"status"`
	}
	if err := parseBody(c, &input); err != nil {
		return response.FromError(c, h.log, err)
	}
	o, err := h.offers.SetStatus(c.UserContext(), actorOf(c), id, input.Status)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, "Offer status updated", o)
}

func (h *OfferHandler) DeleteOffer(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	if err := h.offers.DeleteOffer(c.UserContext(), actorOf(c), id); err != nil {
		return response.FromError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
