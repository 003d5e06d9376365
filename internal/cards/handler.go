package cards

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pesa-bridge/pesa_bridge/internal/settlement"
	"github.com/pesa-bridge/pesa_bridge/internal/wallet"
)

// Handler exposes virtual card endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a card handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

type toggleRequest struct {
	Active bool `json:"active"`
}

func cardPayload(card VirtualCard) fiber.Map {
	return fiber.Map{
		"id":            card.ID,
		"label":         card.Label,
		"last4":         card.Last4,
		"exp_month":     card.ExpMonth,
		"exp_year":      card.ExpYear,
		"funded_amount": card.FundedAmount,
		"active":        card.Active,
		"created_at":    card.CreatedAt,
	}
}

// Create issues a new virtual card funded from the wallet balance.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	card, err := h.service.CreateCard(c.UserContext(), CreateInput{Label: req.Label, Amount: req.Amount})
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrNotConnected):
			return fiber.NewError(http.StatusUnauthorized, "wallet not connected")
		case errors.Is(err, wallet.ErrWrongNetwork):
			return fiber.NewError(http.StatusBadRequest, "wallet connected to wrong network")
		case errors.Is(err, ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "invalid amount")
		case errors.Is(err, ErrInvalidLabel):
			return fiber.NewError(http.StatusBadRequest, "invalid card label")
		case errors.Is(err, wallet.ErrInsufficientBalance):
			return fiber.NewError(http.StatusBadRequest, "insufficient balance")
		case errors.Is(err, ErrRequestInFlight):
			return fiber.NewError(http.StatusConflict, "card issuance already in flight")
		case errors.Is(err, settlement.ErrRejected):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(cardPayload(card))
}

// List returns all owned cards.
func (h *Handler) List(c *fiber.Ctx) error {
	cards := h.service.Cards()
	out := make([]fiber.Map, 0, len(cards))
	for _, card := range cards {
		out = append(out, cardPayload(card))
	}
	return c.JSON(fiber.Map{"cards": out})
}

// SetActive toggles a card's active flag after a confirmed provider round-trip.
func (h *Handler) SetActive(c *fiber.Ctx) error {
	var req toggleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	card, err := h.service.SetCardActive(c.UserContext(), c.Params("id"), req.Active)
	if err != nil {
		switch {
		case errors.Is(err, ErrCardNotFound):
			return fiber.NewError(http.StatusNotFound, "card not found")
		case errors.Is(err, settlement.ErrRejected):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		default:
			return fiber.NewError(http.StatusBadGateway, err.Error())
		}
	}

	return c.JSON(cardPayload(card))
}
