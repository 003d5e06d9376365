package transfer

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pesa-bridge/pesa_bridge/internal/history"
	"github.com/pesa-bridge/pesa_bridge/internal/settlement"
	"github.com/pesa-bridge/pesa_bridge/internal/wallet"
)

// Handler exposes transfer endpoints.
type Handler struct {
	service *Service
	store   history.Store
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service, store history.Store) *Handler {
	return &Handler{service: service, store: store}
}

type submitRequest struct {
	Amount   string `json:"amount"`
	Phone    string `json:"phone"`
	Provider string `json:"provider"`
	Country  string `json:"country"`
}

// Submit initiates a mobile-money payout.
func (h *Handler) Submit(c *fiber.Ctx) error {
	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Submit(c.UserContext(), SubmitInput{
		Amount:   req.Amount,
		Phone:    req.Phone,
		Provider: req.Provider,
		Country:  req.Country,
	})
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrNotConnected):
			return fiber.NewError(http.StatusUnauthorized, "wallet not connected")
		case errors.Is(err, wallet.ErrWrongNetwork):
			return fiber.NewError(http.StatusBadRequest, "wallet connected to wrong network")
		case errors.Is(err, ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "invalid amount")
		case errors.Is(err, ErrInvalidRecipient):
			return fiber.NewError(http.StatusBadRequest, "invalid recipient")
		case errors.Is(err, wallet.ErrInsufficientBalance):
			return fiber.NewError(http.StatusBadRequest, "insufficient balance")
		case errors.Is(err, ErrRequestInFlight):
			return fiber.NewError(http.StatusConflict, "transfer already in flight")
		case errors.Is(err, settlement.ErrRejected):
			return fiber.NewError(http.StatusUnprocessableEntity, res.FailureReason)
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"request_id": res.RequestID,
		"status":     res.Status,
		"reference":  res.Reference,
	})
}

// Reconcile polls the rail for the outstanding pending payout.
func (h *Handler) Reconcile(c *fiber.Ctx) error {
	res, err := h.service.Reconcile(c.UserContext())
	if err != nil {
		if errors.Is(err, ErrNoPendingRequest) {
			return fiber.NewError(http.StatusNotFound, "no pending transfer")
		}
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}

	return c.JSON(fiber.Map{
		"request_id": res.RequestID,
		"status":     res.Status,
		"reference":  res.Reference,
	})
}

// History lists terminal settlement requests, newest first.
func (h *Handler) History(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	address := c.Query("address")

	entries, err := h.store.List(c.UserContext(), address, limit)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		out = append(out, fiber.Map{
			"id":         e.ID,
			"kind":       e.Kind,
			"address":    e.Address,
			"amount":     e.Amount,
			"recipient":  e.Recipient,
			"reference":  e.Reference,
			"status":     e.Status,
			"created_at": e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"entries": out})
}
