package faucet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pesa-bridge/pesa_bridge/internal/wallet"
)

// Handler exposes the faucet endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a faucet handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type dripRequest struct {
	Amount string `json:"amount"`
}

// Drip hands out simulated testnet USDC to the connected wallet.
func (h *Handler) Drip(c *fiber.Ctx) error {
	var req dripRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Drip(c.UserContext(), req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrNotConnected):
			return fiber.NewError(http.StatusUnauthorized, "wallet not connected")
		case errors.Is(err, ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "invalid amount")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"address":   res.Address,
		"amount":    res.Amount,
		"reference": res.Reference,
	})
}
