package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pesa-bridge/pesa_bridge/internal/transfer"
)

// RegisterTransferRoutes wires mobile-money payout endpoints.
func RegisterTransferRoutes(r fiber.Router, h *transfer.Handler) {
	r.Post("/transfers", h.Submit)
	r.Post("/transfers/reconcile", h.Reconcile)
	r.Get("/transfers/history", h.History)
}
