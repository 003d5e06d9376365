package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pesa-bridge/pesa_bridge/internal/wallet"
)

// RegisterSessionRoutes wires wallet session endpoints.
func RegisterSessionRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/session", h.Get)
	r.Post("/session/connect", h.Connect)
	r.Post("/session/disconnect", h.Disconnect)
	r.Post("/session/refresh-balance", h.RefreshBalance)
	r.Post("/session/network-switch", h.NetworkSwitch)
	r.Post("/session/events", h.ApplyEvent)
}
