package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pesa-bridge/pesa_bridge/internal/cards"
)

// RegisterCardRoutes wires virtual card endpoints.
func RegisterCardRoutes(r fiber.Router, h *cards.Handler) {
	r.Post("/cards", h.Create)
	r.Get("/cards", h.List)
	r.Patch("/cards/:id", h.SetActive)
}
