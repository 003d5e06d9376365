package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pesa-bridge/pesa_bridge/internal/faucet"
)

// RegisterFaucetRoutes wires the testnet faucet endpoint.
func RegisterFaucetRoutes(r fiber.Router, h *faucet.Handler) {
	r.Post("/faucet", h.Drip)
}
