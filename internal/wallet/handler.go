package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes wallet session endpoints.
type Handler struct {
	session *Session
}

// NewHandler constructs a wallet session handler.
func NewHandler(session *Session) *Handler {
	return &Handler{session: session}
}

func snapshotPayload(snap Snapshot, stale bool) fiber.Map {
	payload := fiber.Map{
		"state":         snap.State.String(),
		"address":       snap.Address,
		"chain_id":      snap.ChainID,
		"network_match": snap.NetworkMatch,
		"balance":       snap.Balance,
	}
	if stale {
		payload["balance_stale"] = true
	}
	return payload
}

// Get returns the current session snapshot.
func (h *Handler) Get(c *fiber.Ctx) error {
	return c.JSON(snapshotPayload(h.session.Snapshot(), false))
}

// Connect requests wallet access from the injected provider.
func (h *Handler) Connect(c *fiber.Ctx) error {
	snap, err := h.session.Connect(c.UserContext())
	if err != nil {
		switch {
		case errors.Is(err, ErrProviderUnavailable):
			return fiber.NewError(http.StatusServiceUnavailable, "no wallet provider available")
		case errors.Is(err, ErrUserRejected):
			return fiber.NewError(http.StatusForbidden, "wallet access rejected")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(snapshotPayload(snap, false))
}

// Disconnect resets the session. Safe to call repeatedly.
func (h *Handler) Disconnect(c *fiber.Ctx) error {
	h.session.Disconnect()
	return c.JSON(snapshotPayload(h.session.Snapshot(), false))
}

// RefreshBalance re-reads the on-chain balance. A failed read is non-fatal:
// the last known value is returned and marked stale.
func (h *Handler) RefreshBalance(c *fiber.Ctx) error {
	err := h.session.RefreshBalance(c.UserContext())
	stale := errors.Is(err, ErrBalanceRead)
	if err != nil && !stale {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(snapshotPayload(h.session.Snapshot(), stale))
}

// NetworkSwitch asks the provider to move to the expected network.
func (h *Handler) NetworkSwitch(c *fiber.Ctx) error {
	if err := h.session.RequestNetworkSwitch(c.UserContext()); err != nil {
		switch {
		case errors.Is(err, ErrProviderUnavailable):
			return fiber.NewError(http.StatusServiceUnavailable, "no wallet provider available")
		case errors.Is(err, ErrNetworkSwitchFailed):
			return fiber.NewError(http.StatusBadGateway, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(snapshotPayload(h.session.Snapshot(), false))
}

type eventRequest struct {
	Kind     string   `json:"kind"`
	Accounts []string `json:"accounts"`
	ChainID  uint64   `json:"chain_id"`
}

// ApplyEvent feeds an externally-observed provider change into the session.
func (h *Handler) ApplyEvent(c *fiber.Ctx) error {
	var req eventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	var ev Event
	switch req.Kind {
	case "accounts_changed":
		ev = Event{Kind: EventAccountsChanged, Accounts: req.Accounts}
	case "chain_changed":
		ev = Event{Kind: EventChainChanged, ChainID: req.ChainID}
	default:
		return fiber.NewError(http.StatusBadRequest, "unknown event kind")
	}

	if err := h.session.Apply(c.UserContext(), ev); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(snapshotPayload(h.session.Snapshot(), false))
}
