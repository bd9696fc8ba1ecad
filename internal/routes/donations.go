package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sawerbase/sawerbase/internal/donation"
	"github.com/sawerbase/sawerbase/internal/ledger"
)

// RegisterDonationRoutes wires the donation orchestration endpoints.
func RegisterDonationRoutes(r fiber.Router, h *donation.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/donations")
	group.Get("/status", h.Status)
	group.Post("/permit", h.Permit)
	group.Post("/calldata", h.Calldata)
	group.Post("/approve", h.Approve)
	if rateLimiter != nil {
		group.Post("/", rateLimiter, h.Donate)
	} else {
		group.Post("/", h.Donate)
	}
}

// RegisterLedgerRoutes wires donation history and client-reported outcomes.
func RegisterLedgerRoutes(r fiber.Router, h *ledger.Handler) {
	r.Get("/streamers/:address/donations", h.History)
	r.Post("/ledger/donations", h.Record)
}
