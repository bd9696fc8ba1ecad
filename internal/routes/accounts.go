package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sawerbase/sawerbase/internal/profile"
	"github.com/sawerbase/sawerbase/internal/wallet"
	"github.com/sawerbase/sawerbase/internal/withdraw"
)

// RegisterWalletRoutes wires the active-wallet view.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallet/me", h.Me)
}

// RegisterProfileRoutes wires streamer profile endpoints.
func RegisterProfileRoutes(r fiber.Router, h *profile.Handler) {
	group := r.Group("/profiles")
	group.Post("/", h.Register)
	group.Get("/wallet/:address", h.ByWallet)
	group.Get("/username/:username", h.ByUsername)
	group.Get("/username/:username/available", h.Available)
}

// RegisterWithdrawalRoutes wires streamer withdrawals.
func RegisterWithdrawalRoutes(r fiber.Router, h *withdraw.Handler) {
	r.Post("/withdrawals", h.Withdraw)
}
