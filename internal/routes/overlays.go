package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sawerbase/sawerbase/internal/feed"
	"github.com/sawerbase/sawerbase/internal/leaderboard"
	"github.com/sawerbase/sawerbase/internal/middleware"
)

// RegisterOverlayRoutes wires the WebSocket overlays loaded by streaming software.
func RegisterOverlayRoutes(app *fiber.App, donations *feed.Handler, boards *leaderboard.Handler) {
	overlay := app.Group("/overlay")
	overlay.Get("/:address", middleware.OverlayUpgrade(), donations.Overlay())
	overlay.Get("/:address/leaderboard", middleware.OverlayUpgrade(), boards.Overlay())
}

// RegisterLeaderboardRoutes wires the leaderboard snapshot endpoint.
func RegisterLeaderboardRoutes(r fiber.Router, h *leaderboard.Handler) {
	r.Get("/leaderboard/:address", h.Get)
}
