package middleware

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// OverlayUpgrade rejects plain HTTP requests and malformed recipient addresses
// before an overlay WebSocket handshake.
func OverlayUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !common.IsHexAddress(c.Params("address")) {
			return fiber.NewError(http.StatusBadRequest, "invalid address")
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}
}
