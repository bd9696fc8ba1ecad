package feed

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Handler streams a recipient's completed donations to overlay clients.
type Handler struct {
	hub    *Hub
	logger *slog.Logger
}

// NewHandler constructs an overlay handler.
func NewHandler(hub *Hub, logger *slog.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

// Overlay writes each delivered donation as one JSON text frame.
func (h *Handler) Overlay() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		recipient := conn.Params("address")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sub := h.hub.Subscribe(ctx, recipient)
		defer sub.Close()

		// overlays never send; a read error means the client went away
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		h.logger.Info("overlay connected", slog.String("recipient", recipient))
		for {
			d, err := sub.Next(ctx)
			if err != nil {
				h.logger.Info("overlay disconnected", slog.String("recipient", recipient))
				return
			}
			if err := conn.WriteJSON(d); err != nil {
				h.logger.Warn("overlay write failed", slog.String("recipient", recipient), slog.Any("error", err))
				return
			}
		}
	})
}
