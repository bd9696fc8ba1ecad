package leaderboard

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Handler serves leaderboards over HTTP and WebSocket.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler constructs a leaderboard handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Get returns the current top donors of a streamer.
func (h *Handler) Get(c *fiber.Ctx) error {
	address := c.Params("address")
	if !common.IsHexAddress(address) {
		return fiber.NewError(http.StatusBadRequest, "invalid address")
	}
	entries, err := h.svc.Get(c.UserContext(), address)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"streamer_wallet": address,
		"entries":         entries,
	})
}

// Overlay pushes the leaderboard whenever a refresh changes it.
func (h *Handler) Overlay() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		recipient := conn.Params("address")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		var last []byte
		err := h.svc.Watch(ctx, recipient, func(entries []Entry) error {
			payload, err := json.Marshal(entries)
			if err != nil {
				return err
			}
			if bytes.Equal(payload, last) {
				return nil
			}
			last = payload
			return conn.WriteMessage(websocket.TextMessage, payload)
		})
		if err != nil && ctx.Err() == nil {
			h.logger.Warn("leaderboard overlay closed", slog.String("recipient", recipient), slog.Any("error", err))
		}
	})
}
