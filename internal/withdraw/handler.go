package withdraw

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/sawerbase/sawerbase/internal/wallet"
)

// Handler exposes the withdrawal endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a withdrawal handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type withdrawRequest struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// Withdraw transfers tokens from the caller's active wallet.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Withdraw(c.UserContext(), wallet.IdentityFrom(c), Input{Recipient: req.Recipient, Amount: req.Amount})
	if err != nil {
		switch {
		case errors.Is(err, ErrLoginRequired):
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		case errors.Is(err, ErrAddressPending):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrInvalidAddress), errors.Is(err, ErrZeroAmount), errors.Is(err, ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusBadGateway, err.Error())
		}
	}

	status := http.StatusCreated
	if result.Prepared {
		status = http.StatusOK
	}
	return c.Status(status).JSON(result)
}
