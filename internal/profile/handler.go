package profile

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"

	"github.com/sawerbase/sawerbase/internal/wallet"
)

// Handler exposes profile endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a profile HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// Register creates the caller's profile on their active wallet.
func (h *Handler) Register(c *fiber.Ctx) error {
	addr, ok := wallet.Resolve(wallet.IdentityFrom(c))
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "active wallet required")
	}
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	p, err := h.service.Register(c.UserContext(), addr, RegisterInput{Username: req.Username, DisplayName: req.DisplayName, AvatarURL: req.AvatarURL})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(p)
}

// ByWallet returns the profile bound to an address.
func (h *Handler) ByWallet(c *fiber.Ctx) error {
	address := c.Params("address")
	if !common.IsHexAddress(address) {
		return fiber.NewError(http.StatusBadRequest, "invalid address")
	}
	p, err := h.service.ByWallet(c.UserContext(), address)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(p)
}

// ByUsername serves the public donation page lookup.
func (h *Handler) ByUsername(c *fiber.Ctx) error {
	p, err := h.service.ByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(p)
}

// Available reports whether a username can still be registered.
func (h *Handler) Available(c *fiber.Ctx) error {
	username := c.Params("username")
	if err := ValidateUsername(username); err != nil {
		return c.Status(http.StatusOK).JSON(fiber.Map{"username": username, "available": false, "reason": err.Error()})
	}
	ok, err := h.service.UsernameAvailable(c.UserContext(), username)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"username": username, "available": ok})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidProfile):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrWalletTaken):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
