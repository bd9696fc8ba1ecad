package wallet

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/sawerbase/sawerbase/internal/chain"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	reader *Reader
	symbol string
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(reader *Reader, symbol string) *Handler {
	return &Handler{reader: reader, symbol: symbol}
}

type walletResponse struct {
	Address        string `json:"address,omitempty"`
	Resolved       bool   `json:"resolved"`
	Connector      string `json:"connector"`
	Symbol         string `json:"symbol"`
	Decimals       uint8  `json:"decimals"`
	Balance        string `json:"balance,omitempty"`
	BalanceDisplay string `json:"balance_display,omitempty"`
	Allowance      string `json:"allowance,omitempty"`
}

// Me returns the active address and token state of the caller.
func (h *Handler) Me(c *fiber.Ctx) error {
	id := IdentityFrom(c)
	if !id.Authenticated {
		return fiber.NewError(http.StatusUnauthorized, "login required")
	}

	addr, ok := Resolve(id)
	snap := h.reader.Snapshot(c.UserContext(), addr, ok)

	resp := walletResponse{
		Resolved:  ok,
		Connector: string(id.Connector),
		Symbol:    h.symbol,
		Decimals:  snap.Decimals,
	}
	if ok {
		resp.Address = addr.Hex()
	}
	if snap.BalanceKnown {
		resp.Balance = chain.FormatUnits(snap.Balance, snap.Decimals)
		resp.BalanceDisplay = chain.FormatBaseDisplay(snap.Balance, snap.Decimals)
	}
	if snap.AllowanceKnown {
		resp.Allowance = chain.FormatUnits(snap.Allowance, snap.Decimals)
	}
	return c.Status(http.StatusOK).JSON(resp)
}
