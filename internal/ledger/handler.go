package ledger

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/sawerbase/sawerbase/internal/chain"
	"github.com/sawerbase/sawerbase/internal/wallet"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// TxVerifier confirms that a reported transaction is the donation it claims to be.
type TxVerifier interface {
	VerifyDonation(ctx context.Context, hash common.Hash, want chain.ExpectedDonation) error
}

// DecimalsSource supplies the token precision used to convert reported amounts.
type DecimalsSource interface {
	DecimalsOrDefault(ctx context.Context) uint8
}

// Handler exposes donation history and client-reported outcomes.
type Handler struct {
	recorder *Recorder
	verifier TxVerifier
	decimals DecimalsSource
}

// NewHandler constructs a ledger handler.
func NewHandler(recorder *Recorder, verifier TxVerifier, decimals DecimalsSource) *Handler {
	return &Handler{recorder: recorder, verifier: verifier, decimals: decimals}
}

type recordRequest struct {
	DonorName      string `json:"donor_name"`
	Private        bool   `json:"private"`
	Amount         string `json:"amount"`
	Message        string `json:"message"`
	StreamerWallet string `json:"streamer_wallet"`
	Status         string `json:"status"`
	TxDigest       string `json:"tx_digest"`
}

// Record stores a confirmed donation reported by a client that settled through
// its own wallet. The transaction must be a successful donate call from the
// caller matching the reported amount and recipient. Failed attempts are only
// recorded by the donation flow itself.
func (h *Handler) Record(c *fiber.Ctx) error {
	id := wallet.IdentityFrom(c)
	donor, ok := wallet.Resolve(id)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "active wallet required")
	}

	var req recordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Status != "" && Status(req.Status) != StatusCompleted {
		return fiber.NewError(http.StatusBadRequest, "only completed donations can be reported")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return fiber.NewError(http.StatusBadRequest, "invalid amount")
	}
	raw, err := hexutil.Decode(req.TxDigest)
	if err != nil || len(raw) != common.HashLength {
		return fiber.NewError(http.StatusBadRequest, "invalid tx_digest")
	}
	if !common.IsHexAddress(req.StreamerWallet) {
		return fiber.NewError(http.StatusBadRequest, "invalid streamer_wallet")
	}

	ctx := c.UserContext()
	base, err := chain.ParseAmount(req.Amount, h.decimals.DecimalsOrDefault(ctx))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid amount")
	}
	err = h.verifier.VerifyDonation(ctx, common.BytesToHash(raw), chain.ExpectedDonation{
		Donor:     donor,
		Recipient: common.HexToAddress(req.StreamerWallet),
		Amount:    base,
	})
	switch {
	case err == nil:
	case errors.Is(err, chain.ErrDonationMismatch), errors.Is(err, chain.ErrReverted):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, chain.ErrTransactionPending):
		return fiber.NewError(http.StatusConflict, "transaction not confirmed yet")
	default:
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}

	d, err := h.recorder.RecordDonation(ctx, RecordInput{
		DonorAddress: donor.Hex(),
		DonorName:    req.DonorName,
		Private:      req.Private,
		Amount:       amount,
		Message:      req.Message,
		Recipient:    req.StreamerWallet,
		Status:       StatusCompleted,
		TxHash:       req.TxDigest,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidDonation):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrDuplicateTransaction):
			return fiber.NewError(http.StatusConflict, "duplicate transaction")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(d)
}

// History lists a streamer's donations, newest first.
func (h *Handler) History(c *fiber.Ctx) error {
	address := c.Params("address")
	if !common.IsHexAddress(address) {
		return fiber.NewError(http.StatusBadRequest, "invalid address")
	}
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return fiber.NewError(http.StatusBadRequest, "invalid limit")
		}
		limit = min(n, maxHistoryLimit)
	}

	rows, err := h.recorder.Store().ListByRecipient(c.UserContext(), address, limit)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"streamer_wallet": address,
		"donations":       rows,
	})
}
