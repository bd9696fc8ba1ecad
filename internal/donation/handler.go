package donation

import (
	"context"
	"errors"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/gofiber/fiber/v2"

	"github.com/sawerbase/sawerbase/internal/chain"
	"github.com/sawerbase/sawerbase/internal/wallet"
)

var errSignatureDeclined = errors.New("donor declined to sign")

// presignedSigner hands over a signature the browser already collected.
type presignedSigner struct {
	sig      []byte
	declined bool
}

func (s presignedSigner) SignPermit(context.Context, apitypes.TypedData, common.Hash) ([]byte, error) {
	if s.declined || len(s.sig) == 0 {
		return nil, errSignatureDeclined
	}
	return s.sig, nil
}

// presignedSender reports a transaction the browser already broadcast.
type presignedSender struct {
	hash common.Hash
}

func (s presignedSender) Send(context.Context, chain.Call) (common.Hash, error) {
	return s.hash, nil
}

// Handler exposes donation endpoints.
type Handler struct {
	orchestrator *Orchestrator
}

// NewHandler constructs a donation handler.
func NewHandler(orchestrator *Orchestrator) *Handler {
	return &Handler{orchestrator: orchestrator}
}

type donateRequest struct {
	Amount            string `json:"amount"`
	Recipient         string `json:"recipient"`
	DonorName         string `json:"donor_name"`
	Private           bool   `json:"private"`
	Message           string `json:"message"`
	Signature         string `json:"signature"`
	SignatureDeclined bool   `json:"signature_declined"`
	Deadline          string `json:"deadline"`
	TxHash            string `json:"tx_hash"`
}

type amountRequest struct {
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
}

type approveRequest struct {
	TxHash string `json:"tx_hash"`
}

// Status reports the donation form state for ?amount=.
func (h *Handler) Status(c *fiber.Ctx) error {
	res, err := h.orchestrator.Status(c.UserContext(), wallet.IdentityFrom(c), c.Query("amount"))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(res)
}

// Permit returns typed data for the donor to sign.
func (h *Handler) Permit(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.orchestrator.PreparePermit(c.UserContext(), wallet.IdentityFrom(c), req.Amount)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(res)
}

// Calldata returns the donate call for donors sending from their own wallet.
func (h *Handler) Calldata(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	call, err := h.orchestrator.PrepareDirect(c.UserContext(), wallet.IdentityFrom(c), req.Amount, req.Recipient)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(call)
}

// Approve prepares or confirms the allowance step of the direct path.
func (h *Handler) Approve(c *fiber.Ctx) error {
	var req approveRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	var sender Sender
	if req.TxHash != "" {
		hash, err := parseHash(req.TxHash)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid tx_hash")
		}
		sender = presignedSender{hash: hash}
	}
	res, err := h.orchestrator.Approve(c.UserContext(), wallet.IdentityFrom(c), sender)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(res)
}

// Donate runs a donation attempt.
func (h *Handler) Donate(c *fiber.Ctx) error {
	var req donateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	in := DonateRequest{
		Amount:    req.Amount,
		Recipient: req.Recipient,
		DonorName: req.DonorName,
		Private:   req.Private,
		Message:   req.Message,
	}
	if req.Signature != "" || req.SignatureDeclined {
		var sig []byte
		if req.Signature != "" {
			decoded, err := hexutil.Decode(req.Signature)
			if err != nil {
				return fiber.NewError(http.StatusBadRequest, "invalid signature encoding")
			}
			sig = decoded
		}
		in.Signer = presignedSigner{sig: sig, declined: req.SignatureDeclined}
	}
	if req.Deadline != "" {
		deadline, ok := new(big.Int).SetString(req.Deadline, 10)
		if !ok {
			return fiber.NewError(http.StatusBadRequest, "invalid deadline")
		}
		in.PermitDeadline = deadline
	}
	if req.TxHash != "" {
		hash, err := parseHash(req.TxHash)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid tx_hash")
		}
		in.Sender = presignedSender{hash: hash}
	}

	res, err := h.orchestrator.Donate(c.UserContext(), wallet.IdentityFrom(c), in)
	if err != nil {
		if res.State == StateError {
			return c.Status(http.StatusBadGateway).JSON(res)
		}
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(res)
}

func parseHash(raw string) (common.Hash, error) {
	b, err := hexutil.Decode(raw)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, errors.New("wrong hash length")
	}
	return common.BytesToHash(b), nil
}

func mapError(err error) error {
	switch {
	case IsValidation(err):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrLoginRequired):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrAddressPending), errors.Is(err, ErrInFlight):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrWrongPath):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSponsorUnavailable):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
}
