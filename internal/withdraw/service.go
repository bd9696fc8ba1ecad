package withdraw

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/sawerbase/sawerbase/internal/chain"
	"github.com/sawerbase/sawerbase/internal/notification"
	"github.com/sawerbase/sawerbase/internal/relay"
	"github.com/sawerbase/sawerbase/internal/wallet"
)

var (
	// ErrLoginRequired is returned for unauthenticated callers.
	ErrLoginRequired = errors.New("login required")
	// ErrAddressPending is returned while the caller's active address is unresolved.
	ErrAddressPending = errors.New("active address not resolved")
	// ErrInvalidAddress is returned for malformed destination addresses.
	ErrInvalidAddress = errors.New("invalid destination address")
	// ErrZeroAmount is returned for zero, negative or unparsable amounts.
	ErrZeroAmount = errors.New("amount must be greater than zero")
	// ErrInsufficientFunds is returned when the amount exceeds the balance or the balance is unknown.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Waiter blocks until a transaction is mined.
type Waiter interface {
	Wait(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Service moves a streamer's token balance to another address.
type Service struct {
	desc     chain.Descriptor
	reader   *wallet.Reader
	relay    relay.Submitter
	waiter   Waiter
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService builds a withdrawal service.
func NewService(desc chain.Descriptor, reader *wallet.Reader, submitter relay.Submitter, waiter Waiter, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{desc: desc, reader: reader, relay: submitter, waiter: waiter, notifier: notifier, logger: logger}
}

// Input is a withdrawal request.
type Input struct {
	Recipient string
	Amount    string
}

// Result reports either a confirmed sponsored transfer or a call the wallet must send itself.
type Result struct {
	Prepared bool        `json:"prepared"`
	Call     *chain.Call `json:"call,omitempty"`
	TxHash   string      `json:"tx_hash,omitempty"`
	Amount   string      `json:"amount"`
}

// Withdraw validates the request before any network write. Embedded identities
// transfer through the sponsor relay and wait for confirmation; external
// identities get the encoded transfer back.
func (s *Service) Withdraw(ctx context.Context, id wallet.Identity, in Input) (Result, error) {
	if !id.Authenticated {
		return Result{}, ErrLoginRequired
	}
	owner, ok := wallet.Resolve(id)
	if !ok {
		return Result{}, ErrAddressPending
	}

	to := strings.TrimSpace(in.Recipient)
	if !common.IsHexAddress(to) {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidAddress, in.Recipient)
	}
	decimals := s.reader.DecimalsOrDefault(ctx)
	amount, err := chain.ParseAmount(in.Amount, decimals)
	if err != nil || amount.Sign() <= 0 {
		return Result{}, ErrZeroAmount
	}
	balance, err := s.reader.Balance(ctx, owner)
	if err != nil {
		s.logger.Warn("balance unavailable for withdrawal", slog.String("owner", owner.Hex()), slog.Any("error", err))
		return Result{}, ErrInsufficientFunds
	}
	if amount.Cmp(balance) > 0 {
		return Result{}, ErrInsufficientFunds
	}

	call, err := s.desc.TransferCall(common.HexToAddress(to), amount)
	if err != nil {
		return Result{}, err
	}
	res := Result{Amount: chain.FormatUnits(amount, decimals)}
	if !id.Embedded() {
		res.Prepared, res.Call = true, &call
		return res, nil
	}

	ctx = context.WithoutCancel(ctx)
	hash, err := s.relay.Submit(ctx, owner, []chain.Call{call})
	if err != nil {
		return Result{}, fmt.Errorf("submit withdrawal: %w", err)
	}
	res.TxHash = hash.Hex()
	if _, err := s.waiter.Wait(ctx, hash); err != nil {
		return res, fmt.Errorf("confirm withdrawal: %w", err)
	}

	s.reader.Invalidate(ctx, owner)
	s.logger.Info("withdrawal confirmed",
		slog.String("owner", owner.Hex()),
		slog.String("recipient", to),
		slog.String("amount", amount.String()),
		slog.String("tx_hash", res.TxHash),
	)
	if s.notifier != nil {
		msg := notification.Message{
			Kind:        notification.KindWithdrawal,
			Destination: owner.Hex(),
			Body:        fmt.Sprintf("Withdrew %s %s to %s", chain.FormatBaseDisplay(amount, decimals), s.desc.TokenSymbol, to),
			TxHash:      res.TxHash,
		}
		if err := s.notifier.Send(ctx, msg); err != nil {
			s.logger.Warn("notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
		}
	}
	return res, nil
}
