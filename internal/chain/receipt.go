package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrConfirmationTimeout is returned when no receipt appears within the wait budget.
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")
	// ErrReverted is returned when the transaction was mined with a failed status.
	ErrReverted = errors.New("transaction reverted")

	errReceiptPending = errors.New("receipt pending")
)

// DefaultConfirmTimeout bounds a receipt wait when no positive timeout is configured.
const DefaultConfirmTimeout = 2 * time.Minute

// ReceiptWaiter polls for a transaction receipt until it is mined or Timeout elapses.
type ReceiptWaiter struct {
	eth          EthClient
	PollInterval time.Duration
	MaxInterval  time.Duration
	Timeout      time.Duration
}

// NewReceiptWaiter builds a waiter bounded by timeout, or DefaultConfirmTimeout
// when timeout is not positive.
func NewReceiptWaiter(eth EthClient, timeout time.Duration) *ReceiptWaiter {
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	return &ReceiptWaiter{
		eth:          eth,
		PollInterval: time.Second,
		MaxInterval:  5 * time.Second,
		Timeout:      timeout,
	}
}

// Wait blocks until hash is mined. A mined-but-failed transaction yields ErrReverted.
func (w *ReceiptWaiter) Wait(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt

	operation := func() error {
		r, err := w.eth.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			return errReceiptPending
		}
		if err != nil {
			// RPC hiccups are retried until the budget runs out
			return fmt.Errorf("fetch receipt: %w", err)
		}
		receipt = r
		return nil
	}

	timeout := w.Timeout
	if timeout <= 0 {
		// a zero MaxElapsedTime would poll forever
		timeout = DefaultConfirmTimeout
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.PollInterval
	b.MaxInterval = w.MaxInterval
	b.MaxElapsedTime = timeout
	b.Multiplier = 1.5
	b.RandomizationFactor = 0.2

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w after %s: %v", ErrConfirmationTimeout, timeout, err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrReverted, hash.Hex())
	}
	return receipt, nil
}
