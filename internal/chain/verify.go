package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrDonationMismatch is returned when a transaction is not the donate call it claims to be.
	ErrDonationMismatch = errors.New("transaction does not match donation")
	// ErrTransactionPending is returned when a transaction has not been mined yet.
	ErrTransactionPending = errors.New("transaction pending")
)

// ExpectedDonation is the donate call a client-reported transaction must carry.
type ExpectedDonation struct {
	Donor     common.Address
	Recipient common.Address
	Amount    *big.Int
}

// DecodeDonate unpacks donate(token, amount, streamer) calldata.
func DecodeDonate(data []byte) (token common.Address, amount *big.Int, streamer common.Address, err error) {
	if len(data) < 4 {
		return common.Address{}, nil, common.Address{}, fmt.Errorf("%w: calldata too short", ErrDonationMismatch)
	}
	method, err := DonationABI.MethodById(data[:4])
	if err != nil || method.Name != "donate" {
		return common.Address{}, nil, common.Address{}, fmt.Errorf("%w: not a donate call", ErrDonationMismatch)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil || len(args) != 3 {
		return common.Address{}, nil, common.Address{}, fmt.Errorf("%w: malformed donate arguments", ErrDonationMismatch)
	}

	token, okToken := args[0].(common.Address)
	amount, okAmount := args[1].(*big.Int)
	streamer, okStreamer := args[2].(common.Address)
	if !okToken || !okAmount || !okStreamer {
		return common.Address{}, nil, common.Address{}, fmt.Errorf("%w: malformed donate arguments", ErrDonationMismatch)
	}
	return token, amount, streamer, nil
}

// VerifyDonation checks that hash is a successful donate call sent by
// want.Donor to the donation contract, moving want.Amount of the configured
// token to want.Recipient.
func (c *Client) VerifyDonation(ctx context.Context, hash common.Hash, want ExpectedDonation) error {
	tx, pending, err := c.eth.TransactionByHash(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return fmt.Errorf("%w: %s not found", ErrDonationMismatch, hash.Hex())
	}
	if err != nil {
		return fmt.Errorf("fetch transaction: %w", err)
	}
	if pending {
		return fmt.Errorf("%w: %s", ErrTransactionPending, hash.Hex())
	}

	if to := tx.To(); to == nil || *to != c.desc.DonationContract {
		return fmt.Errorf("%w: not sent to the donation contract", ErrDonationMismatch)
	}
	from, err := types.Sender(types.LatestSignerForChainID(c.desc.ChainID), tx)
	if err != nil {
		return fmt.Errorf("%w: sender: %v", ErrDonationMismatch, err)
	}
	if from != want.Donor {
		return fmt.Errorf("%w: sent by %s", ErrDonationMismatch, from.Hex())
	}

	token, amount, streamer, err := DecodeDonate(tx.Data())
	if err != nil {
		return err
	}
	if token != c.desc.Token {
		return fmt.Errorf("%w: token %s", ErrDonationMismatch, token.Hex())
	}
	if streamer != want.Recipient {
		return fmt.Errorf("%w: recipient %s", ErrDonationMismatch, streamer.Hex())
	}
	if want.Amount == nil || amount.Cmp(want.Amount) != 0 {
		return fmt.Errorf("%w: amount %s", ErrDonationMismatch, amount)
	}

	receipt, err := c.eth.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return fmt.Errorf("%w: %s", ErrTransactionPending, hash.Hex())
	}
	if err != nil {
		return fmt.Errorf("fetch receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: %s", ErrReverted, hash.Hex())
	}
	return nil
}
