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
	// ErrEmptyResult is returned when a view call yields no data, typically because
	// nothing is deployed at the configured address.
	ErrEmptyResult = errors.New("empty call result")
	// ErrNoRPC is returned by OfflineClient.
	ErrNoRPC = errors.New("no rpc endpoint configured")
)

// EthClient is the subset of ethclient.Client used by the service.
type EthClient interface {
	// CallContract executes a read-only call
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)

	// TransactionReceipt returns the receipt of a mined transaction
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)

	// TransactionByHash returns a transaction and whether it is still pending
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
}

// OfflineClient stands in for a node in local runs without ETH_RPC_URL.
// Every call fails, so balance reads fail closed.
type OfflineClient struct{}

// CallContract always fails with ErrNoRPC.
func (OfflineClient) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, ErrNoRPC
}

// TransactionReceipt always fails with ErrNoRPC.
func (OfflineClient) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, ErrNoRPC
}

// TransactionByHash always fails with ErrNoRPC.
func (OfflineClient) TransactionByHash(context.Context, common.Hash) (*types.Transaction, bool, error) {
	return nil, false, ErrNoRPC
}

// TokenReader exposes read-only token queries.
type TokenReader interface {
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	Decimals(ctx context.Context) (uint8, error)
	Nonces(ctx context.Context, owner common.Address) (*big.Int, error)
}

// Client reads token state through an EthClient.
type Client struct {
	eth  EthClient
	desc Descriptor
}

// NewClient builds a token client for the descriptor's token.
func NewClient(eth EthClient, desc Descriptor) *Client {
	return &Client{eth: eth, desc: desc}
}

// Descriptor returns the contract description the client was built with.
func (c *Client) Descriptor() Descriptor {
	return c.desc
}

// BalanceOf fetches the token balance of owner.
func (c *Client) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	var out *big.Int
	if err := c.call(ctx, &out, "balanceOf", owner); err != nil {
		return nil, err
	}
	return out, nil
}

// Allowance fetches how much spender may pull from owner.
func (c *Client) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	var out *big.Int
	if err := c.call(ctx, &out, "allowance", owner, spender); err != nil {
		return nil, err
	}
	return out, nil
}

// Decimals fetches the token precision.
func (c *Client) Decimals(ctx context.Context) (uint8, error) {
	var out uint8
	if err := c.call(ctx, &out, "decimals"); err != nil {
		return 0, err
	}
	return out, nil
}

// Nonces fetches the permit replay-protection nonce of owner.
func (c *Client) Nonces(ctx context.Context, owner common.Address) (*big.Int, error) {
	var out *big.Int
	if err := c.call(ctx, &out, "nonces", owner); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, out interface{}, method string, args ...interface{}) error {
	data, err := ERC20ABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}

	token := c.desc.Token
	result, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	if len(result) == 0 {
		return fmt.Errorf("call %s: %w", method, ErrEmptyResult)
	}

	if err := ERC20ABI.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("unpack %s: %w", method, err)
	}
	return nil
}
