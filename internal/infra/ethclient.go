package infra

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
)

// NewEthClient dials the JSON-RPC endpoint and checks it serves the expected chain.
func NewEthClient(ctx context.Context, url string, chainID int64) (*ethclient.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("rpc url is required")
	}

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	id, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	if id.Int64() != chainID {
		client.Close()
		return nil, fmt.Errorf("rpc serves chain %s, expected %d", id, chainID)
	}

	return client, nil
}
