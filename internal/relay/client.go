package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"

	"github.com/sawerbase/sawerbase/internal/chain"
)

var (
	// ErrRejected is returned when the relay refuses the batch.
	ErrRejected = errors.New("relay rejected batch")
	// ErrEmptyBatch is returned when Submit is called without calls.
	ErrEmptyBatch = errors.New("empty call batch")
)

// Submitter sends a batch of calls as one sponsored transaction.
type Submitter interface {
	Submit(ctx context.Context, sender common.Address, calls []chain.Call) (common.Hash, error)
}

type batchRequest struct {
	Sender common.Address `json:"sender"`
	Calls  []chain.Call   `json:"calls"`
}

type batchResponse struct {
	TxHash common.Hash `json:"tx_hash"`
	Error  string      `json:"error,omitempty"`
}

// Client talks to the fee-sponsoring relay endpoint.
type Client struct {
	endpoint string
	client   *http.Client
	// RateLimitWait bounds how long a 429 response is retried.
	RateLimitWait time.Duration
}

// NewClient builds a relay client for endpoint.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint:      endpoint,
		client:        &http.Client{Timeout: timeout},
		RateLimitWait: 10 * time.Second,
	}
}

// Submit posts the batch once. The only retried outcome is 429, where the relay
// has not accepted the batch; transport errors after the request was written are
// returned as-is so a batch is never submitted twice.
func (c *Client) Submit(ctx context.Context, sender common.Address, calls []chain.Call) (common.Hash, error) {
	if len(calls) == 0 {
		return common.Hash{}, ErrEmptyBatch
	}
	payload, err := json.Marshal(batchRequest{Sender: sender, Calls: calls})
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode batch: %w", err)
	}

	var out batchResponse
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("post batch: %w", err))
		}
		defer resp.Body.Close() // nolint:errcheck

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read response: %w", err))
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: rate limited", ErrRejected)
		}
		if resp.StatusCode != http.StatusOK {
			msg := string(bytes.TrimSpace(body))
			var decoded batchResponse
			if json.Unmarshal(body, &decoded) == nil && decoded.Error != "" {
				msg = decoded.Error
			}
			return backoff.Permanent(fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, msg))
		}

		if err := json.Unmarshal(body, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		if out.TxHash == (common.Hash{}) {
			return backoff.Permanent(fmt.Errorf("%w: response carried no tx hash", ErrRejected))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = c.RateLimitWait

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return common.Hash{}, err
	}
	return out.TxHash, nil
}
