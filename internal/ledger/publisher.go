package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ChangesChannel carries every inserted donation row as JSON.
const ChangesChannel = "ledger:donations:v1"

// Publisher announces inserted rows.
type Publisher interface {
	Publish(ctx context.Context, d Donation) error
}

// RedisPublisher fans out inserts over Redis pub/sub.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher builds a publisher on ChangesChannel.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, channel: ChangesChannel}
}

// Publish sends d to all subscribers.
func (p *RedisPublisher) Publish(ctx context.Context, d Donation) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode donation: %w", err)
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

// DecodeChange parses a message published by RedisPublisher.
func DecodeChange(payload string) (Donation, error) {
	var d Donation
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return Donation{}, fmt.Errorf("decode donation: %w", err)
	}
	return d, nil
}
