package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/sawerbase/sawerbase/internal/ledger"
)

// PushSource delivers ledger change events for the whole donations table.
// Consumers filter by recipient themselves.
type PushSource interface {
	Subscribe(ctx context.Context) (<-chan ledger.Donation, func(), error)
}

// RedisSource reads change events published by ledger.RedisPublisher.
type RedisSource struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisSource builds a push source on ledger.ChangesChannel.
func NewRedisSource(client *redis.Client, logger *slog.Logger) *RedisSource {
	return &RedisSource{client: client, logger: logger}
}

// Subscribe starts listening. The returned channel closes when ctx ends or the stop func runs.
func (s *RedisSource) Subscribe(ctx context.Context) (<-chan ledger.Donation, func(), error) {
	pubsub := s.client.Subscribe(ctx, ledger.ChangesChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close() // nolint:errcheck
		return nil, nil, fmt.Errorf("subscribe %s: %w", ledger.ChangesChannel, err)
	}

	out := make(chan ledger.Donation, 16)
	msgs := pubsub.Channel()
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				d, err := ledger.DecodeChange(msg.Payload)
				if err != nil {
					s.logger.Warn("dropping malformed change event", slog.Any("error", err))
					continue
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, func() { pubsub.Close() }, nil // nolint:errcheck
}
