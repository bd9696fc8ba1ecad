package infra

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient configures a Redis client named after appName and verifies
// connectivity, retrying the ping until ctx expires.
func NewRedisClient(ctx context.Context, url, appName string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.ClientName == "" && appName != "" {
		opt.ClientName = strings.ToLower(appName)
	}

	client := redis.NewClient(opt)

	ping := func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
	if err := retryPing(ctx, ping); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}
