package infra

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPingSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := retryPing(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not ready")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryPingStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := retryPing(ctx, func(context.Context) error {
		return errors.New("down")
	})
	if err == nil {
		t.Fatal("expected error once the context expires")
	}
}

func TestNewRedisClientRequiresURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "", "sawerbase"); err == nil {
		t.Fatal("expected error for empty url")
	}
}
