package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/sawerbase/sawerbase/internal/wallet"
)

const (
	idempotencyKeyHeader    = "Idempotency-Key"
	idempotencyReplayHeader = "Idempotent-Replayed"
	idempotencyPrefix       = "idempotency:v2:"
	inProgressMarker        = "__in_progress__"
	maxIdempotencyKeyLen    = 128
	idempotencyStoreTimeout = 2 * time.Second
)

type replay struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

type replayStore struct {
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// lookup returns the stored replay for key. pending is true while another
// request holding the same key is still running.
func (s replayStore) lookup(key string) (r *replay, pending bool, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), idempotencyStoreTimeout)
	defer cancel()

	raw, err := s.cache.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if string(raw) == inProgressMarker {
		return nil, true, nil
	}

	var stored replay
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, false, err
	}
	return &stored, false, nil
}

// reserve claims key; false means another request won the race.
func (s replayStore) reserve(key string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), idempotencyStoreTimeout)
	defer cancel()
	return s.cache.SetNX(ctx, key, inProgressMarker, s.ttl).Result()
}

func (s replayStore) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), idempotencyStoreTimeout)
	defer cancel()
	if err := s.cache.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("idempotency release failed", slog.String("key", key), slog.Any("error", err))
	}
}

func (s replayStore) save(key string, r replay) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), idempotencyStoreTimeout)
	defer cancel()
	return s.cache.Set(ctx, key, payload, s.ttl).Err()
}

// Idempotency replays stored responses for repeated unsafe requests carrying
// the same Idempotency-Key. Keys are scoped to the route and the caller's
// identity. Server errors are not stored so the client can retry after a
// relay or RPC outage.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	store := replayStore{cache: cache, ttl: ttl, logger: logger}

	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing Idempotency-Key header")
		}
		if len(key) > maxIdempotencyKeyLen {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
		}
		cacheKey := idempotencyPrefix + scope(c) + ":" + key

		stored, pending, err := store.lookup(cacheKey)
		switch {
		case err != nil:
			logger.Error("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		case pending:
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		case stored != nil:
			if stored.ContentType != "" {
				c.Set(fiber.HeaderContentType, stored.ContentType)
			}
			c.Set(idempotencyReplayHeader, "true")
			return c.Status(stored.Status).Send(stored.Body)
		}

		won, err := store.reserve(cacheKey)
		if err != nil {
			logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency reservation failure")
		}
		if !won {
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		}

		if err := c.Next(); err != nil {
			store.release(cacheKey)
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			store.release(cacheKey)
			return nil
		}

		r := replay{
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		}
		if err := store.save(cacheKey, r); err != nil {
			logger.Error("failed to persist idempotent response", slog.String("key", key), slog.Any("error", err))
			store.release(cacheKey)
		}
		return nil
	}
}

func scope(c *fiber.Ctx) string {
	sum := sha256.Sum256([]byte(c.Method() + " " + c.Path() + " " + wallet.IdentityFrom(c).Subject))
	return hex.EncodeToString(sum[:8])
}
