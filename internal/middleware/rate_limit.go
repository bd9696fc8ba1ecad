package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/sawerbase/sawerbase/internal/wallet"
)

// DonateRateLimit limits donation submissions per active wallet, or per IP when
// no wallet resolves, using a fixed one-minute window in Redis.
func DonateRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 10
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		subject := c.IP()
		if addr, ok := wallet.Resolve(wallet.IdentityFrom(c)); ok {
			subject = strings.ToLower(addr.Hex())
		}
		key := "rl:donate:" + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many donation attempts, try again later")
		}
		return c.Next()
	}
}
