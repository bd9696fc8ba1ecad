package wallet

import (
	"context"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sawerbase/sawerbase/internal/chain"
)

const defaultCacheTTL = 30 * time.Second

// Reader serves balance, allowance and decimals reads for active addresses.
type Reader struct {
	tokens  chain.TokenReader
	spender common.Address
	cache   Cache
	ttl     time.Duration
	logger  *slog.Logger

	mu            sync.Mutex
	decimals      uint8
	decimalsKnown bool
}

// NewReader builds a reader. spender is the donation contract checked by Allowance snapshots.
func NewReader(tokens chain.TokenReader, spender common.Address, cache Cache, logger *slog.Logger) *Reader {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Reader{tokens: tokens, spender: spender, cache: cache, ttl: defaultCacheTTL, logger: logger}
}

func balanceKey(owner common.Address) string {
	return "balance:" + strings.ToLower(owner.Hex())
}

func allowanceKey(owner, spender common.Address) string {
	return "allowance:" + strings.ToLower(owner.Hex()) + ":" + strings.ToLower(spender.Hex())
}

// Balance returns the token balance of owner.
func (r *Reader) Balance(ctx context.Context, owner common.Address) (*big.Int, error) {
	return r.cached(ctx, balanceKey(owner), func() (*big.Int, error) {
		return r.tokens.BalanceOf(ctx, owner)
	})
}

// Allowance returns how much spender may pull from owner.
func (r *Reader) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return r.cached(ctx, allowanceKey(owner, spender), func() (*big.Int, error) {
		return r.tokens.Allowance(ctx, owner, spender)
	})
}

// Decimals returns the token precision. A successful read is kept for the process lifetime.
func (r *Reader) Decimals(ctx context.Context) (uint8, error) {
	r.mu.Lock()
	if r.decimalsKnown {
		d := r.decimals
		r.mu.Unlock()
		return d, nil
	}
	r.mu.Unlock()

	d, err := r.tokens.Decimals(ctx)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	r.decimals, r.decimalsKnown = d, true
	r.mu.Unlock()
	return d, nil
}

// DecimalsOrDefault returns the token precision, falling back to chain.DefaultDecimals.
func (r *Reader) DecimalsOrDefault(ctx context.Context) uint8 {
	d, err := r.Decimals(ctx)
	if err != nil {
		r.logger.Warn("decimals read failed", slog.Any("error", err))
		return chain.DefaultDecimals
	}
	return d
}

// Snapshot reads all token state for the identity's active address. Reads are
// skipped when the address is unresolved, and failed reads are reported as unknown.
func (r *Reader) Snapshot(ctx context.Context, owner common.Address, resolved bool) Snapshot {
	snap := Snapshot{Address: owner, Resolved: resolved, Decimals: chain.DefaultDecimals}
	if !resolved {
		return snap
	}

	if d, err := r.Decimals(ctx); err == nil {
		snap.Decimals, snap.DecimalsKnown = d, true
	} else {
		r.logger.Warn("decimals read failed", slog.Any("error", err))
	}

	if bal, err := r.Balance(ctx, owner); err == nil {
		snap.Balance, snap.BalanceKnown = bal, true
	} else {
		r.logger.Warn("balance read failed", slog.String("address", owner.Hex()), slog.Any("error", err))
	}

	if allowance, err := r.Allowance(ctx, owner, r.spender); err == nil {
		snap.Allowance, snap.AllowanceKnown = allowance, true
	} else {
		r.logger.Warn("allowance read failed", slog.String("address", owner.Hex()), slog.Any("error", err))
	}
	return snap
}

// Invalidate drops cached balance and allowance for owner so the next read hits the chain.
func (r *Reader) Invalidate(ctx context.Context, owner common.Address) {
	if err := r.cache.Delete(ctx, balanceKey(owner), allowanceKey(owner, r.spender)); err != nil {
		r.logger.Warn("cache invalidation failed", slog.String("address", owner.Hex()), slog.Any("error", err))
	}
}

func (r *Reader) cached(ctx context.Context, key string, load func() (*big.Int, error)) (*big.Int, error) {
	if v, ok, err := r.cache.Get(ctx, key); err == nil && ok {
		return v, nil
	} else if err != nil {
		// fall through to the chain on cache errors
		r.logger.Warn("cache read failed", slog.String("key", key), slog.Any("error", err))
	}

	v, err := load()
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, key, v, r.ttl); err != nil {
		r.logger.Warn("cache write failed", slog.String("key", key), slog.Any("error", err))
	}
	return v, nil
}
