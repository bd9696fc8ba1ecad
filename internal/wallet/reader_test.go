package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/sawerbase/sawerbase/internal/chain"
	"github.com/sawerbase/sawerbase/internal/logging"
)

type stubTokens struct {
	balance       *big.Int
	allowance     *big.Int
	decimals      uint8
	failBalance   bool
	failDecimals  bool
	balanceReads  int32
	decimalsReads int32
}

func (s *stubTokens) BalanceOf(context.Context, common.Address) (*big.Int, error) {
	atomic.AddInt32(&s.balanceReads, 1)
	if s.failBalance {
		return nil, errors.New("rpc down")
	}
	return new(big.Int).Set(s.balance), nil
}

func (s *stubTokens) Allowance(context.Context, common.Address, common.Address) (*big.Int, error) {
	return new(big.Int).Set(s.allowance), nil
}

func (s *stubTokens) Decimals(context.Context) (uint8, error) {
	atomic.AddInt32(&s.decimalsReads, 1)
	if s.failDecimals {
		return 0, errors.New("rpc down")
	}
	return s.decimals, nil
}

func (s *stubTokens) Nonces(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

var (
	owner   = common.HexToAddress("0x5555555555555555555555555555555555555555")
	spender = common.HexToAddress("0x0030ebc28d61d9B4e13951aF4D7cF55905F967D1")
)

func TestResolve(t *testing.T) {
	cases := []struct {
		name string
		id   Identity
		want common.Address
		ok   bool
	}{
		{name: "unauthenticated", id: Identity{WalletAddress: owner.Hex()}},
		{name: "external", id: Identity{Authenticated: true, Connector: ConnectorExternal, WalletAddress: owner.Hex()}, want: owner, ok: true},
		{name: "embedded uses smart account", id: Identity{Authenticated: true, Connector: ConnectorEmbedded, WalletAddress: spender.Hex(), SmartAccount: owner.Hex()}, want: owner, ok: true},
		{name: "embedded pending", id: Identity{Authenticated: true, Connector: ConnectorEmbedded, WalletAddress: spender.Hex()}},
		{name: "malformed", id: Identity{Authenticated: true, WalletAddress: "0x123"}},
	}
	for _, tc := range cases {
		got, ok := Resolve(tc.id)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%s: expected (%s, %v), got (%s, %v)", tc.name, tc.want.Hex(), tc.ok, got.Hex(), ok)
		}
	}
}

func TestSnapshotCachesUntilInvalidated(t *testing.T) {
	tokens := &stubTokens{balance: big.NewInt(1_000), allowance: big.NewInt(10), decimals: 2}
	r := NewReader(tokens, spender, NewMemoryCache(), logging.Discard())
	ctx := context.Background()

	snap := r.Snapshot(ctx, owner, true)
	if !snap.BalanceKnown || snap.Balance.Int64() != 1_000 || snap.Decimals != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	tokens.balance = big.NewInt(400)
	snap = r.Snapshot(ctx, owner, true)
	if snap.Balance.Int64() != 1_000 {
		t.Fatalf("expected cached balance 1000, got %s", snap.Balance)
	}

	r.Invalidate(ctx, owner)
	snap = r.Snapshot(ctx, owner, true)
	if snap.Balance.Int64() != 400 {
		t.Fatalf("expected refreshed balance 400, got %s", snap.Balance)
	}
	if n := atomic.LoadInt32(&tokens.balanceReads); n != 2 {
		t.Fatalf("expected 2 balance reads, got %d", n)
	}
	if n := atomic.LoadInt32(&tokens.decimalsReads); n != 1 {
		t.Fatalf("expected decimals read once, got %d", n)
	}
}

func TestSnapshotFailsClosed(t *testing.T) {
	tokens := &stubTokens{allowance: big.NewInt(0), failBalance: true, failDecimals: true}
	r := NewReader(tokens, spender, NewMemoryCache(), logging.Discard())

	snap := r.Snapshot(context.Background(), owner, true)
	if snap.BalanceKnown {
		t.Fatalf("expected unknown balance")
	}
	if snap.Covers(big.NewInt(1)) {
		t.Fatalf("unknown balance must not cover any amount")
	}
	if snap.DecimalsKnown || snap.Decimals != chain.DefaultDecimals {
		t.Fatalf("expected default decimals, got %d", snap.Decimals)
	}
}

func TestSnapshotSkipsReadsWhenUnresolved(t *testing.T) {
	tokens := &stubTokens{balance: big.NewInt(1), allowance: big.NewInt(1), decimals: 18}
	r := NewReader(tokens, spender, NewMemoryCache(), logging.Discard())

	snap := r.Snapshot(context.Background(), common.Address{}, false)
	if snap.Resolved || snap.BalanceKnown || snap.AllowanceKnown {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
	if atomic.LoadInt32(&tokens.balanceReads) != 0 || atomic.LoadInt32(&tokens.decimalsReads) != 0 {
		t.Fatalf("expected no reads for unresolved address")
	}
}

func TestRedisCacheSharesReads(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	tokens := &stubTokens{balance: big.NewInt(7_500), allowance: big.NewInt(0), decimals: 18}
	first := NewReader(tokens, spender, NewRedisCache(client), logging.Discard())
	second := NewReader(tokens, spender, NewRedisCache(client), logging.Discard())
	ctx := context.Background()

	if _, err := first.Balance(ctx, owner); err != nil {
		t.Fatalf("balance: %v", err)
	}
	bal, err := second.Balance(ctx, owner)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Int64() != 7_500 {
		t.Fatalf("expected 7500, got %s", bal)
	}
	if n := atomic.LoadInt32(&tokens.balanceReads); n != 1 {
		t.Fatalf("expected a single chain read, got %d", n)
	}
	if !mr.Exists(cachePrefix + balanceKey(owner)) {
		t.Fatalf("expected balance key in redis")
	}

	second.Invalidate(ctx, owner)
	if mr.Exists(cachePrefix + balanceKey(owner)) {
		t.Fatalf("expected balance key removed")
	}
}
