package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/sawerbase/sawerbase/internal/logging"
)

const (
	streamer = "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01"
	txHash   = "0x8c3f1b3c1d3e9e4f0a3c6b2f8f7e5d4c3b2a19081726354433221100ffeeddcc"
)

func TestRecorderWritesCompletedRow(t *testing.T) {
	store := NewInMemory()
	rec := NewRecorder(store, nil, "IDRX", logging.Discard())
	ctx := context.Background()

	d, err := rec.RecordDonation(ctx, RecordInput{
		DonorName: "Budi",
		Amount:    decimal.RequireFromString("50000"),
		Message:   "Semangat!",
		Recipient: streamer,
		Status:    StatusCompleted,
		TxHash:    txHash,
	})
	if err != nil {
		t.Fatalf("record donation: %v", err)
	}
	if d.ID == "" || d.CoinType != "IDRX" || d.TxDigest != txHash {
		t.Fatalf("unexpected row: %+v", d)
	}

	rows, err := store.ListByRecipient(ctx, strings.ToLower(streamer), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Amount.String() != "50000" || rows[0].DonorName != "Budi" {
		t.Fatalf("expected the recorded row, got %+v", rows)
	}
}

func TestRecorderDefaultsAndValidation(t *testing.T) {
	rec := NewRecorder(NewInMemory(), nil, "IDRX", logging.Discard())
	ctx := context.Background()

	d, err := rec.RecordDonation(ctx, RecordInput{DonorName: "   ", Amount: decimal.NewFromInt(1), Recipient: streamer, Status: StatusFailed})
	if err != nil {
		t.Fatalf("record failed donation: %v", err)
	}
	if d.DonorName != PublicDonorName || d.TxDigest != "" {
		t.Fatalf("unexpected failed row: %+v", d)
	}

	invalid := []RecordInput{
		{Amount: decimal.NewFromInt(1), Recipient: streamer, Status: "pending"},
		{Amount: decimal.NewFromInt(-1), Recipient: streamer, Status: StatusFailed},
		{Amount: decimal.NewFromInt(1), Recipient: "not-an-address", Status: StatusFailed},
		{Amount: decimal.NewFromInt(1), Recipient: streamer, Status: StatusFailed, Message: strings.Repeat("x", MaxMessageLength+1)},
		{Amount: decimal.NewFromInt(1), Recipient: streamer, Status: StatusCompleted},
	}
	for i, in := range invalid {
		if _, err := rec.RecordDonation(ctx, in); !errors.Is(err, ErrInvalidDonation) {
			t.Fatalf("case %d: expected invalid donation, got %v", i, err)
		}
	}

	// a multi-byte message at the limit is accepted
	if _, err := rec.RecordDonation(ctx, RecordInput{Amount: decimal.NewFromInt(1), Recipient: streamer, Status: StatusFailed, Message: strings.Repeat("é", MaxMessageLength)}); err != nil {
		t.Fatalf("expected 200-character message to pass: %v", err)
	}
}

func TestInMemoryDuplicateTransaction(t *testing.T) {
	rec := NewRecorder(NewInMemory(), nil, "IDRX", logging.Discard())
	ctx := context.Background()
	in := RecordInput{Amount: decimal.NewFromInt(10), Recipient: streamer, Status: StatusCompleted, TxHash: txHash}

	if _, err := rec.RecordDonation(ctx, in); err != nil {
		t.Fatalf("initial record failed: %v", err)
	}
	if _, err := rec.RecordDonation(ctx, in); err != ErrDuplicateTransaction {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestRecorderTreatsHashCaseVariantsAsOneTransfer(t *testing.T) {
	rec := NewRecorder(NewInMemory(), nil, "IDRX", logging.Discard())
	ctx := context.Background()
	upper := "0x" + strings.ToUpper(txHash[2:])

	first, err := rec.RecordDonation(ctx, RecordInput{Amount: decimal.NewFromInt(10), Recipient: streamer, Status: StatusCompleted, TxHash: txHash})
	if err != nil {
		t.Fatalf("record lowercase hash: %v", err)
	}
	if first.TxDigest != txHash {
		t.Fatalf("expected canonical digest %s, got %s", txHash, first.TxDigest)
	}
	if _, err := rec.RecordDonation(ctx, RecordInput{Amount: decimal.NewFromInt(10), Recipient: streamer, Status: StatusCompleted, TxHash: upper}); err != ErrDuplicateTransaction {
		t.Fatalf("expected duplicate error for %s, got %v", upper, err)
	}

	rows, _ := rec.Store().ListAllByRecipient(ctx, streamer)
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}

	if _, err := rec.RecordDonation(ctx, RecordInput{Amount: decimal.NewFromInt(10), Recipient: streamer, Status: StatusFailed, TxHash: "0x1234"}); !errors.Is(err, ErrInvalidDonation) {
		t.Fatalf("expected short hash to be rejected, got %v", err)
	}
}

func TestRecorderDonorNames(t *testing.T) {
	rec := NewRecorder(NewInMemory(), nil, "IDRX", logging.Discard())
	ctx := context.Background()

	cases := []struct {
		in   RecordInput
		want string
	}{
		{RecordInput{DonorName: "Budi"}, "Budi"},
		{RecordInput{DonorName: ""}, PublicDonorName},
		{RecordInput{DonorName: "Budi", Private: true}, DefaultDonorName},
	}
	for _, tc := range cases {
		tc.in.Amount = decimal.NewFromInt(1)
		tc.in.Recipient = streamer
		tc.in.Status = StatusFailed
		d, err := rec.RecordDonation(ctx, tc.in)
		if err != nil {
			t.Fatalf("record %+v: %v", tc.in, err)
		}
		if d.DonorName != tc.want {
			t.Fatalf("expected donor name %q, got %q", tc.want, d.DonorName)
		}
	}
}

func TestInMemoryQueries(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	SeedDonation(store, Donation{ID: "a", StreamerWallet: streamer, Status: StatusCompleted}, base)
	SeedDonation(store, Donation{ID: "b", StreamerWallet: strings.ToLower(streamer), Status: StatusFailed}, base.Add(time.Second))
	SeedDonation(store, Donation{ID: "c", StreamerWallet: strings.ToUpper(streamer[2:]), Status: StatusCompleted}, base.Add(2*time.Second))
	SeedDonation(store, Donation{ID: "d", StreamerWallet: "0x0000000000000000000000000000000000000001", Status: StatusCompleted}, base.Add(3*time.Second))
	SeedDonation(store, Donation{ID: "e", StreamerWallet: streamer, Status: StatusCompleted}, base.Add(4*time.Second))

	history, _ := store.ListByRecipient(ctx, streamer, 2)
	if len(history) != 2 || history[0].ID != "e" || history[1].ID != "b" {
		t.Fatalf("unexpected history order: %+v", history)
	}

	all, _ := store.ListAllByRecipient(ctx, streamer)
	if len(all) != 3 || all[0].ID != "a" || all[2].ID != "e" {
		t.Fatalf("unexpected unfiltered rows: %+v", all)
	}

	since, _ := store.ListCompletedSince(ctx, streamer, base)
	if len(since) != 1 || since[0].ID != "e" {
		t.Fatalf("expected only e after base, got %+v", since)
	}

	if _, err := store.Get(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInMemoryConcurrentInserts(t *testing.T) {
	rec := NewRecorder(NewInMemory(), nil, "IDRX", logging.Discard())
	ctx := context.Background()

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hash := fmt.Sprintf("0x%064x", i+1)
			if _, err := rec.RecordDonation(ctx, RecordInput{Amount: decimal.NewFromInt(1), Recipient: streamer, Status: StatusCompleted, TxHash: hash}); err != nil {
				t.Errorf("record %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	rows, _ := rec.Store().ListAllByRecipient(ctx, streamer)
	if len(rows) != workers {
		t.Fatalf("expected %d rows, got %d", workers, len(rows))
	}
}

func TestRedisPublisherAnnouncesInsert(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, ChangesChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	rec := NewRecorder(NewInMemory(), NewRedisPublisher(client), "IDRX", logging.Discard())
	d, err := rec.RecordDonation(ctx, RecordInput{DonorName: "Budi", Amount: decimal.NewFromInt(50_000), Recipient: streamer, Status: StatusCompleted, TxHash: txHash})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		got, err := DecodeChange(msg.Payload)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != d.ID || !got.Amount.Equal(d.Amount) {
			t.Fatalf("unexpected change event: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no change event received")
	}
}
