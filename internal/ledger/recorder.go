package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordInput captures the outcome of one donation attempt.
type RecordInput struct {
	DonorAddress string
	DonorName    string
	Private      bool
	Amount       decimal.Decimal
	Message      string
	Recipient    string
	Status       Status
	TxHash       string
}

// Recorder writes donation attempts to the store and announces them to subscribers.
type Recorder struct {
	store     Store
	publisher Publisher
	coinType  string
	logger    *slog.Logger
	now       func() time.Time
}

// NewRecorder builds a recorder. publisher may be nil.
func NewRecorder(store Store, publisher Publisher, coinType string, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, publisher: publisher, coinType: coinType, logger: logger, now: time.Now}
}

// Store exposes the underlying store for read paths.
func (r *Recorder) Store() Store {
	return r.store
}

// RecordDonation inserts exactly one row. Persistence failures are returned; a
// failed publish is only logged since the poll path recovers it.
func (r *Recorder) RecordDonation(ctx context.Context, in RecordInput) (Donation, error) {
	if !in.Status.Valid() {
		return Donation{}, fmt.Errorf("%w: unknown status %q", ErrInvalidDonation, in.Status)
	}
	if in.Amount.IsNegative() {
		return Donation{}, fmt.Errorf("%w: negative amount", ErrInvalidDonation)
	}
	if !common.IsHexAddress(in.Recipient) {
		return Donation{}, fmt.Errorf("%w: recipient %q", ErrInvalidDonation, in.Recipient)
	}
	if utf8.RuneCountInString(in.Message) > MaxMessageLength {
		return Donation{}, fmt.Errorf("%w: message longer than %d characters", ErrInvalidDonation, MaxMessageLength)
	}
	if in.Status == StatusCompleted && in.TxHash == "" {
		return Donation{}, fmt.Errorf("%w: completed donation needs a transaction hash", ErrInvalidDonation)
	}
	if in.TxHash != "" {
		hash, err := canonicalHash(in.TxHash)
		if err != nil {
			return Donation{}, err
		}
		in.TxHash = hash
	}

	name := strings.TrimSpace(in.DonorName)
	switch {
	case in.Private:
		name = DefaultDonorName
	case name == "":
		name = PublicDonorName
	}

	d := Donation{
		ID:             uuid.NewString(),
		DonorAddress:   in.DonorAddress,
		DonorName:      name,
		Message:        in.Message,
		Amount:         in.Amount,
		CoinType:       r.coinType,
		StreamerWallet: in.Recipient,
		Status:         in.Status,
		TxDigest:       in.TxHash,
		CreatedAt:      r.now().UTC(),
	}

	if err := r.store.Insert(ctx, d); err != nil {
		return Donation{}, err
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, d); err != nil {
			r.logger.Warn("donation publish failed", slog.String("donation_id", d.ID), slog.Any("error", err))
		}
	}
	return d, nil
}

// canonicalHash normalizes a transaction hash so case variants of one transfer
// share a single row.
func canonicalHash(raw string) (string, error) {
	b, err := hexutil.Decode(strings.TrimSpace(raw))
	if err != nil || len(b) != common.HashLength {
		return "", fmt.Errorf("%w: transaction hash %q", ErrInvalidDonation, raw)
	}
	return common.BytesToHash(b).Hex(), nil
}
