package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a donation id does not exist.
	ErrNotFound = errors.New("donation not found")

	// ErrDuplicateTransaction indicates a row already carries the provided transaction hash.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrInvalidDonation wraps field validation failures on insert.
	ErrInvalidDonation = errors.New("invalid donation")
)

// Status is the terminal outcome of a donation attempt.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"

	// DefaultDonorName is shown for private donations.
	DefaultDonorName = "Anonymous"
	// PublicDonorName replaces a blank name on a public donation.
	PublicDonorName = "Someone"
	// MaxMessageLength bounds donor messages, counted in characters.
	MaxMessageLength = 200
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Donation is one recorded donation attempt.
type Donation struct {
	ID             string          `json:"id"`
	DonorAddress   string          `json:"donor_address,omitempty"`
	DonorName      string          `json:"donor_name"`
	Message        string          `json:"message"`
	Amount         decimal.Decimal `json:"amount"`
	CoinType       string          `json:"coin_type"`
	StreamerWallet string          `json:"streamer_wallet"`
	Status         Status          `json:"status"`
	TxDigest       string          `json:"tx_digest,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// SameRecipient compares wallet addresses case-insensitively.
func SameRecipient(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Store defines the contract implemented by donation backends (e.g. Postgres).
// Rows are inserted once and never updated.
type Store interface {
	Insert(ctx context.Context, d Donation) error
	Get(ctx context.Context, id string) (Donation, error)
	// ListByRecipient returns the newest rows first, at most limit when limit > 0.
	ListByRecipient(ctx context.Context, recipient string, limit int) ([]Donation, error)
	// ListAllByRecipient returns every row regardless of status in insertion order.
	ListAllByRecipient(ctx context.Context, recipient string) ([]Donation, error)
	// ListCompletedSince returns completed rows created strictly after since, oldest first.
	ListCompletedSince(ctx context.Context, recipient string, since time.Time) ([]Donation, error)
}
