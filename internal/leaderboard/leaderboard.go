package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sawerbase/sawerbase/internal/chain"
	"github.com/sawerbase/sawerbase/internal/ledger"
)

const (
	// DefaultSize is the number of donors shown on an overlay.
	DefaultSize     = 5
	DefaultInterval = 5 * time.Second
	currencyPrefix  = "Rp "
)

// Entry is one ranked donor.
type Entry struct {
	Rank            int             `json:"rank"`
	Name            string          `json:"name"`
	Amount          decimal.Decimal `json:"amount"`
	FormattedAmount string          `json:"formatted_amount"`
}

// Aggregate sums amounts per donor name and returns the top size donors by total,
// largest first. Ties keep the order in which the donor was first seen.
func Aggregate(records []ledger.Donation, size int, completedOnly bool) []Entry {
	totals := make(map[string]decimal.Decimal)
	order := make([]string, 0)
	for _, r := range records {
		if completedOnly && r.Status != ledger.StatusCompleted {
			continue
		}
		name := r.DonorName
		if name == "" {
			name = ledger.DefaultDonorName
		}
		sum, seen := totals[name]
		if !seen {
			order = append(order, name)
		}
		totals[name] = sum.Add(r.Amount)
	}

	slices.SortStableFunc(order, func(a, b string) int {
		return totals[b].Cmp(totals[a])
	})
	if size > 0 && len(order) > size {
		order = order[:size]
	}

	out := make([]Entry, len(order))
	for i, name := range order {
		out[i] = Entry{
			Rank:            i + 1,
			Name:            name,
			Amount:          totals[name],
			FormattedAmount: currencyPrefix + chain.FormatDisplay(totals[name]),
		}
	}
	return out
}

// Options tunes the service.
type Options struct {
	Size          int
	Interval      time.Duration
	CompletedOnly bool
}

// Service recomputes leaderboards from the ledger.
type Service struct {
	store  ledger.Store
	opts   Options
	logger *slog.Logger
}

// NewService builds a leaderboard service. Zero options take the defaults.
func NewService(store ledger.Store, opts Options, logger *slog.Logger) *Service {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Service{store: store, opts: opts, logger: logger}
}

// Get reads every donation to recipient and aggregates them.
func (s *Service) Get(ctx context.Context, recipient string) ([]Entry, error) {
	rows, err := s.store.ListAllByRecipient(ctx, recipient)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return Aggregate(rows, s.opts.Size, s.opts.CompletedOnly), nil
}

// Watch calls fn with a fresh leaderboard immediately and then every interval
// until ctx ends or fn fails. Read failures are logged and retried on the next tick.
func (s *Service) Watch(ctx context.Context, recipient string, fn func([]Entry) error) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := s.Get(ctx, recipient)
		switch {
		case err != nil && ctx.Err() == nil:
			s.logger.Warn("leaderboard refresh failed", slog.String("recipient", recipient), slog.Any("error", err))
		case err == nil:
			if err := fn(entries); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
