package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sawerbase/sawerbase/internal/ledger"
)

// ErrClosed is returned by Next after the subscription is closed.
var ErrClosed = errors.New("subscription closed")

const defaultPollInterval = 3 * time.Second

// Hub opens live donation subscriptions for overlays.
type Hub struct {
	store        ledger.Store
	push         PushSource
	pollInterval time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewHub builds a hub. push may be nil, in which case only polling delivers.
func NewHub(store ledger.Store, push PushSource, pollInterval time.Duration, logger *slog.Logger) *Hub {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Hub{store: store, push: push, pollInterval: pollInterval, logger: logger, now: time.Now}
}

// Subscription is a de-duplicated, first-observed-first-out queue of completed
// donations for one recipient.
type Subscription struct {
	recipient string
	since     time.Time

	mu     sync.Mutex
	queue  []ledger.Donation
	closed bool
	ready  chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// Subscribe starts push and poll delivery for recipient until ctx ends or Close is called.
func (h *Hub) Subscribe(ctx context.Context, recipient string) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		recipient: recipient,
		since:     h.now().UTC(),
		ready:     make(chan struct{}, 1),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	var (
		events <-chan ledger.Donation
		stop   func()
	)
	if h.push != nil {
		ch, stopFn, err := h.push.Subscribe(ctx)
		if err != nil {
			h.logger.Warn("push channel unavailable, polling only", slog.String("recipient", recipient), slog.Any("error", err))
		} else {
			events, stop = ch, stopFn
		}
	}

	go h.run(ctx, sub, events, stop)
	return sub
}

// run owns the processed-id set and merges both sources into the queue.
func (h *Hub) run(ctx context.Context, sub *Subscription, events <-chan ledger.Donation, stop func()) {
	defer close(sub.done)
	if stop != nil {
		defer stop()
	}

	processed := make(map[string]struct{})
	offer := func(d ledger.Donation) {
		if d.Status != ledger.StatusCompleted || !ledger.SameRecipient(d.StreamerWallet, sub.recipient) {
			return
		}
		if _, seen := processed[d.ID]; seen {
			return
		}
		processed[d.ID] = struct{}{}
		sub.push(d)
	}

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-events:
			if !ok {
				h.logger.Warn("push channel closed, polling only", slog.String("recipient", sub.recipient))
				events = nil
				continue
			}
			offer(d)
		case <-ticker.C:
			rows, err := h.store.ListCompletedSince(ctx, sub.recipient, sub.since)
			if err != nil {
				if ctx.Err() == nil {
					h.logger.Warn("feed poll failed", slog.String("recipient", sub.recipient), slog.Any("error", err))
				}
				continue
			}
			for _, d := range rows {
				offer(d)
			}
		}
	}
}

func (s *Subscription) push(d ledger.Donation) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, d)
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Pop removes the front of the queue.
func (s *Subscription) Pop() (ledger.Donation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return ledger.Donation{}, false
	}
	d := s.queue[0]
	s.queue = s.queue[1:]
	return d, true
}

// Len returns the number of queued donations.
func (s *Subscription) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Next blocks until a donation is queued, ctx ends or the subscription closes.
func (s *Subscription) Next(ctx context.Context) (ledger.Donation, error) {
	for {
		if d, ok := s.Pop(); ok {
			return d, nil
		}
		select {
		case <-s.ready:
		case <-s.done:
			if d, ok := s.Pop(); ok {
				return d, nil
			}
			return ledger.Donation{}, ErrClosed
		case <-ctx.Done():
			return ledger.Donation{}, ctx.Err()
		}
	}
}

// Close stops both sources and waits for delivery to end. Queued items stay poppable.
func (s *Subscription) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	<-s.done
}
