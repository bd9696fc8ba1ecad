package ledger

import (
	"context"
	"strings"
	"sync"
	"time"
)

type inMemoryStore struct {
	mu   sync.RWMutex
	rows []Donation
	byID map[string]int
	txs  map[string]struct{}
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit tests and local runs.
func NewInMemory() Store {
	return &inMemoryStore{byID: make(map[string]int), txs: make(map[string]struct{})}
}

func (s *inMemoryStore) Insert(_ context.Context, d Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[d.ID]; exists {
		return ErrDuplicateTransaction
	}
	if d.TxDigest != "" {
		digest := strings.ToLower(d.TxDigest)
		if _, exists := s.txs[digest]; exists {
			return ErrDuplicateTransaction
		}
		s.txs[digest] = struct{}{}
	}
	s.byID[d.ID] = len(s.rows)
	s.rows = append(s.rows, d)
	return nil
}

func (s *inMemoryStore) Get(_ context.Context, id string) (Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return Donation{}, ErrNotFound
	}
	return s.rows[idx], nil
}

func (s *inMemoryStore) ListByRecipient(_ context.Context, recipient string, limit int) ([]Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Donation, 0)
	for i := len(s.rows) - 1; i >= 0; i-- {
		if !SameRecipient(s.rows[i].StreamerWallet, recipient) {
			continue
		}
		out = append(out, s.rows[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *inMemoryStore) ListAllByRecipient(_ context.Context, recipient string) ([]Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Donation, 0)
	for _, d := range s.rows {
		if SameRecipient(d.StreamerWallet, recipient) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *inMemoryStore) ListCompletedSince(_ context.Context, recipient string, since time.Time) ([]Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Donation, 0)
	for _, d := range s.rows {
		if d.Status == StatusCompleted && d.CreatedAt.After(since) && SameRecipient(d.StreamerWallet, recipient) {
			out = append(out, d)
		}
	}
	return out, nil
}
