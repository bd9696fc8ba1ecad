package profile

import (
	"context"
	"strings"
	"sync"
)

type memoryRepository struct {
	mu         sync.RWMutex
	byWallet   map[string]Profile
	byUsername map[string]string
}

// NewMemoryRepository builds an in-memory profile store for tests and local runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{byWallet: make(map[string]Profile), byUsername: make(map[string]string)}
}

func (r *memoryRepository) Create(_ context.Context, p Profile) error {
	wallet := strings.ToLower(p.WalletAddress)
	username := strings.ToLower(p.Username)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byUsername[username]; exists {
		return ErrUsernameTaken
	}
	if _, exists := r.byWallet[wallet]; exists {
		return ErrWalletTaken
	}
	r.byWallet[wallet] = p
	r.byUsername[username] = wallet
	return nil
}

func (r *memoryRepository) FindByWallet(_ context.Context, wallet string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byWallet[strings.ToLower(wallet)]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wallet, ok := r.byUsername[strings.ToLower(username)]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return r.byWallet[wallet], nil
}
