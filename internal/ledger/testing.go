package ledger

import "time"

// SeedDonation is a test helper that inserts a row with a fixed timestamp when using the in-memory store.
func SeedDonation(s Store, d Donation, createdAt time.Time) {
	if mem, ok := s.(*inMemoryStore); ok {
		d.CreatedAt = createdAt
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.byID[d.ID] = len(mem.rows)
		mem.rows = append(mem.rows, d)
	}
}
