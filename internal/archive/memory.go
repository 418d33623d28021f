package archive

import (
	"context"
	"sync"
	"time"

	"parite/internal/domain"
)

type Entry struct {
	Siren string
	Year  int
	Data  domain.Data
	By    string
	IP    string
	At    time.Time
}

type InMemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, siren string, year int, data domain.Data, by, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{
		Siren: siren,
		Year:  year,
		Data:  data.Clone(),
		By:    by,
		IP:    ip,
		At:    time.Now().UTC(),
	})
	return nil
}

// Entries returns a copy of the trail, for tests.
func (s *InMemoryStore) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
