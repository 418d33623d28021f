package search

import (
	"context"
	"sort"
	"strings"
	"sync"

	"parite/internal/domain"
)

type rowKey struct {
	siren string
	year  int
}

// InMemoryStore emulates the projection for tests and local runs: the same
// tokenization, visibility rule and prefix matching as the SQL store.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows map[rowKey]Row
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{rows: make(map[rowKey]Row)}
}

// publiclyVisible applies the tranche and year visibility rule.
func publiclyVisible(r Row) bool {
	switch r.Tranche {
	case domain.Tranche1000Plus:
		return true
	case domain.Tranche251to999:
		return r.Year >= 2020
	default:
		return false
	}
}

func (s *InMemoryStore) Upsert(_ context.Context, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[rowKey{row.Siren, row.Year}] = row
	return nil
}

func (s *InMemoryStore) Truncate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[rowKey]Row)
	return nil
}

// matches applies tsquery semantics: every term must match a lexeme, the
// last one as a prefix.
func matches(tokens []string, terms []string) bool {
	for i, term := range terms {
		prefix := i == len(terms)-1
		found := false
		for _, token := range tokens {
			if token == term || (prefix && strings.HasPrefix(token, term)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *InMemoryStore) selectRows(q Query, filters Filters) []Row {
	var out []Row
	for _, row := range s.rows {
		if !publiclyVisible(row) {
			continue
		}
		if q.Siren != "" && row.Siren != q.Siren {
			continue
		}
		if len(q.Terms) > 0 && !matches(Tokenize(row.FT), q.Terms) {
			continue
		}
		if filters.Region != "" && row.Region != filters.Region {
			continue
		}
		if filters.Departement != "" && row.Departement != filters.Departement {
			continue
		}
		if section := filters.Section(); section != "" && row.SectionNAF != section {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DeclaredAt.Equal(out[j].DeclaredAt) {
			return out[i].DeclaredAt.After(out[j].DeclaredAt)
		}
		if out[i].Siren != out[j].Siren {
			return out[i].Siren < out[j].Siren
		}
		return out[i].Year > out[j].Year
	})
	return out
}

func (s *InMemoryStore) notes(siren string) map[int]*int {
	notes := make(map[int]*int)
	for _, row := range s.rows {
		if row.Siren == siren && publiclyVisible(row) {
			notes[row.Year] = row.Note
		}
	}
	return notes
}

func (s *InMemoryStore) Search(_ context.Context, q Query, filters Filters, limit, offset int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.selectRows(q, filters)

	// one hit per siren, newest declaration wins
	var hits []Hit
	seen := make(map[string]bool)
	for _, row := range rows {
		if seen[row.Siren] {
			continue
		}
		seen[row.Siren] = true
		hits = append(hits, Hit{
			Data:       row.Data,
			Notes:      s.notes(row.Siren),
			DeclaredAt: row.DeclaredAt,
		})
	}
	if offset >= len(hits) {
		return nil, nil
	}
	hits = hits[offset:]
	if limit > 0 && limit < len(hits) {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *InMemoryStore) Count(_ context.Context, q Query, filters Filters) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	for _, row := range s.selectRows(q, filters) {
		seen[row.Siren] = true
	}
	return len(seen), nil
}

func (s *InMemoryStore) Stats(_ context.Context, year int, filters Filters) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats Stats
	sum := 0
	for _, row := range s.selectRows(Query{}, filters) {
		if row.Year != year || row.Note == nil {
			continue
		}
		note := *row.Note
		if stats.Count == 0 || note < *stats.Min {
			stats.Min = &note
		}
		if stats.Count == 0 || note > *stats.Max {
			stats.Max = &note
		}
		sum += note
		stats.Count++
	}
	if stats.Count > 0 {
		avg := float64(sum) / float64(stats.Count)
		stats.Avg = &avg
	}
	return stats, nil
}
