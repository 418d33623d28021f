package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"parite/internal/declaration"
	"parite/internal/domain"
)

type key struct {
	siren string
	year  int
}

// InMemoryStore keeps declarations in a map, for tests and local runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[key]declaration.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[key]declaration.Record)}
}

func (s *InMemoryStore) Put(_ context.Context, siren string, year int, owner string, data domain.Data, modifiedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{siren, year}
	record, ok := s.records[k]
	if !ok {
		record = declaration.Record{Siren: siren, Year: year}
	}
	record.Owner = owner
	record.ModifiedAt = modifiedAt
	if data.Draft() {
		record.Draft = data.Clone()
	} else {
		record.Data = data.Clone()
		record.Draft = nil
		if record.DeclaredAt == nil {
			at := modifiedAt
			record.DeclaredAt = &at
		}
	}
	s.records[k] = record
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, siren string, year int) (declaration.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[key{siren, year}]
	if !ok {
		return declaration.Record{}, ErrNotFound
	}
	return record, nil
}

func (s *InMemoryStore) Owner(_ context.Context, siren string, year int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[key{siren, year}]
	if !ok || record.DeclaredAt == nil {
		return "", ErrNotFound
	}
	return record.Owner, nil
}

func (s *InMemoryStore) SetOwner(_ context.Context, siren string, year int, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{siren, year}
	record, ok := s.records[k]
	if !ok {
		return ErrNotFound
	}
	record.Owner = owner
	s.records[k] = record
	return nil
}

func (s *InMemoryStore) OwnedBy(_ context.Context, owner string) ([]declaration.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []declaration.Metadata
	for _, record := range s.records {
		if !strings.EqualFold(record.Owner, owner) {
			continue
		}
		out = append(out, declaration.Metadata{
			Siren:      record.Siren,
			Year:       record.Year,
			Name:       record.Document().Company(),
			DeclaredAt: record.DeclaredAt,
			ModifiedAt: record.ModifiedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Siren != out[j].Siren {
			return out[i].Siren < out[j].Siren
		}
		return out[i].Year < out[j].Year
	})
	return out, nil
}

func (s *InMemoryStore) Completed(_ context.Context, fn func(declaration.Record) error) error {
	s.mu.RLock()
	records := make([]declaration.Record, 0, len(s.records))
	for _, record := range s.records {
		if record.DeclaredAt != nil {
			records = append(records, record)
		}
	}
	s.mu.RUnlock()
	sort.Slice(records, func(i, j int) bool {
		return records[i].DeclaredAt.Before(*records[j].DeclaredAt)
	})
	for _, record := range records {
		if err := fn(record); err != nil {
			return err
		}
	}
	return nil
}
