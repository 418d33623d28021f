package simulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"parite/internal/domain"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[uuid.UUID]Record)}
}

func (s *InMemoryStore) Create(_ context.Context, data domain.Data) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; attempt < 10; attempt++ {
		id, err := uuid.NewUUID()
		if err != nil {
			return uuid.Nil, fmt.Errorf("mint simulation id: %w", err)
		}
		if _, taken := s.records[id]; taken {
			continue
		}
		s.records[id] = Record{ID: id, Data: data.Clone(), ModifiedAt: time.Now().UTC()}
		return id, nil
	}
	return uuid.Nil, fmt.Errorf("mint simulation id: no free id after 10 attempts")
}

func (s *InMemoryStore) Get(_ context.Context, id uuid.UUID) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return record, nil
}

func (s *InMemoryStore) Put(_ context.Context, id uuid.UUID, data domain.Data) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := Record{ID: id, Data: data.Clone(), ModifiedAt: time.Now().UTC()}
	s.records[id] = record
	return record, nil
}
