package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"parite/internal/domain"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, data domain.Data) (uuid.UUID, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal simulation: %w", err)
	}
	for attempt := 0; attempt < 10; attempt++ {
		id, err := uuid.NewUUID()
		if err != nil {
			return uuid.Nil, fmt.Errorf("mint simulation id: %w", err)
		}
		tag, err := s.pool.Exec(ctx, `
			INSERT INTO simulation (id, data, modified_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING`,
			id, payload, time.Now().UTC())
		if err != nil {
			return uuid.Nil, fmt.Errorf("save simulation: %w", err)
		}
		if tag.RowsAffected() == 1 {
			return id, nil
		}
	}
	return uuid.Nil, fmt.Errorf("mint simulation id: no free id after 10 attempts")
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	var (
		record  Record
		payload []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, data, modified_at FROM simulation WHERE id = $1`,
		id).Scan(&record.ID, &payload, &record.ModifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load simulation: %w", err)
	}
	if err := json.Unmarshal(payload, &record.Data); err != nil {
		return Record{}, fmt.Errorf("decode simulation: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Put(ctx context.Context, id uuid.UUID, data domain.Data) (Record, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Record{}, fmt.Errorf("marshal simulation: %w", err)
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO simulation (id, data, modified_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data, modified_at = EXCLUDED.modified_at`,
		id, payload, now)
	if err != nil {
		return Record{}, fmt.Errorf("save simulation: %w", err)
	}
	return Record{ID: id, Data: data, ModifiedAt: now}, nil
}
