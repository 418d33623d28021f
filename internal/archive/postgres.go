package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"parite/internal/domain"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Append(ctx context.Context, siren string, year int, data domain.Data, by, ip string) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal archive entry: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO archive (siren, year, data, "by", ip)
		VALUES ($1, $2, $3, $4, $5)`,
		siren, year, payload, by, ip)
	if err != nil {
		return fmt.Errorf("append archive entry: %w", err)
	}
	return nil
}
