package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"parite/internal/declaration"
	"parite/internal/domain"
)

// PostgresStore persists declarations in PostgreSQL. All writes go through
// the shared pool; the (siren, year) primary key serializes concurrent
// upserts of the same record.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Put(ctx context.Context, siren string, year int, owner string, data domain.Data, modifiedAt time.Time) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal declaration: %w", err)
	}
	if data.Draft() {
		_, err = s.pool.Exec(ctx, `
			INSERT INTO declaration (siren, year, owner, draft, modified_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (siren, year) DO UPDATE
			SET owner = EXCLUDED.owner,
			    draft = EXCLUDED.draft,
			    modified_at = EXCLUDED.modified_at`,
			siren, year, owner, payload, modifiedAt)
		if err != nil {
			return fmt.Errorf("save draft: %w", err)
		}
		return nil
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO declaration (siren, year, owner, data, draft, modified_at, declared_at)
		VALUES ($1, $2, $3, $4, NULL, $5, $5)
		ON CONFLICT (siren, year) DO UPDATE
		SET owner = EXCLUDED.owner,
		    data = EXCLUDED.data,
		    draft = NULL,
		    modified_at = EXCLUDED.modified_at,
		    declared_at = COALESCE(declaration.declared_at, EXCLUDED.modified_at)`,
		siren, year, owner, payload, modifiedAt)
	if err != nil {
		return fmt.Errorf("save declaration: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, siren string, year int) (declaration.Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT siren, year, owner, data, draft, legacy, modified_at, declared_at
		FROM declaration
		WHERE siren = $1 AND year = $2`,
		siren, year)
	return scanRecord(row)
}

func (s *PostgresStore) Owner(ctx context.Context, siren string, year int) (string, error) {
	var owner string
	err := s.pool.QueryRow(ctx, `
		SELECT owner FROM declaration
		WHERE siren = $1 AND year = $2 AND declared_at IS NOT NULL`,
		siren, year).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load owner: %w", err)
	}
	return owner, nil
}

func (s *PostgresStore) SetOwner(ctx context.Context, siren string, year int, owner string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE declaration SET owner = $3
		WHERE siren = $1 AND year = $2`,
		siren, year, owner)
	if err != nil {
		return fmt.Errorf("reassign owner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) OwnedBy(ctx context.Context, owner string) ([]declaration.Metadata, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT siren, year,
		       COALESCE(COALESCE(draft, data)->'entreprise'->>'raison_sociale', ''),
		       declared_at, modified_at
		FROM declaration
		WHERE lower(owner) = lower($1)
		ORDER BY siren, year`,
		owner)
	if err != nil {
		return nil, fmt.Errorf("list owned declarations: %w", err)
	}
	defer rows.Close()
	var out []declaration.Metadata
	for rows.Next() {
		var m declaration.Metadata
		if err := rows.Scan(&m.Siren, &m.Year, &m.Name, &m.DeclaredAt, &m.ModifiedAt); err != nil {
			return nil, fmt.Errorf("scan metadata: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate owned declarations: %w", err)
	}
	return out, nil
}

// Completed streams every published record to fn, oldest first.
func (s *PostgresStore) Completed(ctx context.Context, fn func(declaration.Record) error) error {
	rows, err := s.pool.Query(ctx, `
		SELECT siren, year, owner, data, draft, legacy, modified_at, declared_at
		FROM declaration
		WHERE declared_at IS NOT NULL
		ORDER BY declared_at`)
	if err != nil {
		return fmt.Errorf("list completed declarations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return err
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate completed declarations: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (declaration.Record, error) {
	var (
		record              declaration.Record
		data, draft, legacy []byte
	)
	err := row.Scan(&record.Siren, &record.Year, &record.Owner,
		&data, &draft, &legacy, &record.ModifiedAt, &record.DeclaredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return declaration.Record{}, ErrNotFound
	}
	if err != nil {
		return declaration.Record{}, fmt.Errorf("scan declaration: %w", err)
	}
	if record.Data, err = decodeDocument(data); err != nil {
		return declaration.Record{}, err
	}
	if record.Draft, err = decodeDocument(draft); err != nil {
		return declaration.Record{}, err
	}
	if record.Legacy, err = decodeDocument(legacy); err != nil {
		return declaration.Record{}, err
	}
	return record, nil
}

func decodeDocument(payload []byte) (domain.Data, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var doc domain.Data
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode declaration document: %w", err)
	}
	return doc, nil
}
