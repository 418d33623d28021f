// Package postgres owns the connection pool and the schema bootstrap.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"parite/internal/platform/config"
)

// Connect opens a pgx pool with the configured size bounds and verifies the
// connection.
func Connect(ctx context.Context, cfg config.Database) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConns = cfg.MaxConns
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// statements is the idempotent schema bootstrap, run in order at startup.
// ftdict folds accents so "remuneration" matches "rémunération".
var statements = []string{
	`CREATE EXTENSION IF NOT EXISTS unaccent`,
	`DO $$ BEGIN
		CREATE TEXT SEARCH CONFIGURATION ftdict (COPY = simple);
		ALTER TEXT SEARCH CONFIGURATION ftdict
			ALTER MAPPING FOR word, numword, asciiword, hword, hword_part, asciihword
			WITH unaccent, simple;
	EXCEPTION WHEN unique_violation OR duplicate_object THEN NULL;
	END $$`,
	`CREATE TABLE IF NOT EXISTS declaration (
		siren TEXT NOT NULL,
		year INT NOT NULL,
		modified_at TIMESTAMP WITH TIME ZONE NOT NULL,
		declared_at TIMESTAMP WITH TIME ZONE,
		owner TEXT,
		data JSONB,
		draft JSONB,
		legacy JSONB,
		PRIMARY KEY (siren, year)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_declaration_owner ON declaration (lower(owner))`,
	`CREATE TABLE IF NOT EXISTS simulation (
		id UUID PRIMARY KEY,
		modified_at TIMESTAMP WITH TIME ZONE NOT NULL,
		data JSONB
	)`,
	`CREATE TABLE IF NOT EXISTS search (
		siren TEXT NOT NULL,
		year INT NOT NULL,
		declared_at TIMESTAMP WITH TIME ZONE NOT NULL,
		ft TSVECTOR,
		region TEXT,
		departement TEXT,
		section_naf TEXT,
		note INT,
		PRIMARY KEY (siren, year)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_search_ft ON search USING GIN (ft)`,
	`CREATE TABLE IF NOT EXISTS archive (
		siren TEXT NOT NULL,
		year INT NOT NULL,
		at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
		data JSONB,
		"by" TEXT,
		ip TEXT
	)`,
}

// EnsureSchema creates the tables, indexes and text search configuration the
// stores rely on. Safe to run on every startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
