package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// visibleSQL is the public visibility rule, phrased against the joined
// declaration document.
const visibleSQL = `(d.data->'entreprise'->'effectif'->>'tranche' = '1000:'
	OR (d.data->'entreprise'->'effectif'->>'tranche' = '251:999' AND search.year >= 2020))`

// PostgresStore keeps the projection in a search table with a tsvector
// column under the ftdict unaccent configuration.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Upsert(ctx context.Context, row Row) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO search (siren, year, declared_at, ft, region, departement, section_naf, note)
		VALUES ($1, $2, $3, to_tsvector('ftdict', $4), $5, $6, $7, $8)
		ON CONFLICT (siren, year) DO UPDATE
		SET declared_at = EXCLUDED.declared_at,
		    ft = EXCLUDED.ft,
		    region = EXCLUDED.region,
		    departement = EXCLUDED.departement,
		    section_naf = EXCLUDED.section_naf,
		    note = EXCLUDED.note`,
		row.Siren, row.Year, row.DeclaredAt, row.FT,
		nullable(row.Region), nullable(row.Departement), nullable(row.SectionNAF), row.Note)
	if err != nil {
		return fmt.Errorf("index declaration %s/%d: %w", row.Siren, row.Year, err)
	}
	return nil
}

func (s *PostgresStore) Truncate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE TABLE search`); err != nil {
		return fmt.Errorf("truncate search projection: %w", err)
	}
	return nil
}

// where assembles the filter clauses shared by Search and Count.
func where(q Query, filters Filters) (string, []any) {
	clauses := []string{visibleSQL}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if q.Siren != "" {
		clauses = append(clauses, "search.siren = "+arg(q.Siren))
	} else if ts := q.TSQuery(); ts != "" {
		clauses = append(clauses, "search.ft @@ to_tsquery('ftdict', "+arg(ts)+")")
	}
	if filters.Region != "" {
		clauses = append(clauses, "search.region = "+arg(filters.Region))
	}
	if filters.Departement != "" {
		clauses = append(clauses, "search.departement = "+arg(filters.Departement))
	}
	if section := filters.Section(); section != "" {
		clauses = append(clauses, "search.section_naf = "+arg(section))
	}
	return strings.Join(clauses, " AND "), args
}

func (s *PostgresStore) Search(ctx context.Context, q Query, filters Filters, limit, offset int) ([]Hit, error) {
	clause, args := where(q, filters)
	rank := "0"
	if ts := q.TSQuery(); ts != "" {
		args = append(args, ts)
		rank = fmt.Sprintf("ts_rank(search.ft, to_tsquery('ftdict', $%d))", len(args))
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT data, notes, declared_at FROM (
			SELECT DISTINCT ON (search.siren)
			       d.data AS data,
			       (SELECT jsonb_object_agg(s2.year, s2.note)
			        FROM search s2
			        JOIN declaration d2 ON d2.siren = s2.siren AND d2.year = s2.year
			        WHERE s2.siren = search.siren
			          AND (d2.data->'entreprise'->'effectif'->>'tranche' = '1000:'
			               OR (d2.data->'entreprise'->'effectif'->>'tranche' = '251:999' AND s2.year >= 2020))
			       ) AS notes,
			       search.declared_at AS declared_at,
			       %s AS rank
			FROM search
			JOIN declaration d ON d.siren = search.siren AND d.year = search.year
			WHERE %s
			ORDER BY search.siren, search.year DESC
		) hits
		ORDER BY rank DESC, declared_at DESC
		LIMIT $%d OFFSET $%d`,
		rank, clause, len(args)-1, len(args))
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search declarations: %w", err)
	}
	defer rows.Close()
	var hits []Hit
	for rows.Next() {
		var (
			hit   Hit
			data  []byte
			notes []byte
		)
		if err := rows.Scan(&data, &notes, &hit.DeclaredAt); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		if err := json.Unmarshal(data, &hit.Data); err != nil {
			return nil, fmt.Errorf("decode search hit: %w", err)
		}
		hit.Notes = map[int]*int{}
		if len(notes) > 0 {
			byYear := map[string]*int{}
			if err := json.Unmarshal(notes, &byYear); err != nil {
				return nil, fmt.Errorf("decode search notes: %w", err)
			}
			for yearKey, note := range byYear {
				year, err := strconv.Atoi(yearKey)
				if err != nil {
					continue
				}
				hit.Notes[year] = note
			}
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search hits: %w", err)
	}
	return hits, nil
}

func (s *PostgresStore) Count(ctx context.Context, q Query, filters Filters) (int, error) {
	clause, args := where(q, filters)
	query := fmt.Sprintf(`
		SELECT COUNT(DISTINCT search.siren)
		FROM search
		JOIN declaration d ON d.siren = search.siren AND d.year = search.year
		WHERE %s`, clause)
	var count int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count declarations: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Stats(ctx context.Context, year int, filters Filters) (Stats, error) {
	clause, args := where(Query{}, filters)
	args = append(args, year)
	query := fmt.Sprintf(`
		SELECT COUNT(search.note), MIN(search.note), MAX(search.note), AVG(search.note)
		FROM search
		JOIN declaration d ON d.siren = search.siren AND d.year = search.year
		WHERE %s AND search.year = $%d`, clause, len(args))
	var stats Stats
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&stats.Count, &stats.Min, &stats.Max, &stats.Avg); err != nil {
		return Stats{}, fmt.Errorf("aggregate notes: %w", err)
	}
	return stats, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
