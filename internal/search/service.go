package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"parite/internal/declaration"
	"parite/internal/domain"
)

const statsCacheSize = 256

// Source lists the published declarations a reindex rebuilds from.
type Source interface {
	Completed(ctx context.Context, fn func(declaration.Record) error) error
}

// Service maintains and queries the projection. Stats answers are cached in
// a bounded LRU since they only move when a declaration is published.
type Service struct {
	store      Store
	logger     *slog.Logger
	statsCache *lru.Cache[string, Stats]

	// reindexed counts rows rebuilt by the current bulk reindex.
	reindexed atomic.Int64
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a Service.
func New(store Store, opts ...Option) (*Service, error) {
	cache, err := lru.New[string, Stats](statsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create stats cache: %w", err)
	}
	s := &Service{store: store, logger: slog.Default(), statsCache: cache}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BuildRow projects a published record into its searchable row.
func BuildRow(record declaration.Record) Row {
	data := record.Data
	names := append([]string{data.Company(), data.UESName()}, data.UESNames()...)
	var kept []string
	for _, name := range names {
		if name != "" {
			kept = append(kept, name)
		}
	}
	var note *int
	if index, ok := data.Index(); ok {
		note = &index
	}
	row := Row{
		Siren:       record.Siren,
		Year:        record.Year,
		FT:          strings.Join(kept, " "),
		Region:      data.Region(),
		Departement: data.Departement(),
		SectionNAF:  domain.NAFSection(data.PathString("entreprise.code_naf")),
		Note:        note,
		Tranche:     data.Tranche(),
		Data:        data,
	}
	if record.DeclaredAt != nil {
		row.DeclaredAt = *record.DeclaredAt
	}
	return row
}

// Index projects one published record. Callers on the write path treat a
// failure as degradation, not as a write error.
func (s *Service) Index(ctx context.Context, record declaration.Record) error {
	if record.DeclaredAt == nil {
		return nil
	}
	return s.store.Upsert(ctx, BuildRow(record))
}

// Search returns the public view of the declarations matching q.
func (s *Service) Search(ctx context.Context, q string, filters Filters, limit, offset int) ([]Result, error) {
	query := ParseQuery(q)
	hits, err := s.store.Search(ctx, query, filters, limit, offset)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{
			Entreprise: PublicEntreprise(hit.Data),
			Notes:      hit.Notes,
			Label:      label(hit.Data, query.Terms),
		})
	}
	return results, nil
}

// Count returns the number of distinct companies matching q.
func (s *Service) Count(ctx context.Context, q string, filters Filters) (int, error) {
	return s.store.Count(ctx, ParseQuery(q), filters)
}

// Stats aggregates the notes of a reporting year.
func (s *Service) Stats(ctx context.Context, year int, filters Filters) (Stats, error) {
	key := fmt.Sprintf("%d|%s|%s|%s", year, filters.Region, filters.Departement, filters.CodeNAF)
	if stats, ok := s.statsCache.Get(key); ok {
		return stats, nil
	}
	stats, err := s.store.Stats(ctx, year, filters)
	if err != nil {
		return Stats{}, err
	}
	s.statsCache.Add(key, stats)
	return stats, nil
}

// Reindexed reports how many rows the current bulk reindex has rebuilt.
func (s *Service) Reindexed() int64 {
	return s.reindexed.Load()
}

// Reindex rebuilds the whole projection from the published declarations.
func (s *Service) Reindex(ctx context.Context, source Source) error {
	if err := s.store.Truncate(ctx); err != nil {
		return err
	}
	s.reindexed.Store(0)
	s.statsCache.Purge()

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(8)
	err := source.Completed(ctx, func(record declaration.Record) error {
		group.Go(func() error {
			if err := s.store.Upsert(ctx, BuildRow(record)); err != nil {
				return fmt.Errorf("reindex %s/%d: %w", record.Siren, record.Year, err)
			}
			s.reindexed.Add(1)
			return nil
		})
		return ctx.Err()
	})
	if err != nil {
		group.Wait()
		return err
	}
	return group.Wait()
}

// PublicEntreprise reduces a document to the company fields exposed by
// search and the public exports. For an UES the declaring entity is
// prepended as a synthetic member.
func PublicEntreprise(data domain.Data) map[string]any {
	out := map[string]any{}
	copyPath := func(key string, value any) {
		if value != nil && value != "" {
			out[key] = value
		}
	}
	copyPath("raison_sociale", data.Path("entreprise.raison_sociale"))
	copyPath("siren", data.Path("entreprise.siren"))
	copyPath("région", data.Path("entreprise.région"))
	copyPath("département", data.Path("entreprise.département"))
	copyPath("code_naf", data.Path("entreprise.code_naf"))
	if tranche := data.Tranche(); tranche != "" {
		out["effectif"] = map[string]any{"tranche": tranche}
	}
	if ues := data.Path("entreprise.ues"); ues != nil {
		public := map[string]any{}
		if name := data.UESName(); name != "" {
			public["raison_sociale"] = name
		}
		members := []any{map[string]any{
			"raison_sociale": data.Company(),
			"siren":          data.Siren(),
		}}
		if declared, ok := data.Path("entreprise.ues.entreprises").([]any); ok {
			members = append(members, declared...)
		}
		public["entreprises"] = members
		out["ues"] = public
	}
	return out
}

// label picks the display name closest to the query among the company name,
// the UES name and the UES member names.
func label(data domain.Data, terms []string) string {
	candidates := append([]string{data.UESName(), data.Company()}, data.UESNames()...)
	best := ""
	bestScore := -1
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		score := matchScore(candidate, terms)
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	return best
}

func matchScore(candidate string, terms []string) int {
	tokens := Tokenize(candidate)
	score := 0
	for _, term := range terms {
		for _, token := range tokens {
			if strings.HasPrefix(token, term) {
				score++
				break
			}
		}
	}
	return score
}
