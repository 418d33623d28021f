package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parite/internal/declaration"
	"parite/internal/domain"
)

func record(siren string, year int, name string, tranche string, index int) declaration.Record {
	at := time.Date(year+1, 2, 1, 10, 0, 0, 0, time.UTC)
	return declaration.Record{
		Siren:      siren,
		Year:       year,
		Owner:      "foo@bar.org",
		DeclaredAt: &at,
		ModifiedAt: at,
		Data: domain.Data{
			"déclaration": map[string]any{
				"date":  at.Format("2006-01-02T15:04:05+00:00"),
				"index": float64(index),
			},
			"entreprise": map[string]any{
				"siren":          siren,
				"raison_sociale": name,
				"effectif":       map[string]any{"tranche": tranche},
			},
		},
	}
}

func newService(t *testing.T) *Service {
	t.Helper()
	svc, err := New(NewInMemoryStore())
	require.NoError(t, err)
	return svc
}

func TestSearchPrefixAndDiacritics(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	for i, name := range []string{"Total", "Bio c Bon", "Biocoop", "Pyrénées", "Decathlon"} {
		siren := string(rune('1'+i)) + "23456789"
		require.NoError(t, svc.Index(ctx, record(siren, 2020, name, domain.Tranche1000Plus, 80+i)))
	}

	results, err := svc.Search(ctx, "bio", Filters{}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = svc.Search(ctx, "pyrenees", Filters{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Pyrénées", results[0].Label)

	results, err = svc.Search(ctx, "décathlon", Filters{}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = svc.Search(ctx, "bio", Filters{}, 1, 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchSirenShortcut(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	require.NoError(t, svc.Index(ctx, record("514027945", 2019, "FooBar", domain.Tranche1000Plus, 94)))
	require.NoError(t, svc.Index(ctx, record("841600323", 2019, "514027945 disguised", domain.Tranche1000Plus, 80)))

	results, err := svc.Search(ctx, "514027945", Filters{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "514027945", results[0].Entreprise["siren"])
}

func TestSearchNotesAcrossYears(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	require.NoError(t, svc.Index(ctx, record("514027945", 2019, "FooBar", domain.Tranche1000Plus, 94)))
	require.NoError(t, svc.Index(ctx, record("514027945", 2020, "FooBar", domain.Tranche1000Plus, 88)))

	results, err := svc.Search(ctx, "foobar", Filters{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Notes, 2)
	assert.Equal(t, 94, *results[0].Notes[2019])
	assert.Equal(t, 88, *results[0].Notes[2020])
}

func TestSearchVisibilityRule(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	require.NoError(t, svc.Index(ctx, record("111111111", 2019, "Grande", domain.Tranche1000Plus, 90)))
	require.NoError(t, svc.Index(ctx, record("222222222", 2019, "Moyenne Avant", domain.Tranche251to999, 85)))
	require.NoError(t, svc.Index(ctx, record("333333333", 2020, "Moyenne Après", domain.Tranche251to999, 85)))
	require.NoError(t, svc.Index(ctx, record("444444444", 2020, "Petite", domain.Tranche50to250, 80)))

	count, err := svc.Count(ctx, "", Filters{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	results, err := svc.Search(ctx, "moyenne", Filters{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Moyenne Après", results[0].Label)
}

func TestSearchUESLabelAndPublicSubset(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	rec := record("514027945", 2020, "FooBar", domain.Tranche1000Plus, 94)
	rec.Data.SetPath("entreprise.ues", map[string]any{
		"raison_sociale": "Groupe Helios",
		"entreprises": []any{
			map[string]any{"raison_sociale": "Helios Sud", "siren": "775751417"},
		},
	})
	rec.Data.SetPath("entreprise.code_naf", "49.31Z")
	rec.Data.SetPath("déclarant.email", "secret@bar.org")
	require.NoError(t, svc.Index(ctx, rec))

	results, err := svc.Search(ctx, "helios", Filters{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, "Groupe Helios", got.Label)
	// the declaring company leads the member list
	ues := got.Entreprise["ues"].(map[string]any)
	members := ues["entreprises"].([]any)
	require.Len(t, members, 2)
	assert.Equal(t, "FooBar", members[0].(map[string]any)["raison_sociale"])
	assert.Equal(t, "Helios Sud", members[1].(map[string]any)["raison_sociale"])
	// declarant details never leak into the public view
	_, leaked := got.Entreprise["déclarant"]
	assert.False(t, leaked)
	assert.Equal(t, "49.31Z", got.Entreprise["code_naf"])

	// company name still wins when it is the better match
	results, err = svc.Search(ctx, "foobar", Filters{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "FooBar", results[0].Label)
}

func TestSearchFilters(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	north := record("111111111", 2020, "Filature du Nord", domain.Tranche1000Plus, 90)
	north.Data.SetPath("entreprise.région", "32")
	north.Data.SetPath("entreprise.département", "59")
	north.Data.SetPath("entreprise.code_naf", "13.10Z")
	require.NoError(t, svc.Index(ctx, north))

	south := record("222222222", 2020, "Filature du Sud", domain.Tranche1000Plus, 85)
	south.Data.SetPath("entreprise.région", "93")
	south.Data.SetPath("entreprise.département", "13")
	south.Data.SetPath("entreprise.code_naf", "49.31Z")
	require.NoError(t, svc.Index(ctx, south))

	count, err := svc.Count(ctx, "filature", Filters{Region: "32"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = svc.Count(ctx, "filature", Filters{Departement: "13"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// 13.10Z falls in manufacturing, section C
	count, err = svc.Count(ctx, "filature", Filters{CodeNAF: "13.10Z"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStatsCaching(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	svc, err := New(store)
	require.NoError(t, err)

	require.NoError(t, svc.Index(ctx, record("111111111", 2020, "Grande", domain.Tranche1000Plus, 90)))
	require.NoError(t, svc.Index(ctx, record("222222222", 2020, "Autre", domain.Tranche1000Plus, 70)))

	stats, err := svc.Stats(ctx, 2020, Filters{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 70, *stats.Min)
	assert.Equal(t, 90, *stats.Max)
	assert.InDelta(t, 80.0, *stats.Avg, 1e-9)

	// later rows do not move the cached answer
	require.NoError(t, svc.Index(ctx, record("333333333", 2020, "Tierce", domain.Tranche1000Plus, 50)))
	stats, err = svc.Stats(ctx, 2020, Filters{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)

	// a different key misses the cache
	stats, err = svc.Stats(ctx, 2019, Filters{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Count)
}

type staticSource []declaration.Record

func (s staticSource) Completed(_ context.Context, fn func(declaration.Record) error) error {
	for _, record := range s {
		if err := fn(record); err != nil {
			return err
		}
	}
	return nil
}

func TestReindex(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	// a stale row that the rebuild must drop
	require.NoError(t, svc.Index(ctx, record("999999999", 2020, "Fantôme", domain.Tranche1000Plus, 10)))

	source := staticSource{
		record("111111111", 2020, "Grande", domain.Tranche1000Plus, 90),
		record("222222222", 2020, "Autre", domain.Tranche1000Plus, 70),
	}
	require.NoError(t, svc.Reindex(ctx, source))
	assert.Equal(t, int64(2), svc.Reindexed())

	count, err := svc.Count(ctx, "", Filters{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	results, err := svc.Search(ctx, "fantome", Filters{}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndexSkipsUnpublished(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	rec := record("514027945", 2020, "FooBar", domain.Tranche1000Plus, 94)
	rec.DeclaredAt = nil
	require.NoError(t, svc.Index(ctx, rec))

	count, err := svc.Count(ctx, "", Filters{})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestParseQuery(t *testing.T) {
	q := ParseQuery("  Bio c  Bon ")
	assert.Empty(t, q.Siren)
	assert.Equal(t, []string{"bio", "c", "bon"}, q.Terms)
	assert.Equal(t, "bio&c&bon:*", q.TSQuery())

	q = ParseQuery("514027945")
	assert.Equal(t, "514027945", q.Siren)
	assert.True(t, ParseQuery("").Empty())

	// an ampersand in the input cannot forge tsquery operators
	q = ParseQuery("P&G")
	assert.Equal(t, []string{"p", "g"}, q.Terms)
}

var errSourceDown = errors.New("source down")

type failingSource struct{}

func (failingSource) Completed(context.Context, func(declaration.Record) error) error {
	return errSourceDown
}

func TestReindexPropagatesSourceFailure(t *testing.T) {
	svc := newService(t)
	err := svc.Reindex(context.Background(), failingSource{})
	assert.ErrorIs(t, err, errSourceDown)
}
