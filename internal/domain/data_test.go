package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathCollapsesEmptyValues(t *testing.T) {
	d := Data{
		"a": map[string]any{
			"vide":    "",
			"objet":   map[string]any{},
			"liste":   []any{},
			"faux":    false,
			"zéro":    0.0,
			"présent": "oui",
		},
	}

	assert.Nil(t, d.Path("a.vide"))
	assert.Nil(t, d.Path("a.objet"))
	assert.Nil(t, d.Path("a.liste"))
	assert.Nil(t, d.Path("a.absent"))
	assert.Nil(t, d.Path("a.présent.trop.profond"))

	assert.Equal(t, false, d.Path("a.faux"), "explicit false is not empty")
	assert.Equal(t, 0.0, d.Path("a.zéro"), "explicit zero is not empty")
	assert.Equal(t, "oui", d.Path("a.présent"))
}

func TestSetPathCreatesIntermediates(t *testing.T) {
	d := NewData()
	d.SetPath("entreprise.effectif.tranche", "1000:")
	assert.Equal(t, "1000:", d.Tranche())

	d.SetPath("entreprise.effectif.total", 1200)
	total, ok := d.PathFloat("entreprise.effectif.total")
	require.True(t, ok)
	assert.Equal(t, 1200.0, total)

	d.DeletePath("entreprise.effectif.tranche")
	assert.Equal(t, "", d.Tranche())
}

func TestPathBool(t *testing.T) {
	d := Data{"déclaration": map[string]any{"brouillon": true}}
	assert.True(t, d.Draft())

	d.SetPath("déclaration.brouillon", false)
	assert.False(t, d.Draft())

	d.DeletePath("déclaration.brouillon")
	assert.False(t, d.Draft())
}

func TestValidated(t *testing.T) {
	d := NewData()
	assert.False(t, d.Validated())
	d.SetPath("déclaration.date", "2021-01-04T10:00:00+00:00")
	assert.True(t, d.Validated())
}

func TestUESAccessors(t *testing.T) {
	d := Data{
		"entreprise": map[string]any{
			"ues": map[string]any{
				"raison_sociale": "Groupe Baz",
				"entreprises": []any{
					map[string]any{"raison_sociale": "Baz Sud", "siren": "987654326"},
					map[string]any{"raison_sociale": "", "siren": "504920166"},
				},
			},
		},
	}
	assert.Equal(t, "Groupe Baz", d.UESName())
	assert.Equal(t, []string{"987654326", "504920166"}, d.UESSirens())
	assert.Equal(t, []string{"Baz Sud"}, d.UESNames(), "blank names are skipped")
}

func TestCloneIsIndependent(t *testing.T) {
	d := Data{"entreprise": map[string]any{"siren": "504920166", "effectif": map[string]any{"total": 1200}}}
	clone := d.Clone()

	clone.SetPath("entreprise.siren", "123456782")
	assert.Equal(t, "504920166", d.Siren())

	// the round-trip normalizes in-code ints to decoded float64
	total, ok := clone.PathFloat("entreprise.effectif.total")
	require.True(t, ok)
	assert.Equal(t, 1200.0, total)
	assert.IsType(t, float64(0), clone.Path("entreprise.effectif.total"))
}

func TestIndex(t *testing.T) {
	d := NewData()
	_, ok := d.Index()
	assert.False(t, ok)

	d.SetPath("déclaration.index", 94)
	index, ok := d.Index()
	require.True(t, ok)
	assert.Equal(t, 94, index)

	d.SetPath("déclaration.index", nil)
	_, ok = d.Index()
	assert.False(t, ok, "a non-calculable index reads as absent")
}
