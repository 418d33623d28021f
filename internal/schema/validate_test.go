package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parite/internal/domain"
	"parite/internal/schema"
)

func validDocument() domain.Data {
	return domain.Data{
		"déclaration": map[string]any{
			"année_indicateurs": 2020,
			"période_référence": []any{"2020-01-01", "2020-12-31"},
		},
		"déclarant": map[string]any{
			"email":     "foo@bar.org",
			"prénom":    "Martin",
			"nom":       "Martine",
			"téléphone": "0102030405",
		},
		"entreprise": map[string]any{
			"siren":       "504920166",
			"région":      "11",
			"département": "77",
			"code_naf":    "47.25Z",
			"code_postal": "77000",
			"effectif":    map[string]any{"total": 1200.0, "tranche": "1000:"},
		},
		"indicateurs": map[string]any{
			"rémunérations": map[string]any{
				"mode":     "csp",
				"résultat": 5.28,
			},
		},
	}
}

func TestValidateAcceptsConformingDocument(t *testing.T) {
	def := schema.MustDefault()
	assert.NoError(t, def.Validate(map[string]any(validDocument())))
}

func TestValidateViolations(t *testing.T) {
	def := schema.MustDefault()

	cases := []struct {
		name   string
		mutate func(domain.Data)
		path   string
		msg    string
	}{
		{
			"unknown root property",
			func(d domain.Data) { d["mystère"] = 1 },
			"", `unknown property "mystère"`,
		},
		{
			"missing required email",
			func(d domain.Data) { d.DeletePath("déclarant.email") },
			"déclarant", `missing required property "email"`,
		},
		{
			"year out of range",
			func(d domain.Data) { d.SetPath("déclaration.année_indicateurs", 2028) },
			"déclaration.année_indicateurs", "above the maximum",
		},
		{
			"year not an integer",
			func(d domain.Data) { d.SetPath("déclaration.année_indicateurs", 2020.5) },
			"déclaration.année_indicateurs", "expected an integer",
		},
		{
			"phone pattern",
			func(d domain.Data) { d.SetPath("déclarant.téléphone", "12") },
			"déclarant.téléphone", "does not match",
		},
		{
			"bad email",
			func(d domain.Data) { d.SetPath("déclarant.email", "not an address") },
			"déclarant.email", "not a valid email",
		},
		{
			"bad date in array",
			func(d domain.Data) { d.SetPath("déclaration.période_référence", []any{"2020-01-01", "hier"}) },
			"déclaration.période_référence.1", "not a valid date",
		},
		{
			"tranche outside enum",
			func(d domain.Data) { d.SetPath("entreprise.effectif.tranche", "500:999") },
			"entreprise.effectif.tranche", "is not one of",
		},
		{
			"unknown region code",
			func(d domain.Data) { d.SetPath("entreprise.région", "99") },
			"entreprise.région", "is not one of",
		},
		{
			"naf shape",
			func(d domain.Data) { d.SetPath("entreprise.code_naf", "4725Z") },
			"entreprise.code_naf", "does not match",
		},
		{
			"negative result",
			func(d domain.Data) { d.SetPath("indicateurs.rémunérations.résultat", -1.0) },
			"indicateurs.rémunérations.résultat", "below the minimum",
		},
		{
			"string where number expected",
			func(d domain.Data) { d.SetPath("indicateurs.rémunérations.résultat", "5.28") },
			"indicateurs.rémunérations.résultat", "expected a number",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := validDocument()
			tc.mutate(doc)
			err := def.Validate(map[string]any(doc))
			require.Error(t, err)
			var violation *schema.ValidationError
			require.ErrorAs(t, err, &violation)
			assert.Equal(t, tc.path, violation.Path)
			assert.Contains(t, violation.Message, tc.msg)
		})
	}
}

func TestValidateAllowsNullable(t *testing.T) {
	def := schema.MustDefault()
	doc := validDocument()
	doc.SetPath("déclarant.prénom", nil)
	doc.SetPath("indicateurs.rémunérations.résultat", nil)
	assert.NoError(t, def.Validate(map[string]any(doc)))
}

func TestCleanReadOnly(t *testing.T) {
	def := schema.MustDefault()
	doc := validDocument()
	doc.SetPath("déclaration.date", "2021-01-04T10:00:00+00:00")
	doc.SetPath("déclaration.points", 94)
	doc.SetPath("déclaration.index", 94)
	doc.SetPath("indicateurs.rémunérations.note", 34)

	schema.CleanReadOnly(doc, def)

	assert.Nil(t, doc.Path("déclaration.date"))
	assert.Nil(t, doc.Path("déclaration.points"))
	assert.Nil(t, doc.Path("déclaration.index"))
	assert.Nil(t, doc.Path("indicateurs.rémunérations.note"))
	assert.Equal(t, "504920166", doc.Siren(), "writable fields survive")
	result, ok := doc.PathFloat("indicateurs.rémunérations.résultat")
	require.True(t, ok)
	assert.Equal(t, 5.28, result)
}
