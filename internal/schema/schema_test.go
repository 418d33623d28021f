package schema_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parite/internal/schema"
)

const compact = `
?source: string
+entreprise:
  +siren: r"^\d{9}$"
  +année: 2018:2020
  tranche: 50:250|251:999|1000:
  motif: egvi40pcet
  ?téléphone: r"^\d{9,10}$"  # Sans le préfixe international
  tranches:
    ?":29": number
    ?"30:39": number
  entreprises:
    - +raison_sociale: string
      +siren: r"^\d{9}$"
  ?période: [date]
  =?note: 0:100
  ?résultat: 0.0:
`

func TestLoadDialect(t *testing.T) {
	root, err := schema.Load(compact, nil)
	require.NoError(t, err)

	source := root.Properties["source"]
	require.NotNil(t, source)
	assert.Equal(t, "string", source.Type)
	assert.True(t, source.Nullable)

	assert.Equal(t, []string{"entreprise"}, root.Required)
	ent := root.Properties["entreprise"]
	require.NotNil(t, ent)
	assert.Equal(t, "object", ent.Type)
	assert.Equal(t, []string{"siren", "année"}, ent.Required)

	assert.Equal(t, `^\d{9}$`, ent.Properties["siren"].Pattern)

	year := ent.Properties["année"]
	assert.Equal(t, "integer", year.Type)
	require.NotNil(t, year.Minimum)
	assert.Equal(t, 2018.0, *year.Minimum)
	require.NotNil(t, year.Maximum)
	assert.Equal(t, 2020.0, *year.Maximum)

	assert.Equal(t, []string{"50:250", "251:999", "1000:"}, ent.Properties["tranche"].Enum)
	assert.Equal(t, []string{"egvi40pcet"}, ent.Properties["motif"].Enum)
	assert.Equal(t, "Sans le préfixe international", ent.Properties["téléphone"].Description)

	tranches := ent.Properties["tranches"]
	require.NotNil(t, tranches)
	assert.Equal(t, "number", tranches.Properties[":29"].Type)
	assert.True(t, tranches.Properties["30:39"].Nullable)

	list := ent.Properties["entreprises"]
	require.NotNil(t, list)
	assert.Equal(t, "array", list.Type)
	require.NotNil(t, list.Items)
	assert.Equal(t, []string{"raison_sociale", "siren"}, list.Items.Required)

	periode := ent.Properties["période"]
	assert.Equal(t, "array", periode.Type)
	assert.Equal(t, "date", periode.Items.Format)

	note := ent.Properties["note"]
	assert.True(t, note.ReadOnly)
	assert.True(t, note.Nullable)
	assert.Equal(t, "integer", note.Type)
	assert.Equal(t, 100.0, *note.Maximum)

	assert.Equal(t, "number", ent.Properties["résultat"].Type)
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		line int
		msg  string
	}{
		{"odd indentation", "foo:\n   bar: string", 2, "wrong indentation"},
		{"indent below a leaf", "foo: string\n    bar: string", 2, "wrong indentation"},
		{"missing definition", "foo:", 1, "missing definition"},
		{"unknown type", "foo: Bad-Type", 1, "unknown type"},
		{"unknown provider", "foo: python:nope", 1, "unknown provider"},
		{"invalid regex", `foo: r"["`, 1, "invalid regex"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := schema.Load(tc.raw, nil)
			require.Error(t, err)
			var parseErr *schema.ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tc.line, parseErr.Line)
			assert.Contains(t, parseErr.Msg, tc.msg)
		})
	}
}

func TestDefaultSchema(t *testing.T) {
	root, err := schema.Default()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"déclaration", "déclarant", "entreprise"}, root.Required)

	year := root.Properties["déclaration"].Properties["année_indicateurs"]
	require.NotNil(t, year)
	assert.Equal(t, "integer", year.Type)
	assert.Equal(t, 2018.0, *year.Minimum)
	assert.Equal(t, 2020.0, *year.Maximum)

	region := root.Properties["entreprise"].Properties["région"]
	require.NotNil(t, region)
	assert.Contains(t, region.Enum, "11")
	assert.True(t, region.Nullable)

	date := root.Properties["déclaration"].Properties["date"]
	require.NotNil(t, date)
	assert.True(t, date.ReadOnly)

	note := root.Properties["indicateurs"].Properties["rémunérations"].Properties["note"]
	require.NotNil(t, note)
	assert.True(t, note.ReadOnly)
	assert.Equal(t, 40.0, *note.Maximum)
}

func TestProviders(t *testing.T) {
	providers := schema.Providers([]int{2019, 2021})
	year := providers["year-range"]()
	assert.Equal(t, 2019.0, *year.Minimum)
	assert.Equal(t, 2021.0, *year.Maximum)

	departements := providers["department-codes"]()
	assert.Contains(t, departements.Enum, "971", "overseas departments are permitted")
	assert.True(t, len(departements.Enum) > 100)

	naf := providers["naf-codes"]()
	assert.True(t, strings.HasPrefix(naf.Pattern, "^"))
}
