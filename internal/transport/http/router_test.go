package httptransport

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	declarationService "parite/internal/declaration/service"
	declarationStore "parite/internal/declaration/store"
	"parite/internal/domain"
	"parite/internal/emails"
	"parite/internal/schema"
	"parite/internal/search"
	"parite/internal/simulation"
	"parite/internal/tokens"
)

func newTestRouter(t *testing.T) (http.Handler, *tokens.Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	def := schema.MustDefault()

	searchService, err := search.New(search.NewInMemoryStore())
	require.NoError(t, err)

	service, err := declarationService.New(
		declarationStore.NewInMemoryStore(), def, domain.DefaultYears,
		declarationService.WithLogger(logger),
		declarationService.WithIndexer(searchService),
		declarationService.WithStaff([]string{"admin@travail.gouv.fr"}),
	)
	require.NoError(t, err)

	tokenService := tokens.New("test-secret")
	router := NewRouter(Deps{
		Logger:       logger,
		Declarations: service,
		Simulations:  simulation.NewInMemoryStore(),
		Search:       searchService,
		Tokens:       tokenService,
		Mailer:       emails.New(&emails.LogSender{Logger: logger}),
		Schema:       def,
		Years:        domain.DefaultYears,
		SiteURL:      "https://example.org",
		AllowedIPs:   []string{"10.1.2.3"},
	})
	return router, tokenService
}

func do(t *testing.T, router http.Handler, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("API-Key", token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func declarationDocument() map[string]any {
	return map[string]any{
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
			"siren":          "504920166",
			"raison_sociale": "FooBar",
			"région":         "11",
			"département":    "77",
			"adresse":        "2 rue Foo",
			"commune":        "Melun",
			"code_postal":    "77000",
			"code_naf":       "47.25Z",
			"effectif":       map[string]any{"total": 1200.0, "tranche": "1000:"},
		},
		"indicateurs": map[string]any{
			"rémunérations": map[string]any{
				"mode":                 "csp",
				"résultat":             5.28,
				"population_favorable": "femmes",
			},
			"augmentations":        map[string]any{"résultat": 1.0, "population_favorable": "femmes"},
			"promotions":           map[string]any{"résultat": 0.5, "population_favorable": "femmes"},
			"congés_maternité":     map[string]any{"résultat": 100.0},
			"hautes_rémunérations": map[string]any{"résultat": 4.0, "population_favorable": "femmes"},
		},
	}
}

func TestDeclarationRoundTrip(t *testing.T) {
	router, tokenService := newTestRouter(t)
	token, err := tokenService.Create("foo@bar.org")
	require.NoError(t, err)

	rec := do(t, router, http.MethodPut, "/declaration/504920166/2020", token, declarationDocument())
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/declaration/504920166/2020", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data  map[string]any `json:"data"`
		Siren string         `json:"siren"`
		Year  int            `json:"year"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "504920166", resp.Siren)
	assert.Equal(t, 2020, resp.Year)
	assert.EqualValues(t, 94, domain.Data(resp.Data).Path("déclaration.index"))

	rec = do(t, router, http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		Email        string           `json:"email"`
		Declarations []map[string]any `json:"déclarations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "foo@bar.org", me.Email)
	require.Len(t, me.Declarations, 1)

	rec = do(t, router, http.MethodGet, "/search?q=foobar", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var found struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	assert.Equal(t, 1, found.Count)
}

func TestDeclarationRequiresToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPut, "/declaration/504920166/2020", "", declarationDocument())
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"token absent"}`, rec.Body.String())

	rec = do(t, router, http.MethodPut, "/declaration/504920166/2020", "garbage", declarationDocument())
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"token invalide"}`, rec.Body.String())
}

func TestDeclarationRejectsForeignWriter(t *testing.T) {
	router, tokenService := newTestRouter(t)
	owner, err := tokenService.Create("foo@bar.org")
	require.NoError(t, err)
	stranger, err := tokenService.Create("other@corp.com")
	require.NoError(t, err)

	rec := do(t, router, http.MethodPut, "/declaration/504920166/2020", owner, declarationDocument())
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPut, "/declaration/504920166/2020", stranger, declarationDocument())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTokenEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/token", "", map[string]string{"email": "foo@bar.org"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodPost, "/token", "", map[string]string{"email": "not an address"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"adresse email invalide"}`, rec.Body.String())
}

func TestTokenEndpointAllowedIP(t *testing.T) {
	router, _ := newTestRouter(t)

	body, err := json.Marshal(map[string]string{"email": "foo@bar.org"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/token", bytes.NewReader(body))
	req.Header.Set("X-Real-IP", "10.1.2.3")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	// the inline token works like an emailed one
	me := do(t, router, http.MethodGet, "/me", resp.Token, nil)
	assert.Equal(t, http.StatusOK, me.Code)

	// any other caller still goes through the email flow
	req = httptest.NewRequest(http.MethodPost, "/token", bytes.NewReader(body))
	req.Header.Set("X-Real-IP", "192.0.2.7")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestValidateSiren(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/validate-siren?siren=504920166", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/validate-siren?siren=123456789", "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"error":"Numéro SIREN invalide: 123456789"}`, rec.Body.String())
}

func TestSimulationRoundTrip(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/simulation", "", map[string]any{"effectif": map[string]any{"total": 100.0}})
	require.Equal(t, http.StatusOK, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rec = do(t, router, http.MethodPut, "/simulation/"+created.ID, "", map[string]any{"effectif": map[string]any{"total": 250.0}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/simulation/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var record simulation.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.EqualValues(t, 250, record.Data.Path("effectif.total"))

	rec = do(t, router, http.MethodGet, "/simulation/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfigEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/config", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg struct {
		Years   []int             `json:"YEARS"`
		Regions map[string]string `json:"REGIONS"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, domain.DefaultYears, cfg.Years)
	assert.Equal(t, "Île-de-France", cfg.Regions["11"])
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
