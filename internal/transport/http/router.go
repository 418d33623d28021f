// Package httptransport assembles the HTTP surface. Handlers stay thin and
// delegate to the domain services.
package httptransport

import (
	"log/slog"
	"net"
	"net/http"
	"net/mail"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	declarationHandler "parite/internal/declaration/handler"
	"parite/internal/domain"
	"parite/internal/emails"
	"parite/internal/platform/metrics"
	"parite/internal/platform/middleware"
	"parite/internal/schema"
	"parite/internal/search"
	searchHandler "parite/internal/search/handler"
	"parite/internal/simulation"
	simulationHandler "parite/internal/simulation/handler"
	"parite/internal/siren"
	"parite/internal/tokens"
	"parite/internal/transport/http/shared"
	dErrors "parite/pkg/domain-errors"
)

// Deps gathers everything the router wires together.
type Deps struct {
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Declarations declarationHandler.Service
	Simulations  simulation.Store
	Search       *search.Service
	Tokens       *tokens.Service
	Mailer       *emails.Mailer
	Schema       *schema.Definition
	Years        []int
	SiteURL      string
	AllowedIPs   []string
}

// NewRouter wires all endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))

	auth := middleware.RequireAuth(deps.Tokens, deps.Logger)
	declarationHandler.New(deps.Declarations, deps.Logger, auth).Register(r)
	simulationHandler.New(deps.Simulations, deps.Logger, deps.Metrics).Register(r)
	searchHandler.New(deps.Search, deps.Logger, deps.Metrics).Register(r)

	p := publicHandler{deps: deps}
	r.Post("/token", p.handleToken)
	r.Get("/validate-siren", p.handleValidateSiren)
	r.Get("/config", p.handleConfig)
	r.Get("/jsonschema.json", p.handleJSONSchema)
	r.Get("/healthz", p.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

type publicHandler struct {
	deps Deps
}

// handleToken emails a magic link holding a fresh token. The response never
// reveals whether sending succeeded, to keep the endpoint harmless to probe.
func (p publicHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	body, err := shared.Decode(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	email, _ := body["email"].(string)
	if _, err := mail.ParseAddress(email); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "adresse email invalide"))
		return
	}
	token, err := p.deps.Tokens.Create(email)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "création du jeton"))
		return
	}
	if p.deps.Metrics != nil {
		p.deps.Metrics.TokensIssued.Inc()
	}
	// trusted callers, typically the staff proxy, get the token inline
	// instead of an email round trip
	if p.allowed(clientIP(r)) {
		shared.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
		return
	}
	link := p.deps.SiteURL + "/?token=" + url.QueryEscape(token)
	if err := p.deps.Mailer.AccessGranted(r.Context(), email, link); err != nil {
		p.deps.Logger.Error("send access email", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (p publicHandler) allowed(ip string) bool {
	for _, candidate := range p.deps.AllowedIPs {
		if candidate == ip {
			return true
		}
	}
	return false
}

// clientIP prefers the proxy-set header since the service runs behind nginx.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (p publicHandler) handleValidateSiren(w http.ResponseWriter, r *http.Request) {
	number := r.URL.Query().Get("siren")
	if !siren.Valid(number) {
		shared.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "Numéro SIREN invalide: %s", number))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (p publicHandler) handleConfig(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"YEARS":        p.deps.Years,
		"REGIONS":      domain.Regions,
		"DEPARTEMENTS": domain.Departements,
		"EFFECTIFS":    domain.EffectifLabels,
	})
}

func (p publicHandler) handleJSONSchema(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, p.deps.Schema)
}

func (p publicHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
