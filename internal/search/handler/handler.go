// Package handler exposes the public search endpoints.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"parite/internal/platform/metrics"
	"parite/internal/search"
	"parite/internal/transport/http/shared"
	dErrors "parite/pkg/domain-errors"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

type Handler struct {
	service *search.Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(service *search.Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{service: service, logger: logger, metrics: m}
}

// Register mounts the anonymous search routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/search", h.handleSearch)
	r.Get("/search/count", h.handleCount)
	r.Get("/stats", h.handleStats)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	if h.metrics != nil {
		h.metrics.SearchQueries.Inc()
	}
	q := r.URL.Query().Get("q")
	filters := queryFilters(r)
	limit := queryInt(r, "limit", defaultLimit)
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := queryInt(r, "offset", 0)

	results, err := h.service.Search(r.Context(), q, filters, limit, offset)
	if err != nil {
		h.logger.Error("search", "q", q, "error", err)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "recherche indisponible"))
		return
	}
	count, err := h.service.Count(r.Context(), q, filters)
	if err != nil {
		h.logger.Error("search count", "q", q, "error", err)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "recherche indisponible"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"data": results, "count": count})
}

func (h *Handler) handleCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Count(r.Context(), r.URL.Query().Get("q"), queryFilters(r))
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "recherche indisponible"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "le paramètre year est requis"))
		return
	}
	stats, err := h.service.Stats(r.Context(), year, queryFilters(r))
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "statistiques indisponibles"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, stats)
}

func queryFilters(r *http.Request) search.Filters {
	query := r.URL.Query()
	return search.Filters{
		Region:      query.Get("region"),
		Departement: query.Get("departement"),
		CodeNAF:     query.Get("naf"),
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
