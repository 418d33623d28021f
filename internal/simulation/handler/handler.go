// Package handler exposes anonymous simulations over HTTP.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"parite/internal/platform/metrics"
	"parite/internal/simulation"
	"parite/internal/transport/http/shared"
	dErrors "parite/pkg/domain-errors"
)

type Handler struct {
	store   simulation.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(store simulation.Store, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{store: store, logger: logger, metrics: m}
}

// Register mounts the simulation routes. They are unauthenticated, a
// simulation belongs to whoever holds its id.
func (h *Handler) Register(r chi.Router) {
	r.Post("/simulation", h.handleCreate)
	r.Get("/simulation/{id}", h.handleGet)
	r.Put("/simulation/{id}", h.handlePut)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	doc, err := shared.Decode(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	id, err := h.store.Create(r.Context(), doc)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "création de la simulation"))
		return
	}
	if h.metrics != nil {
		h.metrics.SimulationsCreated.Inc()
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"id": id.String()})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := routeID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	record, err := h.store.Get(r.Context(), id)
	if errors.Is(err, simulation.ErrNotFound) {
		shared.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "simulation %s inconnue", id))
		return
	}
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "lecture de la simulation"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	id, err := routeID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	doc, err := shared.Decode(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	record, err := h.store.Put(r.Context(), id, doc)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "sauvegarde de la simulation"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

func routeID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "identifiant de simulation invalide: %s", chi.URLParam(r, "id"))
	}
	return id, nil
}
