// Package handler exposes the declaration lifecycle over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"parite/internal/declaration"
	"parite/internal/domain"
	"parite/internal/platform/middleware"
	"parite/internal/transport/http/shared"
	dErrors "parite/pkg/domain-errors"
)

// Service defines the lifecycle operations the handler delegates to.
type Service interface {
	Declare(ctx context.Context, siren string, year int, actor string, doc map[string]any, ip string) error
	Get(ctx context.Context, siren string, year int, actor string) (domain.Data, error)
	Owned(ctx context.Context, email string) ([]declaration.Metadata, error)
	Own(ctx context.Context, siren string, year int, actor, newOwner string) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
	auth    func(http.Handler) http.Handler
}

func New(service Service, logger *slog.Logger, auth func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, logger: logger, auth: auth}
}

// Register mounts the authenticated declaration routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Put("/declaration/{siren}/{year}", h.handleDeclare)
		r.Get("/declaration/{siren}/{year}", h.handleGet)
		r.Put("/declaration/{siren}/{year}/owner", h.handleOwner)
		r.Get("/me", h.handleMe)
	})
}

func (h *Handler) handleDeclare(w http.ResponseWriter, r *http.Request) {
	siren, year, err := routeKey(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	doc, err := shared.Decode(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	email := middleware.GetEmail(r.Context())
	if err := h.service.Declare(r.Context(), siren, year, email, doc, clientIP(r)); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	siren, year, err := routeKey(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	doc, err := h.service.Get(r.Context(), siren, year, middleware.GetEmail(r.Context()))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"data": doc, "siren": siren, "year": year})
}

func (h *Handler) handleOwner(w http.ResponseWriter, r *http.Request) {
	siren, year, err := routeKey(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	body, err := shared.Decode(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	newOwner, _ := body["owner"].(string)
	if newOwner == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "le champ owner est requis"))
		return
	}
	if err := h.service.Own(r.Context(), siren, year, middleware.GetEmail(r.Context()), newOwner); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	email := middleware.GetEmail(r.Context())
	owned, err := h.service.Owned(r.Context(), email)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"email":        email,
		"déclarations": owned,
	})
}

func routeKey(r *http.Request) (string, int, error) {
	siren := chi.URLParam(r, "siren")
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return "", 0, dErrors.Newf(dErrors.CodeBadRequest, "année invalide: %s", chi.URLParam(r, "year"))
	}
	return siren, year, nil
}

// clientIP prefers the proxy-set header since the service runs behind nginx.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
