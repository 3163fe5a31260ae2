package portfolio

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"kairo-backend/internal/httpx"
	"kairo-backend/internal/middleware"
	"kairo-backend/internal/validation"
)

type Handler struct {
	service *Service
	val     *validation.Validator
	log     *slog.Logger
}

func NewHandler(service *Service, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{service: service, val: val, log: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/projects", h.PublicList)
	r.Get("/projects/{slug}", h.PublicGetBySlug)
}

func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/projects", h.AdminList)
	r.Post("/projects", h.AdminCreate)
	r.Put("/projects/{id}", h.AdminUpdate)
	r.Delete("/projects/{id}", h.AdminDelete)
}

func (h *Handler) PublicList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	featured, err := httpx.ParseBool(r.URL.Query(), "featured")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := h.service.ListPublic(ctx, ListFilter{
		Category: r.URL.Query().Get("category"),
		Featured: featured,
	})
	if err != nil {
		log.Error("projects public list: database error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("projects public list: ok", slog.Int("count", len(items)))
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) PublicGetBySlug(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.service.GetPublishedBySlug(ctx, slug)
	if err != nil {
		h.writeServiceError(w, log, "projects public get", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	q := r.URL.Query()
	limit, offset, err := httpx.ParseLimitOffset(q, 20, 100)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	featured, err := httpx.ParseBool(q, "featured")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, total, err := h.service.ListAdmin(ctx, ListFilter{Category: q.Get("category"), Featured: featured}, limit, offset)
	if err != nil {
		log.Error("admin projects list: database error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	var req UpsertRequest
	if !h.decode(w, r, log, "admin projects create", &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	p, err := h.service.Create(ctx, req)
	if err != nil {
		h.writeServiceError(w, log, "admin projects create", err)
		return
	}

	log.Info("admin projects create: ok", slog.String("project_id", p.ID), slog.String("slug", p.Slug))
	httpx.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	var req UpsertRequest
	if !h.decode(w, r, log, "admin projects update", &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	p, err := h.service.Update(ctx, id, req)
	if err != nil {
		h.writeServiceError(w, log, "admin projects update", err)
		return
	}

	log.Info("admin projects update: ok", slog.String("project_id", id))
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.service.Delete(ctx, id); err != nil {
		h.writeServiceError(w, log, "admin projects delete", err)
		return
	}

	log.Info("admin projects delete: ok", slog.String("project_id", id))
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, op string, req *UpsertRequest) bool {
	if err := httpx.DecodeJSON(r.Body, req); err != nil {
		log.Warn(op + ": invalid json")
		httpx.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn(op + ": validation error")
		httpx.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return false
	}
	return true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		log.Warn(op + ": not found")
		httpx.WriteError(w, http.StatusNotFound, "project not found", nil)
	case errors.Is(err, ErrSlugExists):
		httpx.WriteError(w, http.StatusConflict, "slug already exists", nil)
	case errors.Is(err, ErrInvalidSlug):
		httpx.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"slug": "invalid"})
	default:
		log.Error(op+": database error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
	}
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	return h.log.With(slog.String("request_id", middleware.RequestIDFromContext(r.Context())))
}
