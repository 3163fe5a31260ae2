package blog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"kairo-backend/internal/cache"
	"kairo-backend/internal/httpx"
	"kairo-backend/internal/middleware"
	"kairo-backend/internal/validation"
)

// CachePrefix scopes every cached public blog payload.
const CachePrefix = "blog:"

type Handler struct {
	service  *Service
	val      *validation.Validator
	cache    cache.Cache
	cacheTTL time.Duration
	log      *slog.Logger
}

func NewHandler(service *Service, val *validation.Validator, c cache.Cache, cacheTTL time.Duration, log *slog.Logger) *Handler {
	if c == nil {
		c = cache.NewNoop()
	}
	return &Handler{
		service:  service,
		val:      val,
		cache:    c,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/blog", h.PublicList)
	r.Get("/blog/{slug}", h.PublicGetBySlug)
}

func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/blog", h.AdminList)
	r.Post("/blog", h.AdminCreate)
	r.Put("/blog/{id}", h.AdminUpdate)
	r.Delete("/blog/{id}", h.AdminDelete)
}

func (h *Handler) PublicList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	filter := PublicListFilter{
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
		Tag:      strings.TrimSpace(r.URL.Query().Get("tag")),
	}

	cacheKey := CachePrefix + "list:" + filter.Category + ":" + strings.ToLower(filter.Tag)
	if cached, ok, err := h.cache.Get(r.Context(), cacheKey); err == nil && ok {
		log.Info("blog public list: cache hit")
		httpx.WriteRaw(w, http.StatusOK, cached)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := h.service.ListPublic(ctx, filter)
	if err != nil {
		log.Error("blog public list: database error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	payload := map[string]interface{}{"items": items}
	h.store(r.Context(), cacheKey, payload)
	log.Info("blog public list: ok", slog.Int("count", len(items)))
	httpx.WriteJSON(w, http.StatusOK, payload)
}

func (h *Handler) PublicGetBySlug(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	if slug == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing slug", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	post, err := h.service.GetPublishedBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("blog public get: not found", slog.String("slug", slug))
			httpx.WriteError(w, http.StatusNotFound, "post not found", nil)
			return
		}
		log.Error("blog public get: database error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, post)
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 20, 100)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	published, err := httpx.ParseBool(r.URL.Query(), "published")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	filter := AdminListFilter{
		Category:  strings.TrimSpace(r.URL.Query().Get("category")),
		Published: published,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, total, err := h.service.ListAdmin(ctx, filter, limit, offset)
	if err != nil {
		log.Error("admin blog list: database error", slog.String("error", err.Error()))
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

	req, ok := h.decode(w, r, log, "admin blog create")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	post, err := h.service.Create(ctx, req)
	if err != nil {
		h.writeServiceError(w, log, "admin blog create", err)
		return
	}

	h.invalidate(r.Context())
	log.Info("admin blog create: ok", slog.String("post_id", post.ID), slog.String("slug", post.Slug))
	httpx.WriteJSON(w, http.StatusCreated, post)
}

func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	req, ok := h.decode(w, r, log, "admin blog update")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	post, err := h.service.Update(ctx, id, req)
	if err != nil {
		h.writeServiceError(w, log, "admin blog update", err)
		return
	}

	h.invalidate(r.Context())
	log.Info("admin blog update: ok", slog.String("post_id", id))
	httpx.WriteJSON(w, http.StatusOK, post)
}

func (h *Handler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.service.Delete(ctx, id); err != nil {
		h.writeServiceError(w, log, "admin blog delete", err)
		return
	}

	h.invalidate(r.Context())
	log.Info("admin blog delete: ok", slog.String("post_id", id))
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, op string) (UpsertRequest, bool) {
	var req UpsertRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn(op + ": invalid json")
		httpx.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return req, false
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn(op + ": validation error")
		httpx.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return req, false
	}
	return req, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "post not found", nil)
	case errors.Is(err, ErrSlugExists):
		log.Warn(op + ": slug exists")
		httpx.WriteError(w, http.StatusConflict, "slug already exists", nil)
	case errors.Is(err, ErrInvalidSlug):
		httpx.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"slug": "invalid"})
	default:
		log.Error(op+": database error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
	}
}

func (h *Handler) store(ctx context.Context, key string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := h.cache.Set(ctx, key, payload, h.cacheTTL); err != nil {
		h.log.Warn("blog cache: set failed", slog.String("error", err.Error()))
	}
}

func (h *Handler) invalidate(ctx context.Context) {
	if err := h.cache.DeletePrefix(ctx, CachePrefix); err != nil {
		h.log.Warn("blog cache: invalidate failed", slog.String("error", err.Error()))
	}
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	return h.log.With(slog.String("request_id", middleware.RequestIDFromContext(r.Context())))
}
