package settings

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kairo-backend/internal/cache"
	"kairo-backend/internal/httpx"
	"kairo-backend/internal/middleware"
)

const (
	cacheKey     = "settings:public"
	maxBodyBytes = 256 << 10
)

type Handler struct {
	service  *Service
	cache    cache.Cache
	cacheTTL time.Duration
	log      *slog.Logger
}

func NewHandler(service *Service, c cache.Cache, cacheTTL time.Duration, log *slog.Logger) *Handler {
	if c == nil {
		c = cache.NewNoop()
	}
	return &Handler{service: service, cache: c, cacheTTL: cacheTTL, log: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/settings", h.Get)
}

func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/settings", h.Get)
	r.Get("/settings/form", h.Form)
	r.Put("/settings", h.Replace)
	r.Patch("/settings", h.SetPath)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	if cached, ok, err := h.cache.Get(r.Context(), cacheKey); err == nil && ok {
		httpx.WriteRaw(w, http.StatusOK, cached)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	v, err := h.service.Get(ctx)
	if err != nil {
		log.Error("settings get: database error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	payload, err := v.MarshalJSON()
	if err != nil {
		log.Error("settings get: encode error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "encode error", nil)
		return
	}
	if err := h.cache.Set(r.Context(), cacheKey, payload, h.cacheTTL); err != nil {
		log.Warn("settings cache: set failed", slog.String("error", err.Error()))
	}
	httpx.WriteRaw(w, http.StatusOK, payload)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	fields, err := h.service.Form(ctx)
	if err != nil {
		log.Error("admin settings form: database error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"fields": fields})
}

func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid body", nil)
		return
	}
	v, err := FromJSON(raw)
	if err != nil {
		log.Warn("admin settings replace: invalid json")
		httpx.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	saved, err := h.service.Replace(ctx, v)
	if err != nil {
		h.writeServiceError(w, log, "admin settings replace", err)
		return
	}

	h.invalidate(r.Context())
	log.Info("admin settings replace: ok", slog.Int("keys", len(saved.Fields)))
	httpx.WriteJSON(w, http.StatusOK, saved)
}

type setPathRequest struct {
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
}

func (h *Handler) SetPath(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	var req setPathRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil || len(req.Value) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	nv, err := FromJSON(req.Value)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	saved, err := h.service.SetPath(ctx, req.Path, nv)
	if err != nil {
		h.writeServiceError(w, log, "admin settings set", err)
		return
	}

	h.invalidate(r.Context())
	log.Info("admin settings set: ok", slog.String("path", req.Path))
	httpx.WriteJSON(w, http.StatusOK, saved)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidPath):
		httpx.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"path": "invalid"})
	case errors.Is(err, ErrNotObject), errors.Is(err, ErrNotAnObject):
		httpx.WriteError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		log.Error(op+": database error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
	}
}

func (h *Handler) invalidate(ctx context.Context) {
	if err := h.cache.Delete(ctx, cacheKey); err != nil {
		h.log.Warn("settings cache: invalidate failed", slog.String("error", err.Error()))
	}
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	return h.log.With(slog.String("request_id", middleware.RequestIDFromContext(r.Context())))
}
