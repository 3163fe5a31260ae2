package contact

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

const notifyTimeout = 8 * time.Second

type Handler struct {
	service *Service
	val     *validation.Validator
	log     *slog.Logger
}

func NewHandler(service *Service, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{service: service, val: val, log: log}
}

func (h *Handler) Routes(r chi.Router, limiter func(http.Handler) http.Handler) {
	if limiter == nil {
		r.Post("/contact", h.Create)
		return
	}
	r.With(limiter).Post("/contact", h.Create)
}

func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/contact", h.AdminList)
	r.Get("/contact/{id}", h.AdminGet)
	r.Patch("/contact/{id}", h.AdminUpdateStatus)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req CreateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("contact create: invalid json")
		httpx.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	if strings.TrimSpace(req.Website) != "" {
		log.Warn("contact create: honeypot filled")
		httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "received"})
		return
	}

	if err := h.val.Struct(req); err != nil {
		log.Warn("contact create: validation error")
		httpx.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	msg, err := h.service.Create(ctx, req)
	if err != nil {
		log.Error("contact create: database error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	go func(m Message) {
		notifyCtx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := h.service.Notify(notifyCtx, m); err != nil {
			h.log.Warn("contact create: notification failed",
				slog.String("contact_id", m.ID),
				slog.String("error", err.Error()),
			)
		}
	}(msg)

	log.Info("contact create: stored", slog.String("contact_id", msg.ID))
	httpx.WriteJSON(w, http.StatusCreated, msg)
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 20, 100)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, total, err := h.service.ListAdmin(ctx, ListFilter{Status: r.URL.Query().Get("status")}, limit, offset)
	if err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid status", nil)
			return
		}
		log.Error("admin contact list: database error", slog.String("error", err.Error()))
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

func (h *Handler) AdminGet(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	msg, err := h.service.GetAdminByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "message not found", nil)
			return
		}
		log.Error("admin contact get: database error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, msg)
}

func (h *Handler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := chi.URLParam(r, "id")

	var req StatusUpdateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	msg, err := h.service.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "message not found", nil)
			return
		}
		log.Error("admin contact status: database error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin contact status: ok", slog.String("contact_id", msg.ID), slog.String("status", msg.Status))
	httpx.WriteJSON(w, http.StatusOK, msg)
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	return h.log.With(slog.String("request_id", middleware.RequestIDFromContext(r.Context())))
}
