package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kairo-backend/internal/auth"
	"kairo-backend/internal/httpx"
	"kairo-backend/internal/middleware"
	"kairo-backend/internal/validation"
)

const (
	RefreshCookie = "kairo_refresh"
	// refreshPath covers both /api/admin and /api/v1/admin.
	refreshPath = "/api"
)

type Handler struct {
	service      *Service
	val          *validation.Validator
	manager      *auth.Manager
	cookieSecure bool
	log          *slog.Logger
}

func NewHandler(service *Service, val *validation.Validator, manager *auth.Manager, cookieSecure bool, log *slog.Logger) *Handler {
	return &Handler{
		service:      service,
		val:          val,
		manager:      manager,
		cookieSecure: cookieSecure,
		log:          log,
	}
}

// SessionRoutes are reachable without credentials.
func (h *Handler) SessionRoutes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.Post("/logout", h.Logout)
}

// AdminRoutes expects middleware.AdminAuth in front. User management is
// further restricted to admins.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/me", h.Me)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleAdmin))
		r.Get("/users", h.List)
		r.Post("/users", h.Create)
		r.Put("/users/{id}/password", h.SetPassword)
		r.Delete("/users/{id}", h.Delete)
	})
}

type sessionResponse struct {
	Status string `json:"status"`
	User   *User  `json:"user,omitempty"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	if h.manager == nil {
		log.Warn("admin login: not configured")
		httpx.WriteError(w, http.StatusServiceUnavailable, "admin auth not configured", nil)
		return
	}

	var req LoginRequest
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

	u, err := h.service.Authenticate(ctx, req.Login, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			log.Warn("admin login: invalid credentials", slog.String("login", req.Login))
			httpx.WriteError(w, http.StatusUnauthorized, "invalid credentials", nil)
			return
		}
		log.Error("admin login: database error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if err := h.issueSession(w, u); err != nil {
		log.Error("admin login: token error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "token error", nil)
		return
	}
	log.Info("admin login: ok", slog.String("user_id", u.ID))
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{Status: "ok", User: &u})
}

// Refresh rotates both tokens. The role comes from the stored user, so a
// demoted or deleted account loses access at the next refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	if h.manager == nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "admin auth not configured", nil)
		return
	}

	cookie, err := r.Cookie(RefreshCookie)
	if err != nil || cookie.Value == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	claims, err := h.manager.Parse(cookie.Value)
	if err != nil || claims.Kind != auth.KindRefresh {
		log.Warn("admin refresh: invalid refresh token")
		httpx.WriteError(w, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.service.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.clearSession(w)
			httpx.WriteError(w, http.StatusUnauthorized, "invalid refresh token", nil)
			return
		}
		log.Error("admin refresh: database error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if err := h.issueSession(w, u); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "token error", nil)
		return
	}
	log.Info("admin refresh: ok", slog.String("user_id", u.ID))
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{Status: "ok"})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w)
	h.logWithRequest(r).Info("admin logout: ok")
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{Status: "ok"})
}

// Me lets the back-office check its session on load.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if p.ViaKey {
		httpx.WriteJSON(w, http.StatusOK, User{Username: p.Subject, Role: p.Role})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.service.Get(ctx, p.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		log.Error("admin me: database error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := h.service.List(ctx)
	if err != nil {
		log.Error("admin users list: database error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	var req CreateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	req.Username, req.Email = NormalizeIdentity(req.Username, req.Email)
	if err := h.val.Struct(req); err != nil {
		log.Warn("admin users create: validation error")
		httpx.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.service.Create(ctx, req)
	if err != nil {
		if errors.Is(err, ErrExists) {
			log.Warn("admin users create: duplicate", slog.String("username", req.Username))
			httpx.WriteError(w, http.StatusConflict, err.Error(), nil)
			return
		}
		if errors.Is(err, auth.ErrPasswordTooLong) {
			httpx.WriteError(w, http.StatusBadRequest, err.Error(), map[string]string{"password": "max"})
			return
		}
		log.Error("admin users create: database error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin users create: ok", slog.String("user_id", u.ID), slog.String("username", u.Username))
	httpx.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) SetPassword(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := chi.URLParam(r, "id")

	var req PasswordRequest
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

	if err := h.service.SetPassword(ctx, id, req.Password); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "user not found", nil)
			return
		}
		if errors.Is(err, auth.ErrPasswordTooLong) {
			httpx.WriteError(w, http.StatusBadRequest, err.Error(), map[string]string{"password": "max"})
			return
		}
		log.Error("admin users password: database error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin users password: ok", slog.String("user_id", id))
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.service.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.WriteError(w, http.StatusNotFound, "user not found", nil)
		case errors.Is(err, ErrLastAdmin):
			httpx.WriteError(w, http.StatusConflict, err.Error(), nil)
		default:
			log.Error("admin users delete: database error", slog.String("error", err.Error()))
			httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("admin users delete: ok", slog.String("user_id", id))
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) issueSession(w http.ResponseWriter, u User) error {
	access, err := h.manager.NewAccessToken(u.ID, u.Role)
	if err != nil {
		return err
	}
	refresh, err := h.manager.NewRefreshToken(u.ID, u.Role)
	if err != nil {
		return err
	}
	http.SetCookie(w, h.cookie(middleware.AccessCookie, access, "/", h.manager.AccessTTL))
	http.SetCookie(w, h.cookie(RefreshCookie, refresh, refreshPath, h.manager.RefreshTTL))
	return nil
}

func (h *Handler) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie(middleware.AccessCookie, "", "/", -1))
	http.SetCookie(w, h.cookie(RefreshCookie, "", refreshPath, -1))
}

// cookie builds an auth cookie; a negative ttl expires it.
func (h *Handler) cookie(name, value, path string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		return c
	}
	c.MaxAge = int(ttl.Seconds())
	return c
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	return h.log.With(slog.String("request_id", middleware.RequestIDFromContext(r.Context())))
}
