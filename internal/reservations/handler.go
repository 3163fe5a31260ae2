package reservations

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"kairo-backend/internal/availability"
	"kairo-backend/internal/cache"
	"kairo-backend/internal/httpx"
	"kairo-backend/internal/middleware"
)

const notifyTimeout = 8 * time.Second

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
	return &Handler{
		service:  service,
		cache:    c,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// Routes mounts the public booking endpoints. Callers wrap the router with
// middleware.OptionalAdmin so admin-only verbs can check the principal.
func (h *Handler) Routes(r chi.Router, createLimiter func(http.Handler) http.Handler) {
	if createLimiter == nil {
		r.Post("/reservation", h.Create)
	} else {
		r.With(createLimiter).Post("/reservation", h.Create)
	}
	r.Get("/reservation", h.Get)
	r.Put("/reservation", h.Update)
	r.Delete("/reservation", h.Cancel)
	r.Get("/availability", h.Availability)
	r.Get("/availability/next", h.NextAvailability)
}

// AdminRoutes expects to be mounted behind middleware.AdminAuth.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/exclusions", h.AdminListExclusions)
	r.Post("/exclusions", h.AdminCreateExclusion)
	r.Delete("/exclusions/{id}", h.AdminDeleteExclusion)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req CreateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("reservation create: invalid json")
		httpx.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	res, err := h.service.Create(ctx, req)
	if err != nil {
		h.writeServiceError(w, log, "reservation create", err)
		return
	}

	go func(created Reservation) {
		notifyCtx, notifyCancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer notifyCancel()
		h.service.AfterCreate(notifyCtx, created)
	}(res)

	log.Info("reservation create: ok",
		slog.String("reservation_id", res.ID),
		slog.String("start", res.StartTime.Format(time.RFC3339)),
		slog.String("type", res.Type),
	)
	httpx.WriteJSON(w, http.StatusCreated, res)
}

// Get serves both the admin listing (no id) and the single lookup used by
// the client cancellation page (id and token).
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	q := r.URL.Query()
	admin := middleware.IsAdmin(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if id := strings.TrimSpace(q.Get("id")); id != "" {
		res, err := h.service.Get(ctx, id, q.Get("token"), admin)
		if err != nil {
			h.writeServiceError(w, log, "reservation get", err)
			return
		}
		log.Info("reservation get: ok", slog.String("reservation_id", id))
		httpx.WriteJSON(w, http.StatusOK, res)
		return
	}

	if !admin {
		log.Warn("reservation list: unauthorized")
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	from, err := h.service.ParseListBound(q.Get("startDate"), false)
	if err != nil {
		h.writeServiceError(w, log, "reservation list", err)
		return
	}
	until, err := h.service.ParseListBound(q.Get("endDate"), true)
	if err != nil {
		h.writeServiceError(w, log, "reservation list", err)
		return
	}

	items, err := h.service.List(ctx, ListFilter{From: from, Until: until, Status: q.Get("status")})
	if err != nil {
		h.writeServiceError(w, log, "reservation list", err)
		return
	}

	log.Info("reservation list: ok", slog.Int("count", len(items)))
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	if !middleware.IsAdmin(r.Context()) {
		log.Warn("reservation update: unauthorized")
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		log.Warn("reservation update: missing id")
		httpx.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req UpdateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("reservation update: invalid json")
		httpx.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, changes, err := h.service.Update(ctx, id, req)
	if err != nil {
		h.writeServiceError(w, log, "reservation update", err)
		return
	}

	if len(changes) > 0 {
		go func(updated Reservation, changes []string) {
			notifyCtx, notifyCancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer notifyCancel()
			h.service.AfterUpdate(notifyCtx, updated, changes)
		}(res, changes)
	}

	log.Info("reservation update: ok", slog.String("reservation_id", id), slog.Any("changes", changes))
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	q := r.URL.Query()
	id := strings.TrimSpace(q.Get("id"))
	if id == "" {
		log.Warn("reservation cancel: missing id")
		httpx.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, changed, err := h.service.Cancel(ctx, id, q.Get("token"), middleware.IsAdmin(r.Context()))
	if err != nil {
		h.writeServiceError(w, log, "reservation cancel", err)
		return
	}

	if changed {
		go func(cancelled Reservation) {
			notifyCtx, notifyCancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer notifyCancel()
			h.service.AfterCancel(notifyCtx, cancelled)
		}(res)
	}

	log.Info("reservation cancel: ok", slog.String("reservation_id", id), slog.Bool("changed", changed))
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	date, err := availability.ParseDate(dateStr, h.service.Location())
	if err != nil {
		log.Warn("availability: invalid date", slog.String("date", dateStr))
		httpx.WriteError(w, http.StatusBadRequest, "invalid query", map[string]string{"date": "date"})
		return
	}

	cacheKey := AvailabilityCachePrefix + dateStr
	if cached, ok, err := h.cache.Get(r.Context(), cacheKey); err == nil && ok {
		log.Info("availability: cache hit", slog.String("date", dateStr))
		httpx.WriteRaw(w, http.StatusOK, cached)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	day, err := h.service.Availability(ctx, date)
	if err != nil {
		log.Error("availability: compute error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "availability error", nil)
		return
	}

	if ttl := h.availabilityTTL(date); ttl > 0 {
		h.store(r.Context(), cacheKey, day, ttl)
	}
	log.Info("availability: ok", slog.String("date", dateStr), slog.Int("slots", len(day.Slots)))
	httpx.WriteJSON(w, http.StatusOK, day)
}

func (h *Handler) NextAvailability(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	loc := h.service.Location()
	from := time.Now().In(loc)
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		parsed, err := availability.ParseDate(raw, loc)
		if err != nil {
			log.Warn("availability next: invalid date", slog.String("from", raw))
			httpx.WriteError(w, http.StatusBadRequest, "invalid query", map[string]string{"from": "date"})
			return
		}
		from = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	day, ok, err := h.service.NextAvailable(ctx, from)
	if err != nil {
		log.Error("availability next: compute error", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "availability error", nil)
		return
	}
	if !ok {
		log.Info("availability next: none", slog.String("from", availability.DateOf(from, loc)))
		httpx.WriteError(w, http.StatusNotFound, "no availability", nil)
		return
	}

	log.Info("availability next: ok", slog.String("date", day.Date))
	httpx.WriteJSON(w, http.StatusOK, day)
}

func (h *Handler) AdminListExclusions(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := h.service.ListExclusions(ctx)
	if err != nil {
		h.writeServiceError(w, log, "admin exclusions list", err)
		return
	}
	log.Info("admin exclusions list: ok", slog.Int("count", len(items)))
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) AdminCreateExclusion(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	var req ExclusionRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin exclusion create: invalid json")
		httpx.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	e, err := h.service.CreateExclusion(ctx, req)
	if err != nil {
		h.writeServiceError(w, log, "admin exclusion create", err)
		return
	}
	log.Info("admin exclusion create: ok", slog.String("exclusion_id", e.ID))
	httpx.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) AdminDeleteExclusion(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.service.DeleteExclusion(ctx, id); err != nil {
		h.writeServiceError(w, log, "admin exclusion delete", err)
		return
	}
	log.Info("admin exclusion delete: ok", slog.String("exclusion_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	var e *Error
	if errors.As(err, &e) {
		log.Warn(op+": rejected", slog.String("reason", e.Message))
		httpx.WriteError(w, HTTPStatus(err), e.Message, e.Details)
		return
	}
	log.Error(op+": database error", slog.String("error", err.Error()))
	httpx.WriteError(w, http.StatusInternalServerError, "database error", nil)
}

// availabilityTTL bounds how long a day's slots may be served from cache.
// Today's list shrinks as slots start, so it is never cached; a future day
// must expire before it becomes today.
func (h *Handler) availabilityTTL(date time.Time) time.Duration {
	now := h.service.now()
	day := availability.StartOfDay(date, h.service.Location())
	today := availability.StartOfDay(now, h.service.Location())
	switch {
	case day.Equal(today):
		return 0
	case day.After(today):
		return min(h.cacheTTL, day.Sub(now))
	default:
		return h.cacheTTL
	}
}

func (h *Handler) store(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := h.cache.Set(ctx, key, payload, ttl); err != nil {
		h.log.Warn("availability cache: set failed", slog.String("error", err.Error()))
	}
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	return h.log.With(slog.String("request_id", middleware.RequestIDFromContext(r.Context())))
}
