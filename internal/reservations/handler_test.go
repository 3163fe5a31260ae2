package reservations

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"kairo-backend/internal/middleware"
)

const testAdminKey = "admin-key"

func newTestRouter(t *testing.T) (*fixture, http.Handler) {
	t.Helper()
	f := newFixture(t)
	h := NewHandler(f.svc, f.cache, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	r.Use(middleware.OptionalAdmin(testAdminKey, nil))
	h.Routes(r, nil)
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(middleware.AdminAuth(testAdminKey, nil))
		h.AdminRoutes(admin)
	})
	return f, r
}

func do(t *testing.T, h http.Handler, method, target, body string, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("X-Admin-Key", testAdminKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const bookingBody = `{
	"clientName": "Ana Lima",
	"clientEmail": "ana@example.com",
	"reservationType": "discovery",
	"communicationMethod": "video",
	"projectDescription": "Refonte complète du site vitrine",
	"startTime": "2025-06-02T09:00:00Z",
	"endTime": "2025-06-02T09:30:00Z"
}`

func TestHandlerCreateAndConflict(t *testing.T) {
	_, h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/reservation", bookingBody, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created Reservation
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != StatusPending || created.CancellationToken == "" {
		t.Fatalf("unexpected created record %+v", created)
	}

	rec = do(t, h, http.MethodPost, "/reservation", bookingBody, false)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error != "Ce créneau horaire est déjà réservé" {
		t.Fatalf("unexpected error body %q", body.Error)
	}
}

func TestHandlerCreateValidation(t *testing.T) {
	_, h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/reservation", `{"clientName":"Ana"}`, false)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), MsgMissingFields) {
		t.Fatalf("expected missing fields 400, got %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodPost, "/reservation", `{not json`, false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid json, got %d", rec.Code)
	}
}

func TestHandlerCancelFlow(t *testing.T) {
	f, h := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/reservation", bookingBody, false)
	var created Reservation
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	rec = do(t, h, http.MethodDelete, "/reservation?id="+created.ID+"&token=wrong", "", false)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	for i := 0; i < 2; i++ {
		rec = do(t, h, http.MethodDelete, "/reservation?id="+created.ID+"&token="+created.CancellationToken, "", false)
		if rec.Code != http.StatusOK {
			t.Fatalf("cancel %d: expected 200, got %d", i+1, rec.Code)
		}
		var got Reservation
		_ = json.Unmarshal(rec.Body.Bytes(), &got)
		if got.Status != StatusCancelled {
			t.Fatalf("cancel %d: status %s", i+1, got.Status)
		}
	}

	rec = do(t, h, http.MethodDelete, "/reservation?id=unknown&token=x", "", false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if _, err := f.repo.GetByID(t.Context(), created.ID); err != nil {
		t.Fatalf("cancelled reservation must remain stored: %v", err)
	}
}

func TestHandlerAdminOnlyVerbs(t *testing.T) {
	_, h := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/reservation", bookingBody, false)
	var created Reservation
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	if rec := do(t, h, http.MethodGet, "/reservation", "", false); rec.Code != http.StatusUnauthorized {
		t.Fatalf("listing must require admin, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/reservation?startDate=2025-06-01&endDate=2025-06-30", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var items []Reservation
	_ = json.Unmarshal(rec.Body.Bytes(), &items)
	if len(items) != 1 {
		t.Fatalf("expected one reservation, got %d", len(items))
	}

	if rec := do(t, h, http.MethodGet, "/reservation?id="+created.ID+"&token="+created.CancellationToken, "", false); rec.Code != http.StatusOK {
		t.Fatalf("token holder must read the reservation, got %d", rec.Code)
	}

	if rec := do(t, h, http.MethodPut, "/reservation?id="+created.ID, `{"status":"confirmed"}`, false); rec.Code != http.StatusUnauthorized {
		t.Fatalf("update must require admin, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodPut, "/reservation?id="+created.ID, `{"status":"confirmed","notes":"Rappeler la veille"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodPut, "/reservation?id=nope", `{"notes":"x"}`, true); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPut, "/reservation?id="+created.ID, `{"status":"pending"}`, true); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid transition, got %d", rec.Code)
	}
}

func TestHandlerAvailabilityCached(t *testing.T) {
	f, h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/availability?date=2025-06-02", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var day DayAvailability
	_ = json.Unmarshal(rec.Body.Bytes(), &day)
	if len(day.Slots) != 18 {
		t.Fatalf("expected 18 slots, got %d", len(day.Slots))
	}
	if _, ok, _ := f.cache.Get(t.Context(), AvailabilityCachePrefix+"2025-06-02"); !ok {
		t.Fatalf("expected availability to be cached")
	}

	if rec := do(t, h, http.MethodGet, "/availability?date=tomorrow", "", false); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/availability/next?from=2025-05-31", "", false); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandlerAvailabilityTodayNotCached(t *testing.T) {
	f, h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/availability?date=2025-05-28", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var day DayAvailability
	_ = json.Unmarshal(rec.Body.Bytes(), &day)
	if len(day.Slots) != 11 || day.Slots[0].Start.In(f.svc.Location()).Format("15:04") != "12:30" {
		t.Fatalf("expected only the slots after noon, got %v", day.Slots)
	}
	if _, ok, _ := f.cache.Get(t.Context(), AvailabilityCachePrefix+"2025-05-28"); ok {
		t.Fatalf("today's availability must not be cached")
	}
}

func TestAvailabilityTTL(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, f.cache, 24*time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	loc := f.svc.Location()

	cases := []struct {
		name string
		date time.Time
		want time.Duration
	}{
		{"today", time.Date(2025, 5, 28, 0, 0, 0, 0, loc), 0},
		{"tomorrow", time.Date(2025, 5, 29, 0, 0, 0, 0, loc), 12 * time.Hour},
		{"next week", time.Date(2025, 6, 4, 0, 0, 0, 0, loc), 24 * time.Hour},
		{"past", time.Date(2025, 5, 20, 0, 0, 0, 0, loc), 24 * time.Hour},
	}
	for _, tc := range cases {
		if got := h.availabilityTTL(tc.date); got != tc.want {
			t.Fatalf("%s: ttl = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestHandlerExclusions(t *testing.T) {
	_, h := newTestRouter(t)

	if rec := do(t, h, http.MethodGet, "/admin/exclusions", "", false); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/admin/exclusions", `{"startDate":"2025-06-10","endDate":"2025-06-12","reason":"Congés"}`, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var e Exclusion
	_ = json.Unmarshal(rec.Body.Bytes(), &e)

	body := strings.ReplaceAll(strings.ReplaceAll(bookingBody, "2025-06-02T09:00:00Z", "2025-06-11T09:00:00Z"), "2025-06-02T09:30:00Z", "2025-06-11T09:30:00Z")
	rec = do(t, h, http.MethodPost, "/reservation", body, false)
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "Cette date n'est pas disponible") {
		t.Fatalf("expected excluded date conflict, got %d %s", rec.Code, rec.Body.String())
	}

	if rec := do(t, h, http.MethodDelete, "/admin/exclusions/"+e.ID, "", true); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
