package settings

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"kairo-backend/internal/cache"
)

type memoryRepo struct {
	mu    sync.Mutex
	value *Value
	saves int
}

func (m *memoryRepo) Load(_ context.Context) (Value, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.value == nil {
		return Value{}, false, nil
	}
	return *m.value, true, nil
}

func (m *memoryRepo) Save(_ context.Context, v Value, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = &v
	m.saves++
	return nil
}

func newTestRouter(t *testing.T) (*memoryRepo, http.Handler) {
	t.Helper()
	repo := &memoryRepo{}
	h := NewHandler(NewService(repo, time.UTC), cache.NewMemory(), time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Routes(r)
	r.Route("/admin", h.AdminRoutes)
	return repo, r
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, reader))
	return rec
}

func TestGetDefaults(t *testing.T) {
	_, r := newTestRouter(t)
	rec := serve(r, http.MethodGet, "/settings", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), `{"siteName":"Kairo Digital"`) {
		t.Fatalf("unexpected defaults %d %s", rec.Code, rec.Body.String())
	}
}

func TestSetPathInvalidatesCache(t *testing.T) {
	repo, r := newTestRouter(t)
	_ = serve(r, http.MethodGet, "/settings", "")

	rec := serve(r, http.MethodPatch, "/admin/settings", `{"path":"contact.email","value":"hello@kairo.example"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if repo.saves != 1 {
		t.Fatalf("expected one save, got %d", repo.saves)
	}

	body := serve(r, http.MethodGet, "/settings", "").Body.String()
	if !strings.Contains(body, `"email":"hello@kairo.example"`) {
		t.Fatalf("expected fresh settings after update, got %s", body)
	}

	rec = serve(r, http.MethodPatch, "/admin/settings", `{"path":"siteName.x","value":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 when crossing a leaf, got %d", rec.Code)
	}
	rec = serve(r, http.MethodPatch, "/admin/settings", `{"path":"a"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without value, got %d", rec.Code)
	}
}

func TestReplaceAndForm(t *testing.T) {
	_, r := newTestRouter(t)
	if rec := serve(r, http.MethodPut, "/admin/settings", `["not","an","object"]`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-object root, got %d", rec.Code)
	}

	rec := serve(r, http.MethodPut, "/admin/settings", `{"brand":{"primaryColor":"#112233"},"showBlog":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(r, http.MethodGet, "/admin/settings/form", "")
	want := `{"fields":[{"path":"brand","label":"Brand","kind":"object","fields":[{"path":"brand.primaryColor","label":"Primary color","kind":"string","value":"#112233"}]},{"path":"showBlog","label":"Show blog","kind":"boolean","value":true}]}`
	if strings.TrimSpace(rec.Body.String()) != want {
		t.Fatalf("unexpected form\n got %s\nwant %s", rec.Body.String(), want)
	}
}
