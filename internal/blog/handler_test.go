package blog

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"kairo-backend/internal/cache"
	"kairo-backend/internal/validation"
)

func newTestRouter(t *testing.T) (*cache.MemoryCache, http.Handler) {
	t.Helper()
	svc, _, _ := newTestService(t)
	c := cache.NewMemory()
	h := NewHandler(svc, validation.New(), c, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Routes(r)
	r.Route("/admin", h.AdminRoutes)
	return c, r
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPublicListCachedAndInvalidated(t *testing.T) {
	c, r := newTestRouter(t)

	rec := serve(r, http.MethodGet, "/blog", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"items":[]`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if _, ok, _ := c.Get(t.Context(), CachePrefix+"list::"); !ok {
		t.Fatalf("expected list to be cached")
	}

	rec = serve(r, http.MethodPost, "/admin/blog", `{"title":"Bonjour","content":"Salut","isPublished":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	if _, ok, _ := c.Get(t.Context(), CachePrefix+"list::"); ok {
		t.Fatalf("expected cache invalidated after write")
	}

	rec = serve(r, http.MethodGet, "/blog", "")
	if !strings.Contains(rec.Body.String(), `"slug":"bonjour"`) {
		t.Fatalf("expected new post in list, got %s", rec.Body.String())
	}

	rec = serve(r, http.MethodGet, "/blog/bonjour", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `<p>Salut</p>`) {
		t.Fatalf("unexpected post %d %s", rec.Code, rec.Body.String())
	}
}

func TestAdminCreateValidation(t *testing.T) {
	_, r := newTestRouter(t)

	rec := serve(r, http.MethodPost, "/admin/blog", `{"content":"x"}`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"title":"required"`) {
		t.Fatalf("expected title validation error, got %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(r, http.MethodPost, "/admin/blog", `{"title":"a","content":"x","unknown":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected unknown fields rejected, got %d", rec.Code)
	}

	_ = serve(r, http.MethodPost, "/admin/blog", `{"title":"Same","content":"x"}`)
	rec = serve(r, http.MethodPost, "/admin/blog", `{"title":"Same","content":"x"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate slug, got %d", rec.Code)
	}
}

func TestPublicGetMissing(t *testing.T) {
	_, r := newTestRouter(t)
	rec := serve(r, http.MethodGet, "/blog/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	rec = serve(r, http.MethodDelete, "/admin/blog/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
