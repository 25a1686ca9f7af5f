package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"turntable/internal/pkg/logger"
	"turntable/internal/pkg/middleware"
)

type nopQueue struct{}

func (nopQueue) Push(context.Context, string) error          { return nil }
func (nopQueue) RequestCancel(context.Context, string) error { return nil }
func (nopQueue) Ping(context.Context) error                  { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://studio.test")
	return NewRouter(Deps{Queue: nopQueue{}, Log: logger.Discard()})
}

func TestRouterHealth(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected request id header")
	}
}

func TestRouterJobValidation(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/jobs", "/jobs/plan"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest("POST", path, strings.NewReader(`{"num_frames":0,"object_name":"Cube"}`)))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), "CONFIGURATION_ERROR") {
				t.Errorf("expected configuration error, got %s", rec.Body.String())
			}
		})
	}
}

func TestRouterPreflight(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest("OPTIONS", "/jobs", nil)
	req.Header.Set("Origin", "http://studio.test")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://studio.test" {
		t.Errorf("expected allowed origin, got %q", got)
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/templates", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
