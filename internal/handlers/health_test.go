package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthHandlerHandle(t *testing.T) {
	handler := HealthHandler{}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected json content type got %s", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/healthz", nil)
	rec = httptest.NewRecorder()

	handler.Handle(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected method not allowed got %d", rec.Code)
	}
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandlerReportsDatabase(t *testing.T) {
	healthy := HealthHandler{DB: pingerFunc(func(context.Context) error { return nil })}
	rec := httptest.NewRecorder()
	healthy.Handle(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if body := decodeBody[map[string]string](t, rec); body["database"] != "ok" {
		t.Fatalf("expected database ok, got %v", body)
	}

	down := HealthHandler{DB: pingerFunc(func(context.Context) error { return errors.New("connection refused") })}
	rec = httptest.NewRecorder()
	down.Handle(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503 got %d", rec.Code)
	}
	if body := decodeBody[map[string]string](t, rec); body["status"] != "degraded" || body["database"] != "unreachable" {
		t.Fatalf("unexpected body %v", body)
	}
}
