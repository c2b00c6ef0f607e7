package ops

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

type stubProbe struct {
	name string
	err  error
}

func (p stubProbe) Name() string                  { return p.name }
func (p stubProbe) Check(_ context.Context) error { return p.err }

type panicProbe struct{}

func (panicProbe) Name() string                  { return "flaky" }
func (panicProbe) Check(_ context.Context) error { panic("nil pointer somewhere") }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func doRequest(t *testing.T, handler *Handler, path string) (int, healthResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	var body healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding %s response: %v", path, err)
	}
	return rec.Code, body
}

func TestLiveness_AlwaysHealthy(t *testing.T) {
	handler := NewHandler([]HealthProbe{stubProbe{name: "database", err: errors.New("down")}}, quietLogger())

	code, body := doRequest(t, handler, "/healthz")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body.Status != "healthy" {
		t.Errorf("body status = %s, want healthy", body.Status)
	}
}

func TestReadiness_AllProbesHealthy(t *testing.T) {
	handler := NewHandler([]HealthProbe{
		stubProbe{name: "database"},
		stubProbe{name: "reasoning_engine"},
	}, quietLogger())

	code, body := doRequest(t, handler, "/readyz")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(body.Components) != 2 {
		t.Fatalf("components = %v, want 2 entries", body.Components)
	}
	for name, component := range body.Components {
		if component.Status != "healthy" {
			t.Errorf("component %s = %+v, want healthy", name, component)
		}
	}
}

func TestReadiness_FailingProbe(t *testing.T) {
	handler := NewHandler([]HealthProbe{
		stubProbe{name: "database"},
		stubProbe{name: "reasoning_engine", err: errors.New("connection refused")},
	}, quietLogger())

	code, body := doRequest(t, handler, "/readyz")
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
	if body.Status != "unhealthy" {
		t.Errorf("body status = %s, want unhealthy", body.Status)
	}
	engine := body.Components["reasoning_engine"]
	if engine.Status != "unhealthy" || engine.Message != "connection refused" {
		t.Errorf("reasoning_engine = %+v, want unhealthy with message", engine)
	}
	if db := body.Components["database"]; db.Status != "healthy" {
		t.Errorf("database = %+v, want healthy", db)
	}
}

func TestReadiness_PanickingProbe(t *testing.T) {
	handler := NewHandler([]HealthProbe{panicProbe{}}, quietLogger())

	code, body := doRequest(t, handler, "/readyz")
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
	if flaky := body.Components["flaky"]; flaky.Status != "unhealthy" {
		t.Errorf("flaky = %+v, want unhealthy", flaky)
	}
}

func TestReadiness_NoProbes(t *testing.T) {
	handler := NewHandler(nil, quietLogger())

	code, body := doRequest(t, handler, "/readyz")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body.Status != "healthy" {
		t.Errorf("body status = %s, want healthy", body.Status)
	}
}

func TestDatabaseProbe(t *testing.T) {
	healthy := DatabaseProbe{Pinger: pingFunc(func(context.Context) error { return nil })}
	if err := healthy.Check(context.Background()); err != nil {
		t.Errorf("healthy probe returned %v", err)
	}
	if healthy.Name() != "database" {
		t.Errorf("name = %s, want database", healthy.Name())
	}

	down := DatabaseProbe{Pinger: pingFunc(func(context.Context) error { return errors.New("no route to host") })}
	if err := down.Check(context.Background()); err == nil {
		t.Error("down probe returned nil")
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
